package models

import (
	"time"

	"github.com/google/uuid"
)

// Image is an uploaded photo tied to a project and optionally to one of
// its measurements. MeasurementID goes null when the measurement row is
// removed; the image stays with the project.
type Image struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ProjectID     uuid.UUID  `json:"project_id" db:"project_id"`
	MeasurementID *uuid.UUID `json:"measurement_id" db:"measurement_id"`
	StoragePath   string     `json:"storage_path" db:"storage_path"`
	PublicURL     string     `json:"public_url" db:"public_url"`
	OriginalName  string     `json:"original_name" db:"original_name"`
	MimeType      string     `json:"mime_type" db:"mime_type"`
	SizeBytes     int64      `json:"size_bytes" db:"size_bytes"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
