package models

import (
	"time"

	"github.com/google/uuid"
)

// Measurement is one recorded item (window, curtain, wardrobe, ...)
// belonging to a project. Width and height of zero with no depth is a
// valid note-only row. Depth is null for 2-D products such as curtains.
type Measurement struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ProjectID    uuid.UUID `json:"project_id" db:"project_id"`
	Floor        string    `json:"floor" db:"floor"`
	RoomNumber   string    `json:"room_number" db:"room_number"`
	Room         string    `json:"room" db:"room"`
	ProductType  string    `json:"product_type" db:"product_type"`
	ProductLabel string    `json:"product_label" db:"product_label"`
	Width        float64   `json:"width" db:"width"`
	Height       float64   `json:"height" db:"height"`
	Depth        *float64  `json:"depth" db:"depth"`
	Quantity     int       `json:"quantity" db:"quantity"`
	Observations *string   `json:"observations" db:"observations"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
