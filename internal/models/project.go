package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProjectStatusDraft      = "draft"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusCompleted  = "completed"
)

// Project is one measurement job for one client/location, owned by a
// single field worker.
type Project struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	FirstName     string    `json:"first_name" db:"first_name"`
	LastName      string    `json:"last_name" db:"last_name"`
	Email         *string   `json:"email" db:"email"`
	Phone         *string   `json:"phone" db:"phone"`
	Location      string    `json:"location" db:"location"`
	JobType       *string   `json:"job_type" db:"job_type"`
	Date          *string   `json:"date" db:"date"`
	RailType      *string   `json:"rail_type" db:"rail_type"`
	Observations  *string   `json:"observations" db:"observations"`
	Status        string    `json:"status" db:"status"`
	LastReportURL *string   `json:"last_report_url" db:"last_report_url"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ProjectWithOwner is the admin listing shape: a project joined with
// its owner's email.
type ProjectWithOwner struct {
	Project
	UserEmail string `json:"user_email" db:"user_email"`
}

func ValidProjectStatus(status string) bool {
	switch status {
	case ProjectStatusDraft, ProjectStatusInProgress, ProjectStatusCompleted:
		return true
	}
	return false
}
