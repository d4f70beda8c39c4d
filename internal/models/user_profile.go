package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile holds the presentation fields for a user. The role lives
// on the users row only; profiles never carry authorization state.
type UserProfile struct {
	UserID    uuid.UUID `json:"id" db:"user_id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Phone     *string   `json:"phone" db:"phone"`
	Company   *string   `json:"company" db:"company"`
	AvatarURL *string   `json:"avatar_url" db:"avatar_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
