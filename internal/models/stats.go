package models

import "time"

// AdminStats is the backoffice dashboard aggregate.
type AdminStats struct {
	Users        int       `json:"users"`
	Projects     int       `json:"projects"`
	Measurements int       `json:"measurements"`
	GeneratedAt  time.Time `json:"generated_at"`
}
