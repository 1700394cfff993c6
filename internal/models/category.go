package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a competition track with its own fee and participant cap.
// Reference data; never mutated by the registration flow.
type Category struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Fee             int64     `json:"fee"`
	MaxParticipants int       `json:"max_participants"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
