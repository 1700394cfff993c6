package models

import (
	"time"

	"github.com/google/uuid"
)

// IndividualRegistration is a single-participant registration with a fixed fee.
type IndividualRegistration struct {
	ID             uuid.UUID `json:"id"`
	TrackingNumber string    `json:"tracking_number"`
	FullName       string    `json:"full_name"`
	PhoneNumber    string    `json:"phone_number"`
	Email          string    `json:"email,omitempty"`
	Gender         string    `json:"gender"`
	State          string    `json:"state"`
	LGA            string    `json:"lga"`
	Comments       string    `json:"comments,omitempty"`
	Amount         int64     `json:"amount"`
	PaymentStatus  string    `json:"payment_status"`
	AdminVerified  bool      `json:"admin_verified"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
