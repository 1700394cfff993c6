package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration kinds, used to route payment records and ticket issuance.
const (
	KindSchool     = "school"
	KindIndividual = "individual"
)

// Payment methods.
const (
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodGateway      = "gateway"
)

// Registration is a school/group registration covering one or more categories.
type Registration struct {
	ID             uuid.UUID `json:"id"`
	TrackingNumber string    `json:"tracking_number"`
	SchoolName     string    `json:"school_name"`
	ContactName    string    `json:"contact_name"`
	ContactPhone   string    `json:"contact_phone"`
	ContactEmail   string    `json:"contact_email,omitempty"`
	Comments       string    `json:"comments,omitempty"`
	TotalAmount    int64     `json:"total_amount"`
	PaymentStatus  string    `json:"payment_status"`
	PaymentMethod  string    `json:"payment_method,omitempty"`
	AdminVerified  bool      `json:"admin_verified"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Participants []Participant `json:"participants,omitempty"`
	CategoryIDs  []uuid.UUID   `json:"category_ids,omitempty"`
}

// Participant is one seat in a school registration.
type Participant struct {
	ID             uuid.UUID `json:"id"`
	RegistrationID uuid.UUID `json:"registration_id"`
	Name           string    `json:"name"`
	Class          string    `json:"class"`
	CategoryID     uuid.UUID `json:"category_id"`
	CreatedAt      time.Time `json:"created_at"`
}
