package models

import (
	"time"

	"github.com/google/uuid"
)

// Ticket statuses.
const (
	TicketStatusActive = "active"
)

// Ticket is an issued, checkable event ticket. One per registration (the
// group master ticket and the individual ticket share this shape).
type Ticket struct {
	ID             uuid.UUID  `json:"id"`
	RegistrationID uuid.UUID  `json:"registration_id"`
	TicketNumber   string     `json:"ticket_number"`
	QRCode         string     `json:"qr_code"`
	Status         string     `json:"status"`
	CheckedIn      bool       `json:"checked_in"`
	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"`
	CheckedInBy    string     `json:"checked_in_by,omitempty"`
	PDFURL         string     `json:"pdf_url,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CustomTicket is a named holder ticket within a group registration, one per
// (holder, category) pair.
type CustomTicket struct {
	ID             uuid.UUID `json:"id"`
	RegistrationID uuid.UUID `json:"registration_id"`
	CategoryID     uuid.UUID `json:"category_id"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	TicketNumber   string    `json:"ticket_number"`
	QRCode         string    `json:"qr_code"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Certificate is the read-only projection returned once a ticket is checked
// in. Derived, never stored.
type Certificate struct {
	ParticipantName string    `json:"participant_name"`
	TrackingNumber  string    `json:"tracking_number"`
	Gender          string    `json:"gender"`
	State           string    `json:"state"`
	LGA             string    `json:"lga"`
	EventName       string    `json:"event_name"`
	CheckedInAt     time.Time `json:"checked_in_at"`
}
