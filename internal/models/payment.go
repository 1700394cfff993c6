package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Payment gateways.
const (
	PaymentGatewayPaystack = "paystack"
	PaymentGatewayManual   = "manual"
)

// Payment record statuses (distinct from registration payment_status: a
// record tracks one attempt, the registration tracks the lifecycle).
const (
	PaymentRecordPending = "pending"
	PaymentRecordPaid    = "paid"
	PaymentRecordFailed  = "failed"
)

// PaymentRecord is one payment attempt against a registration. The unique
// payment_reference makes webhook retries and repeated attestations no-ops.
type PaymentRecord struct {
	ID               uuid.UUID       `json:"id"`
	RegistrationID   uuid.UUID       `json:"registration_id"`
	RegistrationKind string          `json:"registration_kind"`
	Amount           int64           `json:"amount"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	PaymentGateway   string          `json:"payment_gateway"`
	PaymentReference string          `json:"payment_reference"`
	GatewayReference string          `json:"gateway_reference,omitempty"`
	TransactionID    string          `json:"transaction_id,omitempty"`
	PaymentStatus    string          `json:"payment_status"`
	GatewayResponse  json.RawMessage `json:"gateway_response,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
