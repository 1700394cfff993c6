// Package lifecycle holds the registration payment-status state machine and
// the access predicate gating dashboards, tickets and certificates. It is
// pure: persistence layers apply the transitions it yields as conditional
// writes whose row count decides the outcome.
package lifecycle

import "errors"

// Payment statuses a registration moves through.
const (
	StatusPending              = "pending"
	StatusAwaitingVerification = "awaiting_verification"
	StatusPaid                 = "paid"
	StatusFailed               = "failed"
)

var (
	// ErrNotFound signals an unknown tracking or ticket number.
	ErrNotFound = errors.New("not found")
	// ErrNotEligible signals the access predicate does not hold.
	ErrNotEligible = errors.New("registration not eligible")
	// ErrNotYetEligible signals a certificate request before check-in.
	ErrNotYetEligible = errors.New("not yet eligible")
	// ErrAlreadyCheckedIn signals a second check-in attempt on a used ticket.
	ErrAlreadyCheckedIn = errors.New("ticket already checked in")
	// ErrNotVerified signals a check-in attempt on an unverified registration.
	ErrNotVerified = errors.New("payment not verified")
	// ErrInvalidTransition signals a transition the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// State is the (paymentStatus, adminVerified) pair the lifecycle acts on.
type State struct {
	PaymentStatus string
	AdminVerified bool
}

// CanAccess reports whether dashboard and ticket data may be exposed.
// Anything short of paid-and-verified renders a processing state.
func (s State) CanAccess() bool {
	return s.PaymentStatus == StatusPaid && s.AdminVerified
}

// Attest applies the user's "I've made payment" action. Repeating the
// attestation while already awaiting verification is a no-op, not an error;
// changed reports whether a write is needed.
func Attest(s State) (next State, changed bool, err error) {
	switch s.PaymentStatus {
	case StatusPending:
		return State{PaymentStatus: StatusAwaitingVerification}, true, nil
	case StatusAwaitingVerification:
		return s, false, nil
	default:
		return s, false, ErrInvalidTransition
	}
}

// Verify applies the admin decision on an attested bank transfer. Valid only
// from awaiting_verification; any other state is a tolerated no-op so that a
// double-click cannot corrupt a registration.
func Verify(s State, approve bool) (next State, changed bool) {
	if s.PaymentStatus != StatusAwaitingVerification {
		return s, false
	}
	if approve {
		return State{PaymentStatus: StatusPaid, AdminVerified: true}, true
	}
	return State{PaymentStatus: StatusPending, AdminVerified: false}, true
}

// GatewayResult applies a verified gateway outcome. Success confirms funds so
// it also sets adminVerified; re-delivery of a result for an already-paid
// registration changes nothing. Failure is terminal until Retry.
func GatewayResult(s State, success bool) (next State, changed bool) {
	if s.PaymentStatus == StatusPaid {
		return s, false
	}
	if success {
		return State{PaymentStatus: StatusPaid, AdminVerified: true}, true
	}
	return State{PaymentStatus: StatusFailed, AdminVerified: false}, true
}

// Retry returns a failed registration to pending so the user can pay again.
func Retry(s State) (next State, changed bool, err error) {
	if s.PaymentStatus != StatusFailed {
		return s, false, ErrInvalidTransition
	}
	return State{PaymentStatus: StatusPending}, true, nil
}
