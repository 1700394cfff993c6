package registrations

import (
	"testing"

	"github.com/chaf-events/backend/internal/lifecycle"
)

func TestAttestOutcome(t *testing.T) {
	t.Run("update landed", func(t *testing.T) {
		status, record := attestOutcome(true, lifecycle.State{PaymentStatus: lifecycle.StatusPending})
		if status != lifecycle.StatusAwaitingVerification {
			t.Errorf("status = %q", status)
		}
		if !record {
			t.Error("expected a manual payment record")
		}
	})

	t.Run("repeat attestation", func(t *testing.T) {
		status, record := attestOutcome(false, lifecycle.State{PaymentStatus: lifecycle.StatusAwaitingVerification})
		if status != lifecycle.StatusAwaitingVerification {
			t.Errorf("status = %q", status)
		}
		if !record {
			t.Error("repeat attestation should still upsert the record")
		}
	})

	t.Run("lost to concurrent gateway success", func(t *testing.T) {
		status, record := attestOutcome(false, lifecycle.State{
			PaymentStatus: lifecycle.StatusPaid,
			AdminVerified: true,
		})
		if status != lifecycle.StatusPaid {
			t.Errorf("status = %q, must report the actual row state", status)
		}
		if record {
			t.Error("no manual record may be written for a paid registration")
		}
	})

	t.Run("lost to concurrent gateway failure", func(t *testing.T) {
		status, record := attestOutcome(false, lifecycle.State{PaymentStatus: lifecycle.StatusFailed})
		if status != lifecycle.StatusFailed {
			t.Errorf("status = %q", status)
		}
		if record {
			t.Error("no manual record may be written for a failed registration")
		}
	})
}
