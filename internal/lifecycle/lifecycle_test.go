package lifecycle

import (
	"testing"
)

func TestCanAccess(t *testing.T) {
	// Access is granted iff paid AND admin-verified, for every combination.
	cases := []struct {
		status   string
		verified bool
		want     bool
	}{
		{StatusPending, false, false},
		{StatusPending, true, false},
		{StatusAwaitingVerification, false, false},
		{StatusAwaitingVerification, true, false},
		{StatusPaid, false, false},
		{StatusPaid, true, true},
		{StatusFailed, false, false},
		{StatusFailed, true, false},
	}
	for _, tc := range cases {
		got := State{PaymentStatus: tc.status, AdminVerified: tc.verified}.CanAccess()
		if got != tc.want {
			t.Errorf("CanAccess(%s, verified=%v) = %v, want %v", tc.status, tc.verified, got, tc.want)
		}
	}
}

func TestAttest(t *testing.T) {
	t.Run("pending moves to awaiting_verification", func(t *testing.T) {
		next, changed, err := Attest(State{PaymentStatus: StatusPending})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !changed || next.PaymentStatus != StatusAwaitingVerification {
			t.Errorf("got %+v changed=%v", next, changed)
		}
	})

	t.Run("repeated attestation is a no-op, not an error", func(t *testing.T) {
		first, _, err := Attest(State{PaymentStatus: StatusPending})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, changed, err := Attest(first)
		if err != nil {
			t.Fatalf("second attestation errored: %v", err)
		}
		if changed {
			t.Error("second attestation should not require a write")
		}
		if second != first {
			t.Errorf("state changed on repeat: %+v -> %+v", first, second)
		}
	})

	t.Run("attesting a paid registration is rejected", func(t *testing.T) {
		_, _, err := Attest(State{PaymentStatus: StatusPaid, AdminVerified: true})
		if err == nil {
			t.Error("expected error attesting a paid registration")
		}
	})
}

func TestVerify(t *testing.T) {
	t.Run("approve sets paid and verified", func(t *testing.T) {
		next, changed := Verify(State{PaymentStatus: StatusAwaitingVerification}, true)
		if !changed || next.PaymentStatus != StatusPaid || !next.AdminVerified {
			t.Errorf("got %+v changed=%v", next, changed)
		}
	})

	t.Run("reject returns to pending unverified", func(t *testing.T) {
		next, changed := Verify(State{PaymentStatus: StatusAwaitingVerification}, false)
		if !changed || next.PaymentStatus != StatusPending || next.AdminVerified {
			t.Errorf("got %+v changed=%v", next, changed)
		}
	})

	t.Run("double-click on an already verified registration is a no-op", func(t *testing.T) {
		paid := State{PaymentStatus: StatusPaid, AdminVerified: true}
		next, changed := Verify(paid, true)
		if changed || next != paid {
			t.Errorf("got %+v changed=%v", next, changed)
		}
	})

	t.Run("verify on pending is a no-op", func(t *testing.T) {
		pending := State{PaymentStatus: StatusPending}
		next, changed := Verify(pending, true)
		if changed || next != pending {
			t.Errorf("got %+v changed=%v", next, changed)
		}
	})
}

func TestGatewayResult(t *testing.T) {
	t.Run("success from pending confirms payment directly", func(t *testing.T) {
		next, changed := GatewayResult(State{PaymentStatus: StatusPending}, true)
		if !changed || next.PaymentStatus != StatusPaid || !next.AdminVerified {
			t.Errorf("got %+v changed=%v", next, changed)
		}
	})

	t.Run("redelivered success for a paid registration changes nothing", func(t *testing.T) {
		paid := State{PaymentStatus: StatusPaid, AdminVerified: true}
		next, changed := GatewayResult(paid, true)
		if changed || next != paid {
			t.Errorf("got %+v changed=%v", next, changed)
		}
	})

	t.Run("failure marks failed", func(t *testing.T) {
		next, changed := GatewayResult(State{PaymentStatus: StatusPending}, false)
		if !changed || next.PaymentStatus != StatusFailed {
			t.Errorf("got %+v changed=%v", next, changed)
		}
	})
}

func TestRetry(t *testing.T) {
	t.Run("failed returns to pending", func(t *testing.T) {
		next, changed, err := Retry(State{PaymentStatus: StatusFailed})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !changed || next.PaymentStatus != StatusPending {
			t.Errorf("got %+v changed=%v", next, changed)
		}
	})

	t.Run("retry from any other state is rejected", func(t *testing.T) {
		for _, status := range []string{StatusPending, StatusAwaitingVerification, StatusPaid} {
			if _, _, err := Retry(State{PaymentStatus: status}); err == nil {
				t.Errorf("expected error retrying from %s", status)
			}
		}
	})
}
