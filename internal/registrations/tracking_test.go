package registrations

import (
	"strings"
	"testing"
)

func TestGenerateTrackingNumber(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tn, err := GenerateTrackingNumber()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(tn, TrackingPrefix) {
			t.Fatalf("tracking %q missing prefix %q", tn, TrackingPrefix)
		}
		suffix := strings.TrimPrefix(tn, TrackingPrefix)
		if len(suffix) != trackingSuffixLen {
			t.Fatalf("suffix length = %d, want %d", len(suffix), trackingSuffixLen)
		}
		for _, r := range suffix {
			if strings.ContainsRune("0O1I", r) {
				t.Fatalf("tracking %q contains ambiguous character %q", tn, r)
			}
		}
		if seen[tn] {
			t.Fatalf("duplicate tracking number %q", tn)
		}
		seen[tn] = true
	}
}

func TestNormalizeTracking(t *testing.T) {
	cases := []struct{ in, want string }{
		{"chaf-abcd2345", "CHAF-ABCD2345"},
		{"  CHAF-ABCD2345  ", "CHAF-ABCD2345"},
		{"Chaf-AbCd2345", "CHAF-ABCD2345"},
	}
	for _, tc := range cases {
		if got := NormalizeTracking(tc.in); got != tc.want {
			t.Errorf("NormalizeTracking(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
