package registrations

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// TrackingPrefix is the fixed prefix on every public tracking number.
const TrackingPrefix = "CHAF-"

// trackingAlphabet omits 0/O/1/I to keep numbers unambiguous over the phone.
const trackingAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const trackingSuffixLen = 8

// GenerateTrackingNumber returns a fresh tracking number candidate. The
// caller retries on a unique-constraint violation; a number is never reused
// once a row holds it.
func GenerateTrackingNumber() (string, error) {
	buf := make([]byte, trackingSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	out := make([]byte, trackingSuffixLen)
	for i, b := range buf {
		out[i] = trackingAlphabet[int(b)%len(trackingAlphabet)]
	}
	return TrackingPrefix + string(out), nil
}

// NormalizeTracking canonicalizes user input: lookups are case-insensitive.
func NormalizeTracking(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
