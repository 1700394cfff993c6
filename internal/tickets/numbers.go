package tickets

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
)

const ticketSuffix = "-TKT"

// DeriveTicketNumber maps a tracking number to its master ticket number.
// Deterministic: re-issuing a ticket always produces the same number.
func DeriveTicketNumber(trackingNumber string) string {
	return trackingNumber + ticketSuffix
}

// TrackingFromTicketNumber inverts DeriveTicketNumber. Reports false for
// holder ticket numbers, which carry no suffix.
func TrackingFromTicketNumber(ticketNumber string) (string, bool) {
	if !strings.HasSuffix(ticketNumber, ticketSuffix) {
		return "", false
	}
	return strings.TrimSuffix(ticketNumber, ticketSuffix), true
}

// DeriveHolderTicketNumber maps a (tracking, category, holder) triple to a
// stable per-holder ticket number. The fnv hash disambiguates holders while
// keeping the number reproducible across re-issues.
func DeriveHolderTicketNumber(trackingNumber, categoryCode, holderName string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToUpper(strings.TrimSpace(holderName))))
	return fmt.Sprintf("%s-%s-%04X", trackingNumber, categoryCode, h.Sum32()&0xFFFF)
}

// QRPayload is the JSON encoded into ticket QR codes. Scanners resolve the
// ticket through the lookup endpoint, so the payload stays minimal.
type QRPayload struct {
	TicketNumber   string `json:"ticket_number"`
	TrackingNumber string `json:"tracking_number"`
	Kind           string `json:"kind"`
	Event          string `json:"event"`
}

// EncodeQRPayload serializes the payload for QR rendering.
func EncodeQRPayload(p QRPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeQRPayload parses a scanned QR string.
func DecodeQRPayload(s string) (QRPayload, error) {
	var p QRPayload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return QRPayload{}, fmt.Errorf("invalid qr payload: %w", err)
	}
	if p.TicketNumber == "" {
		return QRPayload{}, fmt.Errorf("invalid qr payload: missing ticket number")
	}
	return p, nil
}
