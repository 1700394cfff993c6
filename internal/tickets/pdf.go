package tickets

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/chaf-events/backend/internal/models"
)

// TicketDetails carries the registrant-facing fields printed on a ticket PDF.
type TicketDetails struct {
	EventName  string
	HolderName string
	Kind       string
	Tracking   string
}

// RenderTicketPDF draws a printable A5 ticket with an embedded QR code.
func RenderTicketPDF(t *models.Ticket, d TicketDetails) ([]byte, error) {
	qrPNG, err := qrcode.Encode(t.QRCode, qrcode.Medium, 512)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("L", "mm", "A5", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, d.EventName, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, "Event Ticket", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(110, 9, d.HolderName, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(110, 6, "Ticket: "+t.TicketNumber, "", 1, "L", false, 0, "")
	pdf.CellFormat(110, 6, "Tracking: "+d.Tracking, "", 1, "L", false, 0, "")
	pdf.CellFormat(110, 6, "Type: "+d.Kind, "", 1, "L", false, 0, "")

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("ticket-qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("ticket-qr", 150, 35, 45, 45, false, opts, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, "Present this ticket at the entrance. Valid for one check-in.", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderCertificatePDF draws the participation certificate.
func RenderCertificatePDF(cert *models.Certificate) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetY(40)
	pdf.SetFont("Helvetica", "B", 26)
	pdf.CellFormat(0, 14, "Certificate of Participation", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 10, "This certifies that", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 14, cert.ParticipantName, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("of %s, %s", cert.LGA, cert.State), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, "participated in", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, cert.EventName, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.Ln(8)
	pdf.CellFormat(0, 6, fmt.Sprintf("Attended on %s", cert.CheckedInAt.Format("2 January 2006")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, "Ref: "+cert.TrackingNumber, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
