package notify

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// TicketDocument holds everything the printable ticket embeds.
type TicketDocument struct {
	TicketID   string
	Credential string
	BuyerName  string
	BuyerEmail string
	BuyerPhone string
	EventTitle string
	Venue      string
	Location   string
	StartDate  string
	StartTime  string
	EndDate    string
	EndTime    string
	TicketType string
	Price      string
}

// GenerateTicketPDF renders a single-page printable ticket with the
// scannable credential embedded as a QR code.
func GenerateTicketPDF(doc *TicketDocument) ([]byte, error) {
	qrBytes, err := qrcode.Encode(doc.Credential, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("ticket pdf: qr encode: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	pdf.SetAutoPageBreak(false, 0)

	// --- Header ---
	pdf.SetFont("Helvetica", "B", 22)
	pdf.Cell(0, 15, "TIKOYANGU EVENT TICKET")
	pdf.Ln(20)

	// --- Divider ---
	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(8)

	// --- Ticket summary + QR ---
	yStart := pdf.GetY()
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, yStart, 120, 55, "F")

	pdf.SetXY(20, yStart+7)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "TICKET SUMMARY")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Ticket #: %s", doc.TicketID))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Name: %s", doc.BuyerName))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Type: %s", doc.TicketType))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Price: KES %s", doc.Price))

	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(qrBytes))
	pdf.ImageOptions("qr", 145, yStart+5, 45, 0, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")

	pdf.SetY(yStart + 63)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Cell(0, 6, "Present this QR code at the venue for entry verification.")
	pdf.Ln(10)

	// --- Event details ---
	drawSectionTitle(pdf, "EVENT DETAILS")
	pdf.SetFont("Helvetica", "", 12)
	if doc.EventTitle != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Event: %s", doc.EventTitle))
		pdf.Ln(6)
	}
	if doc.Venue != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Venue: %s, %s", doc.Venue, doc.Location))
		pdf.Ln(6)
	}
	if doc.StartDate != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Starts: %s %s", doc.StartDate, doc.StartTime))
		pdf.Ln(6)
	}
	if doc.EndDate != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Ends: %s %s", doc.EndDate, doc.EndTime))
		pdf.Ln(8)
	}

	// --- Buyer contact ---
	drawSectionTitle(pdf, "TICKET HOLDER")
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, doc.BuyerName)
	pdf.Ln(6)
	if doc.BuyerEmail != "" {
		pdf.Cell(0, 8, doc.BuyerEmail)
		pdf.Ln(6)
	}
	if doc.BuyerPhone != "" {
		pdf.Cell(0, 8, doc.BuyerPhone)
		pdf.Ln(6)
	}

	// --- Footer ---
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(15, 285, 195, 285)
	pdf.SetY(288)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 8, "Tikoyangu - this ticket admits one and is void if duplicated.", "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("ticket pdf: output: %w", err)
	}
	return buf.Bytes(), nil
}

// drawSectionTitle adds consistent section headers
func drawSectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(0, 9, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
}
