package tickets

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/phpdave11/gofpdf"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Render builds a one-page PDF e-ticket and a download filename for it.
func Render(b domain.BookingView) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+b.Reference, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BUS E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Reference : %s", b.Reference),
		fmt.Sprintf("Passenger : %s", fallback(b.PassengerName, "-")),
		fmt.Sprintf("Contact   : %s", fallback(b.PassengerContact, "-")),
		fmt.Sprintf("Route     : %s", fallback(b.Route, "-")),
		fmt.Sprintf("Departure : %s", fallback(b.Departure, "-")),
		fmt.Sprintf("Seats     : %d", b.SeatsBooked),
		fmt.Sprintf("Fare      : %s x %d", FormatCents(b.PriceCents), b.SeatsBooked),
		fmt.Sprintf("Booked at : %s", b.CreatedAt.UTC().Format("2006-01-02 15:04 MST")),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Total: "+FormatCents(b.TotalCents()))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Please show this ticket and a photo ID when boarding.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render ticket %s: %w", b.Reference, err)
	}
	return buf.Bytes(), Filename(b), nil
}

func Filename(b domain.BookingView) string {
	name := unsafeFilename.ReplaceAllString(strings.TrimSpace(b.PassengerName), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return fmt.Sprintf("TICKET_%s.pdf", b.Reference)
	}
	return fmt.Sprintf("TICKET_%s_%s.pdf", b.Reference, name)
}

// FormatCents renders an amount in cents as a decimal string, e.g. 1505 -> "15.05".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
