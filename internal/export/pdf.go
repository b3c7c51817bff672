package export

import (
	"bytes"

	"github.com/jung-kurt/gofpdf"
)

// RenderPDF lays the table out as a landscape A4 statement.
func RenderPDF(t Table) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	title := t.Title
	if title == "" {
		title = "Payout Statement"
	}
	pdf.Cell(40, 10, title)
	pdf.Ln(12)

	colWidth := 270.0
	if len(t.Headers) > 0 {
		colWidth = 270.0 / float64(len(t.Headers))
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, h := range t.Headers {
		pdf.CellFormat(colWidth, 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range t.Rows {
		for i, cell := range row {
			if i >= len(t.Headers) && len(t.Headers) > 0 {
				break
			}
			pdf.CellFormat(colWidth, 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
