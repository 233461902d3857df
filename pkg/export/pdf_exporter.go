package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders the week as a slot-by-day grid on a landscape page.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and the grid.
func (e *PDFExporter) Render(t Timetable) ([]byte, error) {
	if len(t.Days) == 0 || len(t.Slots) == 0 {
		return nil, fmt.Errorf("pdf requires days and slots")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if t.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(t.Title)), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	const timeCol = 20.0
	dayCol := (277.0 - timeCol) / float64(len(t.Days))

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(220, 228, 242)
	pdf.CellFormat(timeCol, 8, "Time", "1", 0, "C", true, 0, "")
	for _, day := range t.Days {
		pdf.CellFormat(dayCol, 8, day, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	const lineHeight = 4.0
	for _, slot := range t.Slots {
		lines := 1
		cells := make([][][]byte, len(t.Days))
		for i, day := range t.Days {
			cells[i] = pdf.SplitLines([]byte(tr(t.Cell(day, slot, "; "))), dayCol-2)
			lines = max(lines, len(cells[i]))
		}
		height := float64(lines)*lineHeight + 2

		x, y := pdf.GetXY()
		pdf.CellFormat(timeCol, height, slot, "1", 0, "C", false, 0, "")
		for i := range t.Days {
			cx := x + timeCol + float64(i)*dayCol
			pdf.Rect(cx, y, dayCol, height, "D")
			for n, line := range cells[i] {
				pdf.SetXY(cx+1, y+1+float64(n)*lineHeight)
				pdf.CellFormat(dayCol-2, lineHeight, string(line), "", 0, "L", false, 0, "")
			}
		}
		pdf.SetXY(x, y+height)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
