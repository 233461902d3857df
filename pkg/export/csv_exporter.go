package export

import (
	"fmt"

	"github.com/gocarina/gocsv"
)

// CSVExporter renders one line per timetable entry.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes with a header row.
func (e *CSVExporter) Render(t Timetable) ([]byte, error) {
	rows := t.Rows
	if rows == nil {
		rows = []Row{}
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	return out, nil
}
