package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet the XLSX exporter writes.
const SheetName = "Timetable"

// XLSXExporter renders the week as a spreadsheet grid: one row per slot and
// one column per day.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes the workbook to bytes.
func (e *XLSXExporter) Render(t Timetable) ([]byte, error) {
	if len(t.Days) == 0 || len(t.Slots) == 0 {
		return nil, fmt.Errorf("xlsx requires days and slots")
	}
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	lastCol := columnName(len(t.Days) + 1)
	_ = f.SetColWidth(SheetName, "A", "A", 10)
	_ = f.SetColWidth(SheetName, "B", lastCol, 28)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("body style: %w", err)
	}

	row := 1
	if t.Title != "" {
		_ = f.SetCellValue(SheetName, "A1", t.Title)
		_ = f.MergeCell(SheetName, "A1", cellName(lastCol, 1))
		_ = f.SetCellStyle(SheetName, "A1", "A1", headerStyle)
		row++
	}

	_ = f.SetCellValue(SheetName, cellName("A", row), "Time")
	for i, day := range t.Days {
		_ = f.SetCellValue(SheetName, cellName(columnName(i+2), row), day)
	}
	_ = f.SetCellStyle(SheetName, cellName("A", row), cellName(lastCol, row), headerStyle)
	row++

	first := row
	for _, slot := range t.Slots {
		_ = f.SetCellValue(SheetName, cellName("A", row), slot)
		for i, day := range t.Days {
			if text := t.Cell(day, slot, "\n"); text != "" {
				_ = f.SetCellValue(SheetName, cellName(columnName(i+2), row), text)
			}
		}
		row++
	}
	_ = f.SetCellStyle(SheetName, cellName("A", first), cellName(lastCol, row-1), bodyStyle)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func columnName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx)
	return name
}

func cellName(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
