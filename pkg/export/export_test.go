package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTimetable() Timetable {
	return Timetable{
		Title: "CS year 1 division A",
		Days:  []string{"Monday", "Tuesday"},
		Slots: []string{"09:00", "15:00", "16:00"},
		Rows: []Row{
			{Day: "Monday", StartTime: "09:00", EndTime: "10:00", CourseCode: "CS101", CourseName: "Programming", LectureType: "theory", Room: "C1", Instructor: "Ada"},
			{Day: "Tuesday", StartTime: "15:00", EndTime: "16:00", CourseCode: "CS101-L", CourseName: "Programming Lab", LectureType: "lab", Room: "L1", Instructor: "Ada"},
			{Day: "Tuesday", StartTime: "16:00", EndTime: "17:00", CourseCode: "CS101-L", CourseName: "Programming Lab", LectureType: "lab", Room: "L1", Instructor: "Ada"},
		},
		GeneratedAt: time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC),
	}
}

func TestTimetableCell(t *testing.T) {
	tt := sampleTimetable()
	assert.Equal(t, "CS101 / C1 / Ada", tt.Cell("Monday", "09:00", "\n"))
	assert.Empty(t, tt.Cell("Monday", "15:00", "\n"))
	assert.Len(t, tt.At("Tuesday", "16:00"), 1)
}

func TestEndOf(t *testing.T) {
	end, err := EndOf("16:00", 60)
	require.NoError(t, err)
	assert.Equal(t, "17:00", end)

	_, err = EndOf("late", 60)
	assert.Error(t, err)
}

func TestCSVExporter(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTimetable())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "day,start_time,end_time,course_code,course_name,lecture_type,room,instructor", lines[0])
	assert.Equal(t, "Monday,09:00,10:00,CS101,Programming,theory,C1,Ada", lines[1])
}

func TestPDFExporter(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleTimetable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().Render(Timetable{})
	assert.Error(t, err)
}

func TestXLSXExporter(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleTimetable())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(SheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "CS year 1 division A", title)

	header, err := f.GetCellValue(SheetName, "C2")
	require.NoError(t, err)
	assert.Equal(t, "Tuesday", header)

	lab, err := f.GetCellValue(SheetName, "C4")
	require.NoError(t, err)
	assert.Equal(t, "CS101-L / L1 / Ada", lab)
}

func TestICSExporter(t *testing.T) {
	exporter := NewICSExporter(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), 12)

	out, err := exporter.Render(sampleTimetable())
	require.NoError(t, err)
	text := string(out)

	assert.Equal(t, 3, strings.Count(text, "BEGIN:VEVENT"))
	assert.Contains(t, text, "METHOD:PUBLISH")
	assert.Contains(t, text, "RRULE:FREQ=WEEKLY;COUNT=12")
	assert.Contains(t, text, "DTSTART:20240101T090000Z")
	assert.Contains(t, text, "DTSTART:20240102T160000Z")
	assert.Contains(t, text, "LOCATION:L1")
}

func TestICSExporterRejectsUnknownDay(t *testing.T) {
	tt := sampleTimetable()
	tt.Rows[0].Day = "Someday"
	_, err := NewICSExporter(time.Now(), 1).Render(tt)
	assert.Error(t, err)
}
