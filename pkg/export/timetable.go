package export

import (
	"fmt"
	"strings"
	"time"
)

// Row is one timetable entry flattened for rendering.
type Row struct {
	Day         string `csv:"day"`
	StartTime   string `csv:"start_time"`
	EndTime     string `csv:"end_time"`
	CourseCode  string `csv:"course_code"`
	CourseName  string `csv:"course_name"`
	LectureType string `csv:"lecture_type"`
	Room        string `csv:"room"`
	Instructor  string `csv:"instructor"`
}

// Label is the short text shown inside a grid cell.
func (r Row) Label() string {
	parts := []string{r.CourseCode}
	if r.Room != "" {
		parts = append(parts, r.Room)
	}
	if r.Instructor != "" {
		parts = append(parts, r.Instructor)
	}
	return strings.Join(parts, " / ")
}

// Timetable is a rendered weekly schedule.
type Timetable struct {
	Title       string
	Days        []string
	Slots       []string
	Rows        []Row
	GeneratedAt time.Time
}

// At returns the rows starting at (day, slot) in row order.
func (t Timetable) At(day, slot string) []Row {
	var out []Row
	for _, row := range t.Rows {
		if row.Day == day && row.StartTime == slot {
			out = append(out, row)
		}
	}
	return out
}

// Cell joins the labels of the rows starting at (day, slot).
func (t Timetable) Cell(day, slot, sep string) string {
	rows := t.At(day, slot)
	labels := make([]string, len(rows))
	for i, row := range rows {
		labels[i] = row.Label()
	}
	return strings.Join(labels, sep)
}

// EndOf returns the HH:MM that is minutes after start.
func EndOf(start string, minutes int) (string, error) {
	parsed, err := time.Parse("15:04", start)
	if err != nil {
		return "", fmt.Errorf("parse start time %q: %w", start, err)
	}
	return parsed.Add(time.Duration(minutes) * time.Minute).Format("15:04"), nil
}
