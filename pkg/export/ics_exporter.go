package export

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ICSExporter renders every entry as a weekly recurring calendar event
// anchored on the week that starts at WeekOf.
type ICSExporter struct {
	WeekOf       time.Time
	Weeks        int
	SlotMinutes  int
	Location     *time.Location
	CalendarName string
}

// NewICSExporter builds an exporter for the given term start and length.
func NewICSExporter(weekOf time.Time, weeks int) *ICSExporter {
	return &ICSExporter{WeekOf: weekOf, Weeks: weeks, SlotMinutes: 60, Location: time.UTC}
}

var weekdays = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3, "friday": 4, "saturday": 5, "sunday": 6,
}

// Render serialises the calendar.
func (e *ICSExporter) Render(t Timetable) ([]byte, error) {
	loc := e.Location
	if loc == nil {
		loc = time.UTC
	}
	minutes := e.SlotMinutes
	if minutes <= 0 {
		minutes = 60
	}
	monday := mondayOf(e.WeekOf.In(loc))
	stamp := t.GeneratedAt
	if stamp.IsZero() {
		stamp = monday
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//class-scheduler//timetable//EN")
	if name := e.CalendarName; name != "" {
		cal.SetXWRCalName(name)
	} else if t.Title != "" {
		cal.SetXWRCalName(t.Title)
	}

	for i, row := range t.Rows {
		offset, ok := weekdays[strings.ToLower(row.Day)]
		if !ok {
			return nil, fmt.Errorf("row %d: unknown day %q", i, row.Day)
		}
		clock, err := time.Parse("15:04", row.StartTime)
		if err != nil {
			return nil, fmt.Errorf("row %d: parse start time %q: %w", i, row.StartTime, err)
		}
		start := time.Date(monday.Year(), monday.Month(), monday.Day()+offset, clock.Hour(), clock.Minute(), 0, 0, loc)

		event := cal.AddEvent(fmt.Sprintf("%s-%s-%s-%d@class-scheduler", row.CourseCode, row.Day, row.StartTime, i))
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(start.Add(time.Duration(minutes) * time.Minute))
		event.SetSummary(strings.TrimSpace(row.CourseCode + " " + row.CourseName))
		if row.Room != "" {
			event.SetLocation(row.Room)
		}
		if row.Instructor != "" {
			event.SetDescription("Instructor: " + row.Instructor)
		}
		rule := "FREQ=WEEKLY"
		if e.Weeks > 0 {
			rule = fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", e.Weeks)
		}
		event.AddProperty(ics.ComponentPropertyRrule, rule)
	}

	return []byte(cal.Serialize()), nil
}

func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
}
