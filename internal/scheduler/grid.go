// Package scheduler builds, checks and repairs weekly class timetables.
// Everything here is synchronous and free of I/O; randomness is always an
// injected *rand.Rand so callers can reproduce a schedule from its seed.
package scheduler

import (
	"slices"
	"time"
)

var (
	// Days is the ordered teaching week.
	Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	// TimeSlots are the hour-aligned start times of one day.
	TimeSlots = []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"}
	// LabSlots is the end-of-day window reserved for two-hour labs.
	LabSlots = []string{"15:00", "16:00"}
)

const (
	// SlotMinutes is the length of one slot.
	SlotMinutes = 60
	slotLayout  = "15:04"
)

// Grid describes the days and slots a schedule is laid out on.
type Grid struct {
	Days     []string
	Slots    []string
	LabSlots []string
}

// DefaultGrid returns the Monday to Friday, 09:00 to 16:00 week.
func DefaultGrid() Grid {
	return Grid{
		Days:     slices.Clone(Days),
		Slots:    slices.Clone(TimeSlots),
		LabSlots: slices.Clone(LabSlots),
	}
}

// Cells is the number of (day, slot) cells in the week.
func (g Grid) Cells() int {
	return len(g.Days) * len(g.Slots)
}

// IsLabSlot reports whether slot is inside the lab window.
func (g Grid) IsLabSlot(slot string) bool {
	return slices.Contains(g.LabSlots, slot)
}

// HasDay reports whether day is part of the grid.
func (g Grid) HasDay(day string) bool {
	return slices.Contains(g.Days, day)
}

// HasSlot reports whether slot is part of the grid.
func (g Grid) HasSlot(slot string) bool {
	return slices.Contains(g.Slots, slot)
}

// TheorySlots returns the slots outside the lab window.
func (g Grid) TheorySlots() []string {
	out := make([]string, 0, len(g.Slots))
	for _, slot := range g.Slots {
		if !g.IsLabSlot(slot) {
			out = append(out, slot)
		}
	}
	return out
}

// SlotMinute converts an "HH:MM" slot label to minutes past midnight.
func SlotMinute(slot string) (int, bool) {
	t, err := time.Parse(slotLayout, slot)
	if err != nil || len(slot) != len(slotLayout) {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

type cell struct {
	Day  string
	Slot string
}
