package scheduler

import (
	"fmt"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

// Change asks for course and room at one (day, slot) cell.
type Change struct {
	Day      string
	TimeSlot string
	CourseID string
	RoomID   string
}

// ValidateChanges rejects changes that point outside the grid or at unknown
// courses and rooms.
func ValidateChanges(grid Grid, catalog *Catalog, changes []Change) error {
	for i, change := range changes {
		if !grid.HasDay(change.Day) {
			return fmt.Errorf("change %d: unknown day %q", i, change.Day)
		}
		if !grid.HasSlot(change.TimeSlot) {
			return fmt.Errorf("change %d: unknown time slot %q", i, change.TimeSlot)
		}
		if catalog.Course(change.CourseID) == nil {
			return fmt.Errorf("change %d: unknown course %q", i, change.CourseID)
		}
		if catalog.Room(change.RoomID) == nil {
			return fmt.Errorf("change %d: unknown room %q", i, change.RoomID)
		}
	}
	return nil
}

// ApplyChanges returns a copy of entries with each change applied: the first
// entry in the change's cell gets the new course and room, otherwise a new
// entry is appended. It also returns the indices the changes touched. The
// input slice is left untouched.
func ApplyChanges(grid Grid, catalog *Catalog, entries []models.ScheduleEntry, changes []Change) ([]models.ScheduleEntry, []int) {
	next := make([]models.ScheduleEntry, len(entries))
	copy(next, entries)
	touched := make([]int, 0, len(changes))

	for _, change := range changes {
		first, second := labMarkers(grid, catalog, change.CourseID, change.TimeSlot)
		idx := -1
		for i := range next {
			if next[i].Day == change.Day && next[i].StartTime == change.TimeSlot {
				idx = i
				break
			}
		}
		if idx < 0 {
			next = append(next, models.ScheduleEntry{Day: change.Day, StartTime: change.TimeSlot})
			idx = len(next) - 1
		}
		next[idx].CourseID = change.CourseID
		next[idx].RoomID = change.RoomID
		next[idx].IsLabFirst = first
		next[idx].IsLabSecond = second
		touched = append(touched, idx)
	}
	return next, touched
}

func labMarkers(grid Grid, catalog *Catalog, courseID, slot string) (bool, bool) {
	if !catalog.IsLab(courseID) || len(grid.LabSlots) < 2 {
		return false, false
	}
	return slot == grid.LabSlots[0], slot == grid.LabSlots[1]
}
