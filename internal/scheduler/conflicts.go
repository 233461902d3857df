package scheduler

import (
	"fmt"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

// DetectConflicts compares every pair of entries starting in the same cell
// and reports shared rooms and shared instructors. Results are ordered by
// the first index, then the second, with room conflicts before instructor
// conflicts for the same pair. The scan does not mutate entries.
func DetectConflicts(entries []models.ScheduleEntry, catalog *Catalog) []models.Conflict {
	conflicts := make([]models.Conflict, 0)
	for i := 0; i < len(entries); i++ {
		a := entries[i]
		instructorA := catalog.Instructor(a.CourseID)
		for j := i + 1; j < len(entries); j++ {
			b := entries[j]
			if !a.SameCell(b) {
				continue
			}
			if a.RoomID != "" && a.RoomID == b.RoomID {
				conflicts = append(conflicts, models.Conflict{
					Type:      models.ConflictRoom,
					Slots:     [2]int{i, j},
					Day:       a.Day,
					StartTime: a.StartTime,
					RoomID:    a.RoomID,
					Message: fmt.Sprintf("Room %s is scheduled for two different courses at the same time (%s %s)",
						roomLabel(catalog, a.RoomID), a.Day, a.StartTime),
				})
			}
			if instructorA != "" && instructorA == catalog.Instructor(b.CourseID) {
				conflicts = append(conflicts, models.Conflict{
					Type:         models.ConflictInstructor,
					Slots:        [2]int{i, j},
					Day:          a.Day,
					StartTime:    a.StartTime,
					InstructorID: instructorA,
					Message: fmt.Sprintf("Instructor %s is scheduled to teach two different courses at the same time (%s %s)",
						teacherLabel(catalog, instructorA), a.Day, a.StartTime),
				})
			}
		}
	}
	return conflicts
}

// ConflictsTouching keeps the conflicts involving at least one of the indices.
func ConflictsTouching(conflicts []models.Conflict, indices []int) []models.Conflict {
	touched := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		touched[idx] = struct{}{}
	}
	out := make([]models.Conflict, 0)
	for _, conflict := range conflicts {
		_, first := touched[conflict.Slots[0]]
		_, second := touched[conflict.Slots[1]]
		if first || second {
			out = append(out, conflict)
		}
	}
	return out
}

func roomLabel(catalog *Catalog, id string) string {
	if room := catalog.Room(id); room != nil && room.Name != "" {
		return room.Name
	}
	return id
}

func teacherLabel(catalog *Catalog, id string) string {
	if teacher := catalog.Teacher(id); teacher != nil && teacher.Name != "" {
		return teacher.Name
	}
	return id
}
