package scheduler

import (
	"math/rand"

	"github.com/lib/pq"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

var scopeCS1A = models.Scope{Year: 1, Branch: "CS", Division: "A"}

func theoryCourse(id, code, instructor string) models.Course {
	return models.Course{
		ID:           id,
		Code:         code,
		Name:         code + " theory",
		LectureType:  models.LectureTheory,
		InstructorID: instructor,
		Duration:     60,
		Capacity:     60,
		Year:         1,
		Branch:       "CS",
		Division:     "A",
	}
}

func labCourse(id, code, instructor string) models.Course {
	return models.Course{
		ID:                 id,
		Code:               code,
		Name:               code + " lab",
		LectureType:        models.LectureLab,
		InstructorID:       instructor,
		Duration:           models.LabDurationMinutes,
		Capacity:           30,
		Year:               1,
		Branch:             "CS",
		Division:           "A",
		PreferredTimeSlots: pq.StringArray{"15:00", "16:00"},
	}
}

func classroom(id string) models.Room {
	return models.Room{ID: id, Name: "Room " + id, Capacity: 60, Type: models.RoomClassroom, Department: "CS", IsAvailable: true}
}

func labRoom(id, department string) models.Room {
	return models.Room{ID: id, Name: "Lab " + id, Capacity: 30, Type: models.RoomLab, Department: department, IsAvailable: true}
}

func teacher(id string) models.Teacher {
	return models.Teacher{ID: id, Name: "Teacher " + id, Department: "CS", TeachableYears: pq.Int64Array{1, 2}}
}

func seeded(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func entry(course, day, slot, room string) models.ScheduleEntry {
	return models.ScheduleEntry{CourseID: course, Day: day, StartTime: slot, RoomID: room}
}
