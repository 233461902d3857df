package scheduler

import "github.com/noah-isme/class-scheduler-api/internal/models"

// Phase selects how strictly eligibility rules are applied during placement.
type Phase int

const (
	// Strict enforces room department/year and teacher department/year eligibility.
	Strict Phase = iota
	// Relaxed only requires an available room of the right type and an
	// instructor who has not blocked the slot.
	Relaxed
)

func (p Phase) String() string {
	if p == Relaxed {
		return "relaxed"
	}
	return "strict"
}

// RoomTimeFree reports whether no assigned entry shares the candidate's day, start time and room.
func RoomTimeFree(candidate models.ScheduleEntry, assigned []models.ScheduleEntry) bool {
	for _, other := range assigned {
		if other.SameCell(candidate) && other.RoomID == candidate.RoomID {
			return false
		}
	}
	return true
}

// InstructorTimeFree reports whether no assigned entry in the candidate's cell is taught by the same instructor.
func InstructorTimeFree(candidate models.ScheduleEntry, assigned []models.ScheduleEntry, catalog *Catalog) bool {
	instructor := catalog.Instructor(candidate.CourseID)
	if instructor == "" {
		return true
	}
	for _, other := range assigned {
		if other.SameCell(candidate) && catalog.Instructor(other.CourseID) == instructor {
			return false
		}
	}
	return true
}

// RoomTypeMatches requires lab rooms for labs and classrooms or lecture halls for theory.
func RoomTypeMatches(course models.Course, room models.Room) bool {
	return room.Serves(course.LectureType)
}

// InLabWindow confines labs to the lab slots. Theory courses always pass.
func InLabWindow(grid Grid, course models.Course, slot string) bool {
	return !course.IsLab() || grid.IsLabSlot(slot)
}

// RoomEligible checks whether room may host course in the given phase.
func RoomEligible(course models.Course, room models.Room, phase Phase) bool {
	if !room.IsAvailable || !RoomTypeMatches(course, room) {
		return false
	}
	if phase == Relaxed {
		return true
	}
	return room.BelongsTo(course.Branch) && room.AdmitsYear(course.Year)
}

// TeacherEligible checks the instructor against the course and cell. An
// explicit unavailability always blocks; department and year are only
// enforced in the strict phase. Unknown instructors impose no restriction.
func TeacherEligible(teacher *models.Teacher, course models.Course, day, slot string, phase Phase) bool {
	if teacher == nil {
		return true
	}
	if teacher.Availability.Blocks(day, slot) {
		return false
	}
	if phase == Relaxed {
		return true
	}
	return teacher.Department == course.Branch && teacher.CanTeachYear(course.Year)
}

// PrefersSlot is the soft preference check; it is scored, never enforced.
func PrefersSlot(course models.Course, slot string) bool {
	return course.Prefers(slot)
}

// Overlaps reports whether [startA, startA+durA) and [startB, startB+durB)
// intersect. Unparseable start times never overlap.
func Overlaps(startA string, durA int, startB string, durB int) bool {
	a, okA := SlotMinute(startA)
	b, okB := SlotMinute(startB)
	if !okA || !okB || durA <= 0 || durB <= 0 {
		return false
	}
	return a < b+durB && b < a+durA
}

// occupancy counts rooms and instructors per cell of a partial assignment.
type occupancy struct {
	cells       map[cell]int
	rooms       map[cell]map[string]int
	instructors map[cell]map[string]int
}

func newOccupancy() *occupancy {
	return &occupancy{
		cells:       make(map[cell]int),
		rooms:       make(map[cell]map[string]int),
		instructors: make(map[cell]map[string]int),
	}
}

func (o *occupancy) add(c cell, room, instructor string) {
	o.cells[c]++
	bump(o.rooms, c, room, 1)
	if instructor != "" {
		bump(o.instructors, c, instructor, 1)
	}
}

func (o *occupancy) remove(c cell, room, instructor string) {
	if o.cells[c] > 0 {
		o.cells[c]--
	}
	bump(o.rooms, c, room, -1)
	if instructor != "" {
		bump(o.instructors, c, instructor, -1)
	}
}

func (o *occupancy) taken(c cell) bool {
	return o.cells[c] > 0
}

// collisions counts the room-time and instructor-time clashes a placement would add.
func (o *occupancy) collisions(c cell, room, instructor string) int {
	total := o.rooms[c][room]
	if instructor != "" {
		total += o.instructors[c][instructor]
	}
	return total
}

func bump(index map[cell]map[string]int, c cell, key string, delta int) {
	byKey := index[c]
	if byKey == nil {
		if delta < 0 {
			return
		}
		byKey = make(map[string]int)
		index[c] = byKey
	}
	byKey[key] += delta
	if byKey[key] <= 0 {
		delete(byKey, key)
	}
}
