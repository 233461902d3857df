package scheduler

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

func TestRoomEligibleByPhase(t *testing.T) {
	course := theoryCourse("c1", "CS101", "t1")
	foreign := classroom("r1")
	foreign.Department = "EE"
	shared := classroom("r2")
	shared.Department = models.DepartmentAll
	seniors := classroom("r3")
	seniors.AllowedYears = pq.Int64Array{3, 4}
	closed := classroom("r4")
	closed.IsAvailable = false

	assert.True(t, RoomEligible(course, classroom("r0"), Strict))
	assert.False(t, RoomEligible(course, foreign, Strict))
	assert.True(t, RoomEligible(course, foreign, Relaxed))
	assert.True(t, RoomEligible(course, shared, Strict))
	assert.False(t, RoomEligible(course, seniors, Strict))
	assert.True(t, RoomEligible(course, seniors, Relaxed))
	assert.False(t, RoomEligible(course, closed, Relaxed))
	assert.False(t, RoomEligible(course, labRoom("l1", "CS"), Relaxed))
	assert.True(t, RoomEligible(labCourse("c2", "CS101-L", "t1"), labRoom("l1", "CS"), Strict))
}

func TestTeacherEligible(t *testing.T) {
	course := theoryCourse("c1", "CS101", "t1")
	tc := teacher("t1")
	tc.Availability = models.Availability{"Monday": {"09:00": false, "10:00": true}}

	assert.False(t, TeacherEligible(&tc, course, "Monday", "09:00", Strict))
	assert.False(t, TeacherEligible(&tc, course, "Monday", "09:00", Relaxed))
	assert.True(t, TeacherEligible(&tc, course, "Monday", "10:00", Strict))
	assert.True(t, TeacherEligible(&tc, course, "Tuesday", "09:00", Strict))

	other := teacher("t2")
	other.Department = "EE"
	assert.False(t, TeacherEligible(&other, course, "Monday", "11:00", Strict))
	assert.True(t, TeacherEligible(&other, course, "Monday", "11:00", Relaxed))

	senior := teacher("t3")
	senior.TeachableYears = pq.Int64Array{4}
	assert.False(t, TeacherEligible(&senior, course, "Monday", "11:00", Strict))

	assert.True(t, TeacherEligible(nil, course, "Monday", "09:00", Strict))
}

func TestExclusivityPredicates(t *testing.T) {
	catalog := NewCatalog([]models.Course{
		theoryCourse("a", "CS101", "t1"),
		theoryCourse("b", "CS102", "t1"),
		theoryCourse("c", "CS103", "t2"),
	}, nil, nil)
	assigned := []models.ScheduleEntry{entry("a", "Monday", "09:00", "r1")}

	assert.False(t, RoomTimeFree(entry("c", "Monday", "09:00", "r1"), assigned))
	assert.True(t, RoomTimeFree(entry("c", "Monday", "09:00", "r2"), assigned))
	assert.True(t, RoomTimeFree(entry("c", "Monday", "10:00", "r1"), assigned))

	assert.False(t, InstructorTimeFree(entry("b", "Monday", "09:00", "r2"), assigned, catalog))
	assert.True(t, InstructorTimeFree(entry("c", "Monday", "09:00", "r2"), assigned, catalog))
	assert.True(t, InstructorTimeFree(entry("b", "Tuesday", "09:00", "r2"), assigned, catalog))
}

func TestLabWindowAndPreference(t *testing.T) {
	grid := DefaultGrid()
	lab := labCourse("l", "CS101-L", "t1")
	theory := theoryCourse("c", "CS101", "t1")
	theory.PreferredTimeSlots = pq.StringArray{"10:00"}

	assert.True(t, InLabWindow(grid, lab, "15:00"))
	assert.False(t, InLabWindow(grid, lab, "09:00"))
	assert.True(t, InLabWindow(grid, theory, "09:00"))
	assert.True(t, PrefersSlot(theory, "10:00"))
	assert.False(t, PrefersSlot(theory, "11:00"))
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name   string
		startA string
		durA   int
		startB string
		durB   int
		want   bool
	}{
		{"same start", "09:00", 60, "09:00", 60, true},
		{"adjacent", "09:00", 60, "10:00", 60, false},
		{"lab spans next slot", "15:00", 120, "16:00", 60, true},
		{"lab ends at next start", "15:00", 120, "17:00", 60, false},
		{"contained", "09:00", 180, "10:00", 30, true},
		{"bad label", "9am", 60, "09:00", 60, false},
		{"zero duration", "09:00", 0, "09:00", 60, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.startA, tc.durA, tc.startB, tc.durB))
			assert.Equal(t, tc.want, Overlaps(tc.startB, tc.durB, tc.startA, tc.durA))
		})
	}
}
