package csvio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

var testSlots = []string{"09:00", "10:00", "11:00"}

const coursesCSV = `id,code,name,lecture_type,instructor_id,duration,capacity,year,branch,division,preferred_time_slots
cs101,CS101,Programming,Theory,T1,1,60,1,CS,A,09:00;10:00
,CS101-L,Programming Lab,lab,T1,2,30,1,CS,A,
`

const roomsCSV = `id,name,capacity,type,department,allowed_years,is_available
c1,Room 1,60,classroom,CS,1;2,
lab1,Lab 1,30,lab,CS,,false
`

const teachersCSV = `id,name,email,department,teachable_years,unavailable
T1,Ada,ada@example.com,CS,1;2,Monday 09:00;Friday
`

func TestLoaderCourses(t *testing.T) {
	courses, err := NewLoader(testSlots).Courses(strings.NewReader(coursesCSV))
	require.NoError(t, err)
	require.Len(t, courses, 2)

	assert.Equal(t, models.LectureTheory, courses[0].LectureType)
	assert.Equal(t, []string{"09:00", "10:00"}, []string(courses[0].PreferredTimeSlots))
	assert.Equal(t, "CS101-L", courses[1].ID)
	assert.Equal(t, models.LectureLab, courses[1].LectureType)
	assert.Empty(t, courses[1].PreferredTimeSlots)
}

func TestLoaderRejectsUnknownLectureType(t *testing.T) {
	_, err := NewLoader(testSlots).Courses(strings.NewReader("id,code,lecture_type\nx,X,seminar\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seminar")
}

func TestLoaderRooms(t *testing.T) {
	rooms, err := NewLoader(testSlots).Rooms(strings.NewReader(roomsCSV))
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	assert.True(t, rooms[0].IsAvailable)
	assert.Equal(t, []int64{1, 2}, []int64(rooms[0].AllowedYears))
	assert.Equal(t, models.RoomLab, rooms[1].Type)
	assert.False(t, rooms[1].IsAvailable)
}

func TestLoaderTeachersAvailability(t *testing.T) {
	teachers, err := NewLoader(testSlots).Teachers(strings.NewReader(teachersCSV))
	require.NoError(t, err)
	require.Len(t, teachers, 1)

	availability := teachers[0].Availability
	assert.True(t, availability.Blocks("Monday", "09:00"))
	assert.False(t, availability.Blocks("Monday", "10:00"))
	for _, slot := range testSlots {
		assert.True(t, availability.Blocks("Friday", slot))
	}
}

func TestLoaderWholeDayNeedsSlots(t *testing.T) {
	_, err := NewLoader(nil).Teachers(strings.NewReader(teachersCSV))
	require.Error(t, err)
}

func TestLoaderCustomDelimiter(t *testing.T) {
	loader := NewLoader(testSlots)
	loader.Delimiter = '|'

	rooms, err := loader.Rooms(strings.NewReader("id|name|capacity|type\nc1|Room 1|40|classroom\n"))
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, 40, rooms[0].Capacity)
}

func TestLoaderLoadFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	catalog, err := NewLoader(testSlots).LoadFiles(write("courses.csv", coursesCSV), write("rooms.csv", roomsCSV), write("teachers.csv", teachersCSV))
	require.NoError(t, err)
	assert.Len(t, catalog.Courses, 2)
	assert.Len(t, catalog.Rooms, 2)
	assert.Len(t, catalog.Teachers, 1)

	_, err = NewLoader(testSlots).LoadFiles(filepath.Join(dir, "missing.csv"), "", "")
	require.Error(t, err)
}
