package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

func singleCourseInput() Input {
	return Input{
		Scope:    scopeCS1A,
		Courses:  []models.Course{theoryCourse("cs101", "CS101", "T1"), labCourse("cs101-lab", "CS101-L", "T1")},
		Rooms:    []models.Room{classroom("c1"), classroom("c2"), labRoom("lab1", "CS")},
		Teachers: []models.Teacher{teacher("T1")},
	}
}

func assertLabBlocks(t *testing.T, entries []models.ScheduleEntry, catalog *Catalog) {
	t.Helper()
	labs := map[string][]models.ScheduleEntry{}
	for _, e := range entries {
		if catalog.IsLab(e.CourseID) {
			labs[e.CourseID] = append(labs[e.CourseID], e)
		} else {
			assert.False(t, e.IsLabFirst || e.IsLabSecond, "theory entry carries lab marker")
		}
	}
	for courseID, block := range labs {
		require.Len(t, block, 2, "lab %s", courseID)
		assert.Equal(t, block[0].Day, block[1].Day)
		assert.Equal(t, block[0].RoomID, block[1].RoomID)
		assert.Equal(t, "15:00", block[0].StartTime)
		assert.True(t, block[0].IsLabFirst)
		assert.Equal(t, "16:00", block[1].StartTime)
		assert.True(t, block[1].IsLabSecond)
	}
}

func TestConstructRejectsIncompleteScope(t *testing.T) {
	in := singleCourseInput()
	in.Scope.Division = ""

	_, err := NewConstructor(DefaultGrid(), seeded(1)).Construct(in)
	assert.ErrorIs(t, err, models.ErrScopeIncomplete)
}

func TestConstructSingleCourseWithLabFillsWeek(t *testing.T) {
	in := singleCourseInput()
	catalog := NewCatalog(in.Courses, in.Rooms, in.Teachers)

	for seed := int64(1); seed <= 10; seed++ {
		result, err := NewConstructor(DefaultGrid(), seeded(seed)).Construct(in)
		require.NoError(t, err)

		require.Len(t, result.Entries, 40)
		assert.Empty(t, result.Unplaced)
		assert.Zero(t, result.UnfilledCells)
		assert.Empty(t, DetectConflicts(result.Entries, catalog))

		labEntries, theoryEntries := 0, 0
		for _, e := range result.Entries {
			if e.CourseID == "cs101-lab" {
				labEntries++
				assert.Equal(t, "lab1", e.RoomID)
			} else {
				theoryEntries++
				assert.Equal(t, "cs101", e.CourseID)
				assert.Contains(t, []string{"c1", "c2"}, e.RoomID)
			}
		}
		assert.Equal(t, 2, labEntries)
		assert.Equal(t, 38, theoryEntries)
		assertLabBlocks(t, result.Entries, catalog)
	}
}

func TestConstructNeverUsesBlockedSlot(t *testing.T) {
	t1 := teacher("T1")
	t1.Availability = models.Availability{"Monday": {"09:00": false}}
	in := Input{
		Scope:    scopeCS1A,
		Courses:  []models.Course{theoryCourse("a", "CS101", "T1"), theoryCourse("b", "CS102", "T1")},
		Rooms:    []models.Room{classroom("c1"), classroom("c2")},
		Teachers: []models.Teacher{t1},
	}
	catalog := NewCatalog(in.Courses, in.Rooms, in.Teachers)

	for seed := int64(1); seed <= 10; seed++ {
		result, err := NewConstructor(DefaultGrid(), seeded(seed)).Construct(in)
		require.NoError(t, err)

		for _, e := range result.Entries {
			assert.False(t, e.Day == "Monday" && e.StartTime == "09:00", "blocked cell used by %s", e.CourseID)
		}
		// Availability filters placement; it is not a pairwise conflict.
		assert.Empty(t, DetectConflicts(result.Entries, catalog))
		assert.Equal(t, 1, result.UnfilledCells)
		assert.Len(t, result.Entries, 39)
	}
}

func TestConstructIsDeterministicForSeed(t *testing.T) {
	in := Input{
		Scope: scopeCS1A,
		Courses: []models.Course{
			theoryCourse("a", "CS101", "T1"),
			labCourse("a-lab", "CS101-L", "T1"),
			theoryCourse("b", "CS102", "T2"),
			theoryCourse("c", "CS103", "T3"),
		},
		Rooms:    []models.Room{classroom("c1"), classroom("c2"), labRoom("lab1", "CS")},
		Teachers: []models.Teacher{teacher("T1"), teacher("T2"), teacher("T3")},
	}

	first, err := NewConstructor(DefaultGrid(), seeded(42)).Construct(in)
	require.NoError(t, err)
	second, err := NewConstructor(DefaultGrid(), seeded(42)).Construct(in)
	require.NoError(t, err)

	assert.Equal(t, first.Entries, second.Entries)
}

func TestConstructCoverageWithSeveralGroups(t *testing.T) {
	in := Input{
		Scope: scopeCS1A,
		Courses: []models.Course{
			theoryCourse("a", "CS101", "T1"),
			labCourse("a-lab", "CS101-L", "T1"),
			theoryCourse("b", "CS102", "T2"),
			labCourse("b-lab", "CS102-L", "T2"),
			theoryCourse("c", "CS103", "T3"),
		},
		Rooms:    []models.Room{classroom("c1"), classroom("c2"), labRoom("lab1", "CS"), labRoom("lab2", "All")},
		Teachers: []models.Teacher{teacher("T1"), teacher("T2"), teacher("T3")},
	}
	catalog := NewCatalog(in.Courses, in.Rooms, in.Teachers)

	result, err := NewConstructor(DefaultGrid(), seeded(7)).Construct(in)
	require.NoError(t, err)

	assert.Len(t, result.Entries, DefaultGrid().Cells())
	assert.Zero(t, result.UnfilledCells)
	assert.Empty(t, DetectConflicts(result.Entries, catalog))
	assertLabBlocks(t, result.Entries, catalog)

	cells := map[cell]bool{}
	for _, e := range result.Entries {
		c := cell{Day: e.Day, Slot: e.StartTime}
		assert.False(t, cells[c], "cell %v used twice", c)
		cells[c] = true
	}
}

func TestConstructLabFallsBackToRelaxedRoom(t *testing.T) {
	in := singleCourseInput()
	in.Rooms = []models.Room{classroom("c1"), labRoom("ee-lab", "EE")}

	result, err := NewConstructor(DefaultGrid(), seeded(3)).Construct(in)
	require.NoError(t, err)

	var labRooms []string
	for _, e := range result.Entries {
		if e.CourseID == "cs101-lab" {
			labRooms = append(labRooms, e.RoomID)
		}
	}
	assert.Equal(t, []string{"ee-lab", "ee-lab"}, labRooms)
	assert.Empty(t, result.Unplaced)
}

func TestConstructReportsUnplacedLab(t *testing.T) {
	in := singleCourseInput()
	in.Rooms = []models.Room{classroom("c1")}

	result, err := NewConstructor(DefaultGrid(), seeded(5)).Construct(in)
	require.NoError(t, err)

	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, "cs101-lab", result.Unplaced[0].CourseID)
	assert.Equal(t, models.LectureLab, result.Unplaced[0].LectureType)
	assert.Equal(t, 1, result.UnplacedSessions())
	assert.Len(t, result.Entries, 40)
	for _, e := range result.Entries {
		assert.Equal(t, "cs101", e.CourseID)
	}
}

func TestConstructWithoutTheoryLeavesCellsEmpty(t *testing.T) {
	in := singleCourseInput()
	in.Courses = in.Courses[1:]

	result, err := NewConstructor(DefaultGrid(), seeded(9)).Construct(in)
	require.NoError(t, err)

	assert.Len(t, result.Entries, 2)
	assert.Equal(t, 38, result.UnfilledCells)
	assert.Zero(t, result.Backfilled)
}

func TestTheoryQuota(t *testing.T) {
	cases := []struct {
		cells, labs, groups int
		per, extra          int
	}{
		{40, 1, 1, 38, 0},
		{40, 2, 3, 12, 0},
		{40, 0, 3, 13, 1},
		{40, 1, 4, 9, 2},
		{40, 0, 0, 0, 0},
		{2, 3, 3, 0, 0},
	}
	for _, tc := range cases {
		per, extra := theoryQuota(tc.cells, tc.labs, tc.groups)
		assert.Equal(t, tc.per, per, "%+v", tc)
		assert.Equal(t, tc.extra, extra, "%+v", tc)
	}
}

func TestGroupCoursesByBaseCode(t *testing.T) {
	groups := groupCourses([]models.Course{
		theoryCourse("a", "CS101", "T1"),
		theoryCourse("b", "CS102", "T2"),
		labCourse("a-lab", "CS101-L", "T1"),
		theoryCourse("a2", "CS101-X", "T3"),
	})

	require.Len(t, groups, 3)
	assert.Equal(t, "CS101", groups[0].base)
	assert.Equal(t, "a", groups[0].theory.ID)
	assert.Equal(t, "a-lab", groups[0].lab.ID)
	assert.Equal(t, "b", groups[1].theory.ID)
	assert.Nil(t, groups[1].lab)
	assert.Equal(t, "a2", groups[2].theory.ID)
}
