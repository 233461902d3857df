package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

func TestRepairResolvesRoomDoubleBooking(t *testing.T) {
	catalog := conflictCatalog()
	entries := []models.ScheduleEntry{
		entry("a", "Monday", "09:00", "r1"),
		entry("c", "Monday", "09:00", "r1"),
		entry("b", "Monday", "10:00", "r2"),
	}
	snapshot := append([]models.ScheduleEntry(nil), entries...)
	require.NotEmpty(t, DetectConflicts(entries, catalog))

	result, err := NewSolver(DefaultGrid(), catalog, DefaultBudget).Repair(context.Background(), entries)
	require.NoError(t, err)

	assert.Equal(t, Complete, result.State)
	assert.Empty(t, DetectConflicts(result.Entries, catalog))
	assert.Equal(t, snapshot[0], result.Entries[0])
	assert.Equal(t, snapshot[2], result.Entries[2])
	assert.NotEqual(t, snapshot[1], result.Entries[1])
	assert.Equal(t, 1, result.Moved)
	assert.Equal(t, snapshot, entries)
}

func TestRepairResolvesInstructorClash(t *testing.T) {
	catalog := conflictCatalog()
	entries := []models.ScheduleEntry{
		entry("a", "Monday", "09:00", "r1"),
		entry("b", "Monday", "09:00", "r2"),
	}

	result, err := NewSolver(DefaultGrid(), catalog, DefaultBudget).Repair(context.Background(), entries)
	require.NoError(t, err)

	assert.Empty(t, DetectConflicts(result.Entries, catalog))
	assert.Equal(t, entries[0], result.Entries[0])
	assert.Equal(t, "b", result.Entries[1].CourseID)
}

func TestRepairKeepsConsistentSchedule(t *testing.T) {
	catalog := conflictCatalog()
	entries := []models.ScheduleEntry{
		entry("a", "Monday", "09:00", "r1"),
		entry("c", "Monday", "09:00", "r2"),
		entry("b", "Tuesday", "11:00", "r1"),
	}

	result, err := NewSolver(DefaultGrid(), catalog, DefaultBudget).Repair(context.Background(), entries)
	require.NoError(t, err)

	assert.Equal(t, entries, result.Entries)
	assert.Zero(t, result.Moved)
}

func TestRepairPreservesLabMarkers(t *testing.T) {
	courses := []models.Course{labCourse("lab", "CS101-L", "t1"), theoryCourse("x", "CS102", "t2")}
	rooms := []models.Room{labRoom("l1", "CS"), classroom("r1")}
	catalog := NewCatalog(courses, rooms, nil)
	entries := []models.ScheduleEntry{
		{CourseID: "lab", Day: "Monday", StartTime: "15:00", RoomID: "l1", IsLabFirst: true},
		{CourseID: "lab", Day: "Monday", StartTime: "16:00", RoomID: "l1", IsLabSecond: true},
		entry("x", "Monday", "15:00", "l1"),
	}

	result, err := NewSolver(DefaultGrid(), catalog, DefaultBudget).Repair(context.Background(), entries)
	require.NoError(t, err)

	assert.Equal(t, entries[0], result.Entries[0])
	assert.Equal(t, entries[1], result.Entries[1])
	assert.Empty(t, DetectConflicts(result.Entries, catalog))
}

func TestRepairEmptySchedule(t *testing.T) {
	result, err := NewSolver(DefaultGrid(), conflictCatalog(), DefaultBudget).Repair(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Complete, result.State)
	assert.Empty(t, result.Entries)
}

func TestRepairExhaustedWhenInfeasible(t *testing.T) {
	grid := Grid{Days: []string{"Monday"}, Slots: []string{"09:00"}}
	catalog := NewCatalog(
		[]models.Course{theoryCourse("a", "CS101", "t1"), theoryCourse("b", "CS102", "t1")},
		[]models.Room{classroom("r1"), classroom("r2")},
		nil,
	)
	entries := []models.ScheduleEntry{
		entry("a", "Monday", "09:00", "r1"),
		entry("b", "Monday", "09:00", "r2"),
	}

	result, err := NewSolver(grid, catalog, DefaultBudget).Repair(context.Background(), entries)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrSearchExhausted)
	assert.Equal(t, Exhausted, result.State)
	assert.Equal(t, entries, result.Entries)
}

func TestRepairStopsAtStepBudget(t *testing.T) {
	catalog := conflictCatalog()
	entries := []models.ScheduleEntry{
		entry("a", "Monday", "09:00", "r1"),
		entry("c", "Monday", "09:00", "r1"),
	}

	result, err := NewSolver(DefaultGrid(), catalog, Budget{MaxSteps: 1}).Repair(context.Background(), entries)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Equal(t, entries, result.Entries)
	assert.Equal(t, Exhausted, result.State)
}

// crowdedInput has one more single-room entry than cells, which the search
// can only disprove by walking a large tree.
func crowdedInput() (Grid, *Catalog, []models.ScheduleEntry) {
	grid := Grid{Days: []string{"Monday"}, Slots: TimeSlots}
	var courses []models.Course
	var entries []models.ScheduleEntry
	for i := 0; i <= len(TimeSlots); i++ {
		id := fmt.Sprintf("c%d", i)
		courses = append(courses, theoryCourse(id, "CS1"+id, "t"+id))
		entries = append(entries, entry(id, "Monday", "09:00", "r1"))
	}
	return grid, NewCatalog(courses, []models.Room{classroom("r1")}, nil), entries
}

func TestRepairHonoursCancelledContext(t *testing.T) {
	grid, catalog, entries := crowdedInput()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSolver(grid, catalog, Budget{}).Repair(ctx, entries)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
}

func TestRepairHonoursDeadline(t *testing.T) {
	grid, catalog, entries := crowdedInput()
	solver := NewSolver(grid, catalog, Budget{Timeout: time.Second})
	clock := time.Unix(0, 0)
	solver.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	result, err := solver.Repair(context.Background(), entries)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Equal(t, entries, result.Entries)
}
