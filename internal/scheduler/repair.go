package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

var (
	// ErrSearchExhausted means every branch was tried without a consistent assignment.
	ErrSearchExhausted = errors.New("no consistent assignment exists")
	// ErrBudgetExceeded means the step or time budget ran out first.
	ErrBudgetExceeded = errors.New("repair search budget exceeded")
)

// SearchState is the lifecycle of one repair search.
type SearchState int

const (
	Unassigned SearchState = iota
	PartiallyAssigned
	Complete
	Exhausted
)

func (s SearchState) String() string {
	switch s {
	case PartiallyAssigned:
		return "partially_assigned"
	case Complete:
		return "complete"
	case Exhausted:
		return "exhausted"
	default:
		return "unassigned"
	}
}

// Budget bounds a repair search. Zero values disable the respective bound.
type Budget struct {
	MaxSteps int
	Timeout  time.Duration
}

// DefaultBudget keeps a repair within a few seconds.
var DefaultBudget = Budget{MaxSteps: 200_000, Timeout: 3 * time.Second}

// RepairResult is the outcome of a repair search.
type RepairResult struct {
	Entries []models.ScheduleEntry
	State   SearchState
	Steps   int
	Moved   int
}

// Solver re-assigns (room, day, start time) of schedule entries until no two
// entries share a room or an instructor in the same cell.
type Solver struct {
	grid    Grid
	catalog *Catalog
	budget  Budget
	now     func() time.Time
}

// NewSolver builds a solver over the catalog's rooms and the grid's cells.
func NewSolver(grid Grid, catalog *Catalog, budget Budget) *Solver {
	return &Solver{grid: grid, catalog: catalog, budget: budget, now: time.Now}
}

// Repair runs a chronological backtracking search. Variables are entries in
// list order; values are every (room, day, slot) with the entry's current
// value first, ordered by least-constraining value. Only room-time and
// instructor-time exclusivity are checked. The input slice is never
// modified; on failure the returned error wraps ErrSearchExhausted or
// ErrBudgetExceeded and the result carries the original entries.
func (s *Solver) Repair(ctx context.Context, entries []models.ScheduleEntry) (RepairResult, error) {
	original := make([]models.ScheduleEntry, len(entries))
	copy(original, entries)

	if len(entries) == 0 {
		return RepairResult{Entries: original, State: Complete}, nil
	}

	st := &search{
		ctx:         ctx,
		maxSteps:    s.budget.MaxSteps,
		now:         s.now,
		working:     make([]models.ScheduleEntry, len(entries)),
		original:    original,
		instructors: make([]string, len(entries)),
		domain:      s.domain(),
		assigned:    newOccupancy(),
		pending:     newOccupancy(),
		state:       Unassigned,
	}
	if s.budget.Timeout > 0 {
		st.deadline = s.now().Add(s.budget.Timeout)
	}
	copy(st.working, entries)
	for i, entry := range entries {
		st.instructors[i] = s.catalog.Instructor(entry.CourseID)
		st.pending.add(cell{Day: entry.Day, Slot: entry.StartTime}, entry.RoomID, st.instructors[i])
	}

	if err := st.assign(0); err != nil {
		st.state = Exhausted
		return RepairResult{Entries: original, State: st.state, Steps: st.steps}, err
	}
	st.state = Complete

	moved := 0
	for i := range st.working {
		if st.working[i] != original[i] {
			moved++
		}
	}
	return RepairResult{Entries: st.working, State: st.state, Steps: st.steps, Moved: moved}, nil
}

type value struct {
	room string
	day  string
	slot string
}

func (s *Solver) domain() []value {
	rooms := s.catalog.Rooms()
	out := make([]value, 0, len(rooms)*s.grid.Cells())
	for _, room := range rooms {
		for _, day := range s.grid.Days {
			for _, slot := range s.grid.Slots {
				out = append(out, value{room: room.ID, day: day, slot: slot})
			}
		}
	}
	return out
}

type search struct {
	ctx      context.Context
	deadline time.Time
	maxSteps int
	steps    int
	now      func() time.Time

	working     []models.ScheduleEntry
	original    []models.ScheduleEntry
	instructors []string
	domain      []value

	// assigned indexes the partial assignment; pending indexes the current
	// positions of entries not assigned yet.
	assigned *occupancy
	pending  *occupancy
	state    SearchState
}

func (s *search) assign(i int) error {
	if i == len(s.working) {
		return nil
	}
	s.state = PartiallyAssigned

	orig := s.original[i]
	origCell := cell{Day: orig.Day, Slot: orig.StartTime}
	s.pending.remove(origCell, orig.RoomID, s.instructors[i])
	defer s.pending.add(origCell, orig.RoomID, s.instructors[i])

	for _, v := range s.order(i) {
		if err := s.tick(); err != nil {
			return err
		}
		c := cell{Day: v.day, Slot: v.slot}
		if s.assigned.collisions(c, v.room, s.instructors[i]) > 0 {
			// Candidates are sorted by collisions, so the rest clash too.
			break
		}
		s.assigned.add(c, v.room, s.instructors[i])
		s.working[i].RoomID, s.working[i].Day, s.working[i].StartTime = v.room, v.day, v.slot

		err := s.assign(i + 1)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrSearchExhausted) {
			return err
		}
		s.assigned.remove(c, v.room, s.instructors[i])
		s.working[i] = s.original[i]
	}
	return fmt.Errorf("entry %d: %w", i, ErrSearchExhausted)
}

type rankedValue struct {
	value
	collisions int
	notCurrent int
	constrains int
	position   int
}

// order ranks candidate values for entry i by collisions with the partial
// assignment, then keeps the current value ahead of alternatives, then
// prefers values that displace fewer pending entries.
func (s *search) order(i int) []value {
	current := value{room: s.original[i].RoomID, day: s.original[i].Day, slot: s.original[i].StartTime}
	instructor := s.instructors[i]

	ranked := make([]rankedValue, 0, len(s.domain)+1)
	seenCurrent := false
	for pos, v := range s.domain {
		c := cell{Day: v.day, Slot: v.slot}
		r := rankedValue{
			value:      v,
			collisions: s.assigned.collisions(c, v.room, instructor),
			notCurrent: 1,
			constrains: s.pending.collisions(c, v.room, instructor),
			position:   pos + 1,
		}
		if v == current {
			r.notCurrent = 0
			seenCurrent = true
		}
		ranked = append(ranked, r)
	}
	if !seenCurrent && current.room != "" {
		// The entry sits in a room or cell outside the catalog; keep it as an option.
		c := cell{Day: current.day, Slot: current.slot}
		ranked = append(ranked, rankedValue{
			value:      current,
			collisions: s.assigned.collisions(c, current.room, instructor),
			constrains: s.pending.collisions(c, current.room, instructor),
		})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		x, y := ranked[a], ranked[b]
		if x.collisions != y.collisions {
			return x.collisions < y.collisions
		}
		if x.notCurrent != y.notCurrent {
			return x.notCurrent < y.notCurrent
		}
		if x.constrains != y.constrains {
			return x.constrains < y.constrains
		}
		return x.position < y.position
	})

	out := make([]value, len(ranked))
	for k, r := range ranked {
		out[k] = r.value
	}
	return out
}

func (s *search) tick() error {
	s.steps++
	if s.maxSteps > 0 && s.steps > s.maxSteps {
		return fmt.Errorf("%w: %d steps", ErrBudgetExceeded, s.maxSteps)
	}
	if s.steps%256 != 0 {
		return nil
	}
	if s.ctx != nil {
		if err := s.ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrBudgetExceeded, err)
		}
	}
	if !s.deadline.IsZero() && s.now().After(s.deadline) {
		return fmt.Errorf("%w: deadline reached after %d steps", ErrBudgetExceeded, s.steps)
	}
	return nil
}
