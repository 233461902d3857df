package scheduler

import (
	"math/rand"
	"slices"

	"github.com/samber/lo"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

// Input is everything one construction pass reads.
type Input struct {
	Scope    models.Scope
	Courses  []models.Course
	Rooms    []models.Room
	Teachers []models.Teacher
}

// Unplaced records required sessions the constructor could not place.
type Unplaced struct {
	CourseID    string             `json:"courseId"`
	Code        string             `json:"code"`
	LectureType models.LectureType `json:"lectureType"`
	Sessions    int                `json:"sessions"`
}

// Result is the outcome of one construction pass. Construction never fails
// on scarce input; shortfalls are reported here instead.
type Result struct {
	Entries       []models.ScheduleEntry `json:"entries"`
	Unplaced      []Unplaced             `json:"unplaced"`
	Backfilled    int                    `json:"backfilled"`
	UnfilledCells int                    `json:"unfilledCells"`
}

// UnplacedSessions sums the sessions listed in Unplaced.
func (r Result) UnplacedSessions() int {
	return lo.SumBy(r.Unplaced, func(u Unplaced) int { return u.Sessions })
}

// Constructor builds a first full-week schedule for one scope.
type Constructor struct {
	grid Grid
	rng  *rand.Rand
}

// NewConstructor returns a constructor drawing all random choices from rng.
func NewConstructor(grid Grid, rng *rand.Rand) *Constructor {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Constructor{grid: grid, rng: rng}
}

// Construct places labs, then the theory quota of every course group, then
// backfills the remaining cells round-robin. Only an incomplete scope is an
// error.
func (c *Constructor) Construct(in Input) (Result, error) {
	if err := in.Scope.Validate(); err != nil {
		return Result{}, err
	}

	b := &build{
		grid:     c.grid,
		rng:      c.rng,
		catalog:  NewCatalog(in.Courses, in.Rooms, in.Teachers),
		occ:      newOccupancy(),
		pools:    make(map[poolKey][]models.Room),
		shortage: make(map[string]int),
	}

	groups := groupCourses(in.Courses)
	labGroups := lo.CountBy(groups, func(g courseGroup) bool { return g.lab != nil })

	var unplaced []Unplaced
	for _, g := range groups {
		if g.lab == nil {
			continue
		}
		if !b.placeLab(*g.lab) {
			unplaced = append(unplaced, Unplaced{CourseID: g.lab.ID, Code: g.lab.Code, LectureType: models.LectureLab, Sessions: 1})
		}
	}

	perGroup, extra := theoryQuota(c.grid.Cells(), labGroups, len(groups))
	var theoryOrder []string
	for _, g := range groups {
		if g.theory == nil {
			continue
		}
		sessions := perGroup
		if extra > 0 {
			sessions++
			extra--
		}
		theoryOrder = append(theoryOrder, g.theory.ID)
		if placed := b.placeTheory(*g.theory, sessions); placed < sessions {
			b.shortage[g.theory.ID] = sessions - placed
		}
	}

	theory := lo.Filter(in.Courses, func(course models.Course, _ int) bool { return !course.IsLab() })
	backfilled, unfilled := b.backfill(theory)

	for _, id := range theoryOrder {
		if missing := b.shortage[id]; missing > 0 {
			course := b.catalog.Course(id)
			unplaced = append(unplaced, Unplaced{CourseID: id, Code: course.Code, LectureType: models.LectureTheory, Sessions: missing})
		}
	}

	return Result{
		Entries:       b.entries,
		Unplaced:      unplaced,
		Backfilled:    backfilled,
		UnfilledCells: unfilled,
	}, nil
}

// theoryQuota splits the cells left after lab blocks evenly across groups.
func theoryQuota(cells, labGroups, groups int) (perGroup, extra int) {
	if groups == 0 {
		return 0, 0
	}
	available := cells - 2*labGroups
	if available < 0 {
		available = 0
	}
	return available / groups, available % groups
}

type courseGroup struct {
	base   string
	theory *models.Course
	lab    *models.Course
}

// groupCourses pairs theory and lab components by base code, keeping the
// order in which codes first appear. A second component of the same kind
// opens a new group under the same base code.
func groupCourses(courses []models.Course) []courseGroup {
	var groups []courseGroup
	open := make(map[string]int)
	for i := range courses {
		course := &courses[i]
		base := course.BaseCode()
		idx, ok := open[base]
		if ok {
			g := &groups[idx]
			if (course.IsLab() && g.lab != nil) || (!course.IsLab() && g.theory != nil) {
				ok = false
			}
		}
		if !ok {
			groups = append(groups, courseGroup{base: base})
			idx = len(groups) - 1
			open[base] = idx
		}
		if course.IsLab() {
			groups[idx].lab = course
		} else {
			groups[idx].theory = course
		}
	}
	return groups
}

type poolKey struct {
	courseID string
	phase    Phase
}

type build struct {
	grid     Grid
	rng      *rand.Rand
	catalog  *Catalog
	occ      *occupancy
	entries  []models.ScheduleEntry
	pools    map[poolKey][]models.Room
	shortage map[string]int
}

func (b *build) roomPool(course models.Course, phase Phase) []models.Room {
	key := poolKey{courseID: course.ID, phase: phase}
	if pool, ok := b.pools[key]; ok {
		return pool
	}
	pool := lo.Filter(b.catalog.Rooms(), func(room models.Room, _ int) bool {
		return RoomEligible(course, room, phase)
	})
	b.pools[key] = pool
	return pool
}

func (b *build) teacherOK(course models.Course, day, slot string, phase Phase) bool {
	return TeacherEligible(b.catalog.Teacher(course.InstructorID), course, day, slot, phase)
}

func (b *build) place(course models.Course, day, slot, roomID string, first, second bool) {
	b.entries = append(b.entries, models.ScheduleEntry{
		CourseID:    course.ID,
		Day:         day,
		StartTime:   slot,
		RoomID:      roomID,
		IsLabFirst:  first,
		IsLabSecond: second,
	})
	b.occ.add(cell{Day: day, Slot: slot}, roomID, course.InstructorID)
}

func (b *build) pick(rooms []models.Room) models.Room {
	return rooms[b.rng.Intn(len(rooms))]
}

func (b *build) shuffled(items []string) []string {
	out := slices.Clone(items)
	b.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// placeLab books both lab slots of one day in a single lab room, first with
// strict eligibility and then relaxed.
func (b *build) placeLab(course models.Course) bool {
	if len(b.grid.LabSlots) < 2 {
		return false
	}
	first, second := b.grid.LabSlots[0], b.grid.LabSlots[1]
	for _, phase := range []Phase{Strict, Relaxed} {
		rooms := b.roomPool(course, phase)
		if len(rooms) == 0 {
			continue
		}
		for _, day := range b.shuffled(b.grid.Days) {
			if b.occ.taken(cell{Day: day, Slot: first}) || b.occ.taken(cell{Day: day, Slot: second}) {
				continue
			}
			if !b.teacherOK(course, day, first, phase) || !b.teacherOK(course, day, second, phase) {
				continue
			}
			room := b.pick(rooms)
			b.place(course, day, first, room.ID, true, false)
			b.place(course, day, second, room.ID, false, true)
			return true
		}
	}
	return false
}

// placeTheory spreads sessions one per day in strict mode, then falls back
// to any free non-lab cell in relaxed mode. It returns the sessions placed.
func (b *build) placeTheory(course models.Course, sessions int) int {
	slots := b.grid.TheorySlots()
	placed := 0

	if rooms := b.roomPool(course, Strict); len(rooms) > 0 {
		for _, day := range b.grid.Days {
			if placed >= sessions {
				break
			}
			free := lo.Filter(slots, func(slot string, _ int) bool {
				return !b.occ.taken(cell{Day: day, Slot: slot}) && b.teacherOK(course, day, slot, Strict)
			})
			if len(free) == 0 {
				continue
			}
			slot := free[b.rng.Intn(len(free))]
			b.place(course, day, slot, b.pick(rooms).ID, false, false)
			placed++
		}
	}

	rooms := b.roomPool(course, Relaxed)
	for placed < sessions && len(rooms) > 0 {
		if !b.placeAnywhere(course, slots, rooms) {
			break
		}
		placed++
	}
	return placed
}

func (b *build) placeAnywhere(course models.Course, slots []string, rooms []models.Room) bool {
	for _, day := range b.shuffled(b.grid.Days) {
		for _, slot := range b.shuffled(slots) {
			if b.occ.taken(cell{Day: day, Slot: slot}) || !b.teacherOK(course, day, slot, Relaxed) {
				continue
			}
			b.place(course, day, slot, b.pick(rooms).ID, false, false)
			return true
		}
	}
	return false
}

// backfill sweeps every cell in grid order and fills empty ones by cycling
// through the theory courses. Courses whose instructor blocked the cell are
// skipped; a cell nobody can take stays empty and is counted as unfilled.
func (b *build) backfill(theory []models.Course) (filled, unfilled int) {
	next := 0
	for _, day := range b.grid.Days {
		for _, slot := range b.grid.Slots {
			c := cell{Day: day, Slot: slot}
			if b.occ.taken(c) {
				continue
			}
			chosen, rooms := -1, []models.Room(nil)
			for k := 0; k < len(theory); k++ {
				idx := (next + k) % len(theory)
				candidate := theory[idx]
				pool := b.roomPool(candidate, Relaxed)
				if len(pool) == 0 || !b.teacherOK(candidate, day, slot, Relaxed) {
					continue
				}
				chosen, rooms = idx, pool
				break
			}
			if chosen < 0 {
				unfilled++
				continue
			}
			next = chosen + 1
			course := theory[chosen]
			b.place(course, day, slot, b.pick(rooms).ID, false, false)
			if b.shortage[course.ID] > 0 {
				b.shortage[course.ID]--
			}
			filled++
		}
	}
	return filled, unfilled
}
