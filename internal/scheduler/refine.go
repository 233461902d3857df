package scheduler

import (
	"maps"
	"math/rand"
	"slices"

	"github.com/samber/lo"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

// RefineOptions tunes the population search. Zero values take defaults.
type RefineOptions struct {
	Generations    int
	PopulationSize int
	TournamentSize int
	MutationRate   float64
}

func (o RefineOptions) withDefaults() RefineOptions {
	if o.PopulationSize <= 1 {
		o.PopulationSize = 20
	}
	if o.TournamentSize <= 0 {
		o.TournamentSize = 5
	}
	if o.MutationRate <= 0 {
		o.MutationRate = 0.1
	}
	return o
}

// Refined is the best schedule found by Refine.
type Refined struct {
	Entries     []models.ScheduleEntry
	Score       float64
	Generations int
	Improved    bool
}

type individual struct {
	entries []models.ScheduleEntry
	score   float64
}

// Refiner improves a constructed schedule with a steady-state genetic search
// scored by Evaluate.
type Refiner struct {
	grid Grid
	rng  *rand.Rand
}

// NewRefiner returns a refiner drawing all random choices from rng.
func NewRefiner(grid Grid, rng *rand.Rand) *Refiner {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Refiner{grid: grid, rng: rng}
}

// Refine seeds a population with seed plus fresh constructions of in, then
// for each generation breeds one child from two tournament winners and lets
// it replace the worst individual when it scores at least as well. Children
// must keep the seed's layout: lab blocks whole and all present, one entry
// per cell, no fewer cells covered and no instructor in a blocked cell. The best individual is returned; it
// is never worse than seed.
func (r *Refiner) Refine(in Input, seed []models.ScheduleEntry, opts RefineOptions) (Refined, error) {
	opts = opts.withDefaults()
	catalog := NewCatalog(in.Courses, in.Rooms, in.Teachers)
	seedScore := Score(r.grid, seed, catalog)
	if opts.Generations <= 0 {
		return Refined{Entries: slices.Clone(seed), Score: seedScore}, nil
	}

	want := newLayout(r.grid, seed, catalog)
	constructor := NewConstructor(r.grid, r.rng)
	population := []individual{{entries: slices.Clone(seed), score: seedScore}}
	for attempt := 0; len(population) < opts.PopulationSize && attempt < opts.PopulationSize*4; attempt++ {
		result, err := constructor.Construct(in)
		if err != nil {
			return Refined{}, err
		}
		if !want.admits(result.Entries) {
			continue
		}
		population = append(population, individual{entries: result.Entries, score: Score(r.grid, result.Entries, catalog)})
	}

	for gen := 0; gen < opts.Generations; gen++ {
		a := r.tournament(population, opts.TournamentSize)
		b := r.tournament(population, opts.TournamentSize)
		child := r.crossover(a.entries, b.entries)
		if r.rng.Float64() < opts.MutationRate {
			r.mutate(child, catalog)
		}
		if !want.admits(child) {
			continue
		}
		score := Score(r.grid, child, catalog)

		worst := 0
		for i := range population {
			if population[i].score < population[worst].score {
				worst = i
			}
		}
		if score >= population[worst].score {
			population[worst] = individual{entries: child, score: score}
		}
	}

	best := lo.MaxBy(population, func(a, b individual) bool { return a.score > b.score })
	return Refined{
		Entries:     best.entries,
		Score:       best.score,
		Generations: opts.Generations,
		Improved:    best.score > seedScore,
	}, nil
}

func (r *Refiner) tournament(population []individual, size int) individual {
	best := population[r.rng.Intn(len(population))]
	for i := 1; i < size; i++ {
		contender := population[r.rng.Intn(len(population))]
		if contender.score > best.score {
			best = contender
		}
	}
	return best
}

// crossover takes whole days from a up to a random cut and the remaining
// days from b. Lab blocks never straddle days, so both halves come from the
// same parent.
func (r *Refiner) crossover(a, b []models.ScheduleEntry) []models.ScheduleEntry {
	if len(r.grid.Days) < 2 {
		return slices.Clone(a)
	}
	cut := 1 + r.rng.Intn(len(r.grid.Days)-1)
	head := make(map[string]bool, cut)
	for _, day := range r.grid.Days[:cut] {
		head[day] = true
	}

	child := make([]models.ScheduleEntry, 0, max(len(a), len(b)))
	for _, e := range a {
		if head[e.Day] {
			child = append(child, e)
		}
	}
	for _, e := range b {
		if !head[e.Day] {
			child = append(child, e)
		}
	}
	return child
}

// mutate makes one layout-preserving move: two theory entries trade cells,
// the lab windows of two days trade places, or an entry changes to another
// room of the same type. A lab block always moves and changes room as a
// unit and never leaves the lab slots.
func (r *Refiner) mutate(entries []models.ScheduleEntry, catalog *Catalog) {
	if len(entries) == 0 {
		return
	}
	idx := r.rng.Intn(len(entries))
	picked := entries[idx]
	lab := isLabEntry(picked, catalog)

	switch r.rng.Intn(3) {
	case 0, 1:
		if lab {
			r.swapLabWindows(entries, picked.Day, r.grid.Days[r.rng.Intn(len(r.grid.Days))])
			return
		}
		others := lo.Filter(lo.Range(len(entries)), func(j int, _ int) bool {
			return j != idx && !isLabEntry(entries[j], catalog)
		})
		if len(others) == 0 {
			return
		}
		j := others[r.rng.Intn(len(others))]
		entries[idx].Day, entries[j].Day = entries[j].Day, entries[idx].Day
		entries[idx].StartTime, entries[j].StartTime = entries[j].StartTime, entries[idx].StartTime
	default:
		course := catalog.Course(picked.CourseID)
		if course == nil {
			return
		}
		rooms := lo.Filter(catalog.Rooms(), func(room models.Room, _ int) bool {
			return room.IsAvailable && RoomTypeMatches(*course, room)
		})
		if len(rooms) == 0 {
			return
		}
		roomID := rooms[r.rng.Intn(len(rooms))].ID
		if !lab {
			entries[idx].RoomID = roomID
			return
		}
		for i := range entries {
			e := entries[i]
			if e.CourseID == picked.CourseID && e.Day == picked.Day && e.RoomID == picked.RoomID && isLabEntry(e, catalog) {
				entries[i].RoomID = roomID
			}
		}
	}
}

// swapLabWindows exchanges everything booked in the lab slots of two days.
func (r *Refiner) swapLabWindows(entries []models.ScheduleEntry, dayA, dayB string) {
	if dayA == dayB {
		return
	}
	for i := range entries {
		if !r.grid.IsLabSlot(entries[i].StartTime) {
			continue
		}
		switch entries[i].Day {
		case dayA:
			entries[i].Day = dayB
		case dayB:
			entries[i].Day = dayA
		}
	}
}

func isLabEntry(e models.ScheduleEntry, catalog *Catalog) bool {
	return e.IsLabFirst || e.IsLabSecond || catalog.IsLab(e.CourseID)
}

type labKey struct {
	courseID string
	day      string
	roomID   string
}

// layout is the structure refinement must keep: how many cells the seed
// covers and how many lab blocks each lab course has.
type layout struct {
	grid    Grid
	catalog *Catalog
	cells   int
	labs    map[string]int
}

func newLayout(grid Grid, seed []models.ScheduleEntry, catalog *Catalog) layout {
	l := layout{grid: grid, catalog: catalog}
	cells, labs, _ := l.inspect(seed)
	l.cells, l.labs = cells, labs
	return l
}

func (l layout) admits(entries []models.ScheduleEntry) bool {
	cells, labs, ok := l.inspect(entries)
	return ok && cells >= l.cells && maps.Equal(labs, l.labs)
}

// inspect counts occupied cells and complete lab blocks per course. ok is
// false when a cell holds two entries, an instructor sits in a cell they
// blocked, or a lab block is split.
func (l layout) inspect(entries []models.ScheduleEntry) (cells int, labs map[string]int, ok bool) {
	labs = make(map[string]int)
	seen := make(map[cell]bool, len(entries))
	halves := make(map[labKey][2]int)
	for _, e := range entries {
		c := cell{Day: e.Day, Slot: e.StartTime}
		if seen[c] {
			return 0, nil, false
		}
		seen[c] = true
		if teacher := l.catalog.Teacher(l.catalog.Instructor(e.CourseID)); teacher != nil && teacher.Availability.Blocks(e.Day, e.StartTime) {
			return 0, nil, false
		}

		if !isLabEntry(e, l.catalog) {
			continue
		}
		if len(l.grid.LabSlots) < 2 || !l.catalog.IsLab(e.CourseID) {
			return 0, nil, false
		}
		key := labKey{courseID: e.CourseID, day: e.Day, roomID: e.RoomID}
		h := halves[key]
		switch {
		case e.IsLabFirst && !e.IsLabSecond && e.StartTime == l.grid.LabSlots[0]:
			h[0]++
		case e.IsLabSecond && !e.IsLabFirst && e.StartTime == l.grid.LabSlots[1]:
			h[1]++
		default:
			return 0, nil, false
		}
		halves[key] = h
	}
	for key, h := range halves {
		if h[0] != h[1] {
			return 0, nil, false
		}
		labs[key.courseID] += h[0]
	}
	return len(seen), labs, true
}
