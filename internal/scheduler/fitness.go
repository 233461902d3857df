package scheduler

import (
	"github.com/samber/lo"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

// Scoring weights.
const (
	conflictPenalty  = 10.0
	preferredBonus   = 2.0
	labWindowBonus   = 5.0
	distributionBase = 100.0
)

// ScoreBreakdown itemises a fitness score.
type ScoreBreakdown struct {
	Entries           int     `json:"entries"`
	Conflicts         int     `json:"conflicts"`
	Preferred         int     `json:"preferred"`
	LabsInWindow      int     `json:"labsInWindow"`
	DayVariance       float64 `json:"dayVariance"`
	SlotVariance      float64 `json:"slotVariance"`
	DistributionBonus float64 `json:"distributionBonus"`
	Total             float64 `json:"total"`
}

// Evaluate scores entries: one point per entry, minus 10 per conflict, plus
// 2 per preferred slot hit, plus 5 per lab entry inside the lab window, plus
// 100 / (day-count variance + slot-count variance + 1).
func Evaluate(grid Grid, entries []models.ScheduleEntry, catalog *Catalog) ScoreBreakdown {
	out := ScoreBreakdown{
		Entries:   len(entries),
		Conflicts: len(DetectConflicts(entries, catalog)),
	}

	perDay := make(map[string]int, len(grid.Days))
	perSlot := make(map[string]int, len(grid.Slots))
	for _, entry := range entries {
		perDay[entry.Day]++
		perSlot[entry.StartTime]++
		course := catalog.Course(entry.CourseID)
		if course == nil {
			continue
		}
		if PrefersSlot(*course, entry.StartTime) {
			out.Preferred++
		}
		if course.IsLab() && grid.IsLabSlot(entry.StartTime) {
			out.LabsInWindow++
		}
	}

	out.DayVariance = variance(lo.Map(grid.Days, func(day string, _ int) float64 { return float64(perDay[day]) }))
	out.SlotVariance = variance(lo.Map(grid.Slots, func(slot string, _ int) float64 { return float64(perSlot[slot]) }))
	out.DistributionBonus = distributionBase / (out.DayVariance + out.SlotVariance + 1)

	out.Total = float64(out.Entries) -
		conflictPenalty*float64(out.Conflicts) +
		preferredBonus*float64(out.Preferred) +
		labWindowBonus*float64(out.LabsInWindow) +
		out.DistributionBonus
	return out
}

// Score is the scalar form of Evaluate.
func Score(grid Grid, entries []models.ScheduleEntry, catalog *Catalog) float64 {
	return Evaluate(grid, entries, catalog).Total
}

// variance is the population variance of values.
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := lo.Sum(values) / float64(len(values))
	return lo.SumBy(values, func(v float64) float64 { return (v - mean) * (v - mean) }) / float64(len(values))
}
