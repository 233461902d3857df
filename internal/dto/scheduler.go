package dto

import (
	"github.com/noah-isme/class-scheduler-api/internal/models"
	"github.com/noah-isme/class-scheduler-api/internal/scheduler"
)

// ScopeQuery selects one cohort timetable.
type ScopeQuery struct {
	Year     int    `form:"year" json:"year" validate:"required,min=1,max=4"`
	Branch   string `form:"branch" json:"branch" validate:"required"`
	Division string `form:"division" json:"division" validate:"required"`
}

// Scope converts the query into the domain scope.
func (q ScopeQuery) Scope() models.Scope {
	return models.Scope{Year: q.Year, Branch: q.Branch, Division: q.Division}
}

// GenerateScheduleRequest asks for a fresh timetable of a cohort. Seed makes
// the result reproducible; Generations > 0 enables the population search.
type GenerateScheduleRequest struct {
	Year        int    `json:"year" validate:"required,min=1,max=4"`
	Branch      string `json:"branch" validate:"required"`
	Division    string `json:"division" validate:"required"`
	Seed        *int64 `json:"seed,omitempty"`
	Generations int    `json:"generations" validate:"min=0,max=1000"`
	AutoRepair  bool   `json:"autoRepair"`
}

// Scope returns the cohort addressed by the request.
func (r GenerateScheduleRequest) Scope() models.Scope {
	return models.Scope{Year: r.Year, Branch: r.Branch, Division: r.Division}
}

// GenerateScheduleResponse reports the stored schedule and how it was built.
type GenerateScheduleResponse struct {
	Schedule      *models.Schedule         `json:"schedule"`
	Seed          int64                    `json:"seed"`
	Score         scheduler.ScoreBreakdown `json:"score"`
	Unplaced      []scheduler.Unplaced     `json:"unplaced"`
	Backfilled    int                      `json:"backfilled"`
	UnfilledCells int                      `json:"unfilledCells"`
	Conflicts     []models.Conflict        `json:"conflicts"`
	Refined       bool                     `json:"refined"`
	Repaired      bool                     `json:"repaired"`
}

// ManualChange puts a course and room into one (day, slot) cell.
type ManualChange struct {
	Day      string `json:"day" validate:"required"`
	TimeSlot string `json:"timeSlot" validate:"required"`
	CourseID string `json:"courseId" validate:"required"`
	RoomID   string `json:"roomId" validate:"required"`
}

// ManualChangesRequest is applied all-or-nothing.
type ManualChangesRequest struct {
	Changes []ManualChange `json:"changes" validate:"required,min=1,dive"`
}

// ManualChangesResponse carries the updated schedule or the conflicts that
// caused the rejection.
type ManualChangesResponse struct {
	Success   bool              `json:"success"`
	Schedule  *models.Schedule  `json:"schedule,omitempty"`
	Conflicts []models.Conflict `json:"conflicts,omitempty"`
	Message   string            `json:"message,omitempty"`
}

// RepairResponse is the outcome of a synchronous repair.
type RepairResponse struct {
	Success   bool              `json:"success"`
	Schedule  *models.Schedule  `json:"schedule,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	State     string            `json:"state"`
	Steps     int               `json:"steps"`
	Moved     int               `json:"moved"`
	Conflicts []models.Conflict `json:"conflicts"`
}

// AsyncJobResponse acknowledges a queued job.
type AsyncJobResponse struct {
	JobID string `json:"jobId"`
	Queue string `json:"queue"`
	Type  string `json:"type"`
}
