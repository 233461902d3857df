package models

import (
	"errors"
	"time"
)

// ErrScopeIncomplete signals a missing year, branch or division.
var ErrScopeIncomplete = errors.New("year, branch and division are required")

// Scope identifies one cohort timetable.
type Scope struct {
	Year     int    `db:"year" json:"year"`
	Branch   string `db:"branch" json:"branch"`
	Division string `db:"division" json:"division"`
}

// Validate fails when any scope identifier is missing.
func (s Scope) Validate() error {
	if s.Year <= 0 || s.Branch == "" || s.Division == "" {
		return ErrScopeIncomplete
	}
	return nil
}

// ScheduleEntry places one course in one (day, start time, room) cell. Lab
// blocks are two entries flagged IsLabFirst and IsLabSecond.
type ScheduleEntry struct {
	ID          string `db:"id" json:"id,omitempty"`
	ScheduleID  string `db:"schedule_id" json:"-"`
	Position    int    `db:"position" json:"-"`
	CourseID    string `db:"course_id" json:"courseId"`
	Day         string `db:"day" json:"day"`
	StartTime   string `db:"start_time" json:"startTime"`
	RoomID      string `db:"room_id" json:"roomId"`
	IsLabFirst  bool   `db:"is_lab_first" json:"isLabFirst"`
	IsLabSecond bool   `db:"is_lab_second" json:"isLabSecond"`
}

// SameCell reports whether both entries start in the same day and slot.
func (e ScheduleEntry) SameCell(other ScheduleEntry) bool {
	return e.Day == other.Day && e.StartTime == other.StartTime
}

// Schedule is the persisted timetable of one scope.
type Schedule struct {
	ID        string          `db:"id" json:"id"`
	Year      int             `db:"year" json:"year"`
	Branch    string          `db:"branch" json:"branch"`
	Division  string          `db:"division" json:"division"`
	Score     float64         `db:"score" json:"score"`
	Entries   []ScheduleEntry `db:"-" json:"entries"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// Scope returns the cohort identifier of the schedule.
func (s Schedule) Scope() Scope {
	return Scope{Year: s.Year, Branch: s.Branch, Division: s.Division}
}

// CloneEntries returns a copy of the entries safe for mutation.
func (s Schedule) CloneEntries() []ScheduleEntry {
	out := make([]ScheduleEntry, len(s.Entries))
	copy(out, s.Entries)
	return out
}

// ConflictType tags the resource two entries collide on.
type ConflictType string

const (
	ConflictRoom       ConflictType = "room"
	ConflictInstructor ConflictType = "instructor"
)

// Conflict is a pairwise collision of two entries in the same cell.
type Conflict struct {
	Type         ConflictType `json:"type"`
	Slots        [2]int       `json:"slots"`
	Day          string       `json:"day"`
	StartTime    string       `json:"startTime"`
	RoomID       string       `json:"roomId,omitempty"`
	InstructorID string       `json:"instructorId,omitempty"`
	Message      string       `json:"message"`
}

// Involves reports whether the entry index takes part in the conflict.
func (c Conflict) Involves(index int) bool {
	return c.Slots[0] == index || c.Slots[1] == index
}

// ScheduleConflictError is returned when a change would double-book a room or instructor.
type ScheduleConflictError struct {
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
