package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// LectureType distinguishes theory sessions from two-hour lab blocks.
type LectureType string

const (
	LectureTheory LectureType = "theory"
	LectureLab    LectureType = "lab"
)

// LabDurationMinutes is the fixed length of a lab block.
const LabDurationMinutes = 120

// Course is one schedulable component of a nominal course. Theory and lab
// components of the same code are distinct records.
type Course struct {
	ID                 string         `db:"id" json:"id"`
	Code               string         `db:"code" json:"code"`
	Name               string         `db:"name" json:"name"`
	LectureType        LectureType    `db:"lecture_type" json:"lectureType"`
	InstructorID       string         `db:"instructor_id" json:"instructorId"`
	Duration           int            `db:"duration" json:"duration"`
	Capacity           int            `db:"capacity" json:"capacity"`
	Year               int            `db:"year" json:"year"`
	Branch             string         `db:"branch" json:"branch"`
	Division           string         `db:"division" json:"division"`
	PreferredTimeSlots pq.StringArray `db:"preferred_time_slots" json:"preferredTimeSlots"`
	CreatedAt          time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updatedAt"`
}

// BaseCode returns the code prefix shared by the theory and lab components.
func (c Course) BaseCode() string {
	if idx := strings.Index(c.Code, "-"); idx >= 0 {
		return c.Code[:idx]
	}
	return c.Code
}

// Scope returns the cohort the course is taught to.
func (c Course) Scope() Scope {
	return Scope{Year: c.Year, Branch: c.Branch, Division: c.Division}
}

// IsLab reports whether the course is a lab component.
func (c Course) IsLab() bool {
	return c.LectureType == LectureLab
}

// Prefers reports whether slot is among the course's preferred start times.
func (c Course) Prefers(slot string) bool {
	for _, preferred := range c.PreferredTimeSlots {
		if preferred == slot {
			return true
		}
	}
	return false
}

// CourseFilter narrows course lookups to one cohort.
type CourseFilter struct {
	Year     int
	Branch   string
	Division string
}
