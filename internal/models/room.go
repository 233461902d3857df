package models

import "github.com/lib/pq"

// RoomType enumerates the kinds of teaching spaces.
type RoomType string

const (
	RoomClassroom   RoomType = "classroom"
	RoomLab         RoomType = "lab"
	RoomLectureHall RoomType = "lecture-hall"
)

// DepartmentAll marks a room shared by every branch.
const DepartmentAll = "All"

// Room is a bookable teaching space.
type Room struct {
	ID           string        `db:"id" json:"id"`
	Name         string        `db:"name" json:"name"`
	Capacity     int           `db:"capacity" json:"capacity"`
	Type         RoomType      `db:"type" json:"type"`
	Department   string        `db:"department" json:"department"`
	AllowedYears pq.Int64Array `db:"allowed_years" json:"allowedYears"`
	IsAvailable  bool          `db:"is_available" json:"isAvailable"`
}

// Serves reports whether the room type can host the lecture type.
func (r Room) Serves(lecture LectureType) bool {
	if lecture == LectureLab {
		return r.Type == RoomLab
	}
	return r.Type == RoomClassroom || r.Type == RoomLectureHall
}

// AdmitsYear reports whether the year is allowed; an empty list admits all years.
func (r Room) AdmitsYear(year int) bool {
	if len(r.AllowedYears) == 0 {
		return true
	}
	for _, allowed := range r.AllowedYears {
		if int(allowed) == year {
			return true
		}
	}
	return false
}

// BelongsTo reports whether the room is owned by branch or shared.
func (r Room) BelongsTo(branch string) bool {
	return r.Department == branch || r.Department == DepartmentAll
}
