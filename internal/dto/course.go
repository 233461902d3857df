package dto

// CreateCourseRequest registers one course component.
type CreateCourseRequest struct {
	Code               string   `json:"code" validate:"required,max=32"`
	Name               string   `json:"name" validate:"required,max=255"`
	LectureType        string   `json:"lectureType" validate:"required,oneof=theory lab"`
	InstructorID       string   `json:"instructorId" validate:"required"`
	Duration           int      `json:"duration" validate:"required,min=1"`
	Capacity           int      `json:"capacity" validate:"required,min=1"`
	Year               int      `json:"year" validate:"required,min=1,max=4"`
	Branch             string   `json:"branch" validate:"required"`
	Division           string   `json:"division" validate:"required"`
	PreferredTimeSlots []string `json:"preferredTimeSlots" validate:"omitempty,dive,required"`
}

// CreateRoomRequest registers a teaching space.
type CreateRoomRequest struct {
	Name         string  `json:"name" validate:"required,max=128"`
	Capacity     int     `json:"capacity" validate:"required,min=1"`
	Type         string  `json:"type" validate:"required,oneof=classroom lab lecture-hall"`
	Department   string  `json:"department"`
	AllowedYears []int64 `json:"allowedYears" validate:"omitempty,dive,min=1,max=4"`
	IsAvailable  *bool   `json:"isAvailable"`
}
