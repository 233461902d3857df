package scheduler

import "github.com/noah-isme/class-scheduler-api/internal/models"

// Catalog indexes the read-only courses, rooms and teachers of one pass.
type Catalog struct {
	courses  map[string]*models.Course
	rooms    map[string]*models.Room
	teachers map[string]*models.Teacher
	roomList []models.Room
}

// NewCatalog indexes the provided records by id.
func NewCatalog(courses []models.Course, rooms []models.Room, teachers []models.Teacher) *Catalog {
	c := &Catalog{
		courses:  make(map[string]*models.Course, len(courses)),
		rooms:    make(map[string]*models.Room, len(rooms)),
		teachers: make(map[string]*models.Teacher, len(teachers)),
		roomList: rooms,
	}
	for i := range courses {
		c.courses[courses[i].ID] = &courses[i]
	}
	for i := range rooms {
		c.rooms[rooms[i].ID] = &rooms[i]
	}
	for i := range teachers {
		c.teachers[teachers[i].ID] = &teachers[i]
	}
	return c
}

// Course returns the course with id or nil.
func (c *Catalog) Course(id string) *models.Course {
	if c == nil {
		return nil
	}
	return c.courses[id]
}

// Room returns the room with id or nil.
func (c *Catalog) Room(id string) *models.Room {
	if c == nil {
		return nil
	}
	return c.rooms[id]
}

// Teacher returns the teacher with id or nil.
func (c *Catalog) Teacher(id string) *models.Teacher {
	if c == nil {
		return nil
	}
	return c.teachers[id]
}

// Rooms returns every room in catalog order.
func (c *Catalog) Rooms() []models.Room {
	if c == nil {
		return nil
	}
	return c.roomList
}

// Instructor resolves the instructor of a course, or "" when unknown.
func (c *Catalog) Instructor(courseID string) string {
	if course := c.Course(courseID); course != nil {
		return course.InstructorID
	}
	return ""
}

// IsLab reports whether the course behind courseID is a lab.
func (c *Catalog) IsLab(courseID string) bool {
	course := c.Course(courseID)
	return course != nil && course.IsLab()
}
