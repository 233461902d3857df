package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler-api/internal/dto"
	"github.com/noah-isme/class-scheduler-api/internal/models"
	"github.com/noah-isme/class-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/class-scheduler-api/pkg/errors"
)

// maxCoursesPerDivision caps how many courses one teacher may hold in a division.
const maxCoursesPerDivision = 2

type courseStore interface {
	ListByScope(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	ListByInstructor(ctx context.Context, teacherID string) ([]models.Course, error)
	ExistsByTuple(ctx context.Context, course models.Course) (bool, error)
	CountByInstructorDivision(ctx context.Context, teacherID, division string) (int, error)
	Create(ctx context.Context, course *models.Course) error
}

type roomStore interface {
	List(ctx context.Context) ([]models.Room, error)
	Create(ctx context.Context, room *models.Room) error
}

type teacherFinder interface {
	List(ctx context.Context) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// CourseService registers courses and rooms, enforcing the admission rules
// the constructor relies on.
type CourseService struct {
	courses   courseStore
	rooms     roomStore
	teachers  teacherFinder
	grid      scheduler.Grid
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the service. A zero grid uses the default week.
func NewCourseService(courses courseStore, rooms roomStore, teachers teacherFinder, grid scheduler.Grid, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(grid.Days) == 0 || len(grid.Slots) == 0 {
		grid = scheduler.DefaultGrid()
	}
	return &CourseService{courses: courses, rooms: rooms, teachers: teachers, grid: grid, validator: validate, logger: logger}
}

// CreateCourse registers a theory or lab component. The instructor must
// belong to the branch and teach the year, may hold at most two courses per
// division, and the (code, lecture type, division, year, branch) tuple must
// be unique. Labs last 120 minutes and default to the lab window.
func (s *CourseService) CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := models.Course{
		Code:               strings.TrimSpace(req.Code),
		Name:               strings.TrimSpace(req.Name),
		LectureType:        models.LectureType(req.LectureType),
		InstructorID:       req.InstructorID,
		Duration:           req.Duration,
		Capacity:           req.Capacity,
		Year:               req.Year,
		Branch:             req.Branch,
		Division:           req.Division,
		PreferredTimeSlots: pq.StringArray(req.PreferredTimeSlots),
	}
	if err := s.normaliseSlots(&course); err != nil {
		return nil, err
	}

	teacher, err := s.teachers.FindByID(ctx, course.InstructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.CanTeachYear(course.Year) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s is not eligible to teach year %d", teacher.Name, course.Year))
	}
	if teacher.Department != course.Branch {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s belongs to %s, not %s", teacher.Name, teacher.Department, course.Branch))
	}

	held, err := s.courses.CountByInstructorDivision(ctx, teacher.ID, course.Division)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count teacher courses")
	}
	if held >= maxCoursesPerDivision {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("teacher already holds %d courses in division %s", held, course.Division))
	}

	exists, err := s.courses.ExistsByTuple(ctx, course)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s %s already exists for year %d %s division %s",
			course.Code, course.LectureType, course.Year, course.Branch, course.Division))
	}

	if err := s.courses.Create(ctx, &course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("id", course.ID), zap.String("code", course.Code), zap.String("lecture_type", string(course.LectureType)))
	return &course, nil
}

func (s *CourseService) normaliseSlots(course *models.Course) error {
	if course.IsLab() {
		if course.Duration != models.LabDurationMinutes {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("lab duration must be %d minutes", models.LabDurationMinutes))
		}
		if len(course.PreferredTimeSlots) == 0 {
			course.PreferredTimeSlots = pq.StringArray(slices.Clone(s.grid.LabSlots))
			return nil
		}
	}
	for _, slot := range course.PreferredTimeSlots {
		if !s.grid.HasSlot(slot) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown time slot %q", slot))
		}
		if course.IsLab() && !s.grid.IsLabSlot(slot) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("lab slot %q is outside the lab window", slot))
		}
	}
	return nil
}

// ListCourses returns the courses of one cohort.
func (s *CourseService) ListCourses(ctx context.Context, query dto.ScopeQuery) ([]models.Course, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scope")
	}
	courses, err := s.courses.ListByScope(ctx, models.CourseFilter{Year: query.Year, Branch: query.Branch, Division: query.Division})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// ListTeacherCourses returns every course taught by a teacher.
func (s *CourseService) ListTeacherCourses(ctx context.Context, teacherID string) ([]models.Course, error) {
	courses, err := s.courses.ListByInstructor(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher courses")
	}
	return courses, nil
}

// ListTeachers returns the teacher directory.
func (s *CourseService) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// GetTeacher returns one teacher with their availability map.
func (s *CourseService) GetTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// CreateRoom registers a room. Rooms are available unless stated otherwise.
func (s *CourseService) CreateRoom(ctx context.Context, req dto.CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	room := models.Room{
		Name:         strings.TrimSpace(req.Name),
		Capacity:     req.Capacity,
		Type:         models.RoomType(req.Type),
		Department:   req.Department,
		AllowedYears: pq.Int64Array(req.AllowedYears),
		IsAvailable:  true,
	}
	if req.IsAvailable != nil {
		room.IsAvailable = *req.IsAvailable
	}
	if err := s.rooms.Create(ctx, &room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	return &room, nil
}

// ListRooms returns every room.
func (s *CourseService) ListRooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}
