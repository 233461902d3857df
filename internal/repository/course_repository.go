package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

const courseColumns = `id, code, name, lecture_type, instructor_id, duration, capacity, year, branch, division, preferred_time_slots, created_at, updated_at`

// CourseRepository manages persistence for course components.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListByScope returns the courses of one cohort in creation order so that
// theory and lab components keep the order they were registered in.
func (r *CourseRepository) ListByScope(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE year = $1 AND branch = $2 AND division = $3 ORDER BY created_at ASC, code ASC, lecture_type DESC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, filter.Year, filter.Branch, filter.Division); err != nil {
		return nil, fmt.Errorf("list courses by scope: %w", err)
	}
	return courses, nil
}

// ListByInstructor returns every course taught by the teacher.
func (r *CourseRepository) ListByInstructor(ctx context.Context, teacherID string) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE instructor_id = $1 ORDER BY year ASC, branch ASC, division ASC, code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, teacherID); err != nil {
		return nil, fmt.Errorf("list courses by instructor: %w", err)
	}
	return courses, nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ExistsByTuple checks the (code, lecture type, division, year, branch) uniqueness rule.
func (r *CourseRepository) ExistsByTuple(ctx context.Context, course models.Course) (bool, error) {
	const query = `SELECT 1 FROM courses WHERE code = $1 AND lecture_type = $2 AND division = $3 AND year = $4 AND branch = $5 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, course.Code, course.LectureType, course.Division, course.Year, course.Branch); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course tuple: %w", err)
	}
	return true, nil
}

// CountByInstructorDivision counts the courses a teacher already holds in a division.
func (r *CourseRepository) CountByInstructorDivision(ctx context.Context, teacherID, division string) (int, error) {
	const query = `SELECT COUNT(*) FROM courses WHERE instructor_id = $1 AND division = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID, division); err != nil {
		return 0, fmt.Errorf("count instructor courses: %w", err)
	}
	return count, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	query := `INSERT INTO courses (` + courseColumns + `)
VALUES (:id, :code, :name, :lecture_type, :instructor_id, :duration, :capacity, :year, :branch, :division, :preferred_time_slots, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}
