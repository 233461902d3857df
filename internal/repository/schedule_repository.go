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

const (
	scheduleColumns = `id, year, branch, division, score, created_at, updated_at`
	entryColumns    = `id, schedule_id, position, course_id, day, start_time, room_id, is_lab_first, is_lab_second`
)

// ScheduleRepository persists timetables and their ordered entries.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts the schedule header and its entries.
func (r *ScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	if schedule == nil {
		return fmt.Errorf("schedule payload is nil")
	}
	if err := schedule.Scope().Validate(); err != nil {
		return err
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	target := r.exec(exec)
	query := `INSERT INTO schedules (` + scheduleColumns + `)
VALUES (:id, :year, :branch, :division, :score, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, schedule); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return r.insertEntries(ctx, target, schedule.ID, schedule.Entries)
}

// ReplaceEntries swaps the stored entries of a schedule and updates its score.
func (r *ScheduleRepository) ReplaceEntries(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	target := r.exec(exec)
	schedule.UpdatedAt = time.Now().UTC()

	const update = `UPDATE schedules SET score = $1, updated_at = $2 WHERE id = $3`
	result, err := target.ExecContext(ctx, update, schedule.Score, schedule.UpdatedAt, schedule.ID)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if _, err := target.ExecContext(ctx, `DELETE FROM schedule_entries WHERE schedule_id = $1`, schedule.ID); err != nil {
		return fmt.Errorf("clear schedule entries: %w", err)
	}
	return r.insertEntries(ctx, target, schedule.ID, schedule.Entries)
}

func (r *ScheduleRepository) insertEntries(ctx context.Context, target sqlx.ExtContext, scheduleID string, entries []models.ScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.ScheduleID = scheduleID
		entry.Position = i
	}
	query := `INSERT INTO schedule_entries (` + entryColumns + `)
VALUES (:id, :schedule_id, :position, :course_id, :day, :start_time, :room_id, :is_lab_first, :is_lab_second)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, entries); err != nil {
		return fmt.Errorf("insert schedule entries: %w", err)
	}
	return nil
}

// FindByID loads a schedule with its entries in stored order.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	if err := r.loadEntries(ctx, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Latest loads the most recently created schedule of a scope.
func (r *ScheduleRepository) Latest(ctx context.Context, scope models.Scope) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE year = $1 AND branch = $2 AND division = $3 ORDER BY created_at DESC LIMIT 1`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, scope.Year, scope.Branch, scope.Division); err != nil {
		return nil, err
	}
	if err := r.loadEntries(ctx, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *ScheduleRepository) loadEntries(ctx context.Context, schedule *models.Schedule) error {
	query := `SELECT ` + entryColumns + ` FROM schedule_entries WHERE schedule_id = $1 ORDER BY position ASC`
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, schedule.ID); err != nil {
		return fmt.Errorf("list schedule entries: %w", err)
	}
	if entries == nil {
		entries = []models.ScheduleEntry{}
	}
	schedule.Entries = entries
	return nil
}

// ListByScope returns schedule headers of a scope, newest first. Entries are
// not loaded.
func (r *ScheduleRepository) ListByScope(ctx context.Context, scope models.Scope) ([]models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE year = $1 AND branch = $2 AND division = $3 ORDER BY created_at DESC`
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, scope.Year, scope.Branch, scope.Division); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// ListByInstructor returns headers of every schedule holding at least one
// entry taught by the teacher.
func (r *ScheduleRepository) ListByInstructor(ctx context.Context, teacherID string) ([]models.Schedule, error) {
	const query = `SELECT DISTINCT s.id, s.year, s.branch, s.division, s.score, s.created_at, s.updated_at
FROM schedules s
JOIN schedule_entries e ON e.schedule_id = s.id
JOIN courses c ON c.id = e.course_id
WHERE c.instructor_id = $1
ORDER BY s.year ASC, s.branch ASC, s.division ASC, s.created_at DESC`
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, teacherID); err != nil {
		return nil, fmt.Errorf("list schedules by instructor: %w", err)
	}
	return schedules, nil
}

// Delete removes a schedule; entries cascade.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
