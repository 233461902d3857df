package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler-api/internal/dto"
	"github.com/noah-isme/class-scheduler-api/internal/models"
	"github.com/noah-isme/class-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/class-scheduler-api/pkg/errors"
	"github.com/noah-isme/class-scheduler-api/pkg/lock"
)

type scopeCourseReader interface {
	ListByScope(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
}

type roomLister interface {
	List(ctx context.Context) ([]models.Room, error)
}

type teacherLister interface {
	List(ctx context.Context) ([]models.Teacher, error)
}

type scheduleStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
	ReplaceEntries(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	Latest(ctx context.Context, scope models.Scope) (*models.Schedule, error)
	ListByScope(ctx context.Context, scope models.Scope) ([]models.Schedule, error)
	ListByInstructor(ctx context.Context, teacherID string) ([]models.Schedule, error)
	Delete(ctx context.Context, id string) error
}

type notificationSink interface {
	Notify(ctx context.Context, kind models.NotificationType, message string, data interface{}) error
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Invalidate(ctx context.Context, pattern string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TimetableConfig tunes the engine behind TimetableService.
type TimetableConfig struct {
	Grid           scheduler.Grid
	Budget         scheduler.Budget
	Refine         scheduler.RefineOptions
	LatestCacheTTL time.Duration
}

// TimetableService generates, checks, repairs and edits cohort schedules.
// Every mutation of a stored schedule holds that schedule's lock.
type TimetableService struct {
	courses   scopeCourseReader
	rooms     roomLister
	teachers  teacherLister
	schedules scheduleStore
	notifier  notificationSink
	cache     scheduleCache
	metrics   *MetricsService
	tx        txProvider
	locks     *lock.Keyed
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableConfig
	seed      func() int64
}

// NewTimetableService wires the timetable dependencies. cache, metrics and
// notifier may be nil.
func NewTimetableService(
	courses scopeCourseReader,
	rooms roomLister,
	teachers teacherLister,
	schedules scheduleStore,
	notifier notificationSink,
	cache scheduleCache,
	metrics *MetricsService,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Grid.Days) == 0 || len(cfg.Grid.Slots) == 0 {
		cfg.Grid = scheduler.DefaultGrid()
	}
	if cfg.Budget.MaxSteps <= 0 && cfg.Budget.Timeout <= 0 {
		cfg.Budget = scheduler.DefaultBudget
	}
	if cfg.LatestCacheTTL <= 0 {
		cfg.LatestCacheTTL = 5 * time.Minute
	}
	return &TimetableService{
		courses:   courses,
		rooms:     rooms,
		teachers:  teachers,
		schedules: schedules,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		tx:        tx,
		locks:     lock.NewKeyed(),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		seed:      func() int64 { return time.Now().UnixNano() },
	}
}

// Generate builds a new schedule for the requested scope and stores it. Older
// schedules of the scope are kept.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}
	scope := req.Scope()
	in, err := s.loadInput(ctx, scope)
	if err != nil {
		return nil, err
	}

	seed := s.seed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	start := time.Now()
	built, err := scheduler.NewConstructor(s.cfg.Grid, rng).Construct(in)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	s.metrics.RecordConstruction(built.UnplacedSessions(), time.Since(start))
	if len(built.Unplaced) > 0 || built.UnfilledCells > 0 {
		s.logger.Warn("course supply short for scope",
			zap.Int("year", scope.Year),
			zap.String("branch", scope.Branch),
			zap.String("division", scope.Division),
			zap.Int("unplaced_sessions", built.UnplacedSessions()),
			zap.Int("unfilled_cells", built.UnfilledCells),
		)
	}
	if built.Backfilled > 0 {
		s.logger.Debug("backfilled empty cells", zap.Int("cells", built.Backfilled))
	}

	entries := built.Entries
	refined := false
	opts := s.cfg.Refine
	if req.Generations > 0 {
		opts.Generations = req.Generations
	}
	if opts.Generations > 0 {
		start = time.Now()
		out, refineErr := scheduler.NewRefiner(s.cfg.Grid, rng).Refine(in, entries, opts)
		if refineErr != nil {
			return nil, appErrors.Wrap(refineErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refine schedule")
		}
		s.metrics.ObserveRefine(time.Since(start))
		entries, refined = out.Entries, out.Improved
	}

	catalog := scheduler.NewCatalog(in.Courses, in.Rooms, in.Teachers)
	conflicts := scheduler.DetectConflicts(entries, catalog)
	s.metrics.ObserveConflicts(len(conflicts))

	repaired := false
	if req.AutoRepair && len(conflicts) > 0 {
		result, repairErr := s.solve(ctx, catalog, entries)
		if repairErr != nil {
			s.logger.Warn("automatic repair failed", zap.Int("conflicts", len(conflicts)), zap.Error(repairErr))
		} else {
			entries, conflicts, repaired = result.Entries, []models.Conflict{}, true
		}
	}

	score := scheduler.Evaluate(s.cfg.Grid, entries, catalog)
	schedule := &models.Schedule{
		Year:     scope.Year,
		Branch:   scope.Branch,
		Division: scope.Division,
		Score:    score.Total,
		Entries:  entries,
	}
	if err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.schedules.Create(ctx, tx, schedule)
	}); err != nil {
		return nil, err
	}
	s.cacheLatest(ctx, schedule)

	unplaced := built.Unplaced
	if unplaced == nil {
		unplaced = []scheduler.Unplaced{}
	}
	return &dto.GenerateScheduleResponse{
		Schedule:      schedule,
		Seed:          seed,
		Score:         score,
		Unplaced:      unplaced,
		Backfilled:    built.Backfilled,
		UnfilledCells: built.UnfilledCells,
		Conflicts:     conflicts,
		Refined:       refined,
		Repaired:      repaired,
	}, nil
}

// Get returns a stored schedule.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return nil, scheduleLookupError(err)
	}
	return schedule, nil
}

// Latest returns the newest schedule of a scope, served from cache when possible.
func (s *TimetableService) Latest(ctx context.Context, query dto.ScopeQuery) (*models.Schedule, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scope")
	}
	scope := query.Scope()
	key := latestCacheKey(scope)
	if s.cache != nil {
		var cached models.Schedule
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}
	schedule, err := s.schedules.Latest(ctx, scope)
	if err != nil {
		return nil, scheduleLookupError(err)
	}
	s.cacheLatest(ctx, schedule)
	return schedule, nil
}

// List returns every stored schedule of a scope, newest first.
func (s *TimetableService) List(ctx context.Context, query dto.ScopeQuery) ([]models.Schedule, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scope")
	}
	schedules, err := s.schedules.ListByScope(ctx, query.Scope())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return schedules, nil
}

// ListByTeacher returns the schedules that contain any course of the teacher.
func (s *TimetableService) ListByTeacher(ctx context.Context, teacherID string) ([]models.Schedule, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	schedules, err := s.schedules.ListByInstructor(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher schedules")
	}
	return schedules, nil
}

// Delete removes a stored schedule.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return scheduleLookupError(err)
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		return scheduleLookupError(err)
	}
	s.dropLatest(ctx, schedule.Scope())
	return nil
}

// DetectConflicts lists the room and instructor clashes of a stored schedule.
func (s *TimetableService) DetectConflicts(ctx context.Context, id string) ([]models.Conflict, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalogFor(ctx, schedule.Scope())
	if err != nil {
		return nil, err
	}
	conflicts := scheduler.DetectConflicts(schedule.Entries, catalog)
	s.metrics.ObserveConflicts(len(conflicts))
	return conflicts, nil
}

// Repair re-assigns the entries of a stored schedule until no room or
// instructor is double-booked. An unsuccessful search leaves the schedule
// untouched, records a CONFLICT_RESOLUTION_FAILED notification and is
// reported in the response rather than as an error.
func (s *TimetableService) Repair(ctx context.Context, id string) (*dto.RepairResponse, error) {
	return s.repair(ctx, id, repairFailureNotice{kind: models.NotificationConflictResolutionFailed})
}

// RepairForTeacher repairs a schedule after the teacher's availability
// changed; failures are recorded as SCHEDULE_UPDATE_FAILED.
func (s *TimetableService) RepairForTeacher(ctx context.Context, id, teacherID string) (*dto.RepairResponse, error) {
	return s.repair(ctx, id, repairFailureNotice{kind: models.NotificationScheduleUpdateFailed, teacherID: teacherID})
}

type repairFailureNotice struct {
	kind      models.NotificationType
	teacherID string
}

func (s *TimetableService) repair(ctx context.Context, id string, notice repairFailureNotice) (*dto.RepairResponse, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return nil, scheduleLookupError(err)
	}
	catalog, err := s.catalogFor(ctx, schedule.Scope())
	if err != nil {
		return nil, err
	}

	conflicts := scheduler.DetectConflicts(schedule.Entries, catalog)
	s.metrics.ObserveConflicts(len(conflicts))
	if len(conflicts) == 0 {
		return &dto.RepairResponse{
			Success:   true,
			Schedule:  schedule,
			State:     scheduler.Complete.String(),
			Conflicts: conflicts,
		}, nil
	}

	result, err := s.solve(ctx, catalog, schedule.Entries)
	if err != nil {
		reason := err.Error()
		s.logger.Warn("schedule repair failed",
			zap.String("schedule_id", schedule.ID),
			zap.Int("conflicts", len(conflicts)),
			zap.Int("steps", result.Steps),
			zap.Error(err),
		)
		s.notifyRepairFailure(ctx, schedule, notice, reason, len(conflicts))
		return &dto.RepairResponse{
			Success:   false,
			Schedule:  schedule,
			Reason:    reason,
			State:     result.State.String(),
			Steps:     result.Steps,
			Conflicts: conflicts,
		}, nil
	}

	updated := *schedule
	updated.Entries = result.Entries
	updated.Score = scheduler.Score(s.cfg.Grid, result.Entries, catalog)
	if err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.schedules.ReplaceEntries(ctx, tx, &updated)
	}); err != nil {
		return nil, err
	}
	s.dropLatest(ctx, updated.Scope())
	s.logger.Info("schedule repaired",
		zap.String("schedule_id", updated.ID),
		zap.Int("moved", result.Moved),
		zap.Int("steps", result.Steps),
	)

	return &dto.RepairResponse{
		Success:   true,
		Schedule:  &updated,
		State:     result.State.String(),
		Steps:     result.Steps,
		Moved:     result.Moved,
		Conflicts: []models.Conflict{},
	}, nil
}

// ApplyManualChanges applies administrator edits all-or-nothing: if any
// touched entry ends up in a conflict the stored schedule is left as it was
// and the offending conflicts are returned.
func (s *TimetableService) ApplyManualChanges(ctx context.Context, id string, req dto.ManualChangesRequest) (*dto.ManualChangesResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid manual changes payload")
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return nil, scheduleLookupError(err)
	}
	catalog, err := s.catalogFor(ctx, schedule.Scope())
	if err != nil {
		return nil, err
	}

	changes := make([]scheduler.Change, len(req.Changes))
	for i, change := range req.Changes {
		changes[i] = scheduler.Change{Day: change.Day, TimeSlot: change.TimeSlot, CourseID: change.CourseID, RoomID: change.RoomID}
	}
	if err := scheduler.ValidateChanges(s.cfg.Grid, catalog, changes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	next, touched := scheduler.ApplyChanges(s.cfg.Grid, catalog, schedule.Entries, changes)
	if clashes := scheduler.ConflictsTouching(scheduler.DetectConflicts(next, catalog), touched); len(clashes) > 0 {
		return &dto.ManualChangesResponse{
			Success:   false,
			Conflicts: clashes,
			Message:   fmt.Sprintf("%d change(s) rejected: %s", len(changes), clashes[0].Message),
		}, nil
	}

	updated := *schedule
	updated.Entries = next
	updated.Score = scheduler.Score(s.cfg.Grid, next, catalog)
	if err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.schedules.ReplaceEntries(ctx, tx, &updated)
	}); err != nil {
		return nil, err
	}
	s.dropLatest(ctx, updated.Scope())
	return &dto.ManualChangesResponse{Success: true, Schedule: &updated}, nil
}

func (s *TimetableService) solve(ctx context.Context, catalog *scheduler.Catalog, entries []models.ScheduleEntry) (scheduler.RepairResult, error) {
	start := time.Now()
	result, err := scheduler.NewSolver(s.cfg.Grid, catalog, s.cfg.Budget).Repair(ctx, entries)
	s.metrics.RecordRepair(repairOutcome(err), result.Steps, time.Since(start))
	return result, err
}

func repairOutcome(err error) string {
	switch {
	case err == nil:
		return RepairOutcomeRepaired
	case errors.Is(err, scheduler.ErrSearchExhausted):
		return RepairOutcomeExhausted
	case errors.Is(err, scheduler.ErrBudgetExceeded):
		return RepairOutcomeBudget
	default:
		return RepairOutcomeError
	}
}

func (s *TimetableService) notifyRepairFailure(ctx context.Context, schedule *models.Schedule, notice repairFailureNotice, reason string, conflicts int) {
	if s.notifier == nil {
		return
	}
	message := fmt.Sprintf("Conflict resolution failed for year %d %s division %s. Manual adjustment required.",
		schedule.Year, schedule.Branch, schedule.Division)
	if notice.teacherID != "" {
		message = fmt.Sprintf("Failed to update schedule for teacher %s. Manual adjustment required.", notice.teacherID)
	}
	payload := models.RepairFailure{
		ScheduleID: schedule.ID,
		TeacherID:  notice.teacherID,
		Year:       schedule.Year,
		Branch:     schedule.Branch,
		Division:   schedule.Division,
		Reason:     reason,
		Conflicts:  conflicts,
	}
	if err := s.notifier.Notify(ctx, notice.kind, message, payload); err != nil {
		s.logger.Error("failed to record repair failure", zap.String("schedule_id", schedule.ID), zap.Error(err))
	}
}

func (s *TimetableService) loadInput(ctx context.Context, scope models.Scope) (scheduler.Input, error) {
	if err := scope.Validate(); err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	courses, err := s.courses.ListByScope(ctx, models.CourseFilter{Year: scope.Year, Branch: scope.Branch, Division: scope.Division})
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	return scheduler.Input{Scope: scope, Courses: courses, Rooms: rooms, Teachers: teachers}, nil
}

func (s *TimetableService) catalogFor(ctx context.Context, scope models.Scope) (*scheduler.Catalog, error) {
	in, err := s.loadInput(ctx, scope)
	if err != nil {
		return nil, err
	}
	return scheduler.NewCatalog(in.Courses, in.Rooms, in.Teachers), nil
}

func (s *TimetableService) lock(ctx context.Context, id string) (func(), error) {
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "schedule is being modified")
	}
	return unlock, nil
}

func (s *TimetableService) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule")
		return err
	}
	return nil
}

func (s *TimetableService) cacheLatest(ctx context.Context, schedule *models.Schedule) {
	if s.cache == nil || schedule == nil {
		return
	}
	_ = s.cache.Set(ctx, latestCacheKey(schedule.Scope()), schedule, s.cfg.LatestCacheTTL)
}

func (s *TimetableService) dropLatest(ctx context.Context, scope models.Scope) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, latestCacheKey(scope))
}

const latestCachePrefix = "schedule:latest:"

func latestCacheKey(scope models.Scope) string {
	return fmt.Sprintf("%s%d:%s:%s", latestCachePrefix, scope.Year, scope.Branch, scope.Division)
}

// FlushLatest drops every cached latest-schedule snapshot. The server calls
// it after migrations since cached payloads may predate the schema.
func (s *TimetableService) FlushLatest(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, latestCachePrefix+"*")
}

func scheduleLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
}
