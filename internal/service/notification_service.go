package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler-api/internal/dto"
	"github.com/noah-isme/class-scheduler-api/internal/models"
	"github.com/noah-isme/class-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/class-scheduler-api/pkg/errors"
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.NotificationStatus) error
}

type availabilityStore interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	UpdateAvailability(ctx context.Context, exec sqlx.ExtContext, id string, availability models.Availability) error
}

type teacherUpdateEnqueuer interface {
	EnqueueTeacherUpdate(teacherID string) (*dto.AsyncJobResponse, error)
}

// NotificationService records operator-facing events and applies approved
// teacher requests. It is also the sink for repair failures.
const defaultNotificationPageSize = 50

type NotificationService struct {
	repo       notificationStore
	teachers   availabilityStore
	dispatcher teacherUpdateEnqueuer
	tx         txProvider
	grid       scheduler.Grid
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewNotificationService constructs the service. A zero grid uses the default week.
func NewNotificationService(repo notificationStore, teachers availabilityStore, tx txProvider, grid scheduler.Grid, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(grid.Days) == 0 || len(grid.Slots) == 0 {
		grid = scheduler.DefaultGrid()
	}
	return &NotificationService{repo: repo, teachers: teachers, tx: tx, grid: grid, validator: validate, logger: logger}
}

// UseDispatcher attaches the queue that re-repairs schedules after an
// approved availability change.
func (s *NotificationService) UseDispatcher(dispatcher teacherUpdateEnqueuer) {
	s.dispatcher = dispatcher
}

// Notify stores a pending notification with data encoded as JSON.
func (s *NotificationService) Notify(ctx context.Context, kind models.NotificationType, message string, data interface{}) error {
	_, err := s.create(ctx, kind, message, data)
	return err
}

func (s *NotificationService) create(ctx context.Context, kind models.NotificationType, message string, data interface{}) (*models.Notification, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode notification data")
	}
	notification := &models.Notification{
		Type:    kind,
		Message: message,
		Data:    types.JSONText(raw),
		Status:  models.NotificationPending,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store notification")
	}
	s.logger.Info("notification recorded", zap.String("id", notification.ID), zap.String("type", string(kind)))
	return notification, nil
}

// SubmitAvailability records a teacher's availability update for review.
func (s *NotificationService) SubmitAvailability(ctx context.Context, teacherID string, req dto.AvailabilityUpdateRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	for day, slots := range req.Availability {
		if err := s.checkCell(day, lo.Keys(slots)); err != nil {
			return nil, err
		}
	}
	teacher, err := s.teacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, models.NotificationAvailabilityUpdate,
		fmt.Sprintf("Teacher %s has requested an availability update.", teacher.Name),
		models.AvailabilityChange{TeacherID: teacher.ID, Availability: req.Availability, Reason: req.Reason},
	)
}

// ReportAbsence records an absence for review. Without slots the whole day is blocked.
func (s *NotificationService) ReportAbsence(ctx context.Context, teacherID string, req dto.AbsenceRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}
	slots := req.Slots
	if len(slots) == 0 {
		slots = s.grid.Slots
	}
	if err := s.checkCell(req.Day, slots); err != nil {
		return nil, err
	}
	teacher, err := s.teacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	blocked := make(map[string]bool, len(slots))
	for _, slot := range slots {
		blocked[slot] = false
	}
	return s.create(ctx, models.NotificationTeacherAbsence,
		fmt.Sprintf("Teacher %s reported an absence on %s.", teacher.Name, req.Day),
		models.AvailabilityChange{TeacherID: teacher.ID, Availability: models.Availability{req.Day: blocked}, Reason: req.Reason},
	)
}

// RequestChange records a teacher's request to adjust a schedule.
func (s *NotificationService) RequestChange(ctx context.Context, teacherID string, req dto.ChangeRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change request payload")
	}
	teacher, err := s.teacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, models.NotificationScheduleChangeRequest,
		fmt.Sprintf("Teacher %s has requested a schedule change.", teacher.Name),
		models.ScheduleChangeRequest{TeacherID: teacher.ID, ScheduleID: req.ScheduleID, Details: req.Details},
	)
}

// List returns notifications newest first; without a status filter only
// pending ones are returned.
func (s *NotificationService) List(ctx context.Context, query dto.NotificationQuery) ([]models.Notification, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification filter")
	}
	filter := models.NotificationFilter{
		Status: models.NotificationStatus(query.Status),
		Type:   models.NotificationType(query.Type),
	}
	if filter.Status == "" {
		filter.Status = models.NotificationPending
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}

	page, size := query.Page, query.PageSize
	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = defaultNotificationPageSize
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: len(items)}
	return lo.Subset(items, (page-1)*size, uint(size)), pagination, nil
}

// Review approves or rejects a pending notification. Approving an
// availability update or absence merges it into the teacher's availability
// and queues a repair of the teacher's schedules.
func (s *NotificationService) Review(ctx context.Context, id string, action dto.NotificationAction) (*models.Notification, error) {
	var status models.NotificationStatus
	switch action {
	case dto.NotificationApprove:
		status = models.NotificationApproved
	case dto.NotificationReject:
		status = models.NotificationRejected
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown action %q", action))
	}

	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	if notification.Status != models.NotificationPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "notification already reviewed")
	}

	var change *models.AvailabilityChange
	if status == models.NotificationApproved && changesAvailability(notification.Type) {
		change = &models.AvailabilityChange{}
		if err := notification.Data.Unmarshal(change); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode notification data")
		}
	}

	if err := s.apply(ctx, notification.ID, status, change); err != nil {
		return nil, err
	}
	notification.Status = status

	if change != nil && s.dispatcher != nil {
		if _, err := s.dispatcher.EnqueueTeacherUpdate(change.TeacherID); err != nil {
			s.logger.Error("failed to queue teacher schedule update", zap.String("teacher_id", change.TeacherID), zap.Error(err))
		}
	}
	return notification, nil
}

func (s *NotificationService) apply(ctx context.Context, id string, status models.NotificationStatus, change *models.AvailabilityChange) (err error) {
	if change == nil {
		if err := s.repo.UpdateStatus(ctx, nil, id, status); err != nil {
			return reviewError(err)
		}
		return nil
	}

	teacher, err := s.teacher(ctx, change.TeacherID)
	if err != nil {
		return err
	}
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

	if err = s.teachers.UpdateAvailability(ctx, tx, teacher.ID, teacher.Availability.Merge(change.Availability)); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher availability")
		return err
	}
	if err = s.repo.UpdateStatus(ctx, tx, id, status); err != nil {
		err = reviewError(err)
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit review")
		return err
	}
	return nil
}

func (s *NotificationService) teacher(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

func (s *NotificationService) checkCell(day string, slots []string) error {
	if !s.grid.HasDay(day) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", day))
	}
	for _, slot := range slots {
		if !s.grid.HasSlot(slot) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown time slot %q", slot))
		}
	}
	return nil
}

func changesAvailability(kind models.NotificationType) bool {
	return kind == models.NotificationAvailabilityUpdate || kind == models.NotificationTeacherAbsence
}

func reviewError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrConflict, "notification already reviewed")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
}
