package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler-api/internal/dto"
	"github.com/noah-isme/class-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/class-scheduler-api/pkg/errors"
	"github.com/noah-isme/class-scheduler-api/pkg/jobs"
)

// Repair queue identifiers.
const (
	RepairQueueName  = "schedule-repairs"
	JobRepair        = "repair"
	JobTeacherUpdate = "teacher-update"
)

// errRepairUnsuccessful marks jobs whose search failed; the failure has
// already been recorded as a notification by the repair itself.
var errRepairUnsuccessful = errors.New("repair unsuccessful")

type scheduleRepairer interface {
	Repair(ctx context.Context, id string) (*dto.RepairResponse, error)
	RepairForTeacher(ctx context.Context, id, teacherID string) (*dto.RepairResponse, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Schedule, error)
}

type repairJob struct {
	ScheduleID string
}

type teacherUpdateJob struct {
	TeacherID string
}

// DispatcherConfig tunes the repair queue. MaxRetries of zero disables retries.
type DispatcherConfig struct {
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// RepairDispatcher runs repairs in the background on a single worker so that
// queued repairs of the same schedule never interleave.
type RepairDispatcher struct {
	queue    *jobs.Queue
	repairer scheduleRepairer
	notifier notificationSink
	logger   *zap.Logger
}

// NewRepairDispatcher builds the dispatcher; call Start before enqueuing.
func NewRepairDispatcher(repairer scheduleRepairer, notifier notificationSink, cfg DispatcherConfig, logger *zap.Logger) *RepairDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = -1
	}
	d := &RepairDispatcher{repairer: repairer, notifier: notifier, logger: logger}
	d.queue = jobs.NewQueue(RepairQueueName, d.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: cfg.BufferSize,
		MaxRetries: retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnDead:     d.onDead,
	})
	return d
}

// Start launches the worker.
func (d *RepairDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop waits for the running job and pending retries.
func (d *RepairDispatcher) Stop() {
	d.queue.Stop()
}

// EnqueueRepair queues a repair of one schedule.
func (d *RepairDispatcher) EnqueueRepair(scheduleID string) (*dto.AsyncJobResponse, error) {
	if scheduleID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	return d.enqueue(JobRepair, repairJob{ScheduleID: scheduleID})
}

// EnqueueTeacherUpdate queues a repair of every schedule teaching the teacher's courses.
func (d *RepairDispatcher) EnqueueTeacherUpdate(teacherID string) (*dto.AsyncJobResponse, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	return d.enqueue(JobTeacherUpdate, teacherUpdateJob{TeacherID: teacherID})
}

func (d *RepairDispatcher) enqueue(kind string, payload interface{}) (*dto.AsyncJobResponse, error) {
	job := jobs.Job{ID: uuid.NewString(), Type: kind, Payload: payload}
	if err := d.queue.Enqueue(job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrQueueUnavailable.Code, appErrors.ErrQueueUnavailable.Status, "repair queue unavailable")
	}
	return &dto.AsyncJobResponse{JobID: job.ID, Queue: d.queue.Name(), Type: kind}, nil
}

func (d *RepairDispatcher) handle(ctx context.Context, job jobs.Job) error {
	switch payload := job.Payload.(type) {
	case repairJob:
		resp, err := d.repairer.Repair(ctx, payload.ScheduleID)
		return repairJobError(resp, err)
	case teacherUpdateJob:
		return d.updateTeacher(ctx, payload.TeacherID)
	default:
		return jobs.Permanent(fmt.Errorf("unknown job payload %T for %s", job.Payload, job.Type))
	}
}

func (d *RepairDispatcher) updateTeacher(ctx context.Context, teacherID string) error {
	schedules, err := d.repairer.ListByTeacher(ctx, teacherID)
	if err != nil {
		return err
	}
	var errs []error
	for _, schedule := range schedules {
		resp, err := d.repairer.RepairForTeacher(ctx, schedule.ID, teacherID)
		if err := repairJobError(resp, err); err != nil && !errors.Is(err, errRepairUnsuccessful) {
			errs = append(errs, fmt.Errorf("schedule %s: %w", schedule.ID, err))
		}
	}
	d.logger.Info("teacher schedules updated",
		zap.String("teacher_id", teacherID),
		zap.Int("schedules", len(schedules)),
		zap.Int("errors", len(errs)),
	)
	return errors.Join(errs...)
}

func repairJobError(resp *dto.RepairResponse, err error) error {
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Status == http.StatusNotFound {
			return jobs.Permanent(err)
		}
		return err
	}
	if resp != nil && !resp.Success {
		return jobs.Permanent(fmt.Errorf("%w: %s", errRepairUnsuccessful, resp.Reason))
	}
	return nil
}

func (d *RepairDispatcher) onDead(ctx context.Context, job jobs.Job, err error) {
	if errors.Is(err, errRepairUnsuccessful) || d.notifier == nil {
		return
	}
	payload := models.ScheduleUpdateError{JobID: job.ID, Error: err.Error()}
	message := fmt.Sprintf("Error updating schedule: %v", err)
	switch p := job.Payload.(type) {
	case repairJob:
		payload.ScheduleID = p.ScheduleID
		message = fmt.Sprintf("Error repairing schedule %s: %v", p.ScheduleID, err)
	case teacherUpdateJob:
		payload.TeacherID = p.TeacherID
		message = fmt.Sprintf("Error updating schedule for teacher %s: %v", p.TeacherID, err)
	}
	// The queue context is already cancelled during shutdown.
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	if notifyErr := d.notifier.Notify(ctx, models.NotificationScheduleUpdateError, message, payload); notifyErr != nil {
		d.logger.Error("failed to record job failure", zap.String("job_id", job.ID), zap.Error(notifyErr))
	}
}
