package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-scheduler-api/internal/dto"
	"github.com/noah-isme/class-scheduler-api/internal/models"
	"github.com/noah-isme/class-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/class-scheduler-api/pkg/errors"
	"github.com/noah-isme/class-scheduler-api/pkg/response"
)

type timetableService interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	Get(ctx context.Context, id string) (*models.Schedule, error)
	Latest(ctx context.Context, query dto.ScopeQuery) (*models.Schedule, error)
	List(ctx context.Context, query dto.ScopeQuery) ([]models.Schedule, error)
	Delete(ctx context.Context, id string) error
	DetectConflicts(ctx context.Context, id string) ([]models.Conflict, error)
	Repair(ctx context.Context, id string) (*dto.RepairResponse, error)
	ApplyManualChanges(ctx context.Context, id string, req dto.ManualChangesRequest) (*dto.ManualChangesResponse, error)
}

type repairEnqueuer interface {
	EnqueueRepair(scheduleID string) (*dto.AsyncJobResponse, error)
}

type scheduleExporter interface {
	Export(ctx context.Context, scheduleID, format string) (*service.ExportFile, error)
}

// ScheduleHandler exposes timetable generation, inspection and repair.
type ScheduleHandler struct {
	service    timetableService
	dispatcher repairEnqueuer
	exporter   scheduleExporter
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.TimetableService, dispatcher *service.RepairDispatcher, exporter *service.ExportService) *ScheduleHandler {
	return &ScheduleHandler{service: svc, dispatcher: dispatcher, exporter: exporter}
}

// Generate godoc
// @Summary Generate a timetable for a cohort
// @Description Builds a new schedule for (year, branch, division) and stores it. A seed reproduces an earlier run.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Router /schedules/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List stored schedules of a cohort
// @Tags Schedules
// @Produce json
// @Param year query int true "Year"
// @Param branch query string true "Branch"
// @Param division query string true "Division"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	query, ok := bindScope(c)
	if !ok {
		return
	}
	result, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Latest godoc
// @Summary Get the newest schedule of a cohort
// @Tags Schedules
// @Produce json
// @Param year query int true "Year"
// @Param branch query string true "Branch"
// @Param division query string true "Division"
// @Success 200 {object} response.Envelope
// @Router /schedules/latest [get]
func (h *ScheduleHandler) Latest(c *gin.Context) {
	query, ok := bindScope(c)
	if !ok {
		return
	}
	result, err := h.service.Latest(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete a schedule
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Conflicts godoc
// @Summary List room and instructor clashes of a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/conflicts [get]
func (h *ScheduleHandler) Conflicts(c *gin.Context) {
	conflicts, err := h.service.DetectConflicts(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil, map[string]interface{}{"total": len(conflicts)})
}

// Repair godoc
// @Summary Repair a schedule synchronously
// @Description An unsuccessful search leaves the schedule untouched and answers 422 with the reason.
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schedules/{id}/repair [post]
func (h *ScheduleHandler) Repair(c *gin.Context) {
	result, err := h.service.Repair(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = appErrors.ErrRepairFailed.Status
	}
	response.JSON(c, status, result, nil)
}

// RepairAsync godoc
// @Summary Queue a schedule repair
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 202 {object} response.Envelope
// @Router /schedules/{id}/repair/async [post]
func (h *ScheduleHandler) RepairAsync(c *gin.Context) {
	job, err := h.dispatcher.EnqueueRepair(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Changes godoc
// @Summary Apply manual edits to a schedule
// @Description Changes are applied all-or-nothing; a clash answers 409 with the offending conflicts.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.ManualChangesRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/changes [post]
func (h *ScheduleHandler) Changes(c *gin.Context) {
	var req dto.ManualChangesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid changes payload"))
		return
	}
	result, err := h.service.ApplyManualChanges(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	response.JSON(c, status, result, nil)
}

// Export godoc
// @Summary Download a schedule
// @Tags Schedules
// @Produce text/csv,application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,text/calendar
// @Param id path string true "Schedule ID"
// @Param format query string false "csv, pdf, xlsx or ics" default(csv)
// @Success 200 {file} file
// @Router /schedules/{id}/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	file, err := h.exporter.Export(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", string(service.ExportCSV)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func bindScope(c *gin.Context) (dto.ScopeQuery, bool) {
	var query dto.ScopeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "year, branch and division are required"))
		return query, false
	}
	return query, true
}
