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

type teacherRequests interface {
	SubmitAvailability(ctx context.Context, teacherID string, req dto.AvailabilityUpdateRequest) (*models.Notification, error)
	ReportAbsence(ctx context.Context, teacherID string, req dto.AbsenceRequest) (*models.Notification, error)
	RequestChange(ctx context.Context, teacherID string, req dto.ChangeRequest) (*models.Notification, error)
}

type teacherSchedules interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Schedule, error)
}

type teacherCourses interface {
	ListTeacherCourses(ctx context.Context, teacherID string) ([]models.Course, error)
}

type teacherDirectory interface {
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	GetTeacher(ctx context.Context, id string) (*models.Teacher, error)
}

// TeacherHandler serves the teacher self-service routes. Requests become
// pending notifications and take effect only once an administrator approves them.
type TeacherHandler struct {
	requests  teacherRequests
	schedules teacherSchedules
	courses   teacherCourses
	directory teacherDirectory
}

// NewTeacherHandler constructs a new TeacherHandler.
func NewTeacherHandler(notifications *service.NotificationService, timetables *service.TimetableService, courses *service.CourseService) *TeacherHandler {
	return &TeacherHandler{requests: notifications, schedules: timetables, courses: courses, directory: courses}
}

// List godoc
// @Summary List teachers
// @Tags Teachers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	teachers, err := h.directory.ListTeachers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}

// Get godoc
// @Summary Get a teacher and their availability
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	teacher, err := h.directory.GetTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// SubmitAvailability godoc
// @Summary Propose a teacher availability update
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dto.AvailabilityUpdateRequest true "Availability map"
// @Success 202 {object} response.Envelope
// @Router /teachers/{id}/availability [post]
func (h *TeacherHandler) SubmitAvailability(c *gin.Context) {
	var req dto.AvailabilityUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	notification, err := h.requests.SubmitAvailability(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, notification)
}

// ReportAbsence godoc
// @Summary Report a teacher absence
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dto.AbsenceRequest true "Absence"
// @Success 202 {object} response.Envelope
// @Router /teachers/{id}/absence [post]
func (h *TeacherHandler) ReportAbsence(c *gin.Context) {
	var req dto.AbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid absence payload"))
		return
	}
	notification, err := h.requests.ReportAbsence(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, notification)
}

// RequestChange godoc
// @Summary Ask administrators to change a schedule
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dto.ChangeRequest true "Change request"
// @Success 202 {object} response.Envelope
// @Router /teachers/{id}/change-requests [post]
func (h *TeacherHandler) RequestChange(c *gin.Context) {
	var req dto.ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid change request payload"))
		return
	}
	notification, err := h.requests.RequestChange(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, notification)
}

// Schedules godoc
// @Summary List schedules that include the teacher's courses
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/schedules [get]
func (h *TeacherHandler) Schedules(c *gin.Context) {
	schedules, err := h.schedules.ListByTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Courses godoc
// @Summary List the teacher's courses
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/courses [get]
func (h *TeacherHandler) Courses(c *gin.Context) {
	courses, err := h.courses.ListTeacherCourses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}
