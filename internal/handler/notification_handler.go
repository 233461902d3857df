package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler-api/internal/dto"
	"github.com/noah-isme/class-scheduler-api/internal/models"
	"github.com/noah-isme/class-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/class-scheduler-api/pkg/errors"
	"github.com/noah-isme/class-scheduler-api/pkg/response"
)

type notificationReviewer interface {
	List(ctx context.Context, query dto.NotificationQuery) ([]models.Notification, *models.Pagination, error)
	Review(ctx context.Context, id string, action dto.NotificationAction) (*models.Notification, error)
}

// NotificationHandler lets administrators work through pending notifications.
type NotificationHandler struct {
	service notificationReviewer
	logger  *zap.Logger
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(svc *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{service: svc, logger: logger}
}

// List godoc
// @Summary List notifications
// @Description Without a status filter only pending notifications are returned.
// @Tags Notifications
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param type query string false "Notification type"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(50)
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	var query dto.NotificationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid notification filter"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Review godoc
// @Summary Approve or reject a notification
// @Description Approving an availability update or absence applies it and queues a repair of the teacher's schedules.
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Param action path string true "approve or reject"
// @Success 200 {object} response.Envelope
// @Router /notifications/{id}/{action} [post]
func (h *NotificationHandler) Review(c *gin.Context) {
	action := dto.NotificationAction(c.Param("action"))
	notification, err := h.service.Review(c.Request.Context(), c.Param("id"), action)
	if err != nil {
		response.Error(c, err)
		return
	}
	reviewer := ""
	if claims := claimsFromContext(c); claims != nil {
		reviewer = claims.UserID
	}
	h.logger.Info("notification reviewed",
		zap.String("id", notification.ID),
		zap.String("status", string(notification.Status)),
		zap.String("reviewer", reviewer),
	)
	response.JSON(c, http.StatusOK, notification, nil)
}
