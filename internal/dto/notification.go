package dto

import "github.com/noah-isme/class-scheduler-api/internal/models"

// AvailabilityUpdateRequest proposes new availability for a teacher; it is
// applied only after an administrator approves it.
type AvailabilityUpdateRequest struct {
	Availability models.Availability `json:"availability" validate:"required,min=1"`
	Reason       string              `json:"reason" validate:"max=500"`
}

// AbsenceRequest reports a teacher absent for a whole day or some slots.
type AbsenceRequest struct {
	Day    string   `json:"day" validate:"required"`
	Slots  []string `json:"slots" validate:"omitempty,dive,required"`
	Reason string   `json:"reason" validate:"max=500"`
}

// ChangeRequest asks administrators to adjust a schedule.
type ChangeRequest struct {
	ScheduleID string `json:"scheduleId" validate:"required"`
	Details    string `json:"details" validate:"required,max=2000"`
}

// NotificationQuery filters notification listings.
type NotificationQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
	Type     string `form:"type"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// NotificationAction is the review verb applied to a notification.
type NotificationAction string

const (
	NotificationApprove NotificationAction = "approve"
	NotificationReject  NotificationAction = "reject"
)
