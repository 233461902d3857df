package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// NotificationType enumerates operator-facing events.
type NotificationType string

const (
	NotificationAvailabilityUpdate       NotificationType = "AVAILABILITY_UPDATE"
	NotificationConflictResolutionFailed NotificationType = "CONFLICT_RESOLUTION_FAILED"
	NotificationScheduleUpdateFailed     NotificationType = "SCHEDULE_UPDATE_FAILED"
	NotificationScheduleUpdateError      NotificationType = "SCHEDULE_UPDATE_ERROR"
	NotificationTeacherAbsence           NotificationType = "TEACHER_ABSENCE"
	NotificationScheduleChangeRequest    NotificationType = "SCHEDULE_CHANGE_REQUEST"
)

// NotificationStatus tracks the review state of a notification.
type NotificationStatus string

const (
	NotificationPending  NotificationStatus = "PENDING"
	NotificationApproved NotificationStatus = "APPROVED"
	NotificationRejected NotificationStatus = "REJECTED"
)

// Notification is a structured event queued for human follow-up.
type Notification struct {
	ID        string             `db:"id" json:"id"`
	Type      NotificationType   `db:"type" json:"type"`
	Message   string             `db:"message" json:"message"`
	Data      types.JSONText     `db:"data" json:"data"`
	Status    NotificationStatus `db:"status" json:"status"`
	CreatedAt time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `db:"updated_at" json:"updatedAt"`
}

// NotificationFilter narrows notification listings.
type NotificationFilter struct {
	Status NotificationStatus
	Type   NotificationType
}

// AvailabilityChange is the payload of availability and absence notifications.
type AvailabilityChange struct {
	TeacherID    string       `json:"teacherId"`
	Availability Availability `json:"availability"`
	Reason       string       `json:"reason,omitempty"`
}

// ScheduleChangeRequest is the payload of a teacher-initiated change request.
type ScheduleChangeRequest struct {
	TeacherID  string `json:"teacherId"`
	ScheduleID string `json:"scheduleId"`
	Details    string `json:"details"`
}

// RepairFailure is the payload of repair failure notifications.
type RepairFailure struct {
	ScheduleID string `json:"scheduleId"`
	TeacherID  string `json:"teacherId,omitempty"`
	Year       int    `json:"year"`
	Branch     string `json:"branch"`
	Division   string `json:"division"`
	Reason     string `json:"reason"`
	Conflicts  int    `json:"conflicts"`
}

// ScheduleUpdateError is the payload of background repair jobs that errored.
type ScheduleUpdateError struct {
	JobID      string `json:"jobId"`
	ScheduleID string `json:"scheduleId,omitempty"`
	TeacherID  string `json:"teacherId,omitempty"`
	Error      string `json:"error"`
}
