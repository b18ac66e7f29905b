package entities

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType is the kind of user-facing event a recording emits
type NotificationType string

const (
	NotificationReportReady  NotificationType = "report_ready"
	NotificationReportFailed NotificationType = "report_failed"
	NotificationPhaseReady   NotificationType = "phase_ready"
)

// UserNotification is published to the client once a recording reaches a terminal state
type UserNotification struct {
	Type        NotificationType `json:"type"`
	RecordingID uuid.UUID        `json:"recording_id"`
	UserID      uuid.UUID        `json:"user_id"`
	Message     string           `json:"message,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// OpsAlert carries the full diagnostic detail of a permanent failure
type OpsAlert struct {
	RecordingID uuid.UUID `json:"recording_id"`
	UserID      uuid.UUID `json:"user_id"`
	Mode        string    `json:"mode"`
	Error       string    `json:"error"`
	RetryCount  int       `json:"retry_count"`
	AudioKey    string    `json:"audio_key"`
	AudioURL    string    `json:"audio_url,omitempty"`
	FailedAt    time.Time `json:"failed_at"`
}
