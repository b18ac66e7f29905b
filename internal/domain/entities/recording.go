package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AnalysisStatus represents where a recording is in the processing pipeline
type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "PENDING"
	AnalysisStatusProcessing AnalysisStatus = "PROCESSING"
	AnalysisStatusCompleted  AnalysisStatus = "COMPLETED"
	AnalysisStatusFailed     AnalysisStatus = "FAILED"
)

// SessionMode is the play-therapy phase the session was recorded in
type SessionMode string

const (
	SessionModeCDI SessionMode = "CDI" // child-directed interaction
	SessionModePDI SessionMode = "PDI" // parent-directed interaction
)

// IsValid reports whether the mode is one the scorer understands
func (m SessionMode) IsValid() bool {
	return m == SessionModeCDI || m == SessionModePDI
}

// Recording is a single uploaded play session and the aggregate root of its analysis
type Recording struct {
	ID                  uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID              uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	Mode                SessionMode     `json:"mode" gorm:"type:varchar(8);not null"`
	DurationSeconds     float64         `json:"duration_seconds" gorm:"not null;default:0"`
	AudioKey            string          `json:"audio_key" gorm:"type:text;not null"`
	AnalysisStatus      AnalysisStatus  `json:"analysis_status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	RetryCount          int             `json:"retry_count" gorm:"not null;default:0"`
	PermanentFailure    bool            `json:"permanent_failure" gorm:"not null;default:false"`
	AnalysisError       *string         `json:"analysis_error,omitempty" gorm:"type:text"`
	AnalysisResult      *AnalysisResult `json:"analysis_result,omitempty" gorm:"type:jsonb;serializer:json"`
	TranscriptionRaw    datatypes.JSON  `json:"-" gorm:"type:jsonb"`
	RoleRaw             datatypes.JSON  `json:"-" gorm:"type:jsonb"`
	ProcessingStartedAt *time.Time      `json:"processing_started_at,omitempty"`
	AnalyzedAt          *time.Time      `json:"analyzed_at,omitempty"`
	FailedAt            *time.Time      `json:"failed_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Recording) TableName() string {
	return "recordings"
}

// NewRecording creates a PENDING recording for freshly uploaded audio
func NewRecording(id, userID uuid.UUID, mode SessionMode, durationSeconds float64, audioKey string) *Recording {
	return &Recording{
		ID:              id,
		UserID:          userID,
		Mode:            mode,
		DurationSeconds: durationSeconds,
		AudioKey:        audioKey,
		AnalysisStatus:  AnalysisStatusPending,
	}
}

// IsTerminal reports whether the recording reached COMPLETED or FAILED.
// Terminal recordings are never transitioned again.
func (r *Recording) IsTerminal() bool {
	return r.AnalysisStatus == AnalysisStatusCompleted || r.AnalysisStatus == AnalysisStatusFailed
}

// MarkAsProcessing starts (or restarts) an attempt. attempt is zero based.
func (r *Recording) MarkAsProcessing(attempt int) error {
	if r.IsTerminal() {
		return ErrInvalidTransition
	}
	now := time.Now()
	r.AnalysisStatus = AnalysisStatusProcessing
	r.RetryCount = attempt
	r.ProcessingStartedAt = &now
	return nil
}

// MarkAsCompleted records a successful attempt
func (r *Recording) MarkAsCompleted(result *AnalysisResult) error {
	if r.AnalysisStatus != AnalysisStatusProcessing {
		return ErrInvalidTransition
	}
	now := time.Now()
	r.AnalysisStatus = AnalysisStatusCompleted
	r.AnalysisResult = result
	r.AnalysisError = nil
	r.AnalyzedAt = &now
	return nil
}

// MarkAsFailed records the permanent failure once the retry budget is spent
func (r *Recording) MarkAsFailed(errorMsg string, retryCount int) error {
	if r.IsTerminal() {
		return ErrInvalidTransition
	}
	now := time.Now()
	r.AnalysisStatus = AnalysisStatusFailed
	r.PermanentFailure = true
	r.RetryCount = retryCount
	r.AnalysisError = &errorMsg
	r.FailedAt = &now
	return nil
}

// ResetToPending hands an abandoned PROCESSING recording back to the queue
func (r *Recording) ResetToPending() error {
	if r.AnalysisStatus != AnalysisStatusProcessing {
		return ErrInvalidTransition
	}
	r.AnalysisStatus = AnalysisStatusPending
	return nil
}
