package recording

import (
	"time"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

// AudioReadyResponse acknowledges an audio-ready event
type AudioReadyResponse struct {
	RecordingID    string `json:"recording_id"`
	AnalysisStatus string `json:"analysis_status"`
	Enqueued       bool   `json:"enqueued"`
}

// RecordingResponse represents a recording with its analysis state
type RecordingResponse struct {
	ID                  string                   `json:"id"`
	UserID              string                   `json:"user_id"`
	Mode                string                   `json:"mode"`
	DurationSeconds     float64                  `json:"duration_seconds"`
	AnalysisStatus      string                   `json:"analysis_status"`
	RetryCount          int                      `json:"retry_count"`
	PermanentFailure    bool                     `json:"permanent_failure"`
	AnalysisError       *string                  `json:"analysis_error,omitempty"`
	Result              *entities.AnalysisResult `json:"result,omitempty"`
	ProcessingStartedAt *time.Time               `json:"processing_started_at,omitempty"`
	AnalyzedAt          *time.Time               `json:"analyzed_at,omitempty"`
	FailedAt            *time.Time               `json:"failed_at,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

// UtteranceResponse represents one transcript row, real or SilentSlot
type UtteranceResponse struct {
	Index         int     `json:"index"`
	Speaker       string  `json:"speaker"`
	Text          string  `json:"text"`
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	Silence       bool    `json:"silence"`
	Role          *string `json:"role,omitempty"`
	Tag           *string `json:"tag,omitempty"`
	SimplifiedTag *string `json:"simplified_tag,omitempty"`
	Feedback      *string `json:"feedback,omitempty"`
}

// UtteranceListResponse represents the coded transcript of a recording
type UtteranceListResponse struct {
	RecordingID string               `json:"recording_id"`
	Utterances  []*UtteranceResponse `json:"utterances"`
	Total       int                  `json:"total"`
}
