package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

// RecordingRepository handles recording data operations
type RecordingRepository struct {
	db *gorm.DB
}

// NewRecordingRepository creates a new recording repository
func NewRecordingRepository(db *gorm.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// Create creates a new recording
func (r *RecordingRepository) Create(ctx context.Context, recording *entities.Recording) error {
	if recording == nil {
		return errors.New("recording cannot be nil")
	}
	return r.db.WithContext(ctx).Create(recording).Error
}

// FindByID retrieves a recording by ID
func (r *RecordingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	var recording entities.Recording
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&recording).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recording, nil
}

// MarkProcessing persists the start of an attempt
func (r *RecordingRepository) MarkProcessing(ctx context.Context, recording *entities.Recording) error {
	return r.transition(ctx, recording,
		[]entities.AnalysisStatus{entities.AnalysisStatusPending, entities.AnalysisStatusProcessing},
		"analysis_status", "retry_count", "processing_started_at", "updated_at")
}

// MarkCompleted persists the analysis result together with the COMPLETED status
func (r *RecordingRepository) MarkCompleted(ctx context.Context, recording *entities.Recording) error {
	return r.transition(ctx, recording,
		[]entities.AnalysisStatus{entities.AnalysisStatusProcessing},
		"analysis_status", "analysis_result", "analysis_error", "analyzed_at", "updated_at")
}

// MarkFailed persists the permanent failure
func (r *RecordingRepository) MarkFailed(ctx context.Context, recording *entities.Recording) error {
	return r.transition(ctx, recording,
		[]entities.AnalysisStatus{entities.AnalysisStatusPending, entities.AnalysisStatusProcessing},
		"analysis_status", "permanent_failure", "retry_count", "analysis_error", "failed_at", "updated_at")
}

// ResetToPending hands a stale PROCESSING recording back to the queue
func (r *RecordingRepository) ResetToPending(ctx context.Context, recording *entities.Recording) error {
	return r.transition(ctx, recording,
		[]entities.AnalysisStatus{entities.AnalysisStatusProcessing},
		"analysis_status", "updated_at")
}

// transition writes the selected columns only if the row is still in one of
// the allowed prior states
func (r *RecordingRepository) transition(ctx context.Context, recording *entities.Recording, from []entities.AnalysisStatus, columns ...string) error {
	if recording == nil {
		return errors.New("recording cannot be nil")
	}
	result := r.db.WithContext(ctx).
		Model(recording).
		Where("analysis_status IN ?", from).
		Select(columns).
		Updates(recording)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return entities.ErrInvalidTransition
	}
	return nil
}

// SaveTranscriptionRaw stores the raw provider output of the latest transcription
func (r *RecordingRepository) SaveTranscriptionRaw(ctx context.Context, id uuid.UUID, raw []byte) error {
	return r.db.WithContext(ctx).
		Model(&entities.Recording{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"transcription_raw": datatypes.JSON(raw),
			"updated_at":        time.Now(),
		}).Error
}

// SaveRoleRaw stores the raw role classification response
func (r *RecordingRepository) SaveRoleRaw(ctx context.Context, id uuid.UUID, raw []byte) error {
	return r.db.WithContext(ctx).
		Model(&entities.Recording{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"role_raw":   datatypes.JSON(raw),
			"updated_at": time.Now(),
		}).Error
}

// FindByStatus retrieves the oldest recordings with a given status
func (r *RecordingRepository) FindByStatus(ctx context.Context, status entities.AnalysisStatus, limit int) ([]*entities.Recording, error) {
	var recordings []*entities.Recording
	if limit == 0 {
		limit = 100
	}
	if err := r.db.WithContext(ctx).
		Where("analysis_status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&recordings).Error; err != nil {
		return nil, err
	}
	return recordings, nil
}

// FindStale retrieves PROCESSING recordings whose attempt started before the cutoff
func (r *RecordingRepository) FindStale(ctx context.Context, startedBefore time.Time, limit int) ([]*entities.Recording, error) {
	var recordings []*entities.Recording
	if limit == 0 {
		limit = 10
	}
	if err := r.db.WithContext(ctx).
		Where("analysis_status = ? AND processing_started_at < ?", entities.AnalysisStatusProcessing, startedBefore).
		Order("processing_started_at ASC").
		Limit(limit).
		Find(&recordings).Error; err != nil {
		return nil, err
	}
	return recordings, nil
}

// ListCompletedByUser retrieves a user's analyzed recordings in [from, to)
func (r *RecordingRepository) ListCompletedByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.Recording, error) {
	var recordings []*entities.Recording
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND analysis_status = ?", userID, entities.AnalysisStatusCompleted).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&recordings).Error; err != nil {
		return nil, err
	}
	return recordings, nil
}
