package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

const utteranceBatchSize = 200

// UtteranceRepository handles utterance data operations
type UtteranceRepository struct {
	db *gorm.DB
}

// NewUtteranceRepository creates a new utterance repository
func NewUtteranceRepository(db *gorm.DB) *UtteranceRepository {
	return &UtteranceRepository{db: db}
}

// ReplaceForRecording deletes the previous attempt's utterances and inserts
// the new set in one transaction
func (r *UtteranceRepository) ReplaceForRecording(ctx context.Context, recordingID uuid.UUID, utterances []entities.Utterance) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recording_id = ?", recordingID).Delete(&entities.Utterance{}).Error; err != nil {
			return err
		}
		if len(utterances) == 0 {
			return nil
		}
		for i := range utterances {
			utterances[i].RecordingID = recordingID
		}
		return tx.CreateInBatches(utterances, utteranceBatchSize).Error
	})
}

// UpdateCoding writes role and coding fields back for every utterance
func (r *UtteranceRepository) UpdateCoding(ctx context.Context, utterances []entities.Utterance) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range utterances {
			u := &utterances[i]
			if err := tx.Model(&entities.Utterance{}).
				Where("id = ?", u.ID).
				Updates(map[string]interface{}{
					"role":           u.Role,
					"tag":            u.Tag,
					"simplified_tag": u.SimplifiedTag,
					"feedback":       u.Feedback,
					"updated_at":     now,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByRecording retrieves utterances in transcript order
func (r *UtteranceRepository) ListByRecording(ctx context.Context, recordingID uuid.UUID) ([]entities.Utterance, error) {
	var utterances []entities.Utterance
	if err := r.db.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		Order("order_index ASC").
		Find(&utterances).Error; err != nil {
		return nil, err
	}
	return utterances, nil
}
