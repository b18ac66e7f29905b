package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

// RecordingRepository defines persistence operations for recordings.
// Status writes are conditional on the prior status and return
// entities.ErrInvalidTransition when the row was not in an allowed state.
type RecordingRepository interface {
	Create(ctx context.Context, recording *entities.Recording) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Recording, error)

	// Status transitions. The entity must already carry the new state.
	MarkProcessing(ctx context.Context, recording *entities.Recording) error
	MarkCompleted(ctx context.Context, recording *entities.Recording) error
	MarkFailed(ctx context.Context, recording *entities.Recording) error
	ResetToPending(ctx context.Context, recording *entities.Recording) error

	// Stage artifacts
	SaveTranscriptionRaw(ctx context.Context, id uuid.UUID, raw []byte) error
	SaveRoleRaw(ctx context.Context, id uuid.UUID, raw []byte) error

	// Queries used by the worker pool and the aggregator
	FindByStatus(ctx context.Context, status entities.AnalysisStatus, limit int) ([]*entities.Recording, error)
	FindStale(ctx context.Context, startedBefore time.Time, limit int) ([]*entities.Recording, error)
	ListCompletedByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.Recording, error)
}

// UtteranceRepository defines persistence operations for utterances
type UtteranceRepository interface {
	// ReplaceForRecording atomically swaps the full utterance set of a recording
	ReplaceForRecording(ctx context.Context, recordingID uuid.UUID, utterances []entities.Utterance) error
	// UpdateCoding persists role, tag and feedback fields of existing utterances
	UpdateCoding(ctx context.Context, utterances []entities.Utterance) error
	ListByRecording(ctx context.Context, recordingID uuid.UUID) ([]entities.Utterance, error)
}
