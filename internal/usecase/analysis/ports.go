package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
	"github.com/johnquangdev/playcoach/internal/usecase/feedback"
	"github.com/johnquangdev/playcoach/internal/usecase/transcription"
)

// AudioSource reads stored recording audio
type AudioSource interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	PresignedURL(ctx context.Context, key string) (string, error)
}

// Notifier dispatches the post-conditions of terminal transitions
type Notifier interface {
	NotifyUser(ctx context.Context, n entities.UserNotification) error
	AlertOps(ctx context.Context, alert entities.OpsAlert) error
}

// Locker guards a recording against concurrent attempts. TryLock returns
// entities.ErrRecordingLocked when another holder owns the key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// PhaseAdvancer runs the best-effort progression check after recordingID completed
type PhaseAdvancer interface {
	CheckPhase(ctx context.Context, userID, recordingID uuid.UUID) error
}

// Transcriber is the transcription stage of an attempt
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, opts transcription.Options) (*transcription.Result, error)
}

// FeedbackSynthesizer is the narrative stage of an attempt
type FeedbackSynthesizer interface {
	Synthesize(ctx context.Context, in feedback.Input) *feedback.Output
}

// Runner executes a single attempt of the pipeline
type Runner interface {
	Run(ctx context.Context, recording *entities.Recording) (*entities.AnalysisResult, error)
}

// Sleeper waits between attempts. It returns early with ctx.Err() when the
// context is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the Sleeper used outside tests
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
