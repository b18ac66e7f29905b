package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
	"github.com/johnquangdev/playcoach/internal/domain/repositories"
	"github.com/johnquangdev/playcoach/pkg/config"
	"github.com/johnquangdev/playcoach/pkg/jobcontext"
)

const failureMessageForUser = "We could not analyze this session. Please try recording again."

// Orchestrator owns the per-recording state machine. It is the only
// component that decides between retrying and failing permanently.
//
//	PENDING -> PROCESSING (attempt 1)
//	PROCESSING --success--> COMPLETED
//	PROCESSING --error, attempts left--> PROCESSING (next attempt, after backoff)
//	PROCESSING --error, budget spent--> FAILED (permanent)
type Orchestrator struct {
	recordings repositories.RecordingRepository
	runner     Runner
	notifier   Notifier
	audio      AudioSource
	locker     Locker
	phases     PhaseAdvancer
	sleep      Sleeper
	cfg        config.PipelineConfig
	logger     *zap.Logger
}

// OrchestratorDeps groups the collaborators of an Orchestrator. Phases is optional.
type OrchestratorDeps struct {
	Recordings repositories.RecordingRepository
	Runner     Runner
	Notifier   Notifier
	Audio      AudioSource
	Locker     Locker
	Phases     PhaseAdvancer
	Sleep      Sleeper
}

// NewOrchestrator creates the retry/failure orchestrator
func NewOrchestrator(deps OrchestratorDeps, cfg config.PipelineConfig, logger *zap.Logger) *Orchestrator {
	sleep := deps.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Orchestrator{
		recordings: deps.Recordings,
		runner:     deps.Runner,
		notifier:   deps.Notifier,
		audio:      deps.Audio,
		locker:     deps.Locker,
		phases:     deps.Phases,
		sleep:      sleep,
		cfg:        cfg,
		logger:     logger,
	}
}

// Process drives a recording to a terminal state
func (o *Orchestrator) Process(ctx context.Context, recordingID uuid.UUID) error {
	return o.process(ctx, recordingID, 0)
}

func lockKey(recordingID uuid.UUID) string {
	return "recording:lock:" + recordingID.String()
}

func (o *Orchestrator) process(ctx context.Context, recordingID uuid.UUID, workerID int) error {
	unlock, err := o.locker.TryLock(ctx, lockKey(recordingID), o.cfg.LockTTL)
	if err != nil {
		return err
	}
	defer unlock()

	recording, err := o.recordings.FindByID(ctx, recordingID)
	if err != nil {
		return fmt.Errorf("failed to load recording: %w", err)
	}
	if recording == nil {
		return entities.ErrRecordingNotFound
	}
	if recording.IsTerminal() {
		if o.logger != nil {
			o.logger.Info("⏭️ Recording already terminal, skipping",
				zap.String("recording_id", recordingID.String()),
				zap.String("status", string(recording.AnalysisStatus)),
			)
		}
		return nil
	}

	// An attempt that was started before (and abandoned by a crashed worker)
	// still counts against the budget.
	start := 0
	if recording.ProcessingStartedAt != nil {
		start = recording.RetryCount + 1
	}

	var lastErr error
	for attempt := start; attempt < o.cfg.MaxAttempts; attempt++ {
		if err := o.sleep(ctx, o.cfg.BackoffBefore(attempt)); err != nil {
			return fmt.Errorf("interrupted before attempt %d: %w", attempt+1, err)
		}

		if err := recording.MarkAsProcessing(attempt); err != nil {
			return err
		}
		if err := o.recordings.MarkProcessing(ctx, recording); err != nil {
			return fmt.Errorf("failed to mark recording as processing: %w", err)
		}

		attemptCtx := jobcontext.AttemptBegin(ctx, recording.ID, workerID, attempt, o.cfg.MaxAttempts)
		if o.logger != nil {
			o.logger.Info("🔄 Attempt started", jobcontext.Fields(attemptCtx)...)
		}

		var result *entities.AnalysisResult
		err := jobcontext.Run(attemptCtx, func(ctx context.Context) error {
			var runErr error
			result, runErr = o.runner.Run(ctx, recording)
			return runErr
		})
		if err == nil {
			return o.complete(attemptCtx, recording, result)
		}

		lastErr = err
		if o.logger != nil {
			o.logger.Warn("⚠️ Attempt failed",
				append(jobcontext.Fields(attemptCtx),
					zap.Bool("retryable", jobcontext.IsRetryableError(err)),
					zap.Error(err))...,
			)
		}
	}

	if lastErr == nil {
		lastErr = errors.New("retry budget exhausted by abandoned attempts")
	}
	return o.fail(ctx, recording, lastErr)
}

func (o *Orchestrator) complete(ctx context.Context, recording *entities.Recording, result *entities.AnalysisResult) error {
	if err := recording.MarkAsCompleted(result); err != nil {
		return err
	}
	if err := o.recordings.MarkCompleted(ctx, recording); err != nil {
		return fmt.Errorf("failed to mark recording as completed: %w", err)
	}

	if o.logger != nil {
		o.logger.Info("✅ Recording completed",
			append(jobcontext.Fields(ctx), zap.Int("overall_score", result.OverallScore))...,
		)
	}

	o.notifyUser(ctx, recording, entities.NotificationReportReady, "")
	o.advancePhase(ctx, recording.UserID, recording.ID)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, recording *entities.Recording, cause error) error {
	ctx = context.WithoutCancel(ctx)
	retryCount := o.cfg.MaxAttempts - 1

	if err := recording.MarkAsFailed(cause.Error(), retryCount); err != nil {
		return err
	}
	if err := o.recordings.MarkFailed(ctx, recording); err != nil {
		return fmt.Errorf("failed to mark recording as failed: %w", err)
	}

	if o.logger != nil {
		o.logger.Error("❌ Recording permanently failed",
			zap.String("recording_id", recording.ID.String()),
			zap.Int("retry_count", retryCount),
			zap.Error(cause),
		)
	}

	o.notifyUser(ctx, recording, entities.NotificationReportFailed, failureMessageForUser)

	alert := entities.OpsAlert{
		RecordingID: recording.ID,
		UserID:      recording.UserID,
		Mode:        string(recording.Mode),
		Error:       cause.Error(),
		RetryCount:  retryCount,
		AudioKey:    recording.AudioKey,
		FailedAt:    time.Now(),
	}
	if o.audio != nil {
		if url, err := o.audio.PresignedURL(ctx, recording.AudioKey); err == nil {
			alert.AudioURL = url
		} else if o.logger != nil {
			o.logger.Warn("⚠️ Failed to presign audio for ops alert", zap.Error(err))
		}
	}
	if o.notifier != nil {
		if err := o.notifier.AlertOps(ctx, alert); err != nil && o.logger != nil {
			o.logger.Error("❌ Failed to send ops alert",
				zap.String("recording_id", recording.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (o *Orchestrator) notifyUser(ctx context.Context, recording *entities.Recording, kind entities.NotificationType, message string) {
	if o.notifier == nil {
		return
	}
	err := o.notifier.NotifyUser(ctx, entities.UserNotification{
		Type:        kind,
		RecordingID: recording.ID,
		UserID:      recording.UserID,
		Message:     message,
		CreatedAt:   time.Now(),
	})
	if err != nil && o.logger != nil {
		o.logger.Warn("⚠️ Failed to notify user",
			zap.String("recording_id", recording.ID.String()),
			zap.String("type", string(kind)),
			zap.Error(err),
		)
	}
}

// advancePhase must never affect the success path
func (o *Orchestrator) advancePhase(ctx context.Context, userID, recordingID uuid.UUID) {
	if o.phases == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil && o.logger != nil {
			o.logger.Error("❌ Phase check panicked", zap.Any("panic", p))
		}
	}()
	if err := o.phases.CheckPhase(ctx, userID, recordingID); err != nil && o.logger != nil {
		o.logger.Warn("⚠️ Phase check failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

// ResetStale hands a PROCESSING recording whose worker vanished back to
// PENDING. A recording whose lock is still held is left alone.
func (o *Orchestrator) ResetStale(ctx context.Context, recording *entities.Recording) (bool, error) {
	unlock, err := o.locker.TryLock(ctx, lockKey(recording.ID), o.cfg.LockTTL)
	if errors.Is(err, entities.ErrRecordingLocked) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer unlock()

	if err := recording.ResetToPending(); err != nil {
		return false, nil
	}
	if err := o.recordings.ResetToPending(ctx, recording); err != nil {
		if errors.Is(err, entities.ErrInvalidTransition) {
			return false, nil
		}
		return false, fmt.Errorf("failed to reset stale recording: %w", err)
	}
	return true, nil
}
