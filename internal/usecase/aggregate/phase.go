package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
	"github.com/johnquangdev/playcoach/internal/domain/repositories"
)

// PhaseWindow is how many consecutive CDI sessions must reach mastery
const PhaseWindow = 3

// UserNotifier publishes user-facing events
type UserNotifier interface {
	NotifyUser(ctx context.Context, n entities.UserNotification) error
}

// PhaseChecker tells a user they are ready for the next phase once their
// latest CDI sessions all reach the mastery score
type PhaseChecker struct {
	recordings   repositories.RecordingRepository
	notifier     UserNotifier
	masteryScore int
	lookback     time.Duration
	logger       *zap.Logger
}

// NewPhaseChecker creates a phase checker
func NewPhaseChecker(recordings repositories.RecordingRepository, notifier UserNotifier, masteryScore int, logger *zap.Logger) *PhaseChecker {
	return &PhaseChecker{
		recordings:   recordings,
		notifier:     notifier,
		masteryScore: masteryScore,
		lookback:     90 * 24 * time.Hour,
		logger:       logger,
	}
}

// CheckPhase emits phase_ready when recordingID is the CDI session that
// completes a run of exactly PhaseWindow mastered sessions. Later sessions
// extending the run, and sessions of other modes, do not notify again.
func (p *PhaseChecker) CheckPhase(ctx context.Context, userID, recordingID uuid.UUID) error {
	now := time.Now()
	recordings, err := p.recordings.ListCompletedByUser(ctx, userID, now.Add(-p.lookback), now.Add(time.Minute))
	if err != nil {
		return fmt.Errorf("failed to list completed recordings: %w", err)
	}

	var cdi []*entities.Recording
	for _, r := range recordings {
		if r.Mode == entities.SessionModeCDI && r.AnalysisResult != nil {
			cdi = append(cdi, r)
		}
	}
	if len(cdi) < PhaseWindow {
		return nil
	}
	sort.SliceStable(cdi, func(i, j int) bool {
		return cdi[i].CreatedAt.After(cdi[j].CreatedAt)
	})
	if cdi[0].ID != recordingID {
		return nil
	}

	streak := 0
	for _, r := range cdi {
		if r.AnalysisResult.OverallScore < p.masteryScore {
			break
		}
		streak++
	}
	if streak != PhaseWindow {
		return nil
	}

	if p.logger != nil {
		p.logger.Info("🎉 Phase mastery reached", zap.String("user_id", userID.String()))
	}
	return p.notifier.NotifyUser(ctx, entities.UserNotification{
		Type:        entities.NotificationPhaseReady,
		RecordingID: cdi[0].ID,
		UserID:      userID,
		Message:     "You are ready for the next phase.",
		CreatedAt:   now,
	})
}
