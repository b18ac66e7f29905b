package aggregate

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
	"github.com/johnquangdev/playcoach/internal/domain/repositories"
)

const week = 7 * 24 * time.Hour

// SessionSummary is one completed recording inside a weekly report
type SessionSummary struct {
	RecordingID uuid.UUID            `json:"recording_id"`
	Mode        entities.SessionMode `json:"mode"`
	Score       int                  `json:"score"`
	CreatedAt   time.Time            `json:"created_at"`
	Counts      entities.TagCounts   `json:"tag_counts"`
}

// ModeSummary averages the sessions of one mode
type ModeSummary struct {
	Sessions     int     `json:"sessions"`
	AverageScore float64 `json:"average_score"`
}

// WeekSummary rolls up the sessions of one week
type WeekSummary struct {
	Start        time.Time                            `json:"start"`
	End          time.Time                            `json:"end"`
	Sessions     int                                  `json:"sessions"`
	AverageScore float64                              `json:"average_score"`
	ByMode       map[entities.SessionMode]ModeSummary `json:"by_mode"`
	Totals       entities.TagCounts                   `json:"totals"`
	Best         *SessionSummary                      `json:"best,omitempty"`
}

// WeeklyReport compares a user's week with the one before it
type WeeklyReport struct {
	UserID     uuid.UUID        `json:"user_id"`
	Current    WeekSummary      `json:"current"`
	Previous   WeekSummary      `json:"previous"`
	ScoreDelta *float64         `json:"score_delta,omitempty"`
	Sessions   []SessionSummary `json:"sessions"`
}

// Aggregator builds longitudinal reports over COMPLETED recordings
type Aggregator struct {
	recordings repositories.RecordingRepository
	logger     *zap.Logger
}

// NewAggregator creates an aggregator
func NewAggregator(recordings repositories.RecordingRepository, logger *zap.Logger) *Aggregator {
	return &Aggregator{recordings: recordings, logger: logger}
}

// WeeklyReport summarizes [weekStart, weekStart+7d) and the previous week.
// weekStart is truncated to midnight UTC.
func (a *Aggregator) WeeklyReport(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*WeeklyReport, error) {
	start := weekStart.UTC().Truncate(24 * time.Hour)
	prevStart := start.Add(-week)
	end := start.Add(week)

	recordings, err := a.recordings.ListCompletedByUser(ctx, userID, prevStart, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed recordings: %w", err)
	}

	var current, previous []SessionSummary
	for _, r := range recordings {
		if r.AnalysisResult == nil {
			continue
		}
		s := SessionSummary{
			RecordingID: r.ID,
			Mode:        r.Mode,
			Score:       r.AnalysisResult.OverallScore,
			CreatedAt:   r.CreatedAt,
			Counts:      r.AnalysisResult.TagCounts,
		}
		if r.CreatedAt.Before(start) {
			previous = append(previous, s)
		} else {
			current = append(current, s)
		}
	}

	report := &WeeklyReport{
		UserID:   userID,
		Current:  summarize(start, end, current),
		Previous: summarize(prevStart, start, previous),
		Sessions: current,
	}
	if report.Current.Sessions > 0 && report.Previous.Sessions > 0 {
		delta := round1(report.Current.AverageScore - report.Previous.AverageScore)
		report.ScoreDelta = &delta
	}

	if a.logger != nil {
		a.logger.Info("📈 Weekly report built",
			zap.String("user_id", userID.String()),
			zap.Time("week_start", start),
			zap.Int("sessions", report.Current.Sessions),
		)
	}
	return report, nil
}

func summarize(start, end time.Time, sessions []SessionSummary) WeekSummary {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	ws := WeekSummary{
		Start:    start,
		End:      end,
		Sessions: len(sessions),
		ByMode:   make(map[entities.SessionMode]ModeSummary),
	}
	if len(sessions) == 0 {
		return ws
	}

	total := 0
	modeTotals := make(map[entities.SessionMode]int)
	for i := range sessions {
		s := &sessions[i]
		total += s.Score
		ws.Totals = ws.Totals.Add(s.Counts)

		m := ws.ByMode[s.Mode]
		m.Sessions++
		ws.ByMode[s.Mode] = m
		modeTotals[s.Mode] += s.Score

		// earliest session wins ties
		if ws.Best == nil || s.Score > ws.Best.Score {
			best := *s
			ws.Best = &best
		}
	}
	ws.AverageScore = round1(float64(total) / float64(len(sessions)))
	for mode, m := range ws.ByMode {
		m.AverageScore = round1(float64(modeTotals[mode]) / float64(m.Sessions))
		ws.ByMode[mode] = m
	}
	return ws
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
