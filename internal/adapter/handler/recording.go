package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/errors"
	"github.com/johnquangdev/playcoach/internal/adapter/dto/recording"
	"github.com/johnquangdev/playcoach/internal/adapter/presenter"
	"github.com/johnquangdev/playcoach/internal/domain/entities"
	"github.com/johnquangdev/playcoach/internal/domain/repositories"
)

// AnalysisQueue accepts recordings for background analysis.
// Enqueue returns false when the recording could not be queued right now.
type AnalysisQueue interface {
	Enqueue(recordingID uuid.UUID) bool
}

// Recording handles recording-related HTTP requests
type Recording struct {
	recordings repositories.RecordingRepository
	utterances repositories.UtteranceRepository
	queue      AnalysisQueue
	logger     *zap.Logger
}

// NewRecordingHandler creates a new recording handler
func NewRecordingHandler(recordings repositories.RecordingRepository, utterances repositories.UtteranceRepository, queue AnalysisQueue, logger *zap.Logger) *Recording {
	return &Recording{
		recordings: recordings,
		utterances: utterances,
		queue:      queue,
		logger:     logger,
	}
}

// AudioReady handles POST /internal/recordings/audio-ready
// @Summary      Report uploaded session audio
// @Description  Registers the recording as PENDING (idempotent) and queues it for analysis
// @Tags         Internal
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      recording.AudioReadyRequest  true  "Uploaded recording"
// @Success      202      {object}  recording.AudioReadyResponse
// @Failure      400      {object}  map[string]interface{}  "Invalid request or validation failed"
// @Failure      401      {object}  map[string]interface{}  "Missing or invalid service token"
// @Failure      409      {object}  map[string]interface{}  "Recording exists with different attributes"
// @Router       /internal/recordings/audio-ready [post]
func (h *Recording) AudioReady(c echo.Context) error {
	var req recording.AudioReadyRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload(err))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	recordingID, err := uuid.Parse(req.RecordingID)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid recording_id"))
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid user_id"))
	}

	ctx := c.Request().Context()
	rec, err := h.findOrCreate(ctx, entities.NewRecording(recordingID, userID, entities.SessionMode(req.Mode), req.DurationSeconds, req.AudioKey))
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	resp := &recording.AudioReadyResponse{
		RecordingID:    rec.ID.String(),
		AnalysisStatus: string(rec.AnalysisStatus),
	}

	if rec.IsTerminal() {
		if h.logger != nil {
			h.logger.Info("⏭️ Audio-ready for finished recording, not re-queued",
				zap.String("recording_id", rec.ID.String()),
				zap.String("analysis_status", string(rec.AnalysisStatus)),
			)
		}
		return HandleSuccessWithStatus(h.logger, c, http.StatusAccepted, resp)
	}

	resp.Enqueued = h.queue.Enqueue(rec.ID)
	if !resp.Enqueued && h.logger != nil {
		// The pending poller picks it up later.
		h.logger.Warn("⚠️ Recording not queued immediately",
			zap.String("recording_id", rec.ID.String()),
		)
	}

	return HandleSuccessWithStatus(h.logger, c, http.StatusAccepted, resp)
}

// findOrCreate returns the stored recording matching candidate, creating it when absent
func (h *Recording) findOrCreate(ctx context.Context, candidate *entities.Recording) (*entities.Recording, error) {
	existing, err := h.recordings.FindByID(ctx, candidate.ID)
	if err != nil {
		return nil, errors.ErrDBQueryFailed("find recording", err)
	}

	if existing == nil {
		createErr := h.recordings.Create(ctx, candidate)
		if createErr == nil {
			if h.logger != nil {
				h.logger.Info("🎙️ Recording registered",
					zap.String("recording_id", candidate.ID.String()),
					zap.String("user_id", candidate.UserID.String()),
					zap.String("mode", string(candidate.Mode)),
				)
			}
			return candidate, nil
		}

		// A concurrent audio-ready for the same id may have won the insert.
		existing, err = h.recordings.FindByID(ctx, candidate.ID)
		if err != nil || existing == nil {
			return nil, errors.ErrDBQueryFailed("create recording", createErr)
		}
	}

	if field := conflictingField(existing, candidate); field != "" {
		return nil, errors.ErrRecordingConflict(existing.ID.String(), field)
	}
	return existing, nil
}

func conflictingField(existing, candidate *entities.Recording) string {
	switch {
	case existing.UserID != candidate.UserID:
		return "user_id"
	case existing.Mode != candidate.Mode:
		return "mode"
	case existing.AudioKey != candidate.AudioKey:
		return "audio_key"
	}
	return ""
}

// GetRecording handles GET /recordings/:id
// @Summary      Get recording status and report
// @Description  Returns the analysis status, and the report once the recording is COMPLETED
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recording ID (UUID)"
// @Success      200  {object}  recording.RecordingResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid recording ID"
// @Failure      404  {object}  map[string]interface{}  "Recording not found"
// @Router       /recordings/{id} [get]
func (h *Recording) GetRecording(c echo.Context) error {
	rec, err := h.loadRecording(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToRecordingResponse(rec))
}

// ListUtterances handles GET /recordings/:id/utterances
// @Summary      List coded utterances
// @Description  Returns the transcript with roles, behavioral codes, feedback and SilentSlots
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recording ID (UUID)"
// @Success      200  {object}  recording.UtteranceListResponse
// @Failure      404  {object}  map[string]interface{}  "Recording not found"
// @Failure      409  {object}  map[string]interface{}  "Recording not analyzed yet"
// @Router       /recordings/{id}/utterances [get]
func (h *Recording) ListUtterances(c echo.Context) error {
	rec, err := h.loadRecording(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if rec.AnalysisStatus != entities.AnalysisStatusCompleted {
		return HandleError(h.logger, c, errors.ErrRecordingNotAnalyzed(rec.ID.String(), string(rec.AnalysisStatus)))
	}

	utts, err := h.utterances.ListByRecording(c.Request().Context(), rec.ID)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrDBQueryFailed("list utterances", err))
	}
	return HandleSuccess(h.logger, c, presenter.ToUtteranceListResponse(rec.ID, utts))
}

func (h *Recording) loadRecording(c echo.Context) (*entities.Recording, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, errors.ErrInvalidArgument(fmt.Sprintf("invalid recording id %q", c.Param("id")))
	}
	rec, err := h.recordings.FindByID(c.Request().Context(), id)
	if err != nil {
		return nil, errors.ErrDBQueryFailed("find recording", err)
	}
	if rec == nil {
		return nil, errors.ErrRecordingNotFound(id.String())
	}
	return rec, nil
}
