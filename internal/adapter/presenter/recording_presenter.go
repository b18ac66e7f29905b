package presenter

import (
	"github.com/google/uuid"

	"github.com/johnquangdev/playcoach/internal/adapter/dto/recording"
	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

// ToRecordingResponse converts a Recording entity to RecordingResponse DTO.
// The result is only exposed once the recording is COMPLETED.
func ToRecordingResponse(r *entities.Recording) *recording.RecordingResponse {
	if r == nil {
		return nil
	}

	response := &recording.RecordingResponse{
		ID:                  r.ID.String(),
		UserID:              r.UserID.String(),
		Mode:                string(r.Mode),
		DurationSeconds:     r.DurationSeconds,
		AnalysisStatus:      string(r.AnalysisStatus),
		RetryCount:          r.RetryCount,
		PermanentFailure:    r.PermanentFailure,
		AnalysisError:       r.AnalysisError,
		ProcessingStartedAt: r.ProcessingStartedAt,
		AnalyzedAt:          r.AnalyzedAt,
		FailedAt:            r.FailedAt,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}

	if r.AnalysisStatus == entities.AnalysisStatusCompleted {
		response.Result = r.AnalysisResult
	}

	return response
}

// ToUtteranceResponse converts an Utterance entity to UtteranceResponse DTO
func ToUtteranceResponse(u *entities.Utterance) *recording.UtteranceResponse {
	response := &recording.UtteranceResponse{
		Index:         u.Order,
		Speaker:       u.Speaker,
		Text:          u.Text,
		StartTime:     u.StartTime,
		EndTime:       u.EndTime,
		Silence:       u.IsSilence(),
		SimplifiedTag: u.SimplifiedTag,
		Feedback:      u.Feedback,
	}
	if u.Role != nil {
		role := string(*u.Role)
		response.Role = &role
	}
	if u.Tag != nil {
		tag := string(*u.Tag)
		response.Tag = &tag
	}
	return response
}

// ToUtteranceListResponse converts the utterances of one recording
func ToUtteranceListResponse(recordingID uuid.UUID, utts []entities.Utterance) *recording.UtteranceListResponse {
	items := make([]*recording.UtteranceResponse, len(utts))
	for i := range utts {
		items[i] = ToUtteranceResponse(&utts[i])
	}
	return &recording.UtteranceListResponse{
		RecordingID: recordingID.String(),
		Utterances:  items,
		Total:       len(items),
	}
}
