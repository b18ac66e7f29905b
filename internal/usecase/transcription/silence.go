package transcription

import (
	"sort"

	"github.com/google/uuid"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

// DefaultSilenceThreshold is the minimum gap, in seconds, that becomes a SilentSlot
const DefaultSilenceThreshold = 3.0

// gapEpsilon absorbs float error so a gap of exactly the threshold qualifies.
// It is far below the resolution of provider timestamps (1ms).
const gapEpsilon = 1e-9

// SynthesizeSilence inserts a SilentSlot for every gap of at least threshold
// seconds between consecutive spoken utterances, and before the first or after
// the last one when durationSeconds is known. Existing slots are dropped
// first, so re-running on its own output gives the same result. The returned
// slice is sorted by start time with dense order indices.
func SynthesizeSilence(utterances []entities.Utterance, durationSeconds, threshold float64) []entities.Utterance {
	if threshold <= 0 {
		threshold = DefaultSilenceThreshold
	}

	spoken := make([]entities.Utterance, 0, len(utterances))
	for _, u := range utterances {
		if !u.IsSilence() {
			spoken = append(spoken, u)
		}
	}
	if len(spoken) == 0 {
		return spoken
	}
	sort.SliceStable(spoken, func(i, j int) bool {
		return spoken[i].StartTime < spoken[j].StartTime
	})

	recordingID := spoken[0].RecordingID
	out := make([]entities.Utterance, 0, len(spoken)+4)
	cursor := 0.0
	for _, u := range spoken {
		if u.StartTime-cursor >= threshold-gapEpsilon {
			out = append(out, newSilentSlot(recordingID, cursor, u.StartTime))
		}
		out = append(out, u)
		if u.EndTime > cursor {
			cursor = u.EndTime
		}
	}
	if durationSeconds > 0 && durationSeconds-cursor >= threshold-gapEpsilon {
		out = append(out, newSilentSlot(recordingID, cursor, durationSeconds))
	}

	for i := range out {
		out[i].Order = i
	}
	return out
}

func newSilentSlot(recordingID uuid.UUID, start, end float64) entities.Utterance {
	return entities.Utterance{
		ID:          uuid.New(),
		RecordingID: recordingID,
		Speaker:     entities.SilenceSpeaker,
		StartTime:   start,
		EndTime:     end,
	}
}
