package transcription

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
	pkgai "github.com/johnquangdev/playcoach/pkg/ai"
)

// GroupWords folds word-level tokens into segments, one per contiguous run of
// the same speaker.
func GroupWords(words []pkgai.Word) []pkgai.Segment {
	segments := make([]pkgai.Segment, 0)
	var (
		current pkgai.Segment
		texts   []string
		open    bool
	)

	flush := func() {
		if !open {
			return
		}
		current.Text = strings.Join(texts, " ")
		segments = append(segments, current)
		texts = texts[:0]
		open = false
	}

	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		if open && w.Speaker != current.Speaker {
			flush()
		}
		if !open {
			current = pkgai.Segment{Speaker: w.Speaker, Start: w.Start, End: w.End}
			open = true
		}
		if w.End > current.End {
			current.End = w.End
		}
		texts = append(texts, text)
	}
	flush()

	return segments
}

// BuildUtterances converts provider segments into ordered utterances of a
// recording. Segments are sorted by start time and given dense order indices.
func BuildUtterances(recordingID uuid.UUID, segments []pkgai.Segment) []entities.Utterance {
	sorted := make([]pkgai.Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	utterances := make([]entities.Utterance, 0, len(sorted))
	for _, seg := range sorted {
		end := seg.End
		if end < seg.Start {
			end = seg.Start
		}
		utterances = append(utterances, entities.Utterance{
			ID:          uuid.New(),
			RecordingID: recordingID,
			Speaker:     seg.Speaker,
			Text:        strings.TrimSpace(seg.Text),
			StartTime:   seg.Start,
			EndTime:     end,
			Order:       len(utterances),
		})
	}
	return utterances
}
