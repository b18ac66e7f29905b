package transcription

import (
	"fmt"
	"math"
	"sort"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
	pkgai "github.com/johnquangdev/playcoach/pkg/ai"
)

// DivergenceThreshold is the share of segments whose effective speaker may
// change during the merge before the result is flagged for review.
const DivergenceThreshold = 0.20

// MergeResult is the outcome of a two-pass merge
type MergeResult struct {
	Segments []pkgai.Segment
	Review   entities.DiarizationReview
}

// MergeTwoPass keeps the text-quality segments and reassigns each one to the
// diarization speaker whose words overlap it the longest. A segment with no
// overlapping word goes to the speaker of the word whose midpoint is nearest.
// Ties resolve to the lexically smallest speaker id, so the merge is
// deterministic for fixed inputs.
func MergeTwoPass(segments []pkgai.Segment, words []pkgai.Word) MergeResult {
	merged := make([]pkgai.Segment, len(segments))
	copy(merged, segments)

	if len(words) > 0 {
		for i := range merged {
			merged[i].Speaker = assignSpeaker(merged[i], words)
		}
	}

	return MergeResult{
		Segments: merged,
		Review:   reviewDivergence(segments, merged),
	}
}

func assignSpeaker(seg pkgai.Segment, words []pkgai.Word) string {
	overlap := make(map[string]float64)
	for _, w := range words {
		o := math.Min(seg.End, w.End) - math.Max(seg.Start, w.Start)
		if o > 0 {
			overlap[w.Speaker] += o
		}
	}
	if best, ok := argmax(overlap); ok {
		return best
	}

	mid := (seg.Start + seg.End) / 2
	bestSpeaker := ""
	bestDist := math.Inf(1)
	for _, w := range words {
		d := math.Abs((w.Start+w.End)/2 - mid)
		if d < bestDist || (d == bestDist && w.Speaker < bestSpeaker) {
			bestDist = d
			bestSpeaker = w.Speaker
		}
	}
	return bestSpeaker
}

// argmax returns the key with the largest positive value, smallest key on ties
func argmax(m map[string]float64) (string, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestVal := "", 0.0
	for _, k := range keys {
		if m[k] > bestVal {
			best, bestVal = k, m[k]
		}
	}
	return best, best != ""
}

// reviewDivergence maps every merged speaker to the original speaker it shares
// the most time with, then counts segments whose effective speaker changed.
func reviewDivergence(original, merged []pkgai.Segment) entities.DiarizationReview {
	review := entities.DiarizationReview{
		Mode:           "two-pass",
		SpeakersBefore: distinctSpeakers(original),
		SpeakersAfter:  distinctSpeakers(merged),
	}
	if len(original) == 0 {
		return review
	}

	shared := make(map[string]map[string]float64)
	for i := range merged {
		m := merged[i].Speaker
		if shared[m] == nil {
			shared[m] = make(map[string]float64)
		}
		// weight by duration; zero-length segments still count a little
		shared[m][original[i].Speaker] += math.Max(original[i].End-original[i].Start, 1e-3)
	}
	mapping := make(map[string]string, len(shared))
	for m, counts := range shared {
		mapping[m], _ = argmax(counts)
	}

	changed := 0
	for i := range merged {
		if mapping[merged[i].Speaker] != original[i].Speaker {
			changed++
		}
	}
	review.ChangedRatio = float64(changed) / float64(len(original))

	switch {
	case review.SpeakersBefore != review.SpeakersAfter:
		review.NeedsReview = true
		review.Reason = fmt.Sprintf("speaker count changed from %d to %d", review.SpeakersBefore, review.SpeakersAfter)
	case review.ChangedRatio > DivergenceThreshold:
		review.NeedsReview = true
		review.Reason = fmt.Sprintf("%.0f%% of segments changed speaker", review.ChangedRatio*100)
	}
	return review
}

func distinctSpeakers(segments []pkgai.Segment) int {
	seen := make(map[string]struct{})
	for _, s := range segments {
		seen[s.Speaker] = struct{}{}
	}
	return len(seen)
}
