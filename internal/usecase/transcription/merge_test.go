package transcription

import (
	"reflect"
	"testing"

	pkgai "github.com/johnquangdev/playcoach/pkg/ai"
)

func TestGroupWords(t *testing.T) {
	words := []pkgai.Word{
		{Text: "Look", Start: 0, End: 0.3, Speaker: "1"},
		{Text: "at", Start: 0.3, End: 0.4, Speaker: "1"},
		{Text: "this", Start: 0.4, End: 0.8, Speaker: "1"},
		{Text: "Wow", Start: 1.0, End: 1.4, Speaker: "2"},
		{Text: " ", Start: 1.4, End: 1.5, Speaker: "2"},
		{Text: "Nice", Start: 2.0, End: 2.3, Speaker: "1"},
	}

	got := GroupWords(words)
	want := []pkgai.Segment{
		{Speaker: "1", Text: "Look at this", Start: 0, End: 0.8},
		{Speaker: "2", Text: "Wow", Start: 1.0, End: 1.4},
		{Speaker: "1", Text: "Nice", Start: 2.0, End: 2.3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("GroupWords() = %+v, want %+v", got, want)
	}
}

func TestMergeTwoPass_OverlapWins(t *testing.T) {
	segments := []pkgai.Segment{
		{Speaker: "A", Text: "You stacked the red block", Start: 0, End: 2},
		{Speaker: "A", Text: "Yeah", Start: 2.5, End: 3},
	}
	words := []pkgai.Word{
		{Text: "You", Start: 0, End: 0.5, Speaker: "1"},
		{Text: "stacked", Start: 0.5, End: 1.2, Speaker: "1"},
		{Text: "the", Start: 1.2, End: 1.4, Speaker: "2"},
		{Text: "red", Start: 1.4, End: 1.6, Speaker: "1"},
		{Text: "yeah", Start: 2.5, End: 3, Speaker: "2"},
	}

	res := MergeTwoPass(segments, words)
	if res.Segments[0].Speaker != "1" || res.Segments[1].Speaker != "2" {
		t.Fatalf("unexpected speakers: %+v", res.Segments)
	}
	if res.Segments[0].Text != segments[0].Text {
		t.Fatal("merge must keep text-quality text")
	}
	if segments[0].Speaker != "A" {
		t.Fatal("merge must not mutate its input")
	}
}

func TestMergeTwoPass_NearestMidpointFallback(t *testing.T) {
	segments := []pkgai.Segment{{Speaker: "A", Text: "hmm", Start: 5, End: 5.5}}
	words := []pkgai.Word{
		{Text: "a", Start: 0, End: 1, Speaker: "1"},
		{Text: "b", Start: 6, End: 6.4, Speaker: "2"},
	}

	res := MergeTwoPass(segments, words)
	if res.Segments[0].Speaker != "2" {
		t.Fatalf("expected nearest speaker 2, got %s", res.Segments[0].Speaker)
	}
}

func TestMergeTwoPass_Deterministic(t *testing.T) {
	segments := []pkgai.Segment{
		{Speaker: "A", Text: "one", Start: 0, End: 1},
		{Speaker: "B", Text: "two", Start: 1, End: 2},
		{Speaker: "A", Text: "three", Start: 2, End: 3},
	}
	// exact ties between speakers 1 and 2 on every segment
	words := []pkgai.Word{
		{Text: "x", Start: 0, End: 0.5, Speaker: "2"},
		{Text: "y", Start: 0.5, End: 1, Speaker: "1"},
		{Text: "x", Start: 1, End: 1.5, Speaker: "1"},
		{Text: "y", Start: 1.5, End: 2, Speaker: "2"},
		{Text: "x", Start: 2, End: 2.5, Speaker: "2"},
		{Text: "y", Start: 2.5, End: 3, Speaker: "1"},
	}

	first := MergeTwoPass(segments, words)
	for i := 0; i < 50; i++ {
		again := MergeTwoPass(segments, words)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
	for _, s := range first.Segments {
		if s.Speaker != "1" {
			t.Fatalf("ties should resolve to the smallest speaker id, got %s", s.Speaker)
		}
	}
}

func TestMergeTwoPass_DivergenceSignal(t *testing.T) {
	t.Run("relabel only is not divergence", func(t *testing.T) {
		segments := []pkgai.Segment{
			{Speaker: "A", Start: 0, End: 1},
			{Speaker: "B", Start: 1, End: 2},
		}
		words := []pkgai.Word{
			{Start: 0, End: 1, Speaker: "1"},
			{Start: 1, End: 2, Speaker: "2"},
		}
		res := MergeTwoPass(segments, words)
		if res.Review.NeedsReview || res.Review.ChangedRatio != 0 {
			t.Fatalf("unexpected review: %+v", res.Review)
		}
	})

	t.Run("speaker count change", func(t *testing.T) {
		segments := []pkgai.Segment{
			{Speaker: "A", Start: 0, End: 1},
			{Speaker: "A", Start: 1, End: 2},
		}
		words := []pkgai.Word{
			{Start: 0, End: 1, Speaker: "1"},
			{Start: 1, End: 2, Speaker: "2"},
		}
		res := MergeTwoPass(segments, words)
		if !res.Review.NeedsReview || res.Review.SpeakersBefore != 1 || res.Review.SpeakersAfter != 2 {
			t.Fatalf("unexpected review: %+v", res.Review)
		}
	})

	t.Run("more than a fifth reassigned", func(t *testing.T) {
		segments := []pkgai.Segment{
			{Speaker: "A", Start: 0, End: 3},
			{Speaker: "B", Start: 3, End: 4},
			{Speaker: "A", Start: 4, End: 7},
			{Speaker: "B", Start: 7, End: 8},
		}
		words := []pkgai.Word{
			{Start: 0, End: 3, Speaker: "1"},
			{Start: 3, End: 4, Speaker: "1"},
			{Start: 4, End: 7, Speaker: "2"},
			{Start: 7, End: 8, Speaker: "2"},
		}
		res := MergeTwoPass(segments, words)
		if !res.Review.NeedsReview {
			t.Fatalf("expected review flag, got %+v", res.Review)
		}
		if res.Review.ChangedRatio != 0.5 {
			t.Fatalf("ChangedRatio = %v, want 0.5", res.Review.ChangedRatio)
		}
	})
}
