package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

func TestScoreIsIdempotent(t *testing.T) {
	s := NewWeightedScorer(DefaultWeights())
	inputs := []entities.TagCounts{
		{},
		{LabeledPraise: 3, UnlabeledPraise: 5, Reflection: 7, BehaviorDescription: 2, Question: 6},
		{DirectCommand: 4, IndirectCommand: 4, NegativeTalk: 2, LabeledPraise: 1},
		{LabeledPraise: 40, Reflection: 40, BehaviorDescription: 40},
	}
	for _, counts := range inputs {
		for _, mode := range []entities.SessionMode{entities.SessionModeCDI, entities.SessionModePDI} {
			first := s.Score(counts, mode)
			for i := 0; i < 10; i++ {
				if again := s.Score(counts, mode); again != first {
					t.Fatalf("Score(%+v, %s) changed from %d to %d", counts, mode, first, again)
				}
			}
			if first < 0 || first > 100 {
				t.Fatalf("Score(%+v, %s) = %d out of range", counts, mode, first)
			}
		}
	}
}

func TestScoreCDI(t *testing.T) {
	s := NewWeightedScorer(DefaultWeights())

	cases := []struct {
		name   string
		counts entities.TagCounts
		want   int
	}{
		{"empty session keeps avoid points", entities.TagCounts{}, 30},
		{"mastery", entities.TagCounts{LabeledPraise: 10, Reflection: 10, BehaviorDescription: 10}, 100},
		{"unlabeled praise counts half", entities.TagCounts{UnlabeledPraise: 10}, 43},
		{"within allowance", entities.TagCounts{Question: 2, DirectCommand: 1}, 30},
		{"penalty per extra", entities.TagCounts{Question: 5, NegativeTalk: 1}, 21},
		{"avoid floor", entities.TagCounts{Question: 40}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Score(tc.counts, entities.SessionModeCDI); got != tc.want {
				t.Fatalf("Score() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestScorePDI(t *testing.T) {
	s := NewWeightedScorer(DefaultWeights())

	cases := []struct {
		name   string
		counts entities.TagCounts
		want   int
	}{
		{"no commands no criticism", entities.TagCounts{}, 20},
		{"all direct", entities.TagCounts{DirectCommand: 6, LabeledPraise: 5}, 100},
		{"half direct", entities.TagCounts{DirectCommand: 2, IndirectCommand: 2}, 50},
		{"criticism limit", entities.TagCounts{DirectCommand: 1, NegativeTalk: 9}, 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Score(tc.counts, entities.SessionModePDI); got != tc.want {
				t.Fatalf("Score() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestLoadWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	if err := os.WriteFile(path, []byte("cdi:\n  avoid_points: 10\n  avoid_allowance: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("LoadWeights() error: %v", err)
	}
	if w.CDI.AvoidPoints != 10 || w.CDI.AvoidAllowance != 0 {
		t.Fatalf("overrides not applied: %+v", w.CDI)
	}
	if w.CDI.PraisePoints != 25 || w.PDI.DirectCommandPoints != 60 {
		t.Fatalf("defaults lost: %+v", w)
	}

	if err := os.WriteFile(path, []byte("cdi:\n  skill_target: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadWeights(path); err == nil {
		t.Fatal("expected validation error")
	}
}
