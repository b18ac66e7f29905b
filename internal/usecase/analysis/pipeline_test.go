package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
	"github.com/johnquangdev/playcoach/internal/usecase/coding"
	"github.com/johnquangdev/playcoach/internal/usecase/feedback"
	"github.com/johnquangdev/playcoach/internal/usecase/scoring"
	"github.com/johnquangdev/playcoach/internal/usecase/transcription"
	pkgai "github.com/johnquangdev/playcoach/pkg/ai"
)

type fakeTranscriber struct {
	err error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, opts transcription.Options) (*transcription.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &transcription.Result{
		Mode:     opts.Mode,
		Provider: "two-pass",
		Segments: []pkgai.Segment{
			{Speaker: "A", Text: "Great job building!", Start: 0, End: 2},
			{Speaker: "B", Text: "look", Start: 2.5, End: 3},
			{Speaker: "A", Text: "Put it there", Start: 8, End: 10},
			{Speaker: "A", Text: "Nice tower", Start: 10.5, End: 12},
		},
		Raw:    []byte(`{"v1":{},"v2":{}}`),
		Review: &entities.DiarizationReview{Mode: "two-pass"},
	}, nil
}

type fakeRoles struct {
	err error
}

func (f *fakeRoles) Classify(ctx context.Context, utts []entities.Utterance) (*coding.RoleAssignment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &coding.RoleAssignment{
		Speakers: []coding.SpeakerRole{
			{Speaker: "A", Role: entities.SpeakerRoleAdult, UtteranceCount: 3},
			{Speaker: "B", Role: entities.SpeakerRoleChild, UtteranceCount: 1},
		},
		Adults:  []string{"A"},
		Primary: "A",
	}, nil
}

type fakeCoder struct{}

func (fakeCoder) Code(ctx context.Context, utts []entities.Utterance) (*coding.CodingResult, error) {
	return &coding.CodingResult{
		Codes: map[int]coding.CodedUtterance{
			0: {Index: 0, Code: entities.CodeLabeledPraise, Feedback: "Specific praise"},
			3: {Index: 3, Code: entities.CodeDirectCommand, Feedback: "Try a description"},
		},
		Missing: []int{4},
	}, nil
}

type fakeSynthesizer struct {
	got feedback.Input
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, in feedback.Input) *feedback.Output {
	f.got = in
	dev := "Your child narrated their play."
	return &feedback.Output{
		Session:       &feedback.SessionNarrative{Feedback: "Warm session."},
		Revisions:     []entities.FeedbackRevision{{UtteranceIndex: 0, Feedback: "Great labeled praise"}},
		Developmental: &dev,
		Errors:        map[string]error{feedback.StageCoaching: errors.New("timeout")},
	}
}

func newTestPipeline(recs *memRecordings, utts *memUtterances, tr Transcriber, roles coding.RoleClassifier, synth FeedbackSynthesizer) *Pipeline {
	return NewPipeline(PipelineDeps{
		Recordings:  recs,
		Utterances:  utts,
		Audio:       &fakeAudio{},
		Transcriber: tr,
		Roles:       roles,
		Coder:       fakeCoder{},
		Scorer:      scoring.NewWeightedScorer(scoring.DefaultWeights()),
		Synthesizer: synth,
	}, testPipelineConfig(), nil)
}

func TestPipelineRunProducesResult(t *testing.T) {
	rec := entities.NewRecording(uuid.New(), uuid.New(), entities.SessionModeCDI, 12, "a.m4a")
	recs := newMemRecordings(rec)
	utts := newMemUtterances()
	synth := &fakeSynthesizer{}
	p := newTestPipeline(recs, utts, &fakeTranscriber{}, &fakeRoles{}, synth)

	result, err := p.Run(context.Background(), rec)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.TagCounts.Praise != 1 || result.TagCounts.Command != 1 || result.TagCounts.Uncoded != 1 {
		t.Fatalf("unexpected tag counts: %+v", result.TagCounts)
	}
	if result.ScoringStrategy == "" || result.OverallScore < 0 || result.OverallScore > 100 {
		t.Fatalf("unexpected score: %d (%s)", result.OverallScore, result.ScoringStrategy)
	}
	if result.DevelopmentalNarrative == nil || result.CoachingNarrative != nil {
		t.Fatalf("expected developmental only, got dev=%v coaching=%v", result.DevelopmentalNarrative, result.CoachingNarrative)
	}
	if result.StageErrors[feedback.StageCoaching] != "timeout" {
		t.Fatalf("coaching degradation not recorded: %v", result.StageErrors)
	}
	if len(result.UncodedIndices) != 1 || result.UncodedIndices[0] != 4 {
		t.Fatalf("unexpected uncoded indices: %v", result.UncodedIndices)
	}
	if result.Diarization == nil {
		t.Fatal("diarization review should be carried into the result")
	}

	stored, _ := utts.ListByRecording(context.Background(), rec.ID)
	if len(stored) != 5 {
		t.Fatalf("expected 4 utterances and 1 silent slot, got %d", len(stored))
	}
	for i, u := range stored {
		if u.Order != i {
			t.Fatalf("order not dense at %d: %d", i, u.Order)
		}
		if i > 0 && u.StartTime < stored[i-1].StartTime {
			t.Fatalf("start times decrease at %d", i)
		}
	}
	if !stored[2].IsSilence() || stored[2].StartTime != 3 || stored[2].EndTime != 8 {
		t.Fatalf("expected silent slot [3, 8] at index 2, got %+v", stored[2])
	}
	if stored[0].Feedback == nil || *stored[0].Feedback != "Great labeled praise" {
		t.Fatalf("revised feedback not persisted: %v", stored[0].Feedback)
	}
	if stored[1].Tag != nil {
		t.Fatal("child utterances must stay uncoded")
	}
	if synth.got.MaxSilenceSlots != 3 || !synth.got.EnableProfiling {
		t.Fatalf("synthesizer not configured from pipeline config: %+v", synth.got)
	}

	if len(recs.raw[rec.ID]) == 0 || len(recs.role[rec.ID]) == 0 {
		t.Fatal("raw transcription and role assignment must be persisted")
	}
}

func TestPipelineRunPropagatesStructuralErrors(t *testing.T) {
	rec := entities.NewRecording(uuid.New(), uuid.New(), entities.SessionModePDI, 12, "a.m4a")

	p := newTestPipeline(newMemRecordings(rec), newMemUtterances(), &fakeTranscriber{}, &fakeRoles{err: entities.ErrNoAdultSpeaker}, &fakeSynthesizer{})
	if _, err := p.Run(context.Background(), rec); !errors.Is(err, entities.ErrNoAdultSpeaker) {
		t.Fatalf("expected ErrNoAdultSpeaker, got %v", err)
	}

	trErr := &entities.TranscriptionError{Provider: "v2", Err: entities.ErrNoUtterances}
	p = newTestPipeline(newMemRecordings(rec), newMemUtterances(), &fakeTranscriber{err: trErr}, &fakeRoles{}, &fakeSynthesizer{})
	_, err := p.Run(context.Background(), rec)
	var te *entities.TranscriptionError
	if !errors.As(err, &te) || !errors.Is(err, entities.ErrNoUtterances) {
		t.Fatalf("expected TranscriptionError wrapping ErrNoUtterances, got %v", err)
	}
}
