package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
	"github.com/johnquangdev/playcoach/internal/domain/repositories"
	"github.com/johnquangdev/playcoach/internal/usecase/coding"
	"github.com/johnquangdev/playcoach/internal/usecase/feedback"
	"github.com/johnquangdev/playcoach/internal/usecase/scoring"
	"github.com/johnquangdev/playcoach/internal/usecase/transcription"
	"github.com/johnquangdev/playcoach/pkg/config"
	"github.com/johnquangdev/playcoach/pkg/jobcontext"
)

// Pipeline runs one full attempt: transcription, silence synthesis, role
// classification, behavioral coding, scoring and feedback. Every attempt
// starts again from transcription and overwrites what the previous one wrote.
type Pipeline struct {
	recordings  repositories.RecordingRepository
	utterances  repositories.UtteranceRepository
	audio       AudioSource
	transcriber Transcriber
	roles       coding.RoleClassifier
	coder       coding.BehavioralCoder
	scorer      scoring.Strategy
	synthesizer FeedbackSynthesizer
	cfg         config.PipelineConfig
	logger      *zap.Logger
}

// PipelineDeps groups the collaborators of a Pipeline
type PipelineDeps struct {
	Recordings  repositories.RecordingRepository
	Utterances  repositories.UtteranceRepository
	Audio       AudioSource
	Transcriber Transcriber
	Roles       coding.RoleClassifier
	Coder       coding.BehavioralCoder
	Scorer      scoring.Strategy
	Synthesizer FeedbackSynthesizer
}

// NewPipeline creates the per-attempt pipeline
func NewPipeline(deps PipelineDeps, cfg config.PipelineConfig, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		recordings:  deps.Recordings,
		utterances:  deps.Utterances,
		audio:       deps.Audio,
		transcriber: deps.Transcriber,
		roles:       deps.Roles,
		coder:       deps.Coder,
		scorer:      deps.Scorer,
		synthesizer: deps.Synthesizer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run executes the stages in order. Any returned error fails the attempt;
// feedback branches degrade inside the synthesizer instead.
func (p *Pipeline) Run(ctx context.Context, recording *entities.Recording) (*entities.AnalysisResult, error) {
	audio, err := p.audio.Fetch(ctx, recording.AudioKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio: %w", err)
	}

	transcript, err := p.transcriber.Transcribe(ctx, audio, transcription.Options{
		Mode:         p.cfg.TranscriptionMode,
		Chain:        p.cfg.TranscriptionChain,
		KeywordHints: p.cfg.KeywordHints,
	})
	if err != nil {
		return nil, err
	}

	utterances := transcription.BuildUtterances(recording.ID, transcript.Segments)
	utterances = transcription.SynthesizeSilence(utterances, recording.DurationSeconds, p.cfg.SilenceThreshold)

	// downstream stages only ever read what is persisted here
	if err := p.recordings.SaveTranscriptionRaw(ctx, recording.ID, transcript.Raw); err != nil {
		return nil, fmt.Errorf("failed to save raw transcription: %w", err)
	}
	if err := p.utterances.ReplaceForRecording(ctx, recording.ID, utterances); err != nil {
		return nil, fmt.Errorf("failed to save utterances: %w", err)
	}

	if p.logger != nil {
		p.logger.Info("📝 Transcription stored",
			append(jobcontext.Fields(ctx),
				zap.String("provider", transcript.Provider),
				zap.Int("utterances", len(utterances)))...,
		)
	}

	roles, err := p.roles.Classify(ctx, utterances)
	if err != nil {
		return nil, err
	}
	rolesRaw, err := json.Marshal(roles)
	if err != nil {
		return nil, fmt.Errorf("failed to encode role assignment: %w", err)
	}
	if err := p.recordings.SaveRoleRaw(ctx, recording.ID, rolesRaw); err != nil {
		return nil, fmt.Errorf("failed to save role assignment: %w", err)
	}
	coding.ApplyRoles(utterances, roles.RoleMap())

	codes, err := p.coder.Code(ctx, utterances)
	if err != nil {
		return nil, err
	}
	coding.ApplyCoding(utterances, codes)
	if err := p.utterances.UpdateCoding(ctx, utterances); err != nil {
		return nil, fmt.Errorf("failed to save utterance coding: %w", err)
	}

	counts := entities.FoldTagCounts(utterances)
	score := p.scorer.Score(counts, recording.Mode)

	out := p.synthesizer.Synthesize(ctx, feedback.Input{
		Mode:            recording.Mode,
		Utterances:      utterances,
		Counts:          counts,
		Score:           score,
		MaxSilenceSlots: p.cfg.MaxSilenceSlots,
		EnableProfiling: p.cfg.EnableProfiling,
	})
	if len(out.Revisions) > 0 {
		feedback.ApplyRevisions(utterances, out.Revisions)
		if err := p.utterances.UpdateCoding(ctx, utterances); err != nil {
			return nil, fmt.Errorf("failed to save revised feedback: %w", err)
		}
	}

	result := &entities.AnalysisResult{
		TagCounts:       counts,
		OverallScore:    score,
		ScoringStrategy: p.scorer.Name(),
		Diarization:     transcript.Review,
		UncodedIndices:  codes.Missing,
	}
	out.Apply(result)

	if p.logger != nil {
		p.logger.Info("📊 Recording analyzed",
			append(jobcontext.Fields(ctx),
				zap.Int("overall_score", score),
				zap.Int("adult_utterances", counts.AdultUtterances),
				zap.Int("uncoded", counts.Uncoded),
				zap.Int("degraded_stages", len(out.Errors)))...,
		)
	}
	return result, nil
}
