package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
	pkgai "github.com/johnquangdev/playcoach/pkg/ai"
	"github.com/johnquangdev/playcoach/pkg/config"
	"github.com/johnquangdev/playcoach/pkg/jobcontext"
)

// Options selects how a recording is transcribed
type Options struct {
	Mode             string   // v1, v2, two-pass or chain
	Chain            []string // provider priority for chain mode
	KeywordHints     []string
	SpeakersExpected int
}

// Result is the normalized transcription of one attempt
type Result struct {
	Mode     string
	Provider string
	Segments []pkgai.Segment
	// Raw holds every provider response keyed by provider name
	Raw    json.RawMessage
	Review *entities.DiarizationReview
}

// Orchestrator runs the configured transcription providers
type Orchestrator struct {
	providers map[string]pkgai.Transcriber
	logger    *zap.Logger
}

// NewOrchestrator registers transcribers under their Name()
func NewOrchestrator(logger *zap.Logger, transcribers ...pkgai.Transcriber) *Orchestrator {
	providers := make(map[string]pkgai.Transcriber, len(transcribers))
	for _, t := range transcribers {
		if t != nil {
			providers[t.Name()] = t
		}
	}
	return &Orchestrator{providers: providers, logger: logger}
}

// Transcribe returns speaker-labelled segments or a *entities.TranscriptionError.
// A provider returning nothing is a failure, never an empty success.
func (o *Orchestrator) Transcribe(ctx context.Context, audio []byte, opts Options) (*Result, error) {
	tOpts := pkgai.TranscribeOptions{KeywordHints: opts.KeywordHints, SpeakersExpected: opts.SpeakersExpected}

	switch opts.Mode {
	case config.TranscriptionModeV1, config.TranscriptionModeV2:
		return o.single(ctx, opts.Mode, audio, tOpts)
	case config.TranscriptionModeTwoPass, "":
		return o.twoPass(ctx, audio, tOpts)
	case config.TranscriptionModeChain:
		return o.chain(ctx, opts.Chain, audio, tOpts)
	default:
		return nil, &entities.TranscriptionError{Provider: opts.Mode, Err: fmt.Errorf("unknown transcription mode")}
	}
}

func (o *Orchestrator) provider(name string) (pkgai.Transcriber, error) {
	p, ok := o.providers[name]
	if !ok {
		return nil, &entities.TranscriptionError{Provider: name, Err: fmt.Errorf("provider not configured")}
	}
	return p, nil
}

// call runs one provider and rejects empty output
func (o *Orchestrator) call(ctx context.Context, name string, audio []byte, opts pkgai.TranscribeOptions) (*pkgai.Transcription, error) {
	p, err := o.provider(name)
	if err != nil {
		return nil, err
	}
	out, err := p.Transcribe(ctx, audio, opts)
	if err != nil {
		return nil, &entities.TranscriptionError{Provider: name, Err: err}
	}
	if out == nil || (len(out.Words) == 0 && len(out.Segments) == 0) {
		return nil, &entities.TranscriptionError{Provider: name, Err: entities.ErrNoUtterances}
	}
	return out, nil
}

func (o *Orchestrator) single(ctx context.Context, name string, audio []byte, opts pkgai.TranscribeOptions) (*Result, error) {
	out, err := o.call(ctx, name, audio, opts)
	if err != nil {
		return nil, err
	}

	segments := out.Segments
	if out.Granularity == pkgai.GranularityWord {
		segments = GroupWords(out.Words)
	}
	if len(segments) == 0 {
		return nil, &entities.TranscriptionError{Provider: name, Err: entities.ErrNoUtterances}
	}

	if o.logger != nil {
		o.logger.Info("✅ Transcription completed",
			append(jobcontext.Fields(ctx),
				zap.String("provider", name),
				zap.Int("segment_count", len(segments)))...,
		)
	}

	return &Result{
		Mode:     name,
		Provider: name,
		Segments: segments,
		Raw:      rawByProvider(out),
	}, nil
}

func (o *Orchestrator) twoPass(ctx context.Context, audio []byte, opts pkgai.TranscribeOptions) (*Result, error) {
	var textPass, diarPass *pkgai.Transcription

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := o.call(gctx, pkgai.ProviderAssemblyAI, audio, opts)
		textPass = out
		return err
	})
	g.Go(func() error {
		out, err := o.call(gctx, pkgai.ProviderGoogleSTT, audio, opts)
		diarPass = out
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	text := textPass.Segments
	if textPass.Granularity == pkgai.GranularityWord {
		text = GroupWords(textPass.Words)
	}
	if len(text) == 0 {
		return nil, &entities.TranscriptionError{Provider: textPass.Provider, Err: entities.ErrNoUtterances}
	}
	if len(diarPass.Words) == 0 {
		return nil, &entities.TranscriptionError{Provider: diarPass.Provider, Err: fmt.Errorf("diarization pass returned no words")}
	}

	merged := MergeTwoPass(text, diarPass.Words)
	if o.logger != nil {
		fields := append(jobcontext.Fields(ctx),
			zap.Int("segment_count", len(merged.Segments)),
			zap.Int("word_count", len(diarPass.Words)),
			zap.Float64("changed_ratio", merged.Review.ChangedRatio),
		)
		if merged.Review.NeedsReview {
			o.logger.Warn("⚠️ Two-pass diarization diverged, flagged for review",
				append(fields, zap.String("reason", merged.Review.Reason))...)
		} else {
			o.logger.Info("✅ Two-pass transcription merged", fields...)
		}
	}

	review := merged.Review
	return &Result{
		Mode:     config.TranscriptionModeTwoPass,
		Provider: textPass.Provider + "+" + diarPass.Provider,
		Segments: merged.Segments,
		Raw:      rawByProvider(textPass, diarPass),
		Review:   &review,
	}, nil
}

// chain tries single providers in priority order until one succeeds
func (o *Orchestrator) chain(ctx context.Context, order []string, audio []byte, opts pkgai.TranscribeOptions) (*Result, error) {
	if len(order) == 0 {
		order = []string{pkgai.ProviderAssemblyAI, pkgai.ProviderGoogleSTT}
	}

	var errs []error
	for _, name := range order {
		res, err := o.single(ctx, name, audio, opts)
		if err == nil {
			res.Mode = config.TranscriptionModeChain
			return res, nil
		}
		errs = append(errs, err)
		if o.logger != nil {
			o.logger.Warn("⚠️ Transcription provider failed, trying next",
				append(jobcontext.Fields(ctx), zap.String("provider", name), zap.Error(err))...)
		}
	}
	return nil, &entities.TranscriptionError{Provider: config.TranscriptionModeChain, Err: errors.Join(errs...)}
}

func rawByProvider(outs ...*pkgai.Transcription) json.RawMessage {
	raw := make(map[string]json.RawMessage, len(outs))
	for _, out := range outs {
		if out == nil || len(out.Raw) == 0 {
			continue
		}
		raw[out.Provider] = out.Raw
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}
