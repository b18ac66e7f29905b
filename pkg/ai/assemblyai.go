package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/pkg/config"
)

// AssemblyAITranscriber is the text-quality provider. It returns
// utterance-level segments with weaker speaker separation.
type AssemblyAITranscriber struct {
	client       *aai.Client
	languageCode string
	logger       *zap.Logger
}

// NewAssemblyAITranscriber creates an AssemblyAI transcriber using the provided config.
// If cfg is nil, falls back to environment variables.
func NewAssemblyAITranscriber(cfg *config.AssemblyAIConfig, logger *zap.Logger) *AssemblyAITranscriber {
	var apiKey, lang string
	if cfg != nil {
		apiKey = cfg.APIKey
		lang = cfg.LanguageCode
	}
	if apiKey == "" {
		apiKey = os.Getenv("ASSEMBLYAI_API_KEY")
	}
	if lang == "" {
		lang = "en_us"
	}
	return &AssemblyAITranscriber{
		client:       aai.NewClient(apiKey),
		languageCode: lang,
		logger:       logger,
	}
}

// Name returns the provider name
func (t *AssemblyAITranscriber) Name() string {
	return ProviderAssemblyAI
}

// Transcribe uploads the audio, waits for the transcript and normalizes its utterances
func (t *AssemblyAITranscriber) Transcribe(ctx context.Context, audio []byte, opts TranscribeOptions) (*Transcription, error) {
	params := transcriptParams(t.languageCode, opts)

	if t.logger != nil {
		t.logger.Info("🎙️ Starting AssemblyAI transcription",
			zap.Int("audio_bytes", len(audio)),
			zap.Int("keyword_hints", len(opts.KeywordHints)),
		)
	}

	transcript, err := t.client.Transcripts.TranscribeFromReader(ctx, bytes.NewReader(audio), params)
	if err != nil {
		return nil, fmt.Errorf("assemblyai transcription failed: %w", err)
	}
	if transcript.Status == aai.TranscriptStatusError {
		msg := "unknown error"
		if transcript.Error != nil {
			msg = *transcript.Error
		}
		return nil, fmt.Errorf("assemblyai transcript error: %s", msg)
	}

	raw, err := json.Marshal(transcript)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal assemblyai response: %w", err)
	}

	segments := segmentsFromTranscript(transcript)
	if t.logger != nil {
		t.logger.Info("✅ AssemblyAI transcription completed",
			zap.Int("segment_count", len(segments)),
		)
	}

	return &Transcription{
		Provider:    ProviderAssemblyAI,
		Granularity: GranularityUtterance,
		Segments:    segments,
		Raw:         raw,
	}, nil
}

// boostHigh weights keyword hints strongly; the SDK has no named constant for it
const boostHigh = aai.TranscriptBoostParam("high")

func transcriptParams(languageCode string, opts TranscribeOptions) *aai.TranscriptOptionalParams {
	params := &aai.TranscriptOptionalParams{
		LanguageCode:  aai.TranscriptLanguageCode(languageCode),
		SpeakerLabels: aai.Bool(true),
	}
	if opts.SpeakersExpected > 0 {
		params.SpeakersExpected = aai.Int64(int64(opts.SpeakersExpected))
	}
	if len(opts.KeywordHints) > 0 {
		params.WordBoost = opts.KeywordHints
		params.BoostParam = boostHigh
	}
	return params
}

func segmentsFromTranscript(transcript aai.Transcript) []Segment {
	segments := make([]Segment, 0, len(transcript.Utterances))
	for _, utt := range transcript.Utterances {
		seg := Segment{}
		if utt.Text != nil {
			seg.Text = *utt.Text
		}
		if utt.Speaker != nil {
			seg.Speaker = *utt.Speaker
		}
		if utt.Start != nil {
			seg.Start = float64(*utt.Start) / 1000.0 // ms to seconds
		}
		if utt.End != nil {
			seg.End = float64(*utt.End) / 1000.0
		}
		if seg.Text == "" {
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}
