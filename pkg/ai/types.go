package ai

import (
	"context"
	"encoding/json"
	"errors"
)

// Provider names, matching the transcription mode values
const (
	ProviderGoogleSTT  = "v1"
	ProviderAssemblyAI = "v2"
)

// Granularity tells whether a provider returns words or whole segments
type Granularity string

const (
	GranularityWord      Granularity = "word"
	GranularityUtterance Granularity = "utterance"
)

// ErrEmptyCompletion is returned when the chat provider answers with no choices
var ErrEmptyCompletion = errors.New("empty completion from chat provider")

// Word is a single recognized token with its diarization speaker
type Word struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Segment is a provider-level utterance
type Segment struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Transcription is the normalized output of one provider call.
// Exactly one of Words or Segments is populated, depending on Granularity.
type Transcription struct {
	Provider    string          `json:"provider"`
	Granularity Granularity     `json:"granularity"`
	Words       []Word          `json:"words,omitempty"`
	Segments    []Segment       `json:"segments,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// TranscribeOptions are the provider-agnostic request parameters
type TranscribeOptions struct {
	KeywordHints     []string
	SpeakersExpected int
}

// Transcriber converts audio bytes into a Transcription
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, opts TranscribeOptions) (*Transcription, error)
}

// ChatRequest is a single-turn completion request
type ChatRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
	JSONMode    bool
}

// ChatCompleter sends a prompt to a conversational completion endpoint
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}
