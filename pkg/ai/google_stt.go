package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/johnquangdev/playcoach/pkg/config"
)

const googleCloudScope = "https://www.googleapis.com/auth/cloud-platform"

var errOperationPending = errors.New("recognition operation not done")

// GoogleSTTTranscriber is the diarization-quality provider. It returns
// word-level tokens tagged with speakers.
type GoogleSTTTranscriber struct {
	endpoint     string
	apiKey       string
	languageCode string
	sampleRate   int
	encoding     string
	httpClient   *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *zap.Logger
}

// NewGoogleSTTTranscriber creates a Google Speech-to-Text transcriber.
// cfg.Credentials can be:
//   - An API key (starts with "AIza")
//   - A JSON string containing service account credentials
//   - A path to a service account key file
//   - Empty, to use application default credentials
func NewGoogleSTTTranscriber(ctx context.Context, cfg config.GoogleSTTConfig, logger *zap.Logger) (*GoogleSTTTranscriber, error) {
	t := &GoogleSTTTranscriber{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		languageCode: cfg.LanguageCode,
		sampleRate:   cfg.SampleRate,
		encoding:     cfg.Encoding,
		pollInterval: 2 * time.Second,
		pollTimeout:  15 * time.Minute,
		logger:       logger,
	}
	if t.endpoint == "" {
		t.endpoint = "https://speech.googleapis.com/v1p1beta1"
	}

	creds := strings.TrimSpace(cfg.Credentials)
	switch {
	case strings.HasPrefix(creds, "AIza"):
		t.apiKey = creds
		t.httpClient = &http.Client{Timeout: 90 * time.Second}
	case creds == "":
		found, err := google.FindDefaultCredentials(ctx, googleCloudScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w", err)
		}
		t.httpClient = oauth2.NewClient(ctx, found.TokenSource)
	default:
		jsonData := []byte(creds)
		if !strings.HasPrefix(creds, "{") {
			data, err := os.ReadFile(creds)
			if err != nil {
				return nil, fmt.Errorf("failed to read key file '%s': %w", creds, err)
			}
			jsonData = data
		}
		parsed, err := google.CredentialsFromJSON(ctx, jsonData, googleCloudScope)
		if err != nil {
			return nil, fmt.Errorf("failed to create credentials from JSON: %w", err)
		}
		t.httpClient = oauth2.NewClient(ctx, parsed.TokenSource)
	}
	return t, nil
}

// Name returns the provider name
func (t *GoogleSTTTranscriber) Name() string {
	return ProviderGoogleSTT
}

type googleRecognizeRequest struct {
	Config googleRecognitionConfig `json:"config"`
	Audio  googleRecognitionAudio  `json:"audio"`
}

type googleRecognitionConfig struct {
	Encoding                   string                  `json:"encoding,omitempty"`
	SampleRateHertz            int                     `json:"sampleRateHertz,omitempty"`
	LanguageCode               string                  `json:"languageCode"`
	EnableAutomaticPunctuation bool                    `json:"enableAutomaticPunctuation"`
	EnableWordTimeOffsets      bool                    `json:"enableWordTimeOffsets"`
	DiarizationConfig          googleDiarizationConfig `json:"diarizationConfig"`
	SpeechContexts             []googleSpeechContext   `json:"speechContexts,omitempty"`
	Model                      string                  `json:"model,omitempty"`
}

type googleDiarizationConfig struct {
	EnableSpeakerDiarization bool `json:"enableSpeakerDiarization"`
	MinSpeakerCount          int  `json:"minSpeakerCount,omitempty"`
	MaxSpeakerCount          int  `json:"maxSpeakerCount,omitempty"`
}

type googleSpeechContext struct {
	Phrases []string `json:"phrases"`
}

type googleRecognitionAudio struct {
	Content string `json:"content"` // Base64 encoded
}

type googleOperation struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Error    *googleAPIError    `json:"error,omitempty"`
	Response *googleRecognition `json:"response,omitempty"`
}

type googleAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type googleRecognition struct {
	Results []struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
			Words      []struct {
				StartTime  string `json:"startTime"`
				EndTime    string `json:"endTime"`
				Word       string `json:"word"`
				SpeakerTag int    `json:"speakerTag"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Transcribe submits a long-running recognition and polls it to completion
func (t *GoogleSTTTranscriber) Transcribe(ctx context.Context, audio []byte, opts TranscribeOptions) (*Transcription, error) {
	maxSpeakers := opts.SpeakersExpected
	if maxSpeakers < 2 {
		maxSpeakers = 3
	}
	reqBody := googleRecognizeRequest{
		Config: googleRecognitionConfig{
			Encoding:                   t.encoding,
			SampleRateHertz:            t.sampleRate,
			LanguageCode:               t.languageCode,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
			DiarizationConfig: googleDiarizationConfig{
				EnableSpeakerDiarization: true,
				MinSpeakerCount:          2,
				MaxSpeakerCount:          maxSpeakers,
			},
			Model: "video",
		},
		Audio: googleRecognitionAudio{Content: base64.StdEncoding.EncodeToString(audio)},
	}
	if len(opts.KeywordHints) > 0 {
		reqBody.Config.SpeechContexts = []googleSpeechContext{{Phrases: opts.KeywordHints}}
	}

	if t.logger != nil {
		t.logger.Info("🎙️ Starting Google STT recognition",
			zap.Int("audio_bytes", len(audio)),
			zap.Int("max_speakers", maxSpeakers),
		)
	}

	var op googleOperation
	if err := t.do(ctx, http.MethodPost, t.url("/speech:longrunningrecognize"), reqBody, &op); err != nil {
		return nil, fmt.Errorf("google stt submit failed: %w", err)
	}
	if op.Name == "" {
		return nil, fmt.Errorf("google stt returned no operation name")
	}

	final, raw, err := t.waitForOperation(ctx, op.Name)
	if err != nil {
		return nil, err
	}

	words, err := wordsFromRecognition(final.Response)
	if err != nil {
		return nil, err
	}
	if t.logger != nil {
		t.logger.Info("✅ Google STT recognition completed",
			zap.String("operation", op.Name),
			zap.Int("word_count", len(words)),
		)
	}

	return &Transcription{
		Provider:    ProviderGoogleSTT,
		Granularity: GranularityWord,
		Words:       words,
		Raw:         raw,
	}, nil
}

func (t *GoogleSTTTranscriber) waitForOperation(ctx context.Context, name string) (*googleOperation, json.RawMessage, error) {
	var (
		final googleOperation
		raw   json.RawMessage
	)

	poll := func() error {
		var op json.RawMessage
		if err := t.do(ctx, http.MethodGet, t.url("/operations/"+name), nil, &op); err != nil {
			return err
		}
		var parsed googleOperation
		if err := json.Unmarshal(op, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode operation: %w", err))
		}
		if !parsed.Done {
			return errOperationPending
		}
		if parsed.Error != nil {
			return backoff.Permanent(fmt.Errorf("google stt operation failed (%d %s): %s",
				parsed.Error.Code, parsed.Error.Status, parsed.Error.Message))
		}
		final, raw = parsed, op
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = t.pollInterval
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = t.pollTimeout

	if err := backoff.Retry(poll, backoff.WithContext(bo, ctx)); err != nil {
		if errors.Is(err, errOperationPending) {
			return nil, nil, fmt.Errorf("google stt operation %s timed out", name)
		}
		return nil, nil, err
	}
	return &final, raw, nil
}

// wordsFromRecognition reads the diarized words. With diarization enabled the
// last result carries every word of the audio with its speaker tag.
func wordsFromRecognition(rec *googleRecognition) ([]Word, error) {
	if rec == nil || len(rec.Results) == 0 {
		return nil, nil
	}
	last := rec.Results[len(rec.Results)-1]
	if len(last.Alternatives) == 0 {
		return nil, nil
	}

	src := last.Alternatives[0].Words
	words := make([]Word, 0, len(src))
	for _, w := range src {
		start, err := parseGoogleDuration(w.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := parseGoogleDuration(w.EndTime)
		if err != nil {
			return nil, err
		}
		words = append(words, Word{
			Text:    w.Word,
			Start:   start,
			End:     end,
			Speaker: strconv.Itoa(w.SpeakerTag),
		})
	}
	return words, nil
}

// parseGoogleDuration parses protobuf JSON durations such as "1.500s"
func parseGoogleDuration(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return v, nil
}

func (t *GoogleSTTTranscriber) url(path string) string {
	u := t.endpoint + path
	if t.apiKey != "" {
		u += "?key=" + t.apiKey
	}
	return u
}

func (t *GoogleSTTTranscriber) do(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to marshal request: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		statusErr := fmt.Errorf("google stt returned status %d: %s", resp.StatusCode, truncateBody(data))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func truncateBody(b []byte) string {
	const max = 300
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
