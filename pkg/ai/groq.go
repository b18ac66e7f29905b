package ai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/pkg/config"
	"github.com/johnquangdev/playcoach/pkg/jobcontext"
)

// GroqClient sends chat completions to Groq's OpenAI-compatible endpoint
type GroqClient struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	maxRetries  uint64
	temperature float32
	retryDelay  time.Duration
	logger      *zap.Logger
}

// NewGroqClient creates a Groq client using values from the provided config.
// Pass a nil config to fall back to environment variables.
func NewGroqClient(cfg *config.GroqConfig, logger *zap.Logger) *GroqClient {
	c := config.GroqConfig{
		BaseURL:     "https://api.groq.com/openai/v1",
		Model:       "llama-3.3-70b-versatile",
		Timeout:     3 * time.Minute,
		MaxRetries:  2,
		Temperature: 0.3,
	}
	if cfg != nil {
		c = *cfg
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GROQ_API_KEY")
	}

	oc := openai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		oc.BaseURL = c.BaseURL
	}
	// per-call deadlines come from the request context
	oc.HTTPClient = &http.Client{}

	maxRetries := 0
	if c.MaxRetries > 0 {
		maxRetries = c.MaxRetries
	}

	return &GroqClient{
		client:      openai.NewClientWithConfig(oc),
		model:       c.Model,
		timeout:     c.Timeout,
		maxRetries:  uint64(maxRetries),
		temperature: float32(c.Temperature),
		retryDelay:  2 * time.Second,
		logger:      logger,
	}
}

// Complete runs one completion. Transient failures such as connection
// resets are retried a bounded number of times; everything else returns at once.
func (g *GroqClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	temperature := g.temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var content string
	attempt := 0
	call := func() error {
		attempt++
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		resp, err := g.client.CreateChatCompletion(callCtx, chatReq)
		if err != nil {
			if jobcontext.IsRetryableError(err) {
				if g.logger != nil {
					g.logger.Warn("⚠️ Transient chat completion error, retrying",
						append(jobcontext.Fields(ctx), zap.Int("call_attempt", attempt), zap.Error(err))...,
					)
				}
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(ErrEmptyCompletion)
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.retryDelay
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 0

	if err := backoff.Retry(call, backoff.WithContext(backoff.WithMaxRetries(bo, g.maxRetries), ctx)); err != nil {
		return "", fmt.Errorf("chat completion failed after %d call(s): %w", attempt, err)
	}
	return content, nil
}
