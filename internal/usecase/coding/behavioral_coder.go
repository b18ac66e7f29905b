package coding

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
	pkgai "github.com/johnquangdev/playcoach/pkg/ai"
	"github.com/johnquangdev/playcoach/pkg/jobcontext"
	"github.com/johnquangdev/playcoach/pkg/llmjson"
)

// BehavioralCoder assigns a behavioral code to every adult utterance
type BehavioralCoder interface {
	Code(ctx context.Context, utterances []entities.Utterance) (*CodingResult, error)
}

// CodedUtterance is the coder's verdict for one utterance index
type CodedUtterance struct {
	Index    int                   `json:"index"`
	Code     entities.BehaviorCode `json:"code"`
	Feedback string                `json:"feedback"`
}

// CodingResult maps utterance order index to its code. Missing lists adult
// indices the coder did not return a valid code for.
type CodingResult struct {
	Codes   map[int]CodedUtterance
	Missing []int
	Raw     string
}

type codeResponse struct {
	Codes []struct {
		Index    *int   `json:"index"`
		Code     string `json:"code"`
		Feedback string `json:"feedback"`
	} `json:"codes"`
}

func (r *codeResponse) Validate() error {
	if r.Codes == nil {
		return fmt.Errorf("codes array is missing")
	}
	return nil
}

// LLMBehavioralCoder codes utterances with a single completion over the whole session
type LLMBehavioralCoder struct {
	llm    pkgai.ChatCompleter
	logger *zap.Logger
}

// NewLLMBehavioralCoder creates a behavioral coder backed by a chat completer
func NewLLMBehavioralCoder(llm pkgai.ChatCompleter, logger *zap.Logger) *LLMBehavioralCoder {
	return &LLMBehavioralCoder{llm: llm, logger: logger}
}

// Code sends every adult and child utterance, in order and labelled with its
// role, and keeps only codes for adult indices. Adult indices left out of the
// response are reported as Missing rather than failing the call.
func (c *LLMBehavioralCoder) Code(ctx context.Context, utterances []entities.Utterance) (*CodingResult, error) {
	adult := make(map[int]bool)
	var sb strings.Builder
	for _, u := range utterances {
		if u.IsSilence() {
			continue
		}
		role := "UNKNOWN"
		if u.Role != nil {
			role = strings.ToUpper(string(*u.Role))
		}
		if u.IsAdult() {
			adult[u.Order] = true
		}
		fmt.Fprintf(&sb, "[%d] %s: %s\n", u.Order, role, u.Text)
	}
	if len(adult) == 0 {
		return nil, entities.ErrNoAdultSpeaker
	}

	raw, err := c.llm.Complete(ctx, pkgai.ChatRequest{
		System:    coderSystemPrompt,
		User:      sb.String(),
		MaxTokens: 8000,
		JSONMode:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to code utterances: %w", err)
	}

	resp, err := llmjson.Decode[codeResponse](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse behavioral codes: %w", err)
	}

	result := &CodingResult{Codes: make(map[int]CodedUtterance, len(adult)), Raw: raw}
	var invalid []string
	for _, entry := range resp.Codes {
		if entry.Index == nil || !adult[*entry.Index] {
			continue
		}
		if _, dup := result.Codes[*entry.Index]; dup {
			continue
		}
		code, ok := entities.ParseBehaviorCode(entry.Code)
		if !ok {
			invalid = append(invalid, fmt.Sprintf("%d:%s", *entry.Index, entry.Code))
			continue
		}
		result.Codes[*entry.Index] = CodedUtterance{
			Index:    *entry.Index,
			Code:     code,
			Feedback: strings.TrimSpace(entry.Feedback),
		}
	}

	for idx := range adult {
		if _, ok := result.Codes[idx]; !ok {
			result.Missing = append(result.Missing, idx)
		}
	}
	sort.Ints(result.Missing)

	if c.logger != nil {
		fields := append(jobcontext.Fields(ctx),
			zap.Int("adult_utterances", len(adult)),
			zap.Int("coded", len(result.Codes)),
		)
		if len(result.Missing) > 0 {
			c.logger.Warn("⚠️ Behavioral coder left adult utterances uncoded",
				append(fields, zap.Ints("missing_indices", result.Missing), zap.Strings("invalid_codes", invalid))...)
		} else {
			c.logger.Info("✅ Utterances coded", fields...)
		}
	}
	return result, nil
}

// ApplyCoding writes codes and feedback back onto the adult utterances.
// Uncoded adult utterances and all non-adult utterances are left without a tag.
func ApplyCoding(utterances []entities.Utterance, result *CodingResult) {
	for i := range utterances {
		u := &utterances[i]
		u.ClearCoding()
		if !u.IsAdult() || result == nil {
			continue
		}
		if coded, ok := result.Codes[u.Order]; ok {
			u.ApplyCode(coded.Code, coded.Feedback)
		}
	}
}
