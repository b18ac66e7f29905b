package feedback

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
	pkgai "github.com/johnquangdev/playcoach/pkg/ai"
	"github.com/johnquangdev/playcoach/pkg/jobcontext"
	"github.com/johnquangdev/playcoach/pkg/llmjson"
)

// Stage names used as keys of Output.Errors
const (
	StageSessionNarrative = "session_narrative"
	StageRevision         = "revision"
	StageDevelopmental    = "developmental_narrative"
	StageCoaching         = "coaching_narrative"
	StageCoachingCards    = "coaching_cards"
)

// Input is everything the synthesizer needs from the earlier stages
type Input struct {
	Mode            entities.SessionMode
	Utterances      []entities.Utterance
	Counts          entities.TagCounts
	Score           int
	MaxSilenceSlots int
	EnableProfiling bool
}

// SessionNarrative is the short report shown at the top of a session
type SessionNarrative struct {
	TopMoment    *entities.TopMoment
	Feedback     string
	Reminder     string
	ChildInsight string
}

// Output collects every branch outcome. A failed branch leaves its field nil
// and records its error; it never affects its siblings.
type Output struct {
	Session         *SessionNarrative
	Revisions       []entities.FeedbackRevision
	SilenceCoaching []entities.SilenceCoaching
	Developmental   *string
	Coaching        *entities.CoachingNarrative
	Errors          map[string]error
}

// Synthesizer produces the narrative parts of an analysis
type Synthesizer struct {
	llm    pkgai.ChatCompleter
	logger *zap.Logger
}

// NewSynthesizer creates a feedback synthesizer
func NewSynthesizer(llm pkgai.ChatCompleter, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{llm: llm, logger: logger}
}

// Synthesize dispatches the session narrative, the feedback revision and,
// when profiling is enabled, the developmental and coaching narratives
// concurrently, then waits for all of them. It never returns an error.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) *Output {
	out := &Output{Errors: make(map[string]error)}
	transcript := renderTranscript(in.Utterances)
	summary := renderSummary(in)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(stage string, err error) {
		mu.Lock()
		out.Errors[stage] = err
		mu.Unlock()
	}
	branch := func(stage string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					record(stage, fmt.Errorf("panic recovered: %v", p))
				}
			}()
			if err := fn(); err != nil {
				record(stage, err)
			}
		}()
	}

	branch(StageSessionNarrative, func() error {
		narrative, err := s.sessionNarrative(ctx, in, summary+transcript)
		if err != nil {
			return err
		}
		out.Session = narrative
		return nil
	})

	branch(StageRevision, func() error {
		revisions, coaching, err := s.revise(ctx, in, transcript)
		if err != nil {
			return err
		}
		out.Revisions, out.SilenceCoaching = revisions, coaching
		return nil
	})

	if in.EnableProfiling {
		branch(StageDevelopmental, func() error {
			text, err := s.freeText(ctx, developmentalSystemPrompt, summary+transcript)
			if err != nil {
				return err
			}
			out.Developmental = &text
			return nil
		})

		branch(StageCoaching, func() error {
			text, err := s.freeText(ctx, coachingSystemPrompt, summary+transcript)
			if err != nil {
				return err
			}
			narrative := &entities.CoachingNarrative{Raw: text}
			cards, err := s.formatCards(ctx, text)
			if err != nil {
				record(StageCoachingCards, err)
			} else {
				narrative.Cards = cards
				narrative.Formatted = true
			}
			out.Coaching = narrative
			return nil
		})
	}

	wg.Wait()

	if s.logger != nil {
		for stage, err := range out.Errors {
			s.logger.Warn("⚠️ Feedback stage degraded",
				append(jobcontext.Fields(ctx), zap.String("stage", stage), zap.Error(err))...)
		}
		s.logger.Info("✅ Feedback synthesized",
			append(jobcontext.Fields(ctx),
				zap.Bool("session_narrative", out.Session != nil),
				zap.Int("revisions", len(out.Revisions)),
				zap.Int("silence_coaching", len(out.SilenceCoaching)),
				zap.Bool("developmental", out.Developmental != nil),
				zap.Bool("coaching", out.Coaching != nil))...,
		)
	}
	return out
}

// Apply copies the synthesized parts into an analysis result
func (o *Output) Apply(result *entities.AnalysisResult) {
	if o.Session != nil {
		result.TopMoment = o.Session.TopMoment
		result.Feedback = o.Session.Feedback
		result.Reminder = o.Session.Reminder
		result.ChildInsight = o.Session.ChildInsight
	}
	result.Revisions = o.Revisions
	result.SilenceCoaching = o.SilenceCoaching
	result.DevelopmentalNarrative = o.Developmental
	result.CoachingNarrative = o.Coaching
	if len(o.Errors) > 0 {
		result.StageErrors = make(map[string]string, len(o.Errors))
		for stage, err := range o.Errors {
			result.StageErrors[stage] = err.Error()
		}
	}
}

// ApplyRevisions replaces coder feedback with the revised text
func ApplyRevisions(utterances []entities.Utterance, revisions []entities.FeedbackRevision) {
	byIndex := make(map[int]string, len(revisions))
	for _, r := range revisions {
		byIndex[r.UtteranceIndex] = r.Feedback
	}
	for i := range utterances {
		if text, ok := byIndex[utterances[i].Order]; ok && utterances[i].Tag != nil {
			t := text
			utterances[i].Feedback = &t
		}
	}
}

type sessionResponse struct {
	TopMoment *struct {
		Quote          string `json:"quote"`
		UtteranceIndex *int   `json:"utterance_index"`
	} `json:"top_moment"`
	Feedback     string `json:"feedback"`
	Reminder     string `json:"reminder"`
	ChildInsight string `json:"child_insight"`
}

func (r *sessionResponse) Validate() error {
	if strings.TrimSpace(r.Feedback) == "" {
		return fmt.Errorf("feedback is required")
	}
	return nil
}

func (s *Synthesizer) sessionNarrative(ctx context.Context, in Input, prompt string) (*SessionNarrative, error) {
	raw, err := s.llm.Complete(ctx, pkgai.ChatRequest{
		System:    sessionSystemPrompt,
		User:      prompt,
		MaxTokens: 1000,
		JSONMode:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("session narrative call failed: %w", err)
	}
	resp, err := llmjson.Decode[sessionResponse](raw)
	if err != nil {
		return nil, err
	}

	narrative := &SessionNarrative{
		Feedback:     strings.TrimSpace(resp.Feedback),
		Reminder:     strings.TrimSpace(resp.Reminder),
		ChildInsight: strings.TrimSpace(resp.ChildInsight),
	}
	if resp.TopMoment != nil {
		narrative.TopMoment = resolveTopMoment(in.Utterances, resp.TopMoment.Quote, resp.TopMoment.UtteranceIndex)
	}
	return narrative, nil
}

// resolveTopMoment trusts the returned index only if it points at an adult
// utterance, otherwise it looks the quote up among adult utterances.
func resolveTopMoment(utterances []entities.Utterance, quote string, index *int) *entities.TopMoment {
	quote = strings.TrimSpace(quote)
	if index != nil {
		for i := range utterances {
			if utterances[i].Order == *index && utterances[i].IsAdult() {
				if quote == "" {
					quote = utterances[i].Text
				}
				return &entities.TopMoment{Quote: quote, UtteranceIndex: *index}
			}
		}
	}
	if quote == "" {
		return nil
	}
	needle := strings.ToLower(strings.Trim(quote, `"' `))
	for i := range utterances {
		u := &utterances[i]
		if u.IsAdult() && strings.Contains(strings.ToLower(u.Text), needle) {
			return &entities.TopMoment{Quote: quote, UtteranceIndex: u.Order}
		}
	}
	return nil
}

type revisionResponse struct {
	Revisions []struct {
		UtteranceIndex int    `json:"utterance_index"`
		Feedback       string `json:"feedback"`
	} `json:"revisions"`
	SilenceCoaching []struct {
		UtteranceIndex int    `json:"utterance_index"`
		Suggestion     string `json:"suggestion"`
	} `json:"silence_coaching"`
}

func (s *Synthesizer) revise(ctx context.Context, in Input, transcript string) ([]entities.FeedbackRevision, []entities.SilenceCoaching, error) {
	raw, err := s.llm.Complete(ctx, pkgai.ChatRequest{
		System:    fmt.Sprintf(revisionSystemPrompt, in.MaxSilenceSlots),
		User:      transcript,
		MaxTokens: 4000,
		JSONMode:  true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("revision call failed: %w", err)
	}
	resp, err := llmjson.Decode[revisionResponse](raw)
	if err != nil {
		return nil, nil, err
	}

	coded := make(map[int]bool)
	silent := make(map[int]bool)
	for i := range in.Utterances {
		u := &in.Utterances[i]
		switch {
		case u.IsSilence():
			silent[u.Order] = true
		case u.IsAdult() && u.Tag != nil:
			coded[u.Order] = true
		}
	}

	var revisions []entities.FeedbackRevision
	for _, r := range resp.Revisions {
		text := strings.TrimSpace(r.Feedback)
		if coded[r.UtteranceIndex] && text != "" {
			revisions = append(revisions, entities.FeedbackRevision{UtteranceIndex: r.UtteranceIndex, Feedback: text})
			delete(coded, r.UtteranceIndex)
		}
	}

	var coaching []entities.SilenceCoaching
	for _, c := range resp.SilenceCoaching {
		if len(coaching) >= in.MaxSilenceSlots {
			break
		}
		text := strings.TrimSpace(c.Suggestion)
		if silent[c.UtteranceIndex] && text != "" {
			coaching = append(coaching, entities.SilenceCoaching{UtteranceIndex: c.UtteranceIndex, Suggestion: text})
			delete(silent, c.UtteranceIndex)
		}
	}
	return revisions, coaching, nil
}

func (s *Synthesizer) freeText(ctx context.Context, system, prompt string) (string, error) {
	raw, err := s.llm.Complete(ctx, pkgai.ChatRequest{
		System:    system,
		User:      prompt,
		MaxTokens: 2000,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", pkgai.ErrEmptyCompletion
	}
	return text, nil
}

type cardsResponse struct {
	Cards []entities.CoachingCard `json:"cards"`
}

func (r *cardsResponse) Validate() error {
	if len(r.Cards) == 0 {
		return fmt.Errorf("no cards returned")
	}
	for i, c := range r.Cards {
		if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.Body) == "" {
			return fmt.Errorf("card %d is missing title or body", i)
		}
	}
	return nil
}

func (s *Synthesizer) formatCards(ctx context.Context, narrative string) ([]entities.CoachingCard, error) {
	raw, err := s.llm.Complete(ctx, pkgai.ChatRequest{
		System:    cardsSystemPrompt,
		User:      narrative,
		MaxTokens: 1500,
		JSONMode:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("coaching card call failed: %w", err)
	}
	resp, err := llmjson.Decode[cardsResponse](raw)
	if err != nil {
		return nil, err
	}
	return resp.Cards, nil
}

func renderTranscript(utterances []entities.Utterance) string {
	var sb strings.Builder
	for _, u := range utterances {
		switch {
		case u.IsSilence():
			fmt.Fprintf(&sb, "[%d] SILENCE (%.1fs)\n", u.Order, u.Duration())
		case u.IsAdult():
			tag := "uncoded"
			if u.Tag != nil {
				tag = string(*u.Tag)
			}
			fb := ""
			if u.Feedback != nil {
				fb = " | feedback: " + *u.Feedback
			}
			fmt.Fprintf(&sb, "[%d] PARENT (%s): %s%s\n", u.Order, tag, u.Text, fb)
		default:
			fmt.Fprintf(&sb, "[%d] CHILD: %s\n", u.Order, u.Text)
		}
	}
	return sb.String()
}

func renderSummary(in Input) string {
	c := in.Counts
	return fmt.Sprintf("Mode: %s\nScore: %d/100\nPraise: %d (labeled %d)\nReflections: %d\nDescriptions: %d\nCommands: %d\nQuestions: %d\nCriticism: %d\n\n",
		in.Mode, in.Score, c.Praise, c.LabeledPraise, c.Reflection, c.BehaviorDescription, c.Command, c.Questions, c.NegativeTalk)
}
