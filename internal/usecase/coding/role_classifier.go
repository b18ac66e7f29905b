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

// RoleClassifier labels every speaker of a transcript as adult or child
type RoleClassifier interface {
	Classify(ctx context.Context, utterances []entities.Utterance) (*RoleAssignment, error)
}

// SpeakerRole is the classification of one speaker
type SpeakerRole struct {
	Speaker        string               `json:"speaker"`
	Role           entities.SpeakerRole `json:"role"`
	Confidence     float64              `json:"confidence"`
	UtteranceCount int                  `json:"utterance_count"`
}

// RoleAssignment is the classifier output. Adults are ranked by utterance
// volume; Primary is the most active adult.
type RoleAssignment struct {
	Speakers []SpeakerRole `json:"speakers"`
	Adults   []string      `json:"adults"`
	Primary  string        `json:"primary"`
	Raw      string        `json:"raw"`
}

// RoleMap flattens the assignment into speaker id -> role
func (a *RoleAssignment) RoleMap() map[string]entities.SpeakerRole {
	m := make(map[string]entities.SpeakerRole, len(a.Speakers))
	for _, s := range a.Speakers {
		m[s.Speaker] = s.Role
	}
	return m
}

// ApplyRoles writes the speaker roles onto every non-silence utterance
func ApplyRoles(utterances []entities.Utterance, roles map[string]entities.SpeakerRole) {
	for i := range utterances {
		u := &utterances[i]
		if u.IsSilence() {
			u.Role = nil
			continue
		}
		if role, ok := roles[u.Speaker]; ok {
			r := role
			u.Role = &r
		} else {
			u.Role = nil
		}
	}
}

type roleResponse struct {
	Speakers []struct {
		Speaker    string  `json:"speaker"`
		Role       string  `json:"role"`
		Confidence float64 `json:"confidence"`
	} `json:"speakers"`
}

func (r *roleResponse) Validate() error {
	if len(r.Speakers) == 0 {
		return fmt.Errorf("speakers must not be empty")
	}
	for _, s := range r.Speakers {
		switch strings.ToUpper(strings.TrimSpace(s.Role)) {
		case "ADULT", "CHILD":
		default:
			return fmt.Errorf("speaker %q has unknown role %q", s.Speaker, s.Role)
		}
	}
	return nil
}

// LLMRoleClassifier classifies speakers with one holistic completion over the transcript
type LLMRoleClassifier struct {
	llm    pkgai.ChatCompleter
	logger *zap.Logger
}

// NewLLMRoleClassifier creates a role classifier backed by a chat completer
func NewLLMRoleClassifier(llm pkgai.ChatCompleter, logger *zap.Logger) *LLMRoleClassifier {
	return &LLMRoleClassifier{llm: llm, logger: logger}
}

// Classify returns the role of each transcript speaker. It fails with
// entities.ErrNoAdultSpeaker when no adult can be identified.
func (c *LLMRoleClassifier) Classify(ctx context.Context, utterances []entities.Utterance) (*RoleAssignment, error) {
	counts := make(map[string]int)
	var sb strings.Builder
	for _, u := range utterances {
		if u.IsSilence() {
			continue
		}
		counts[u.Speaker]++
		fmt.Fprintf(&sb, "[%d] speaker %s: %s\n", u.Order, u.Speaker, u.Text)
	}
	if len(counts) == 0 {
		return nil, entities.ErrNoUtterances
	}

	raw, err := c.llm.Complete(ctx, pkgai.ChatRequest{
		System:    roleSystemPrompt,
		User:      sb.String(),
		MaxTokens: 1000,
		JSONMode:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to classify speaker roles: %w", err)
	}

	resp, err := llmjson.Decode[roleResponse](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse speaker roles: %w", err)
	}

	assignment := &RoleAssignment{Raw: raw}
	seen := make(map[string]bool)
	for _, s := range resp.Speakers {
		id := strings.TrimSpace(s.Speaker)
		if _, ok := counts[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true
		role := entities.SpeakerRoleChild
		if strings.EqualFold(strings.TrimSpace(s.Role), "ADULT") {
			role = entities.SpeakerRoleAdult
		}
		assignment.Speakers = append(assignment.Speakers, SpeakerRole{
			Speaker:        id,
			Role:           role,
			Confidence:     s.Confidence,
			UtteranceCount: counts[id],
		})
	}

	sort.SliceStable(assignment.Speakers, func(i, j int) bool {
		a, b := assignment.Speakers[i], assignment.Speakers[j]
		if a.UtteranceCount != b.UtteranceCount {
			return a.UtteranceCount > b.UtteranceCount
		}
		return a.Speaker < b.Speaker
	})
	for _, s := range assignment.Speakers {
		if s.Role == entities.SpeakerRoleAdult {
			assignment.Adults = append(assignment.Adults, s.Speaker)
		}
	}
	if len(assignment.Adults) == 0 {
		return nil, entities.ErrNoAdultSpeaker
	}
	assignment.Primary = assignment.Adults[0]

	for id := range counts {
		if !seen[id] && c.logger != nil {
			c.logger.Warn("⚠️ Speaker missing from role classification",
				append(jobcontext.Fields(ctx), zap.String("speaker", id))...)
		}
	}
	if c.logger != nil {
		c.logger.Info("✅ Speaker roles classified",
			append(jobcontext.Fields(ctx),
				zap.Strings("adults", assignment.Adults),
				zap.String("primary_adult", assignment.Primary),
				zap.Int("speaker_count", len(assignment.Speakers)))...,
		)
	}
	return assignment, nil
}
