package scoring

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

// Strategy maps a session's tag counts to a 0-100 score. Implementations
// must be pure: identical counts and mode always give the same score.
type Strategy interface {
	Name() string
	Score(counts entities.TagCounts, mode entities.SessionMode) int
}

// CDIWeights scores child-directed sessions on "do" skills and on avoiding "don't" skills
type CDIWeights struct {
	PraisePoints      float64 `yaml:"praise_points"`
	ReflectionPoints  float64 `yaml:"reflection_points"`
	DescriptionPoints float64 `yaml:"description_points"`
	SkillTarget       int     `yaml:"skill_target"`

	// unlabeled praise counts for this fraction of a labeled one
	UnlabeledPraiseFactor float64 `yaml:"unlabeled_praise_factor"`
	AvoidPoints           float64 `yaml:"avoid_points"`
	AvoidAllowance        int     `yaml:"avoid_allowance"`
	AvoidPenalty          float64 `yaml:"avoid_penalty"`
}

// PDIWeights scores parent-directed sessions on effective commands
type PDIWeights struct {
	DirectCommandPoints float64 `yaml:"direct_command_points"`
	PraisePoints        float64 `yaml:"praise_points"`
	PraiseTarget        int     `yaml:"praise_target"`
	CriticismPoints     float64 `yaml:"criticism_points"`
	CriticismLimit      int     `yaml:"criticism_limit"`
}

// Weights is the full weighting, loadable from YAML
type Weights struct {
	CDI CDIWeights `yaml:"cdi"`
	PDI PDIWeights `yaml:"pdi"`
}

// DefaultWeights returns the built-in weighting
func DefaultWeights() Weights {
	return Weights{
		CDI: CDIWeights{
			PraisePoints:          25,
			ReflectionPoints:      20,
			DescriptionPoints:     25,
			SkillTarget:           10,
			UnlabeledPraiseFactor: 0.5,
			AvoidPoints:           30,
			AvoidAllowance:        3,
			AvoidPenalty:          3,
		},
		PDI: PDIWeights{
			DirectCommandPoints: 60,
			PraisePoints:        20,
			PraiseTarget:        5,
			CriticismPoints:     20,
			CriticismLimit:      5,
		},
	}
}

// Validate rejects weightings that cannot produce a meaningful score
func (w Weights) Validate() error {
	if w.CDI.SkillTarget <= 0 || w.PDI.PraiseTarget <= 0 || w.PDI.CriticismLimit <= 0 {
		return fmt.Errorf("skill_target, praise_target and criticism_limit must be positive")
	}
	for name, v := range map[string]float64{
		"cdi.praise_points":           w.CDI.PraisePoints,
		"cdi.reflection_points":       w.CDI.ReflectionPoints,
		"cdi.description_points":      w.CDI.DescriptionPoints,
		"cdi.avoid_points":            w.CDI.AvoidPoints,
		"cdi.avoid_penalty":           w.CDI.AvoidPenalty,
		"pdi.direct_command_points":   w.PDI.DirectCommandPoints,
		"pdi.praise_points":           w.PDI.PraisePoints,
		"pdi.criticism_points":        w.PDI.CriticismPoints,
		"cdi.unlabeled_praise_factor": w.CDI.UnlabeledPraiseFactor,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// LoadWeights reads a YAML weighting. Keys left out keep their default value.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()
	data, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("failed to read scoring weights: %w", err)
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("failed to parse scoring weights: %w", err)
	}
	if err := w.Validate(); err != nil {
		return w, fmt.Errorf("invalid scoring weights: %w", err)
	}
	return w, nil
}

// WeightedScorer is the default mastery-based Strategy
type WeightedScorer struct {
	weights Weights
}

// NewWeightedScorer creates a scorer with the given weights
func NewWeightedScorer(w Weights) *WeightedScorer {
	return &WeightedScorer{weights: w}
}

// Name identifies the strategy in persisted results
func (s *WeightedScorer) Name() string {
	return "weighted-mastery-v1"
}

// Score computes the session score.
//
// CDI: each "do" skill earns its points in proportion to progress toward
// SkillTarget (labeled praise plus a fraction of unlabeled praise, reflections,
// behavior descriptions). AvoidPoints are kept in full while commands,
// questions and criticism stay within AvoidAllowance, and lose AvoidPenalty
// for each one beyond it.
//
// PDI: DirectCommandPoints scale with the share of commands given directly,
// praise earns up to PraisePoints at PraiseTarget labeled praises, and
// CriticismPoints shrink linearly to zero at CriticismLimit.
func (s *WeightedScorer) Score(counts entities.TagCounts, mode entities.SessionMode) int {
	var total float64
	switch mode {
	case entities.SessionModePDI:
		total = s.scorePDI(counts)
	default:
		total = s.scoreCDI(counts)
	}
	return clamp(int(math.Round(total)))
}

func (s *WeightedScorer) scoreCDI(c entities.TagCounts) float64 {
	w := s.weights.CDI
	praise := float64(c.LabeledPraise) + w.UnlabeledPraiseFactor*float64(c.UnlabeledPraise)

	total := w.PraisePoints*progress(praise, w.SkillTarget) +
		w.ReflectionPoints*progress(float64(c.Reflection), w.SkillTarget) +
		w.DescriptionPoints*progress(float64(c.BehaviorDescription), w.SkillTarget)

	avoid := c.DirectCommand + c.IndirectCommand + c.Question + c.ReflectiveQuestion + c.NegativeTalk
	avoidScore := w.AvoidPoints
	if extra := avoid - w.AvoidAllowance; extra > 0 {
		avoidScore -= float64(extra) * w.AvoidPenalty
	}
	return total + math.Max(avoidScore, 0)
}

func (s *WeightedScorer) scorePDI(c entities.TagCounts) float64 {
	w := s.weights.PDI
	var total float64
	if commands := c.DirectCommand + c.IndirectCommand; commands > 0 {
		total += w.DirectCommandPoints * float64(c.DirectCommand) / float64(commands)
	}
	total += w.PraisePoints * progress(float64(c.LabeledPraise), w.PraiseTarget)
	total += w.CriticismPoints * math.Max(0, 1-float64(c.NegativeTalk)/float64(w.CriticismLimit))
	return total
}

func progress(count float64, target int) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(count, float64(target)) / float64(target)
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
