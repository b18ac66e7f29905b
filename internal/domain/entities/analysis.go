package entities

// AnalysisResult is the report embedded in a COMPLETED recording.
// Optional sections are nil when their generation stage degraded.
type AnalysisResult struct {
	TagCounts       TagCounts `json:"tag_counts"`
	OverallScore    int       `json:"overall_score"`
	ScoringStrategy string    `json:"scoring_strategy"`

	TopMoment    *TopMoment `json:"top_moment,omitempty"`
	Feedback     string     `json:"feedback"`
	Reminder     string     `json:"reminder"`
	ChildInsight string     `json:"child_insight"`

	Revisions       []FeedbackRevision `json:"revisions,omitempty"`
	SilenceCoaching []SilenceCoaching  `json:"silence_coaching,omitempty"`

	DevelopmentalNarrative *string            `json:"developmental_narrative"`
	CoachingNarrative      *CoachingNarrative `json:"coaching_narrative"`

	Diarization    *DiarizationReview `json:"diarization,omitempty"`
	UncodedIndices []int              `json:"uncoded_indices,omitempty"`
	// StageErrors lists the feedback stages that degraded, keyed by stage name
	StageErrors map[string]string `json:"stage_errors,omitempty"`
}

// TopMoment is the single best parent utterance of the session
type TopMoment struct {
	Quote          string `json:"quote"`
	UtteranceIndex int    `json:"utterance_index"`
}

// FeedbackRevision replaces the coder's feedback on one utterance
type FeedbackRevision struct {
	UtteranceIndex int    `json:"utterance_index"`
	Feedback       string `json:"feedback"`
}

// SilenceCoaching is a suggestion for what the parent could have said during a SilentSlot
type SilenceCoaching struct {
	UtteranceIndex int    `json:"utterance_index"`
	Suggestion     string `json:"suggestion"`
}

// CoachingNarrative holds the coaching cards, or the raw narrative when
// the card formatting call failed.
type CoachingNarrative struct {
	Cards     []CoachingCard `json:"cards,omitempty"`
	Raw       string         `json:"raw"`
	Formatted bool           `json:"formatted"`
}

// CoachingCard is one structured coaching tip
type CoachingCard struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Action string `json:"action,omitempty"`
}

// DiarizationReview is the advisory two-pass divergence signal
type DiarizationReview struct {
	Mode           string  `json:"mode"`
	NeedsReview    bool    `json:"needs_review"`
	Reason         string  `json:"reason,omitempty"`
	ChangedRatio   float64 `json:"changed_ratio"`
	SpeakersBefore int     `json:"speakers_before"`
	SpeakersAfter  int     `json:"speakers_after"`
}
