package entities

import "strings"

// BehaviorCode is a category from the closed behavioral coding vocabulary
type BehaviorCode string

const (
	CodeLabeledPraise       BehaviorCode = "LP"
	CodeUnlabeledPraise     BehaviorCode = "UP"
	CodeBehaviorDescription BehaviorCode = "BD"
	CodeReflection          BehaviorCode = "RF"
	CodeNeutralTalk         BehaviorCode = "TA"
	CodeAcknowledgment      BehaviorCode = "AK"
	CodeDirectCommand       BehaviorCode = "DC"
	CodeIndirectCommand     BehaviorCode = "IC"
	CodeQuestion            BehaviorCode = "QU"
	CodeReflectiveQuestion  BehaviorCode = "RQ"
	CodeNegativeTalk        BehaviorCode = "NTA"
)

// BehaviorClass groups codes by whether the parent should do more or less of them
type BehaviorClass string

const (
	BehaviorClassDesirable   BehaviorClass = "desirable"
	BehaviorClassNeutral     BehaviorClass = "neutral"
	BehaviorClassUndesirable BehaviorClass = "undesirable"
)

// Simplified tags shown to parents
const (
	SimplifiedPraise    = "praise"
	SimplifiedDescribe  = "describe"
	SimplifiedReflect   = "reflect"
	SimplifiedNeutral   = "neutral"
	SimplifiedCommand   = "command"
	SimplifiedQuestion  = "question"
	SimplifiedCriticism = "criticism"
)

type codeInfo struct {
	class      BehaviorClass
	simplified string
}

var codeTable = map[BehaviorCode]codeInfo{
	CodeLabeledPraise:       {BehaviorClassDesirable, SimplifiedPraise},
	CodeUnlabeledPraise:     {BehaviorClassDesirable, SimplifiedPraise},
	CodeBehaviorDescription: {BehaviorClassDesirable, SimplifiedDescribe},
	CodeReflection:          {BehaviorClassDesirable, SimplifiedReflect},
	CodeNeutralTalk:         {BehaviorClassNeutral, SimplifiedNeutral},
	CodeAcknowledgment:      {BehaviorClassNeutral, SimplifiedNeutral},
	CodeDirectCommand:       {BehaviorClassUndesirable, SimplifiedCommand},
	CodeIndirectCommand:     {BehaviorClassUndesirable, SimplifiedCommand},
	CodeQuestion:            {BehaviorClassUndesirable, SimplifiedQuestion},
	CodeReflectiveQuestion:  {BehaviorClassUndesirable, SimplifiedQuestion},
	CodeNegativeTalk:        {BehaviorClassUndesirable, SimplifiedCriticism},
}

// AllBehaviorCodes lists the vocabulary in a stable order
var AllBehaviorCodes = []BehaviorCode{
	CodeLabeledPraise, CodeUnlabeledPraise, CodeBehaviorDescription, CodeReflection,
	CodeNeutralTalk, CodeAcknowledgment,
	CodeDirectCommand, CodeIndirectCommand, CodeQuestion, CodeReflectiveQuestion, CodeNegativeTalk,
}

// ParseBehaviorCode normalizes a code returned by the coder ("lp", " DC ") and
// reports whether it belongs to the vocabulary.
func ParseBehaviorCode(s string) (BehaviorCode, bool) {
	code := BehaviorCode(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := codeTable[code]
	return code, ok
}

// Class returns the desirable/neutral/undesirable grouping
func (c BehaviorCode) Class() BehaviorClass {
	return codeTable[c].class
}

// Simplified returns the parent-facing tag
func (c BehaviorCode) Simplified() string {
	return codeTable[c].simplified
}

// TagCounts is the fixed-schema tally of behavioral codes for one recording.
// It is always recomputed from utterances with FoldTagCounts.
type TagCounts struct {
	LabeledPraise       int `json:"labeled_praise"`
	UnlabeledPraise     int `json:"unlabeled_praise"`
	BehaviorDescription int `json:"behavior_description"`
	Reflection          int `json:"reflection"`
	NeutralTalk         int `json:"neutral_talk"`
	Acknowledgment      int `json:"acknowledgment"`
	DirectCommand       int `json:"direct_command"`
	IndirectCommand     int `json:"indirect_command"`
	Question            int `json:"question"`
	ReflectiveQuestion  int `json:"reflective_question"`
	NegativeTalk        int `json:"negative_talk"`

	// composites
	Praise      int `json:"praise"`
	Command     int `json:"command"`
	Questions   int `json:"questions"`
	Desirable   int `json:"desirable"`
	Undesirable int `json:"undesirable"`

	Uncoded         int `json:"uncoded"`
	AdultUtterances int `json:"adult_utterances"`
}

// Get returns the raw count for a single code
func (t TagCounts) Get(code BehaviorCode) int {
	switch code {
	case CodeLabeledPraise:
		return t.LabeledPraise
	case CodeUnlabeledPraise:
		return t.UnlabeledPraise
	case CodeBehaviorDescription:
		return t.BehaviorDescription
	case CodeReflection:
		return t.Reflection
	case CodeNeutralTalk:
		return t.NeutralTalk
	case CodeAcknowledgment:
		return t.Acknowledgment
	case CodeDirectCommand:
		return t.DirectCommand
	case CodeIndirectCommand:
		return t.IndirectCommand
	case CodeQuestion:
		return t.Question
	case CodeReflectiveQuestion:
		return t.ReflectiveQuestion
	case CodeNegativeTalk:
		return t.NegativeTalk
	}
	return 0
}

func (t *TagCounts) increment(code BehaviorCode) {
	switch code {
	case CodeLabeledPraise:
		t.LabeledPraise++
	case CodeUnlabeledPraise:
		t.UnlabeledPraise++
	case CodeBehaviorDescription:
		t.BehaviorDescription++
	case CodeReflection:
		t.Reflection++
	case CodeNeutralTalk:
		t.NeutralTalk++
	case CodeAcknowledgment:
		t.Acknowledgment++
	case CodeDirectCommand:
		t.DirectCommand++
	case CodeIndirectCommand:
		t.IndirectCommand++
	case CodeQuestion:
		t.Question++
	case CodeReflectiveQuestion:
		t.ReflectiveQuestion++
	case CodeNegativeTalk:
		t.NegativeTalk++
	default:
		return
	}

	switch code.Simplified() {
	case SimplifiedPraise:
		t.Praise++
	case SimplifiedCommand:
		t.Command++
	case SimplifiedQuestion:
		t.Questions++
	}

	switch code.Class() {
	case BehaviorClassDesirable:
		t.Desirable++
	case BehaviorClassUndesirable:
		t.Undesirable++
	}
}

// Add sums two tallies field by field
func (t TagCounts) Add(o TagCounts) TagCounts {
	return TagCounts{
		LabeledPraise:       t.LabeledPraise + o.LabeledPraise,
		UnlabeledPraise:     t.UnlabeledPraise + o.UnlabeledPraise,
		BehaviorDescription: t.BehaviorDescription + o.BehaviorDescription,
		Reflection:          t.Reflection + o.Reflection,
		NeutralTalk:         t.NeutralTalk + o.NeutralTalk,
		Acknowledgment:      t.Acknowledgment + o.Acknowledgment,
		DirectCommand:       t.DirectCommand + o.DirectCommand,
		IndirectCommand:     t.IndirectCommand + o.IndirectCommand,
		Question:            t.Question + o.Question,
		ReflectiveQuestion:  t.ReflectiveQuestion + o.ReflectiveQuestion,
		NegativeTalk:        t.NegativeTalk + o.NegativeTalk,
		Praise:              t.Praise + o.Praise,
		Command:             t.Command + o.Command,
		Questions:           t.Questions + o.Questions,
		Desirable:           t.Desirable + o.Desirable,
		Undesirable:         t.Undesirable + o.Undesirable,
		Uncoded:             t.Uncoded + o.Uncoded,
		AdultUtterances:     t.AdultUtterances + o.AdultUtterances,
	}
}

// FoldTagCounts derives the tally from coded utterances. Only adult,
// non-silence utterances are counted; an adult utterance without a valid
// tag counts as uncoded and toward neither class.
func FoldTagCounts(utterances []Utterance) TagCounts {
	var counts TagCounts
	for i := range utterances {
		u := &utterances[i]
		if u.IsSilence() || !u.IsAdult() {
			continue
		}
		counts.AdultUtterances++
		if u.Tag == nil {
			counts.Uncoded++
			continue
		}
		if _, ok := codeTable[*u.Tag]; !ok {
			counts.Uncoded++
			continue
		}
		counts.increment(*u.Tag)
	}
	return counts
}
