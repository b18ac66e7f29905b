package entities

import "testing"

func adultUtt(order int, code *BehaviorCode) Utterance {
	role := SpeakerRoleAdult
	u := Utterance{Speaker: "A", Text: "x", Order: order, Role: &role}
	if code != nil {
		u.ApplyCode(*code, "")
	}
	return u
}

func codePtr(c BehaviorCode) *BehaviorCode { return &c }

func TestParseBehaviorCode(t *testing.T) {
	if code, ok := ParseBehaviorCode(" lp "); !ok || code != CodeLabeledPraise {
		t.Fatalf("expected LP, got %q %v", code, ok)
	}
	if _, ok := ParseBehaviorCode("XX"); ok {
		t.Fatalf("unknown code accepted")
	}
	if len(AllBehaviorCodes) != 11 {
		t.Fatalf("expected 11 codes, got %d", len(AllBehaviorCodes))
	}
	for _, c := range AllBehaviorCodes {
		if c.Simplified() == "" || c.Class() == "" {
			t.Fatalf("code %s missing metadata", c)
		}
	}
}

func TestFoldTagCounts(t *testing.T) {
	child := SpeakerRoleChild
	invalid := BehaviorCode("ZZ")

	utts := []Utterance{
		adultUtt(0, codePtr(CodeLabeledPraise)),
		adultUtt(1, codePtr(CodeUnlabeledPraise)),
		adultUtt(2, codePtr(CodeDirectCommand)),
		adultUtt(3, codePtr(CodeQuestion)),
		adultUtt(4, codePtr(CodeNeutralTalk)),
		adultUtt(5, nil),
		{Speaker: "B", Text: "look!", Order: 6, Role: &child},
		{Speaker: SilenceSpeaker, Order: 7, StartTime: 10, EndTime: 16},
		adultUtt(8, nil),
	}
	utts[8].Tag = &invalid

	counts := FoldTagCounts(utts)

	if counts.AdultUtterances != 7 {
		t.Fatalf("expected 7 adult utterances, got %d", counts.AdultUtterances)
	}
	if counts.Uncoded != 2 {
		t.Fatalf("expected 2 uncoded, got %d", counts.Uncoded)
	}
	if counts.LabeledPraise != 1 || counts.Praise != 2 {
		t.Fatalf("unexpected praise counts: %+v", counts)
	}
	if counts.Desirable != 2 || counts.Undesirable != 2 {
		t.Fatalf("expected 2 desirable and 2 undesirable, got %+v", counts)
	}
	if counts.Command != 1 || counts.Questions != 1 || counts.NeutralTalk != 1 {
		t.Fatalf("unexpected composites: %+v", counts)
	}

	sum := counts.Add(counts)
	if sum.Praise != 4 || sum.Uncoded != 4 {
		t.Fatalf("Add did not sum fields: %+v", sum)
	}
}
