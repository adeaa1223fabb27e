package suggest

import (
	"strings"
	"testing"

	"github.com/ppiankov/tradeline/internal/model"
)

func TestSynthesize_Empty(t *testing.T) {
	reason, instruction := Synthesize(nil)
	if reason != "" || instruction != "" {
		t.Errorf("expected empty strings, got %q / %q", reason, instruction)
	}
	reason, instruction = Synthesize([]string{"  ", ""})
	if reason != "" || instruction != "" {
		t.Errorf("expected blank tags to synthesize nothing, got %q / %q", reason, instruction)
	}
}

func TestSynthesize_PrefixesAndSuffix(t *testing.T) {
	reason, instruction := Synthesize([]string{"Metro 2 Violation: X", "FCRA Violation: Y"})

	lines := strings.Split(reason, "\n")
	if lines[0] != "• Metro 2 Violation: X" {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if lines[1] != "• FCRA Violation: Y under FCRA § 623" {
		t.Errorf("unexpected second line %q", lines[1])
	}
	if !strings.HasSuffix(reason, DeletionRequest) {
		t.Error("expected reason to end with the deletion request")
	}
	if instruction != ComplianceInstruction {
		t.Errorf("unexpected instruction %q", instruction)
	}
}

func TestSynthesize_Idempotent(t *testing.T) {
	tags := []string{"Incorrect balance", "fcra accuracy", "Metro 2 Violation: wrong status"}
	r1, i1 := Synthesize(tags)
	r2, i2 := Synthesize(tags)
	if r1 != r2 || i1 != i2 {
		t.Error("expected byte-identical output for the same tags")
	}

	// Order matters
	r3, _ := Synthesize([]string{tags[2], tags[1], tags[0]})
	if r3 == r1 {
		t.Error("expected different output for a different order")
	}
}

func TestLine(t *testing.T) {
	tests := map[string]string{
		"Incorrect balance":                    "Metro 2 Violation: Incorrect balance",
		"metro 2 violation: wrong date":        "Metro 2 Violation: wrong date",
		"FCRA accuracy":                        "FCRA Violation: FCRA accuracy under FCRA § 623",
		"FCRA Violation: already under § 623": "FCRA Violation: already under § 623",
		"FCRA Violation:":                      "",
		"   ":                                  "",
	}
	for in, want := range tests {
		if got := Line(in); got != want {
			t.Errorf("Line(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		name   string
		item   model.CanonicalItem
		closed bool
		want   model.SuggestionCategory
	}{
		{"charged status", model.CanonicalItem{Status: "Charged Off"}, false, model.SuggestChargedOff},
		{"closed with balance", model.CanonicalItem{Status: "Closed", Balance: 10}, true, model.SuggestChargedOff},
		{"closed without balance", model.CanonicalItem{Status: "Closed"}, true, model.SuggestGeneral},
		{"charged beats collection", model.CanonicalItem{Status: "Charged off - collection"}, false, model.SuggestChargedOff},
		{"collection status", model.CanonicalItem{Status: "In collection"}, false, model.SuggestCollection},
		{"collection type", model.CanonicalItem{AccountType: "Collection Agency"}, false, model.SuggestCollection},
		{"collection beats late", model.CanonicalItem{AccountType: "Collection", PaymentPattern: "C1"}, false, model.SuggestCollection},
		{"late pattern", model.CanonicalItem{PaymentPattern: "CCC2CC"}, false, model.SuggestLatePayment},
		{"late counter", model.CanonicalItem{Late60: 1}, false, model.SuggestLatePayment},
		{"clean pattern", model.CanonicalItem{PaymentPattern: "CCCC0"}, false, model.SuggestGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Category(tt.item, tt.closed); got != tt.want {
				t.Errorf("Category = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFor(t *testing.T) {
	for _, c := range []model.SuggestionCategory{model.SuggestChargedOff, model.SuggestCollection, model.SuggestLatePayment, model.SuggestGeneral, model.SuggestInquiry} {
		list := For(c)
		if len(list) != 3 {
			t.Errorf("%s: expected 3 suggestions, got %d", c, len(list))
		}
		for _, s := range list {
			if s.Title == "" || s.Reason == "" || s.Instruction == "" {
				t.Errorf("%s: incomplete suggestion %+v", c, s)
			}
		}
	}

	list := For(model.SuggestGeneral)
	list[0].Title = "changed"
	if Table[model.SuggestGeneral][0].Title == "changed" {
		t.Error("For must return a copy")
	}

	if len(For("unknown")) != 3 {
		t.Error("expected unknown category to fall back to general")
	}
}

func TestPersonalDefault(t *testing.T) {
	s, ok := PersonalDefault(model.PersonalPreviousAddress)
	if !ok {
		t.Fatal("expected default for previous address")
	}
	if s.Reason != "This address is wrong or outdated" {
		t.Errorf("unexpected reason %q", s.Reason)
	}
	if s.Instruction != PreviousAddressInstruction {
		t.Errorf("unexpected instruction %q", s.Instruction)
	}

	for _, f := range []model.PersonalField{model.PersonalName, model.PersonalAlias, model.PersonalCurrentAddress, model.PersonalBirthDate, model.PersonalEmployer} {
		if _, ok := PersonalDefault(f); !ok {
			t.Errorf("missing default for %s", f)
		}
	}
	if _, ok := PersonalDefault("ssn"); ok {
		t.Error("expected no default for unknown field")
	}
}

func TestFromTemplates(t *testing.T) {
	reasons := []model.Template{{Title: "Mine", Content: "r1"}, {Content: "r2"}}
	instructions := []model.Template{{Content: "i1"}}

	got := FromTemplates(reasons, instructions)
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].Title != "Mine" || got[0].Reason != "r1" || got[0].Instruction != "i1" {
		t.Errorf("unexpected first suggestion %+v", got[0])
	}
	if got[1].Title != "Custom" || got[1].Instruction != "" {
		t.Errorf("unexpected second suggestion %+v", got[1])
	}
}

func TestFor_InquiryWording(t *testing.T) {
	for _, s := range For(model.SuggestInquiry) {
		if !strings.Contains(s.Reason, "inquiry") {
			t.Errorf("inquiry suggestion does not mention the inquiry: %+v", s)
		}
		if strings.Contains(s.Reason+s.Instruction, "account") {
			t.Errorf("inquiry suggestion reads like an account dispute: %+v", s)
		}
	}
}
