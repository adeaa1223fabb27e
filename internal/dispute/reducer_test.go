package dispute

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/tradeline/internal/model"
	"github.com/ppiankov/tradeline/internal/suggest"
)

func mustReduce(t *testing.T, r Record, a Action) Record {
	t.Helper()
	next, err := Reduce(r, a)
	if err != nil {
		t.Fatalf("Reduce(%s) failed: %v", a.Type, err)
	}
	return next
}

func inquiry() Record {
	return NewRecord("inquiry:1", model.KindInquiry, false)
}

func TestRecord_Lifecycle(t *testing.T) {
	r := inquiry()
	if r.State() != StateUntouched {
		t.Fatalf("expected untouched, got %s", r.State())
	}

	r = mustReduce(t, r, Action{Type: ActionSelect})
	if r.State() != StateSelected {
		t.Fatalf("expected selected, got %s", r.State())
	}

	r = mustReduce(t, r, Action{Type: ActionSetReason, Text: "Not mine"})
	if r.State() != StateDrafting {
		t.Fatalf("expected drafting, got %s", r.State())
	}

	r = mustReduce(t, r, Action{Type: ActionSetInstruction, Text: "Remove it"})
	r = mustReduce(t, r, Action{Type: ActionSave})
	if r.State() != StateSaved || r.SaveCount != 1 || r.SavedAt.IsZero() {
		t.Fatalf("expected saved, got %+v", r)
	}

	// Any edit returns to drafting with the selection kept
	r = mustReduce(t, r, Action{Type: ActionSetReason, Text: "Not mine at all"})
	if r.State() != StateDrafting || !r.Selected {
		t.Fatalf("expected drafting after edit, got %s", r.State())
	}

	r = mustReduce(t, r, Action{Type: ActionDeselect})
	if r.State() != StateUntouched || r.Reason != "" || r.Instruction != "" {
		t.Fatalf("expected untouched after deselect, got %+v", r)
	}
}

func TestReduce_SaveRequiresBothTexts(t *testing.T) {
	tests := []struct {
		name        string
		reason      string
		instruction string
		want        error
	}{
		{"missing reason", "", "Remove it", ErrMissingReason},
		{"whitespace reason", "  \t", "Remove it", ErrMissingReason},
		{"missing instruction", "Not mine", "", ErrMissingInstruction},
		{"whitespace instruction", "Not mine", "\n ", ErrMissingInstruction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustReduce(t, inquiry(), Action{Type: ActionSelect})
			r.Reason = tt.reason
			r.Instruction = tt.instruction

			next, err := Reduce(r, Action{Type: ActionSave})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if next.Saved {
				t.Error("record must not be saved")
			}
			if diff := cmp.Diff(r, next); diff != "" {
				t.Errorf("rejected save changed the record:\n%s", diff)
			}
		})
	}

	t.Run("not selected", func(t *testing.T) {
		_, err := Reduce(inquiry(), Action{Type: ActionSave})
		if !errors.Is(err, ErrNotSelected) {
			t.Fatalf("expected ErrNotSelected, got %v", err)
		}
	})
}

func TestReduce_EditsResetSaved(t *testing.T) {
	saved := func() Record {
		r := mustReduce(t, inquiry(), Action{Type: ActionSelect})
		r = mustReduce(t, r, Action{Type: ActionApplySuggestion, Suggestion: model.Suggestion{Reason: "a", Instruction: "b"}})
		return mustReduce(t, r, Action{Type: ActionSave})
	}

	edits := []Action{
		{Type: ActionSetReason, Text: "changed"},
		{Type: ActionSetInstruction, Text: "changed"},
		{Type: ActionApplySuggestion, Suggestion: model.Suggestion{Reason: "x", Instruction: "y"}},
		{Type: ActionDeselect},
		{Type: ActionResynthesize},
	}
	for _, a := range edits {
		r := mustReduce(t, saved(), a)
		if r.Saved {
			t.Errorf("%s: expected saved to be cleared", a.Type)
		}
	}

	// Re-selecting an already selected record is not an edit
	r := mustReduce(t, saved(), Action{Type: ActionSelect})
	if !r.Saved {
		t.Error("select on a selected record must not clear saved")
	}
	// Writing the same text is not an edit
	r = mustReduce(t, saved(), Action{Type: ActionSetReason, Text: "a"})
	if !r.Saved {
		t.Error("unchanged reason must not clear saved")
	}
}

func TestReduce_InherentCannotDeselect(t *testing.T) {
	r := NewRecord("account:1", model.KindAccount, true)
	if r.State() != StateSelected {
		t.Fatalf("expected inherent record to start selected, got %s", r.State())
	}
	next, err := Reduce(r, Action{Type: ActionDeselect})
	if !errors.Is(err, ErrCannotDeselect) {
		t.Fatalf("expected ErrCannotDeselect, got %v", err)
	}
	if !next.Selected {
		t.Error("record must stay selected")
	}
}

func TestReduce_TextRequiresSelection(t *testing.T) {
	for _, a := range []Action{
		{Type: ActionSetReason, Text: "x"},
		{Type: ActionSetInstruction, Text: "x"},
		{Type: ActionApplySuggestion},
		{Type: ActionAddTag, Tag: "x"},
		{Type: ActionResynthesize},
	} {
		if _, err := Reduce(inquiry(), a); !errors.Is(err, ErrNotSelected) {
			t.Errorf("%s: expected ErrNotSelected, got %v", a.Type, err)
		}
	}
}

func TestReduce_UnknownAction(t *testing.T) {
	if _, err := Reduce(inquiry(), Action{Type: "explode"}); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestReduce_TagSynthesis(t *testing.T) {
	r := mustReduce(t, NewRecord("account:1", model.KindAccount, true), Action{Type: ActionAddTag, Tag: "Incorrect balance"})
	r = mustReduce(t, r, Action{Type: ActionAddTag, Tag: "FCRA accuracy"})

	wantReason, wantInstruction := suggest.Synthesize([]string{"Incorrect balance", "FCRA accuracy"})
	if r.Reason != wantReason || r.Instruction != wantInstruction {
		t.Fatalf("expected synthesized text, got %q / %q", r.Reason, r.Instruction)
	}
	if !r.TagMode() {
		t.Error("expected tag mode")
	}

	// Duplicates are ignored
	again := mustReduce(t, r, Action{Type: ActionAddTag, Tag: " Incorrect balance "})
	if len(again.Tags) != 2 {
		t.Errorf("expected duplicate tag ignored, got %v", again.Tags)
	}

	// Removal regenerates
	r = mustReduce(t, r, Action{Type: ActionRemoveTag, Tag: "Incorrect balance"})
	wantReason, _ = suggest.Synthesize([]string{"FCRA accuracy"})
	if r.Reason != wantReason {
		t.Errorf("expected text regenerated after removal, got %q", r.Reason)
	}

	// Removing the last tag clears the text
	r = mustReduce(t, r, Action{Type: ActionRemoveTag, Tag: "FCRA accuracy"})
	if r.Reason != "" || r.Instruction != "" {
		t.Errorf("expected empty text, got %q / %q", r.Reason, r.Instruction)
	}
	if r.State() != StateSelected {
		t.Errorf("expected selected, got %s", r.State())
	}
}

func TestReduce_ManualEditDisablesTagMode(t *testing.T) {
	r := mustReduce(t, NewRecord("account:1", model.KindAccount, true), Action{Type: ActionAddTag, Tag: "Wrong status"})
	r = mustReduce(t, r, Action{Type: ActionSetReason, Text: "My own words"})
	if r.TagMode() {
		t.Fatal("expected manual edit to leave tag mode")
	}

	// Tags added now are informational and must not overwrite the user's text
	r = mustReduce(t, r, Action{Type: ActionAddTag, Tag: "Wrong date"})
	if r.Reason != "My own words" {
		t.Errorf("manual text overwritten: %q", r.Reason)
	}
	if len(r.Tags) != 2 {
		t.Errorf("expected tag recorded, got %v", r.Tags)
	}
	r = mustReduce(t, r, Action{Type: ActionRemoveTag, Tag: "Wrong status"})
	if r.Reason != "My own words" {
		t.Errorf("manual text overwritten on removal: %q", r.Reason)
	}

	// Resynthesize hands control back to the tags
	r = mustReduce(t, r, Action{Type: ActionResynthesize})
	if !r.TagMode() || !strings.Contains(r.Reason, "Metro 2 Violation: Wrong date") {
		t.Errorf("expected resynthesized text, got %q", r.Reason)
	}
}

func TestReduce_SuggestionThenTag(t *testing.T) {
	r := mustReduce(t, NewRecord("account:1", model.KindAccount, true), Action{
		Type:       ActionApplySuggestion,
		Suggestion: model.Suggestion{Reason: "Debt not validated", Instruction: "Validate or delete"},
	})
	if r.Manual {
		t.Fatal("a suggestion is not a manual edit")
	}

	r = mustReduce(t, r, Action{Type: ActionAddTag, Tag: "FCRA Violation: balance misreported"})
	wantReason, wantInstruction := suggest.Synthesize([]string{"FCRA Violation: balance misreported"})
	if r.Reason != wantReason || r.Instruction != wantInstruction {
		t.Errorf("expected tag text to replace the suggestion, got %q / %q", r.Reason, r.Instruction)
	}
	if !r.TagMode() {
		t.Error("expected tag mode")
	}

	// A suggestion after a manual edit hands control back to the tags
	r = mustReduce(t, r, Action{Type: ActionSetReason, Text: "mine"})
	r = mustReduce(t, r, Action{Type: ActionApplySuggestion, Suggestion: model.Suggestion{Reason: "a", Instruction: "b"}})
	r = mustReduce(t, r, Action{Type: ActionAddTag, Tag: "Wrong date"})
	if !strings.Contains(r.Reason, "Metro 2 Violation: Wrong date") {
		t.Errorf("expected regenerated text, got %q", r.Reason)
	}
}

func TestReduce_GeneratedTextKeepsTagMode(t *testing.T) {
	r := mustReduce(t, NewRecord("account:1", model.KindAccount, true), Action{Type: ActionApplySuggestion})
	r = mustReduce(t, r, Action{Type: ActionSetReason, Text: "typed by a reveal", Generated: true})
	if r.Manual {
		t.Fatal("generated text must not count as a manual edit")
	}
	if r.Reason != "typed by a reveal" {
		t.Errorf("unexpected reason %q", r.Reason)
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	r := mustReduce(t, NewRecord("account:1", model.KindAccount, true), Action{Type: ActionAddTag, Tag: "a"})
	r = mustReduce(t, r, Action{Type: ActionAddTag, Tag: "b"})
	before := r.clone()

	_ = mustReduce(t, r, Action{Type: ActionRemoveTag, Tag: "a"})
	if diff := cmp.Diff(before, r); diff != "" {
		t.Errorf("input mutated:\n%s", diff)
	}
}

func TestSaveResult_Err(t *testing.T) {
	if (SaveResult{}).Err() != nil {
		t.Error("expected nil error for an unblocked save")
	}
	err := SaveResult{MissingReason: true, MissingInstruction: true}.Err()
	if !errors.Is(err, ErrMissingReason) || !errors.Is(err, ErrMissingInstruction) {
		t.Errorf("expected both conditions, got %v", err)
	}
}
