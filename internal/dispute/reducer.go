package dispute

import (
	"errors"
	"strings"
	"time"

	"github.com/ppiankov/tradeline/internal/model"
	"github.com/ppiankov/tradeline/internal/suggest"
)

// Conditions reported to callers. None of them is fatal; the record is
// returned unchanged.
var (
	ErrMissingReason      = errors.New("dispute reason is empty")
	ErrMissingInstruction = errors.New("dispute instruction is empty")
	ErrNotSelected        = errors.New("item is not selected for dispute")
	ErrCannotDeselect     = errors.New("negative items cannot be deselected")
	ErrUnknownAction      = errors.New("unknown dispute action")
	ErrUnknownItem        = errors.New("unknown dispute item")
)

// ActionType names a user action on a record
type ActionType string

const (
	ActionSelect          ActionType = "select"
	ActionDeselect        ActionType = "deselect"
	ActionSetReason       ActionType = "set_reason"
	ActionSetInstruction  ActionType = "set_instruction"
	ActionAddTag          ActionType = "add_tag"
	ActionRemoveTag       ActionType = "remove_tag"
	ActionResynthesize    ActionType = "resynthesize"
	ActionApplySuggestion ActionType = "apply_suggestion"
	ActionSave            ActionType = "save"
)

// Action is one transition request. Text carries the reason or instruction,
// Tag the violation tag, Suggestion the pair for ActionApplySuggestion.
type Action struct {
	Type       ActionType       `json:"type" yaml:"type"`
	Text       string           `json:"text,omitempty" yaml:"text,omitempty"`
	Tag        string           `json:"tag,omitempty" yaml:"tag,omitempty"`
	Suggestion model.Suggestion `json:"suggestion,omitzero" yaml:"suggestion,omitempty"`
	At         time.Time        `json:"-" yaml:"-"` // Save time; zero means now
	Generated  bool             `json:"-" yaml:"-"` // Text written by a suggestion reveal, not typed by hand
}

// SaveResult reports the outcome of a save attempt
type SaveResult struct {
	Saved              bool `json:"saved"`
	Resave             bool `json:"resave,omitempty"`    // The record had been saved before
	Unchanged          bool `json:"unchanged,omitempty"` // Already saved with no edit since
	NotSelected        bool `json:"not_selected,omitempty"`
	MissingReason      bool `json:"missing_reason,omitempty"`
	MissingInstruction bool `json:"missing_instruction,omitempty"`
}

// OK reports whether nothing blocks the save
func (s SaveResult) OK() bool {
	return !s.NotSelected && !s.MissingReason && !s.MissingInstruction
}

// Err joins the blocking conditions, or returns nil
func (s SaveResult) Err() error {
	var errs []error
	if s.NotSelected {
		errs = append(errs, ErrNotSelected)
	}
	if s.MissingReason {
		errs = append(errs, ErrMissingReason)
	}
	if s.MissingInstruction {
		errs = append(errs, ErrMissingInstruction)
	}
	return errors.Join(errs...)
}

// Reduce applies an action to a record and returns the new record. The input
// is never modified. On error the returned record equals the input.
//
// Any change to the selection or to either text clears Saved. While tags
// drive the text, adding or removing a tag regenerates it; a manual edit
// hands the text back to the user and leaves the tags informational. A
// suggestion is not a manual edit: the next tag replaces its text.
func Reduce(r Record, a Action) (Record, error) {
	next := r.clone()

	switch a.Type {
	case ActionSelect:
		if next.Selected {
			return next, nil
		}
		next.Selected = true
		next.Saved = false

	case ActionDeselect:
		if !r.Deselectable() {
			return r, ErrCannotDeselect
		}
		if !next.Selected && next.Reason == "" && next.Instruction == "" && len(next.Tags) == 0 {
			return next, nil
		}
		next.Selected = false
		next.Reason = ""
		next.Instruction = ""
		next.Tags = nil
		next.Manual = false
		next.Saved = false
		next.SaveCount = 0
		next.SavedAt = time.Time{}

	case ActionSetReason:
		if !next.Selected {
			return r, ErrNotSelected
		}
		setText(&next, a.Text, next.Instruction)
		if !a.Generated {
			next.Manual = true
		}

	case ActionSetInstruction:
		if !next.Selected {
			return r, ErrNotSelected
		}
		setText(&next, next.Reason, a.Text)
		if !a.Generated {
			next.Manual = true
		}

	case ActionApplySuggestion:
		if !next.Selected {
			return r, ErrNotSelected
		}
		setText(&next, a.Suggestion.Reason, a.Suggestion.Instruction)
		next.Manual = false

	case ActionAddTag:
		if !next.Selected {
			return r, ErrNotSelected
		}
		tag := strings.TrimSpace(a.Tag)
		if tag == "" || containsTag(next.Tags, tag) {
			return next, nil
		}
		next.Tags = append(next.Tags, tag)
		if !next.Manual {
			resynthesize(&next)
		}

	case ActionRemoveTag:
		tag := strings.TrimSpace(a.Tag)
		idx := indexTag(next.Tags, tag)
		if idx < 0 {
			return next, nil
		}
		next.Tags = append(next.Tags[:idx], next.Tags[idx+1:]...)
		if !next.Manual {
			resynthesize(&next)
		}

	case ActionResynthesize:
		if !next.Selected {
			return r, ErrNotSelected
		}
		next.Manual = false
		resynthesize(&next)

	case ActionSave:
		res := next.Missing()
		if !res.OK() {
			return r, res.Err()
		}
		if next.Saved {
			return next, nil
		}
		at := a.At
		if at.IsZero() {
			at = time.Now()
		}
		next.Saved = true
		next.SaveCount++
		next.SavedAt = at

	default:
		return r, ErrUnknownAction
	}

	return next, nil
}

// resynthesize regenerates both texts from the tags. An empty tag list clears them.
func resynthesize(r *Record) {
	reason, instruction := suggest.Synthesize(r.Tags)
	setText(r, reason, instruction)
}

func setText(r *Record, reason, instruction string) {
	if r.Reason == reason && r.Instruction == instruction {
		return
	}
	r.Reason = reason
	r.Instruction = instruction
	r.Saved = false
}

func containsTag(tags []string, tag string) bool {
	return indexTag(tags, tag) >= 0
}

func indexTag(tags []string, tag string) int {
	for i, t := range tags {
		if t == tag {
			return i
		}
	}
	return -1
}
