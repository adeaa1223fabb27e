package dispute

import (
	"strings"
	"time"

	"github.com/ppiankov/tradeline/internal/model"
)

// State is the lifecycle position of a dispute record
type State string

const (
	StateUntouched State = "untouched"
	StateSelected  State = "selected"
	StateDrafting  State = "drafting"
	StateSaved     State = "saved"
)

// Record is the dispute state of one disputable item (a correlated group).
// Records are values; transitions go through Reduce.
type Record struct {
	ItemID   string         `json:"item_id"`
	Kind     model.ItemKind `json:"kind"`
	Inherent bool           `json:"inherent,omitempty"` // Negative account or record: always selected, cannot be deselected

	Selected    bool     `json:"selected"`
	Reason      string   `json:"reason,omitempty"`
	Instruction string   `json:"instruction,omitempty"`
	Tags        []string `json:"tags,omitempty"`   // Ordered violation tags, no duplicates
	Manual      bool     `json:"manual,omitempty"` // Text edited by hand; tags no longer drive it
	Saved       bool     `json:"saved"`

	SaveCount int       `json:"save_count,omitempty"`
	SavedAt   time.Time `json:"saved_at,omitempty"`
}

// NewRecord creates the untouched record of an item. Inherently disputable
// items start selected.
func NewRecord(itemID string, kind model.ItemKind, inherent bool) Record {
	return Record{
		ItemID:   itemID,
		Kind:     kind,
		Inherent: inherent,
		Selected: inherent,
	}
}

// State derives the lifecycle state from the record's fields
func (r Record) State() State {
	switch {
	case r.Saved:
		return StateSaved
	case r.Selected && (r.Reason != "" || r.Instruction != ""):
		return StateDrafting
	case r.Selected:
		return StateSelected
	default:
		return StateUntouched
	}
}

// Category is the section the record belongs to
func (r Record) Category() model.Category {
	return model.CategoryForKind(r.Kind)
}

// TagMode reports whether the text is currently derived from the tags
func (r Record) TagMode() bool {
	return len(r.Tags) > 0 && !r.Manual
}

// Missing lists the conditions that block a save
func (r Record) Missing() SaveResult {
	return SaveResult{
		NotSelected:        !r.Selected,
		MissingReason:      strings.TrimSpace(r.Reason) == "",
		MissingInstruction: strings.TrimSpace(r.Instruction) == "",
	}
}

// Deselectable reports whether the user may clear the selection
func (r Record) Deselectable() bool {
	return !r.Inherent
}

func (r Record) clone() Record {
	r.Tags = append([]string(nil), r.Tags...)
	return r
}
