package section

import (
	"slices"
	"sync"

	"github.com/ppiankov/tradeline/internal/model"
)

// Completion describes how a save changed its section
type Completion struct {
	Category       model.Category     `json:"category"`
	NewlyCompleted bool               `json:"newly_completed"` // Collapse the whole section
	Resave         bool               `json:"resave"`          // Section had completed before for the same items
	Before         model.SectionState `json:"before"`
	After          model.SectionState `json:"after"`
}

// Tracker turns before/after section states into completion events. A
// section completes once per disputable set: editing and re-saving an item
// of an already completed section does not complete it again.
type Tracker struct {
	mu      sync.Mutex
	latched map[model.Category][]string
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{latched: make(map[model.Category][]string)}
}

// Observe records the aggregate around one save and reports the completion
func (t *Tracker) Observe(before, after model.SectionState, disputable []string) Completion {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := Completion{Category: after.Category, Before: before, After: after}
	if before.Clean {
		delete(t.latched, after.Category)
	}
	if !after.AllSaved {
		return c
	}

	set := slices.Clone(disputable)
	slices.Sort(set)

	prev, latched := t.latched[after.Category]
	if before.AllSaved || (latched && slices.Equal(prev, set)) {
		c.Resave = true
		t.latched[after.Category] = set
		return c
	}

	c.NewlyCompleted = true
	t.latched[after.Category] = set
	return c
}

// Settle forgets the completion of a section that has gone clean, so the
// next completion of that section is a new event
func (t *Tracker) Settle(state model.SectionState) {
	if !state.Clean {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.latched, state.Category)
}

// Completed reports whether the category has completed at least once
func (t *Tracker) Completed(c model.Category) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.latched[c]
	return ok
}
