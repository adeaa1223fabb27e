package section

import (
	"github.com/ppiankov/tradeline/internal/dispute"
	"github.com/ppiankov/tradeline/internal/model"
)

// Aggregator computes category completion from the dispute store
type Aggregator struct {
	analysis *model.Analysis
	store    *dispute.Store
}

// NewAggregator creates an aggregator over an analysis and its store
func NewAggregator(analysis *model.Analysis, store *dispute.Store) *Aggregator {
	return &Aggregator{analysis: analysis, store: store}
}

// Disputable returns the ids of the category's disputable items in page order.
// Accounts and public records are disputable when negative; inquiries and
// personal information when the user selected them.
func (a *Aggregator) Disputable(c model.Category) []string {
	var ids []string
	for _, gv := range a.analysis.Section(c) {
		switch c {
		case model.CategoryAccounts, model.CategoryPublicRecords:
			if gv.Group.Negative {
				ids = append(ids, gv.Group.ID)
			}
		default:
			if r, ok := a.store.Get(gv.Group.ID); ok && r.Selected {
				ids = append(ids, gv.Group.ID)
			}
		}
	}
	return ids
}

// Aggregate computes the section state of one category
func (a *Aggregator) Aggregate(c model.Category) model.SectionState {
	ids := a.Disputable(c)
	records := a.store.Snapshot(ids)

	state := model.SectionState{
		Category:        c,
		TotalDisputable: len(ids),
	}
	for _, id := range ids {
		if records[id].Saved {
			state.CompletedCount++
		} else {
			state.Pending = append(state.Pending, id)
		}
	}
	state.Clean = state.TotalDisputable == 0
	state.AllSaved = !state.Clean && state.CompletedCount == state.TotalDisputable
	return state
}

// All aggregates every category in page order
func (a *Aggregator) All() []model.SectionState {
	out := make([]model.SectionState, 0, len(model.Categories))
	for _, c := range model.Categories {
		out = append(out, a.Aggregate(c))
	}
	return out
}
