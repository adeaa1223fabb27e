package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/tradeline/internal/dispute"
	"github.com/ppiankov/tradeline/internal/logging"
	"github.com/ppiankov/tradeline/internal/model"
	"github.com/ppiankov/tradeline/internal/section"
	"github.com/ppiankov/tradeline/internal/suggest"
	"go.uber.org/zap"
)

// ErrNotDisputable is returned for items that exist but cannot carry a
// dispute, such as accounts with nothing negative reported
var ErrNotDisputable = errors.New("item is not disputable")

// Persister sends saved disputes to the persistence collaborator without
// blocking the caller. done runs once the write finished or failed.
type Persister interface {
	Persist(d model.NewDispute, done func(*model.Dispute, error))
}

// Options configures a session
type Options struct {
	ReferenceDate  time.Time     // Inquiry recency reference; zero means now
	TypingInterval time.Duration // Per-rune delay of animated text; 0 writes at once
	Persister      Persister     // Optional
	Logger         *zap.Logger
}

// SelectResult reports the outcome of a selection request
type SelectResult struct {
	Selected bool             `json:"selected"`
	Warning  *section.Warning `json:"warning,omitempty"` // Confirmation needed; nothing changed
}

// SaveOutcome reports a save and its effect on the section
type SaveOutcome struct {
	ItemID           string             `json:"item_id"`
	Result           dispute.SaveResult `json:"result"`
	ItemCollapse     bool               `json:"item_collapse"`     // Collapse the saved item
	SectionCompleted bool               `json:"section_completed"` // Collapse the whole section
	Resave           bool               `json:"resave"`
	Section          model.SectionState `json:"section"`
}

// PersistFailure records a dispute the collaborator failed to store. The
// local record stays saved.
type PersistFailure struct {
	ItemID string    `json:"item_id"`
	Error  string    `json:"error"`
	At     time.Time `json:"at"`
}

// Session owns the dispute state of one analyzed report
type Session struct {
	ID string

	analysis  *model.Analysis
	views     map[string]model.GroupView
	store     *dispute.Store
	agg       *section.Aggregator
	tracker   *section.Tracker
	gate      *section.Gate
	persister Persister
	logger    *zap.Logger
	typing    time.Duration

	mu      sync.Mutex
	reveals map[string]map[dispute.ActionType]*dispute.Reveal

	resultsMu sync.Mutex
	persisted map[string]model.Dispute
	failures  []PersistFailure
}

// New creates a session over an analysis. Negative accounts and public
// records start selected; inquiries and personal information wait for the user.
func New(analysis *model.Analysis, opts Options) *Session {
	ref := opts.ReferenceDate
	if ref.IsZero() {
		ref = analysis.ReferenceDate
	}
	if ref.IsZero() {
		ref = time.Now()
	}

	s := &Session{
		ID:        uuid.NewString(),
		analysis:  analysis,
		views:     make(map[string]model.GroupView),
		tracker:   section.NewTracker(),
		gate:      section.NewGate(analysis.Accounts, ref),
		persister: opts.Persister,
		logger:    logging.OrNop(opts.Logger),
		typing:    opts.TypingInterval,
		reveals:   make(map[string]map[dispute.ActionType]*dispute.Reveal),
		persisted: make(map[string]model.Dispute),
	}

	var items []dispute.Item
	for _, c := range model.Categories {
		for _, gv := range analysis.Section(c) {
			s.views[gv.Group.ID] = gv
			switch c {
			case model.CategoryAccounts, model.CategoryPublicRecords:
				if gv.Group.Negative {
					items = append(items, dispute.Item{ID: gv.Group.ID, Kind: gv.Group.Kind, Inherent: true})
				}
			default:
				items = append(items, dispute.Item{ID: gv.Group.ID, Kind: gv.Group.Kind})
			}
		}
	}
	s.store = dispute.NewStore(items, s.logger)
	s.agg = section.NewAggregator(analysis, s.store)
	s.logger.Debug("session started", zap.String("session_id", s.ID), zap.Int("items", len(items)))
	return s
}

// Analysis returns the analysis the session works on
func (s *Session) Analysis() *model.Analysis {
	return s.analysis
}

func (s *Session) check(id string) (model.GroupView, error) {
	gv, ok := s.views[id]
	if !ok {
		return gv, fmt.Errorf("%w: %s", dispute.ErrUnknownItem, id)
	}
	if !s.store.Known(id) {
		return gv, fmt.Errorf("%w: %s", ErrNotDisputable, id)
	}
	return gv, nil
}

// Record returns the current dispute record of an item
func (s *Session) Record(id string) (dispute.Record, error) {
	if _, err := s.check(id); err != nil {
		return dispute.Record{}, err
	}
	r, _ := s.store.Get(id)
	return r, nil
}

// Select marks an item for dispute. Inquiries that are old or look like an
// open account return a warning and stay unselected unless confirmed.
// Personal information is filled with its fixed reason and instruction.
func (s *Session) Select(id string, confirmed bool) (SelectResult, error) {
	gv, err := s.check(id)
	if err != nil {
		return SelectResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gv.Group.Kind == model.KindInquiry && !confirmed {
		if r, _ := s.store.Get(id); !r.Selected {
			if w, warn := s.gate.Check(gv); warn {
				s.logger.Debug("inquiry selection needs confirmation",
					zap.String("item_id", id), zap.Any("reasons", w.Reasons))
				return SelectResult{Warning: &w}, nil
			}
		}
	}

	before, _ := s.store.Get(id)
	if _, err := s.store.Dispatch(id, dispute.Action{Type: dispute.ActionSelect}); err != nil {
		return SelectResult{}, err
	}

	if gv.Group.Kind == model.KindPersonalInfo && !before.Selected {
		if def, ok := suggest.PersonalDefault(gv.Group.Primary().Field); ok {
			if err := s.applyLocked(id, def, s.typing > 0); err != nil {
				return SelectResult{}, err
			}
		}
	}
	return SelectResult{Selected: true}, nil
}

// Deselect clears an inquiry or personal-information item back to untouched
func (s *Session) Deselect(id string) error {
	gv, err := s.check(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, _ := s.store.Get(id); !r.Deselectable() {
		return dispute.ErrCannotDeselect
	}
	s.cancelRevealsLocked(id, "")
	if _, err := s.store.Dispatch(id, dispute.Action{Type: dispute.ActionDeselect}); err != nil {
		return err
	}
	s.tracker.Settle(s.agg.Aggregate(model.CategoryForKind(gv.Group.Kind)))
	return nil
}

// SetReason replaces the reason text by hand
func (s *Session) SetReason(id, text string) error {
	return s.edit(id, dispute.Action{Type: dispute.ActionSetReason, Text: text})
}

// SetInstruction replaces the instruction text by hand
func (s *Session) SetInstruction(id, text string) error {
	return s.edit(id, dispute.Action{Type: dispute.ActionSetInstruction, Text: text})
}

// AddViolation adds a violation tag
func (s *Session) AddViolation(id, tag string) error {
	return s.edit(id, dispute.Action{Type: dispute.ActionAddTag, Tag: tag})
}

// RemoveViolation removes a violation tag
func (s *Session) RemoveViolation(id, tag string) error {
	return s.edit(id, dispute.Action{Type: dispute.ActionRemoveTag, Tag: tag})
}

// ResynthesizeFromTags regenerates the text from the tags, discarding manual edits
func (s *Session) ResynthesizeFromTags(id string) error {
	return s.edit(id, dispute.Action{Type: dispute.ActionResynthesize})
}

func (s *Session) edit(id string, a dispute.Action) error {
	if _, err := s.check(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch a.Type {
	case dispute.ActionSetReason, dispute.ActionSetInstruction:
		s.cancelRevealsLocked(id, a.Type)
	default:
		s.cancelRevealsLocked(id, "")
	}
	_, err := s.store.Dispatch(id, a)
	return err
}

// ApplySuggestion fills both texts from a suggestion, typing them out when
// animate is set and the session has a typing interval
func (s *Session) ApplySuggestion(id string, sg model.Suggestion, animate bool) error {
	if _, err := s.check(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(id, sg, animate && s.typing > 0)
}

func (s *Session) applyLocked(id string, sg model.Suggestion, animate bool) error {
	s.cancelRevealsLocked(id, "")
	if !animate {
		_, err := s.store.Dispatch(id, dispute.Action{Type: dispute.ActionApplySuggestion, Suggestion: sg})
		return err
	}

	// Start from empty text so the reveal is visible, then type both fields
	if _, err := s.store.Dispatch(id, dispute.Action{Type: dispute.ActionApplySuggestion}); err != nil {
		return err
	}
	reveals := map[dispute.ActionType]*dispute.Reveal{}
	for field, text := range map[dispute.ActionType]string{
		dispute.ActionSetReason:      sg.Reason,
		dispute.ActionSetInstruction: sg.Instruction,
	} {
		field := field
		reveals[field] = dispute.NewReveal(text, s.typing, func(partial string) {
			if _, err := s.store.Dispatch(id, dispute.Action{Type: field, Text: partial, Generated: true}); err != nil {
				s.logger.Debug("typing write rejected", zap.String("item_id", id), zap.Error(err))
			}
		})
	}
	s.reveals[id] = reveals
	return nil
}

// Typing reports whether any text of the item is still being revealed
func (s *Session) Typing(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reveals[id] {
		if !r.Done() {
			return true
		}
	}
	return false
}

// cancelRevealsLocked stops in-flight reveals of one field, or of every field
// when field is empty
func (s *Session) cancelRevealsLocked(id string, field dispute.ActionType) {
	for f, r := range s.reveals[id] {
		if field == "" || f == field {
			r.Cancel()
			delete(s.reveals[id], f)
		}
	}
	if len(s.reveals[id]) == 0 {
		delete(s.reveals, id)
	}
}

func (s *Session) materializeLocked(id string) {
	for _, r := range s.reveals[id] {
		r.Materialize()
	}
	delete(s.reveals, id)
}

// ApplyAIScan adds scanned violation tags to every selected item they name.
// It returns how many items received tags; unknown or unselected ids are skipped.
func (s *Session) ApplyAIScan(violations map[string][]string) int {
	applied := 0
	for _, id := range sortedKeys(violations) {
		r, err := s.Record(id)
		if err != nil || !r.Selected {
			continue
		}
		added := false
		for _, tag := range violations[id] {
			if err := s.AddViolation(id, tag); err == nil {
				added = true
			}
		}
		if added {
			applied++
		}
	}
	return applied
}

// Save materializes any text still being typed, validates and saves the
// record, and hands it to the persister. A refused save is reported in the
// outcome, not as an error.
func (s *Session) Save(id string) (SaveOutcome, error) {
	gv, err := s.check(id)
	if err != nil {
		return SaveOutcome{}, err
	}

	s.mu.Lock()
	s.materializeLocked(id)

	cat := model.CategoryForKind(gv.Group.Kind)
	before := s.agg.Aggregate(cat)
	res, rec, err := s.store.Save(id)
	if err != nil {
		s.mu.Unlock()
		return SaveOutcome{}, err
	}
	after := s.agg.Aggregate(cat)

	out := SaveOutcome{ItemID: id, Result: res, Section: after}
	if res.Saved {
		completion := s.tracker.Observe(before, after, s.agg.Disputable(cat))
		out.ItemCollapse = true
		out.SectionCompleted = completion.NewlyCompleted
		out.Resave = res.Resave
	}
	s.mu.Unlock()

	if !res.Saved || res.Unchanged {
		return out, nil
	}
	s.logger.Debug("dispute saved",
		zap.String("item_id", id),
		zap.Bool("section_completed", out.SectionCompleted),
		zap.Bool("resave", out.Resave))
	s.persist(gv, rec)
	return out, nil
}

// SaveAll fills every disputable item of a category that has no text yet
// with its first suggestion, then saves all of them
func (s *Session) SaveAll(c model.Category) ([]SaveOutcome, error) {
	var outcomes []SaveOutcome
	for _, id := range s.agg.Disputable(c) {
		r, err := s.Record(id)
		if err != nil {
			return outcomes, err
		}
		if r.Saved {
			continue
		}
		if r.Reason == "" && r.Instruction == "" && !s.Typing(id) {
			if sg, ok := s.firstSuggestion(id); ok {
				if err := s.ApplySuggestion(id, sg, false); err != nil {
					return outcomes, err
				}
			}
		}
		out, err := s.Save(id)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (s *Session) firstSuggestion(id string) (model.Suggestion, bool) {
	gv := s.views[id]
	if gv.Group.Kind == model.KindPersonalInfo {
		return suggest.PersonalDefault(gv.Group.Primary().Field)
	}
	if len(gv.Suggestions) > 0 {
		return gv.Suggestions[0], true
	}
	c := gv.Category
	if gv.Group.Kind == model.KindInquiry {
		c = model.SuggestInquiry
	}
	return suggest.For(c)[0], true
}

// Section returns the current state of one category
func (s *Session) Section(c model.Category) model.SectionState {
	return s.agg.Aggregate(c)
}

// Sections returns the state of every category in page order
func (s *Session) Sections() []model.SectionState {
	return s.agg.All()
}

// Records returns every disputable item's record
func (s *Session) Records() []dispute.Record {
	return s.store.Records()
}

func (s *Session) persist(gv model.GroupView, rec dispute.Record) {
	if s.persister == nil {
		return
	}
	nd := model.NewDispute{
		AccountID:     rec.ItemID,
		CreditorName:  gv.Group.Primary().Title(),
		DisputeReason: rec.Reason,
		Instructions:  rec.Instruction,
	}
	s.persister.Persist(nd, func(d *model.Dispute, err error) {
		s.resultsMu.Lock()
		defer s.resultsMu.Unlock()
		if err != nil {
			s.logger.Warn("dispute persist failed",
				zap.String("item_id", rec.ItemID),
				zap.String("op", "create_dispute"),
				zap.Error(err))
			s.failures = append(s.failures, PersistFailure{ItemID: rec.ItemID, Error: err.Error(), At: time.Now()})
			return
		}
		if d != nil {
			s.persisted[rec.ItemID] = *d
		}
	})
}

// Persisted returns the remote dispute stored for an item, if any
func (s *Session) Persisted(id string) (model.Dispute, bool) {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	d, ok := s.persisted[id]
	return d, ok
}

// Failures returns the persistence failures seen so far
func (s *Session) Failures() []PersistFailure {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	return append([]PersistFailure(nil), s.failures...)
}

// Close materializes every in-flight reveal
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.reveals {
		s.materializeLocked(id)
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
