package dispute

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ppiankov/tradeline/internal/logging"
	"github.com/ppiankov/tradeline/internal/model"
	"go.uber.org/zap"
)

// Item describes a disputable item the store knows about
type Item struct {
	ID       string
	Kind     model.ItemKind
	Inherent bool
}

// Store is the keyed map of dispute records for one session.
// Records are created on first interaction; items that were never touched
// read as their untouched record. Each record changes independently.
type Store struct {
	mu      sync.RWMutex
	items   map[string]Item
	records map[string]Record
	logger  *zap.Logger
}

// NewStore creates a store over the given items
func NewStore(items []Item, logger *zap.Logger) *Store {
	s := &Store{
		items:   make(map[string]Item, len(items)),
		records: make(map[string]Record),
		logger:  logging.OrNop(logger),
	}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

// Declare adds an item after construction; existing records are kept
func (s *Store) Declare(it Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[it.ID] = it
}

// Known reports whether the item exists
func (s *Store) Known(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// Get returns the current record of an item
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id)
}

func (s *Store) get(id string) (Record, bool) {
	if r, ok := s.records[id]; ok {
		return r.clone(), true
	}
	it, ok := s.items[id]
	if !ok {
		return Record{}, false
	}
	return NewRecord(it.ID, it.Kind, it.Inherent), true
}

// Touched reports whether the item has a materialized record
func (s *Store) Touched(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

// Dispatch applies an action to one record. Other records are never read
// or written.
func (s *Store) Dispatch(id string, a Action) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.get(id)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	next, err := Reduce(current, a)
	if err != nil {
		s.logger.Debug("dispute action rejected",
			zap.String("item_id", id),
			zap.String("action", string(a.Type)),
			zap.Error(err))
		return current, err
	}
	s.records[id] = next
	if current.State() != next.State() {
		s.logger.Debug("dispute state changed",
			zap.String("item_id", id),
			zap.String("from", string(current.State())),
			zap.String("to", string(next.State())))
	}
	return next.clone(), nil
}

// Save attempts the save transition and reports why it was refused, if it was
func (s *Store) Save(id string) (SaveResult, Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.get(id)
	if !ok {
		return SaveResult{}, Record{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	res := current.Missing()
	if !res.OK() {
		return res, current, nil
	}
	res.Resave = current.SaveCount > 0
	res.Unchanged = current.Saved
	next, err := Reduce(current, Action{Type: ActionSave})
	if err != nil {
		return res, current, err
	}
	res.Saved = true
	s.records[id] = next
	return res, next.clone(), nil
}

// Records returns every known item's record, sorted by id
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		r, _ := s.get(id)
		out = append(out, r)
	}
	return out
}

// Snapshot returns the records of the given ids, keyed by id. Unknown ids are skipped.
func (s *Store) Snapshot(ids []string) map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Record, len(ids))
	for _, id := range ids {
		if r, ok := s.get(id); ok {
			out[id] = r
		}
	}
	return out
}
