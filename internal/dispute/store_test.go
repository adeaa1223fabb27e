package dispute

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ppiankov/tradeline/internal/model"
)

func newTestStore() *Store {
	return NewStore([]Item{
		{ID: "account:a", Kind: model.KindAccount, Inherent: true},
		{ID: "account:b", Kind: model.KindAccount, Inherent: true},
		{ID: "inquiry:c", Kind: model.KindInquiry},
	}, nil)
}

func TestStore_LazyRecords(t *testing.T) {
	s := newTestStore()

	r, ok := s.Get("account:a")
	if !ok {
		t.Fatal("expected declared item")
	}
	if r.State() != StateSelected {
		t.Errorf("expected negative account to read as selected, got %s", r.State())
	}
	if s.Touched("account:a") {
		t.Error("reading must not create a record")
	}

	if _, err := s.Dispatch("account:a", Action{Type: ActionSetReason, Text: "x"}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if !s.Touched("account:a") {
		t.Error("expected record after first interaction")
	}

	if _, ok := s.Get("nope"); ok {
		t.Error("unexpected record for unknown item")
	}
	if _, err := s.Dispatch("nope", Action{Type: ActionSelect}); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("expected ErrUnknownItem, got %v", err)
	}
}

func TestStore_Save(t *testing.T) {
	s := newTestStore()

	res, _, err := s.Save("account:a")
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if res.Saved || !res.MissingReason || !res.MissingInstruction {
		t.Fatalf("expected missing reason and instruction, got %+v", res)
	}

	s.Dispatch("account:a", Action{Type: ActionSetReason, Text: "r"})
	s.Dispatch("account:a", Action{Type: ActionSetInstruction, Text: "i"})

	res, rec, err := s.Save("account:a")
	if err != nil || !res.Saved || res.Resave {
		t.Fatalf("expected first save, got %+v err=%v", res, err)
	}
	if rec.State() != StateSaved {
		t.Errorf("expected saved state, got %s", rec.State())
	}

	s.Dispatch("account:a", Action{Type: ActionSetReason, Text: "r2"})
	res, _, _ = s.Save("account:a")
	if !res.Saved || !res.Resave {
		t.Errorf("expected resave, got %+v", res)
	}

	if _, _, err := s.Save("nope"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("expected ErrUnknownItem, got %v", err)
	}
}

func TestStore_NoCrossItemInterference(t *testing.T) {
	s := newTestStore()
	s.Dispatch("account:b", Action{Type: ActionSetReason, Text: "b reason"})
	before, _ := s.Get("account:b")

	s.Dispatch("account:a", Action{Type: ActionApplySuggestion, Suggestion: model.Suggestion{Reason: "r", Instruction: "i"}})
	if res, _, _ := s.Save("account:a"); !res.Saved {
		t.Fatal("expected save of a")
	}

	after, _ := s.Get("account:b")
	if after.Reason != before.Reason || after.Saved != before.Saved || after.State() != before.State() {
		t.Errorf("saving a changed b: before %+v after %+v", before, after)
	}
	if c, _ := s.Get("inquiry:c"); c.State() != StateUntouched {
		t.Errorf("saving a changed c to %s", c.State())
	}
}

func TestStore_ConcurrentIndependentRecords(t *testing.T) {
	items := make([]Item, 50)
	for i := range items {
		items[i] = Item{ID: fmt.Sprintf("account:%d", i), Kind: model.KindAccount, Inherent: true}
	}
	s := NewStore(items, nil)

	var wg sync.WaitGroup
	for _, it := range items {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			s.Dispatch(id, Action{Type: ActionSetReason, Text: "reason " + id})
			s.Dispatch(id, Action{Type: ActionSetInstruction, Text: "instruction " + id})
			s.Save(id)
		}(it.ID)
	}
	wg.Wait()

	for _, r := range s.Records() {
		if !r.Saved || r.Reason != "reason "+r.ItemID {
			t.Errorf("record %s not saved with its own text: %+v", r.ItemID, r)
		}
	}
}

func TestStore_SnapshotAndDeclare(t *testing.T) {
	s := newTestStore()
	s.Declare(Item{ID: "personal:name", Kind: model.KindPersonalInfo})

	snap := s.Snapshot([]string{"personal:name", "inquiry:c", "missing"})
	if len(snap) != 2 {
		t.Fatalf("expected 2 records, got %d", len(snap))
	}
	if snap["personal:name"].Category() != model.CategoryPersonalInfo {
		t.Errorf("unexpected category %s", snap["personal:name"].Category())
	}
	if len(s.Records()) != 4 {
		t.Errorf("expected 4 records, got %d", len(s.Records()))
	}
}
