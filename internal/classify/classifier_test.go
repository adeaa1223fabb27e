package classify

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/tradeline/internal/extract"
	"github.com/ppiankov/tradeline/internal/model"
)

var ref = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func TestClassifier_IsNegative(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		item model.CanonicalItem
		want bool
	}{
		{"clean account", model.CanonicalItem{Kind: model.KindAccount, Status: "Open", CurrentRating: "1"}, false},
		{"derogatory flag", model.CanonicalItem{Kind: model.KindAccount, Derogatory: true}, true},
		{"collection flag", model.CanonicalItem{Kind: model.KindAccount, Collection: true}, true},
		{"charge-off flag", model.CanonicalItem{Kind: model.KindAccount, ChargeOff: true}, true},
		{"past due", model.CanonicalItem{Kind: model.KindAccount, PastDue: 0.01}, true},
		{"zero past due", model.CanonicalItem{Kind: model.KindAccount, PastDue: 0}, false},
		{"rating 2", model.CanonicalItem{Kind: model.KindAccount, CurrentRating: "2"}, true},
		{"rating 9", model.CanonicalItem{Kind: model.KindAccount, CurrentRating: "9"}, true},
		{"prefixed rating", model.CanonicalItem{Kind: model.KindAccount, CurrentRating: "R5"}, true},
		{"rating 1", model.CanonicalItem{Kind: model.KindAccount, CurrentRating: "1"}, false},
		{"rating N/A", model.CanonicalItem{Kind: model.KindAccount, CurrentRating: "N/A"}, false},
		{"charge-off date", model.CanonicalItem{Kind: model.KindAccount, ChargeOffDate: ref}, true},
		{"public record by kind", model.CanonicalItem{Kind: model.KindPublicRecord}, true},
		{"inquiry never negative", model.CanonicalItem{Kind: model.KindInquiry, Derogatory: true}, false},
		{"personal info never negative", model.CanonicalItem{Kind: model.KindPersonalInfo}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsNegative(tt.item); got != tt.want {
				t.Errorf("IsNegative = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifier_DerogatoryAloneSuffices(t *testing.T) {
	raw := model.RawItem{
		"@_DerogatoryDataIndicator": "Y",
		"@_PastDueAmount":           "0",
	}
	item := extract.NewNormalizer().Account(raw, 0)

	got := NewClassifier().Classify(item, ref)
	if !got.Negative {
		t.Fatal("expected derogatory flag alone to make the account negative")
	}

	fired := map[model.CheckName]bool{}
	for _, ck := range got.Checks {
		fired[ck.Name] = ck.Fired
	}
	if !fired[model.CheckDerogatoryFlag] {
		t.Error("expected derogatory check to fire")
	}
	if fired[model.CheckPastDue] {
		t.Error("expected past-due check not to fire")
	}
}

func TestClassifier_ChecksAudit(t *testing.T) {
	c := NewClassifier()

	account := c.Checks(model.CanonicalItem{Kind: model.KindAccount})
	if len(account) != 6 {
		t.Fatalf("expected six named checks, got %d", len(account))
	}
	for _, ck := range account {
		if ck.Fired {
			t.Errorf("check %s fired on a clean account", ck.Name)
		}
	}

	record := c.Checks(model.CanonicalItem{Kind: model.KindPublicRecord})
	if len(record) != 7 || record[6].Name != model.CheckPublicRecord || !record[6].Fired {
		t.Errorf("expected trailing public record check, got %+v", record)
	}

	// Adding the public record check must not touch the shared table
	if again := c.Checks(model.CanonicalItem{Kind: model.KindAccount}); len(again) != 6 {
		t.Errorf("account checks changed to %d", len(again))
	}

	if c.Checks(model.CanonicalItem{Kind: model.KindInquiry}) != nil {
		t.Error("expected no checks for inquiries")
	}
}

func TestClassifier_IsClosed(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		item model.CanonicalItem
		want bool
	}{
		{"open", model.CanonicalItem{Status: "Open"}, false},
		{"closed text", model.CanonicalItem{Status: "Account CLOSED by grantor"}, true},
		{"paid text", model.CanonicalItem{Status: "Paid in full"}, true},
		{"unpaid is not paid", model.CanonicalItem{Status: "Unpaid balance"}, false},
		{"closed code", model.CanonicalItem{StatusCode: "c"}, true},
		{"other code", model.CanonicalItem{StatusCode: "O"}, false},
		{"closed date", model.CanonicalItem{Closed: ref}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsClosed(tt.item); got != tt.want {
				t.Errorf("IsClosed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRecent(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"one year ago", ref.AddDate(-1, 0, 0), true},
		{"one day inside window", ref.AddDate(-2, 0, 1), true},
		{"exactly two years", ref.AddDate(-2, 0, 0), false},
		{"two years and a day", ref.AddDate(-2, 0, -1), false},
		{"missing date", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRecent(tt.date, ref); got != tt.want {
				t.Errorf("IsRecent(%v) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestClassifier_InquiryRecentUnparseableDate(t *testing.T) {
	item := extract.NewNormalizer().Inquiry(model.RawItem{"@_Name": "CHASE", "@_Date": "garbage"}, 0)
	got := NewClassifier().Classify(item, ref)
	if got.Recent == nil {
		t.Fatal("expected recency for an inquiry")
	}
	if *got.Recent {
		t.Error("expected unparseable date to be not recent")
	}
}

func TestClassifier_Idempotent(t *testing.T) {
	c := NewClassifier()
	item := model.CanonicalItem{
		Kind:          model.KindAccount,
		Status:        "Charged off, closed",
		PastDue:       120,
		CurrentRating: "9",
		Closed:        ref,
	}

	first := c.Classify(item, ref)
	second := c.Classify(item, ref)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("classification not idempotent (-first +second):\n%s", diff)
	}
	if !first.Negative || !first.Closed {
		t.Errorf("expected negative and closed, got %+v", first)
	}
	if Priority(first) != 0 {
		t.Error("expected negative to take priority over closed")
	}
}

func TestPriority(t *testing.T) {
	if Priority(model.Classification{}) != 1 {
		t.Error("expected open positive item in the middle")
	}
	if Priority(model.Classification{Closed: true}) != 2 {
		t.Error("expected closed item last")
	}
}
