package section

import (
	"strings"
	"time"

	"github.com/ppiankov/tradeline/internal/classify"
	"github.com/ppiankov/tradeline/internal/model"
)

// WarningReason explains why selecting an inquiry needs confirmation
type WarningReason string

const (
	WarnNotRecent   WarningReason = "not_recent"
	WarnOpenAccount WarningReason = "matches_open_account"
)

// Warning must be confirmed before the inquiry is selected
type Warning struct {
	ItemID  string          `json:"item_id"`
	Reasons []WarningReason `json:"reasons"`
	Matches []string        `json:"matches,omitempty"` // Ids of the open accounts that matched
}

// Message renders the warning for the user
func (w Warning) Message() string {
	var parts []string
	for _, r := range w.Reasons {
		switch r {
		case WarnNotRecent:
			parts = append(parts, "this inquiry is more than two years old and no longer affects your score")
		case WarnOpenAccount:
			parts = append(parts, "this inquiry appears to belong to an open account ("+strings.Join(w.Matches, ", ")+")")
		}
	}
	return "Disputing may not help: " + strings.Join(parts, "; ")
}

type openAccount struct {
	id    string
	names []string
}

// Gate decides whether selecting an inquiry needs an explicit confirmation
type Gate struct {
	ref  time.Time
	open []openAccount
}

// NewGate collects the open accounts of an analysis. ref is the reference
// date for inquiry recency.
func NewGate(accounts []model.GroupView, ref time.Time) *Gate {
	g := &Gate{ref: ref}
	for _, gv := range accounts {
		acct := openAccount{id: gv.Group.ID}
		for _, m := range gv.Group.Members {
			if closedMember(gv, m) {
				continue
			}
			for _, s := range []string{m.CreditorName, m.SubscriberCode} {
				if s = fold(s); s != "" {
					acct.names = append(acct.names, s)
				}
			}
		}
		if len(acct.names) > 0 {
			g.open = append(g.open, acct)
		}
	}
	return g
}

func closedMember(gv model.GroupView, m model.CanonicalItem) bool {
	if c, ok := gv.Classification[m.Bureau]; ok {
		return c.Closed
	}
	return gv.Group.Closed
}

func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "n/a" {
		return ""
	}
	return s
}

// Check returns the warning for an inquiry group, if one applies. An
// inquiry that is not recent always warns; a recent one warns when its name
// and an open account's creditor name or subscriber code contain each other.
func (g *Gate) Check(inquiry model.GroupView) (Warning, bool) {
	w := Warning{ItemID: inquiry.Group.ID}

	recent := false
	for _, m := range inquiry.Group.Members {
		if classify.IsRecent(m.Date, g.ref) {
			recent = true
			break
		}
	}
	if !recent {
		w.Reasons = append(w.Reasons, WarnNotRecent)
	}

	if matches := g.Matches(inquiry.Group.Primary().CreditorName); len(matches) > 0 {
		w.Reasons = append(w.Reasons, WarnOpenAccount)
		w.Matches = matches
	}
	return w, len(w.Reasons) > 0
}

// Matches returns the ids of open accounts whose creditor name or subscriber
// code fuzzy-matches name
func (g *Gate) Matches(name string) []string {
	name = fold(name)
	if name == "" {
		return nil
	}
	var ids []string
	for _, acct := range g.open {
		for _, n := range acct.names {
			if strings.Contains(name, n) || strings.Contains(n, name) {
				ids = append(ids, acct.id)
				break
			}
		}
	}
	return ids
}
