package correlate

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/tradeline/internal/model"
)

// Correlator groups per-bureau records that describe the same logical item.
// Matching is exact on normalized identifiers; when a match is ambiguous the
// records stay separate.
type Correlator struct{}

// NewCorrelator creates a new correlator
func NewCorrelator() *Correlator {
	return &Correlator{}
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func norm(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return ""
	}
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// Key returns the correlation key of an item, or "" when the item lacks the
// identifiers needed for a confident match:
//
//	account:       account number + (subscriber code, else creditor name)
//	inquiry:       inquirer name + inquiry date
//	public record: case number + record type
//	personal info: field + value
func (c *Correlator) Key(item model.CanonicalItem) string {
	switch item.Kind {
	case model.KindAccount:
		number := norm(item.AccountNumber)
		if number == "" {
			return ""
		}
		if sub := norm(item.SubscriberCode); sub != "" {
			return "account|sub=" + sub + "|num=" + number
		}
		if name := norm(item.CreditorName); name != "" {
			return "account|name=" + name + "|num=" + number
		}
		return ""
	case model.KindInquiry:
		name := norm(item.CreditorName)
		if name == "" || item.Date.IsZero() {
			return ""
		}
		return "inquiry|" + name + "|" + item.Date.Format("2006-01-02")
	case model.KindPublicRecord:
		cn := norm(item.CaseNumber)
		if cn == "" {
			return ""
		}
		return "public_record|" + cn + "|" + norm(item.RecordType)
	case model.KindPersonalInfo:
		v := norm(item.Value)
		if v == "" {
			return ""
		}
		return "personal_info|" + string(item.Field) + "|" + v
	}
	return ""
}

// Correlate groups items in first-seen order. A group never holds two
// records from the same bureau, and records with an unknown bureau are never
// merged; both cases fall back to one group per record.
func (c *Correlator) Correlate(items []model.CanonicalItem) []model.Group {
	type bucket struct {
		key     string
		members []model.CanonicalItem
	}

	var order []*bucket
	byKey := make(map[string]*bucket)
	for _, it := range items {
		key := c.Key(it)
		if key == "" {
			order = append(order, &bucket{members: []model.CanonicalItem{it}})
			continue
		}
		b, ok := byKey[key]
		if !ok {
			b = &bucket{key: key}
			byKey[key] = b
			order = append(order, b)
		}
		b.members = append(b.members, it)
	}

	groups := make([]model.Group, 0, len(order))
	for _, b := range order {
		if len(b.members) > 1 && ambiguous(b.members) {
			for _, m := range b.members {
				groups = append(groups, single(m))
			}
			continue
		}
		if len(b.members) == 1 {
			groups = append(groups, single(b.members[0]))
			continue
		}
		groups = append(groups, merged(b.key, b.members))
	}
	return groups
}

// CorrelateByBureau flattens per-bureau feeds in display order and correlates them
func (c *Correlator) CorrelateByBureau(feeds map[model.Bureau][]model.CanonicalItem) []model.Group {
	var items []model.CanonicalItem
	for _, b := range model.Bureaus {
		items = append(items, feeds[b]...)
	}
	var other []model.Bureau
	for b := range feeds {
		if bureauRank(b) == len(model.Bureaus) {
			other = append(other, b)
		}
	}
	sort.Slice(other, func(i, j int) bool { return other[i] < other[j] })
	for _, b := range other {
		items = append(items, feeds[b]...)
	}
	return c.Correlate(items)
}

func ambiguous(members []model.CanonicalItem) bool {
	seen := make(map[model.Bureau]bool, len(members))
	for _, m := range members {
		if m.Bureau == model.BureauUnknown || m.Bureau == "" || seen[m.Bureau] {
			return true
		}
		seen[m.Bureau] = true
	}
	return false
}

func single(item model.CanonicalItem) model.Group {
	return model.Group{
		ID:      item.ID,
		Kind:    item.Kind,
		Members: []model.CanonicalItem{item},
		Bureaus: []model.Bureau{item.Bureau},
	}
}

// merged keeps the first-seen member's id as the group id so it stays stable
// across runs over the same report
func merged(key string, members []model.CanonicalItem) model.Group {
	id := members[0].ID
	sorted := append([]model.CanonicalItem(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bureauRank(sorted[i].Bureau) < bureauRank(sorted[j].Bureau)
	})

	bureaus := make([]model.Bureau, 0, len(sorted))
	for _, m := range sorted {
		bureaus = append(bureaus, m.Bureau)
	}
	return model.Group{
		ID:      id,
		Kind:    members[0].Kind,
		Key:     key,
		Members: sorted,
		Bureaus: bureaus,
	}
}

func bureauRank(b model.Bureau) int {
	for i, known := range model.Bureaus {
		if b == known {
			return i
		}
	}
	return len(model.Bureaus)
}
