package classify

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/tradeline/internal/model"
)

// InquiryWindow is how long a hard inquiry affects the score
const InquiryWindow = 2 // years

// ClosedStatusCode is the coded status that marks an account closed
const ClosedStatusCode = "C"

// Classifier derives negative/closed/recent flags from canonical items.
// It holds no state; every method is a pure function of its arguments.
type Classifier struct{}

// NewClassifier creates a new classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

type check struct {
	name model.CheckName
	eval func(model.CanonicalItem) (bool, string)
}

// negativeChecks are evaluated in order; IsNegative stops at the first one that fires
var negativeChecks = []check{
	{model.CheckDerogatoryFlag, func(it model.CanonicalItem) (bool, string) {
		return it.Derogatory, "derogatory indicator = Y"
	}},
	{model.CheckCollectionFlag, func(it model.CanonicalItem) (bool, string) {
		return it.Collection, "collection indicator = Y"
	}},
	{model.CheckChargeOffFlag, func(it model.CanonicalItem) (bool, string) {
		return it.ChargeOff, "charge-off indicator = Y"
	}},
	{model.CheckPastDue, func(it model.CanonicalItem) (bool, string) {
		return it.PastDue > 0, fmt.Sprintf("past due %.2f", it.PastDue)
	}},
	{model.CheckCurrentRating, func(it model.CanonicalItem) (bool, string) {
		return AdverseRating(it.CurrentRating), fmt.Sprintf("current rating %q", it.CurrentRating)
	}},
	{model.CheckChargeOffDate, func(it model.CanonicalItem) (bool, string) {
		if it.ChargeOffDate.IsZero() {
			return false, "no charge-off date"
		}
		return true, "charged off " + it.ChargeOffDate.Format("2006-01-02")
	}},
}

var publicRecordCheck = check{model.CheckPublicRecord, func(it model.CanonicalItem) (bool, string) {
	return it.Kind == model.KindPublicRecord, "recorded public record"
}}

// Classify computes the full classification, including the check audit.
// ref is the reference date used for inquiry recency.
func (c *Classifier) Classify(item model.CanonicalItem, ref time.Time) model.Classification {
	result := model.Classification{
		Negative: c.IsNegative(item),
		Closed:   c.IsClosed(item),
		Checks:   c.Checks(item),
	}
	if item.Kind == model.KindInquiry {
		recent := IsRecent(item.Date, ref)
		result.Recent = &recent
	}
	return result
}

// IsNegative reports whether any negative check fires. Personal information
// is never negative; public records are negative by kind.
func (c *Classifier) IsNegative(item model.CanonicalItem) bool {
	switch item.Kind {
	case model.KindPersonalInfo, model.KindInquiry:
		return false
	case model.KindPublicRecord:
		return true
	}
	for _, ck := range negativeChecks {
		if fired, _ := ck.eval(item); fired {
			return true
		}
	}
	return false
}

// Checks evaluates every negative check and reports each by name
func (c *Classifier) Checks(item model.CanonicalItem) []model.Check {
	switch item.Kind {
	case model.KindPersonalInfo, model.KindInquiry:
		return nil
	}
	list := negativeChecks
	if item.Kind == model.KindPublicRecord {
		list = append(append([]check(nil), negativeChecks...), publicRecordCheck)
	}
	out := make([]model.Check, 0, len(list))
	for _, ck := range list {
		fired, detail := ck.eval(item)
		out = append(out, model.Check{Name: ck.name, Fired: fired, Detail: detail})
	}
	return out
}

// IsClosed reports whether the status text mentions closed or paid, the
// status code is the closed sentinel, or a closed date is present
func (c *Classifier) IsClosed(item model.CanonicalItem) bool {
	status := strings.ToLower(item.Status)
	status = strings.ReplaceAll(status, "unpaid", "")
	if strings.Contains(status, "closed") || strings.Contains(status, "paid") {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(item.StatusCode), ClosedStatusCode) {
		return true
	}
	return !item.Closed.IsZero()
}

// IsRecent reports whether an inquiry date falls inside the inquiry window.
// A missing date is never recent; exactly two years old is not recent.
func IsRecent(date, ref time.Time) bool {
	if date.IsZero() {
		return false
	}
	cutoff := ref.AddDate(-InquiryWindow, 0, 0)
	return date.After(cutoff)
}

// AdverseRating reports whether a current-rating code is in 2..9.
// Codes may carry a one-letter type prefix (R5, I2).
func AdverseRating(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) == 2 && code[0] >= 'A' && code[0] <= 'Z' {
		code = code[1:]
	}
	return len(code) == 1 && code[0] >= '2' && code[0] <= '9'
}

// Priority orders classified items for display: negative first, then open,
// then closed. Negative wins when an item is both negative and closed.
func Priority(c model.Classification) int {
	switch {
	case c.Negative:
		return 0
	case !c.Closed:
		return 1
	default:
		return 2
	}
}
