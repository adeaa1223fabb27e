package suggest

import (
	"strings"

	"github.com/ppiankov/tradeline/internal/model"
)

// Table maps a suggestion category to its guided reason/instruction triples
var Table = map[model.SuggestionCategory][]model.Suggestion{
	model.SuggestChargedOff: {
		{
			Title:       "Balance reported after charge-off",
			Reason:      "This account was charged off but still reports a balance. A charged-off account should show a zero balance once it has been written off or sold.",
			Instruction: "Please update this account to report a $0 balance or delete it from my credit file.",
		},
		{
			Title:       "Inaccurate charge-off date",
			Reason:      "The charge-off date and date of first delinquency reported for this account are inaccurate and inconsistent across bureaus.",
			Instruction: "Please verify the original delinquency date with the furnisher and delete the account if it cannot be verified.",
		},
		{
			Title:       "Not my account",
			Reason:      "I do not recognize this charged-off account and never authorized it.",
			Instruction: "Please remove this account from my credit report as it does not belong to me.",
		},
	},
	model.SuggestCollection: {
		{
			Title:       "Debt not validated",
			Reason:      "This collection has never been validated. I have no record of the original debt or of the collector's right to collect it.",
			Instruction: "Please require the collector to provide validation of this debt or delete this collection from my credit file.",
		},
		{
			Title:       "Duplicate reporting",
			Reason:      "This collection duplicates a debt that is already reported by the original creditor.",
			Instruction: "Please delete this duplicate collection entry from my credit report.",
		},
		{
			Title:       "Paid collection still reporting",
			Reason:      "This collection has been paid but is still reported with an outstanding balance.",
			Instruction: "Please update this collection to show a $0 balance and paid status, or remove it.",
		},
	},
	model.SuggestLatePayment: {
		{
			Title:       "Payment was on time",
			Reason:      "The late payments reported on this account are inaccurate. I made my payments on time.",
			Instruction: "Please correct the payment history on this account to show all payments as on time.",
		},
		{
			Title:       "Late marker outside the payment period",
			Reason:      "The late payment markers do not match my account statements for the reported months.",
			Instruction: "Please verify the payment history with the creditor and remove any late markers that cannot be verified.",
		},
		{
			Title:       "Goodwill adjustment",
			Reason:      "This account has an otherwise positive history and the late payment does not reflect my payment record.",
			Instruction: "Please remove the late payment notation from this account.",
		},
	},
	model.SuggestGeneral: {
		{
			Title:       "Inaccurate information",
			Reason:      "The information reported for this account is inaccurate or incomplete.",
			Instruction: "Please investigate this account and correct or delete the inaccurate information.",
		},
		{
			Title:       "Not my account",
			Reason:      "I do not recognize this account and never opened it.",
			Instruction: "Please remove this account from my credit report as it does not belong to me.",
		},
		{
			Title:       "Unverifiable account",
			Reason:      "This account cannot be verified by the furnisher.",
			Instruction: "Please delete this account from my credit file if it cannot be verified.",
		},
	},
	model.SuggestInquiry: {
		{
			Title:       "Unauthorized inquiry",
			Reason:      "I did not authorize this creditor to access my credit report. This hard inquiry was made without my permission.",
			Instruction: "Please remove this unauthorized inquiry from my credit report.",
		},
		{
			Title:       "Not my application",
			Reason:      "I never applied for credit with this company and do not recognize this inquiry.",
			Instruction: "Please verify this inquiry with the creditor and delete it if they cannot show my signed application.",
		},
		{
			Title:       "Duplicate inquiry",
			Reason:      "This inquiry duplicates another inquiry from the same application and is reported more than once.",
			Instruction: "Please remove the duplicate inquiry so the application is reported only once.",
		},
	},
}

// Category picks the suggestion category of an account or public record.
// Priority is charged-off, then collection, then late payment, then general.
func Category(item model.CanonicalItem, closed bool) model.SuggestionCategory {
	status := strings.ToLower(item.Status)
	switch {
	case strings.Contains(status, "charged") || (closed && item.Balance > 0):
		return model.SuggestChargedOff
	case strings.Contains(status, "collection") || strings.Contains(strings.ToLower(item.AccountType), "collection"):
		return model.SuggestCollection
	case HasLateMarker(item):
		return model.SuggestLatePayment
	default:
		return model.SuggestGeneral
	}
}

// HasLateMarker reports whether the payment history shows a late payment:
// a 1-9 marker in the payment pattern, or a non-zero late counter
func HasLateMarker(item model.CanonicalItem) bool {
	if strings.ContainsAny(item.PaymentPattern, "123456789") {
		return true
	}
	return item.Late30 > 0 || item.Late60 > 0 || item.Late90 > 0
}

// For returns the suggestion triples of a category; unknown categories get general
func For(c model.SuggestionCategory) []model.Suggestion {
	if list, ok := Table[c]; ok {
		return append([]model.Suggestion(nil), list...)
	}
	return append([]model.Suggestion(nil), Table[model.SuggestGeneral]...)
}

// FromTemplates turns custom reason and instruction snippets into suggestions,
// pairing them by position. Unpaired snippets keep the other side empty.
func FromTemplates(reasons, instructions []model.Template) []model.Suggestion {
	n := max(len(reasons), len(instructions))
	out := make([]model.Suggestion, 0, n)
	for i := 0; i < n; i++ {
		var s model.Suggestion
		if i < len(reasons) {
			s.Title = reasons[i].Title
			s.Reason = reasons[i].Content
		}
		if i < len(instructions) {
			if s.Title == "" {
				s.Title = instructions[i].Title
			}
			s.Instruction = instructions[i].Content
		}
		if s.Title == "" {
			s.Title = "Custom"
		}
		out = append(out, s)
	}
	return out
}
