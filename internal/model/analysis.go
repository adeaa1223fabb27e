package model

import "time"

// Classification is derived from a CanonicalItem, never stored
type Classification struct {
	Negative bool    `json:"negative"`
	Closed   bool    `json:"closed"`
	Recent   *bool   `json:"recent,omitempty"` // Inquiries only
	Checks   []Check `json:"checks,omitempty"` // Audit trail of the negative checks
}

// Check records one named negative check and whether it fired
type Check struct {
	Name   CheckName `json:"name"`
	Fired  bool      `json:"fired"`
	Detail string    `json:"detail,omitempty"`
}

// CheckName identifies one of the negative checks
type CheckName string

const (
	CheckDerogatoryFlag CheckName = "derogatory_flag"
	CheckCollectionFlag CheckName = "collection_flag"
	CheckChargeOffFlag  CheckName = "charge_off_flag"
	CheckPastDue        CheckName = "past_due_amount"
	CheckCurrentRating  CheckName = "current_rating"
	CheckChargeOffDate  CheckName = "charge_off_date"
	CheckPublicRecord   CheckName = "public_record"
)

// Group is one logical item seen through one or more bureau feeds.
// Members share a single dispute; each keeps its own per-bureau detail.
type Group struct {
	ID       string          `json:"id"`
	Kind     ItemKind        `json:"kind"`
	Key      string          `json:"key,omitempty"` // Correlation key; empty when ungrouped
	Members  []CanonicalItem `json:"members"`
	Bureaus  []Bureau        `json:"bureaus"`
	Negative bool            `json:"negative"`
	Closed   bool            `json:"closed"`
}

// Primary returns the first member, used for titles and suggestion selection
func (g Group) Primary() CanonicalItem {
	if len(g.Members) == 0 {
		return CanonicalItem{ID: g.ID, Kind: g.Kind}
	}
	return g.Members[0]
}

// SuggestionCategory is the coarse category used to pick suggestion templates
type SuggestionCategory string

const (
	SuggestChargedOff  SuggestionCategory = "charged_off"
	SuggestCollection  SuggestionCategory = "collection"
	SuggestLatePayment SuggestionCategory = "late_payment"
	SuggestGeneral     SuggestionCategory = "general"
	SuggestInquiry     SuggestionCategory = "inquiry"
)

// Suggestion is one guided reason/instruction pair
type Suggestion struct {
	Title       string `json:"title"`
	Reason      string `json:"reason"`
	Instruction string `json:"instruction"`
}

// GroupView is a group with its classification and guidance, as rendered
type GroupView struct {
	Group          Group                     `json:"group"`
	Classification map[Bureau]Classification `json:"classification"`
	Category       SuggestionCategory        `json:"suggestion_category,omitempty"`
	Suggestions    []Suggestion              `json:"suggestions,omitempty"`
	Violations     []string                  `json:"violations,omitempty"`
}

// Analysis is the normalized, classified and correlated form of a Document
type Analysis struct {
	ReportID      string      `json:"report_id,omitempty"`
	Source        string      `json:"source"`
	AnalyzedAt    time.Time   `json:"analyzed_at"`
	ReferenceDate time.Time   `json:"reference_date"`
	PersonalInfo  []GroupView `json:"personal_info"`
	Accounts      []GroupView `json:"accounts"`
	Inquiries     []GroupView `json:"inquiries"`
	PublicRecords []GroupView `json:"public_records"`

	Templates map[string][]Template `json:"templates,omitempty"` // "<type>/<category>" -> custom snippets
	AI        *AIScanSummary        `json:"ai,omitempty"`        // Optional AI scan, never affects classification
}

// Section returns the group views for a category
func (a *Analysis) Section(c Category) []GroupView {
	switch c {
	case CategoryPersonalInfo:
		return a.PersonalInfo
	case CategoryInquiries:
		return a.Inquiries
	case CategoryPublicRecords:
		return a.PublicRecords
	default:
		return a.Accounts
	}
}

// FindGroup looks a group up by id across all sections
func (a *Analysis) FindGroup(id string) (GroupView, bool) {
	for _, c := range Categories {
		for _, gv := range a.Section(c) {
			if gv.Group.ID == id {
				return gv, true
			}
		}
	}
	return GroupView{}, false
}

// AIScanSummary contains the optional AI violation scan
type AIScanSummary struct {
	Enabled    bool                `json:"enabled"`
	Provider   string              `json:"provider,omitempty"`
	Model      string              `json:"model,omitempty"`
	Violations map[string][]string `json:"violations,omitempty"` // account id -> tags
	Warnings   []string            `json:"warnings,omitempty"`
}

// Template is a custom reusable reason or instruction snippet
type Template struct {
	ID        string    `json:"id,omitempty"`
	Type      string    `json:"type"`     // reason | instruction
	Category  string    `json:"category"` // personal_info | accounts | inquiries
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

const (
	TemplateReason      = "reason"
	TemplateInstruction = "instruction"
)

// TemplateTypes and TemplateCategories enumerate the valid template keys
var (
	TemplateTypes      = []string{TemplateReason, TemplateInstruction}
	TemplateCategories = []string{string(CategoryPersonalInfo), string(CategoryAccounts), string(CategoryInquiries)}
)
