package model

import (
	"strings"
	"time"
)

// Document is the report source: a single credit report as delivered by the
// reporting partner. The engine only reads it.
type Document struct {
	Response ResponseBody `json:"CREDIT_RESPONSE"`
}

// ResponseBody holds the per-section raw records of a credit report
type ResponseBody struct {
	ReportID      string    `json:"@CreditReportIdentifier,omitempty"`
	FirstIssued   string    `json:"@CreditReportFirstIssuedDate,omitempty"`
	Borrower      RawItem   `json:"BORROWER,omitempty"`
	Liabilities   []RawItem `json:"CREDIT_LIABILITY,omitempty"`
	Inquiries     []RawItem `json:"CREDIT_INQUIRY,omitempty"`
	PublicRecords []RawItem `json:"CREDIT_PUBLIC_RECORD,omitempty"`
}

// RawItem is one per-bureau record with whatever keys the bureau sent.
// Values are strings, numbers, booleans, nested objects or arrays of objects.
type RawItem map[string]any

// Bureau identifies one of the three credit reporting agencies
type Bureau string

const (
	BureauTransUnion Bureau = "TransUnion"
	BureauEquifax    Bureau = "Equifax"
	BureauExperian   Bureau = "Experian"
	BureauUnknown    Bureau = "Unknown"
)

// Bureaus lists the bureaus in display order
var Bureaus = []Bureau{BureauTransUnion, BureauEquifax, BureauExperian}

// ParseBureau maps a source-type attribute to a Bureau. Abbreviations are accepted.
func ParseBureau(s string) Bureau {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transunion", "trans union", "tu", "tuc":
		return BureauTransUnion
	case "equifax", "eqf", "efx", "eq":
		return BureauEquifax
	case "experian", "exp", "xpn", "ex":
		return BureauExperian
	default:
		return BureauUnknown
	}
}

// ItemKind is the shape of a disputable record
type ItemKind string

const (
	KindAccount      ItemKind = "account"
	KindInquiry      ItemKind = "inquiry"
	KindPublicRecord ItemKind = "public_record"
	KindPersonalInfo ItemKind = "personal_info"
)

// Category is a report section whose disputes complete together
type Category string

const (
	CategoryAccounts      Category = "accounts"
	CategoryInquiries     Category = "inquiries"
	CategoryPersonalInfo  Category = "personal_info"
	CategoryPublicRecords Category = "public_records"
)

// Categories lists the sections in page order
var Categories = []Category{CategoryPersonalInfo, CategoryAccounts, CategoryInquiries, CategoryPublicRecords}

// CategoryForKind maps an item kind to the section that owns it
func CategoryForKind(k ItemKind) Category {
	switch k {
	case KindInquiry:
		return CategoryInquiries
	case KindPublicRecord:
		return CategoryPublicRecords
	case KindPersonalInfo:
		return CategoryPersonalInfo
	default:
		return CategoryAccounts
	}
}

// PersonalField names the kind of personal-information entry
type PersonalField string

const (
	PersonalName            PersonalField = "name"
	PersonalAlias           PersonalField = "alias"
	PersonalCurrentAddress  PersonalField = "current_address"
	PersonalPreviousAddress PersonalField = "previous_address"
	PersonalBirthDate       PersonalField = "birth_date"
	PersonalEmployer        PersonalField = "employer"
)

// CanonicalItem is the normalized, read-only view of a RawItem.
// Amounts default to 0 and dates to the zero time when they cannot be parsed.
type CanonicalItem struct {
	ID     string   `json:"id"`
	Kind   ItemKind `json:"kind"`
	Bureau Bureau   `json:"bureau"`

	// Identifiers
	AccountNumber  string `json:"account_number,omitempty"`
	SubscriberCode string `json:"subscriber_code,omitempty"`
	CaseNumber     string `json:"case_number,omitempty"`

	CreditorName  string `json:"creditor_name,omitempty"` // Creditor, inquirer or court name
	AccountType   string `json:"account_type,omitempty"`
	Status        string `json:"status,omitempty"`      // Free-text account status
	StatusCode    string `json:"status_code,omitempty"` // Coded status (C = closed)
	CurrentRating string `json:"current_rating,omitempty"`
	RecordType    string `json:"record_type,omitempty"` // Public record type (bankruptcy, judgment...)

	Balance     float64 `json:"balance"`
	PastDue     float64 `json:"past_due"`
	CreditLimit float64 `json:"credit_limit"`

	Derogatory bool `json:"derogatory"` // @_DerogatoryDataIndicator = Y
	Collection bool `json:"collection"` // Collection indicator = Y
	ChargeOff  bool `json:"charge_off"` // Charge-off indicator = Y

	Opened        time.Time `json:"opened,omitempty"`
	Reported      time.Time `json:"reported,omitempty"`
	Closed        time.Time `json:"closed,omitempty"`
	ChargeOffDate time.Time `json:"charge_off_date,omitempty"`
	Date          time.Time `json:"date,omitempty"` // Inquiry date or public record filed date

	PaymentPattern string `json:"payment_pattern,omitempty"`
	Late30         int    `json:"late_30,omitempty"`
	Late60         int    `json:"late_60,omitempty"`
	Late90         int    `json:"late_90,omitempty"`

	// Personal information
	Field PersonalField `json:"field,omitempty"`
	Value string        `json:"value,omitempty"`

	Raw RawItem `json:"-"`
}

// Title returns a short human label for the item
func (c CanonicalItem) Title() string {
	switch c.Kind {
	case KindPersonalInfo:
		return c.Value
	case KindPublicRecord:
		if c.RecordType != "" {
			return c.RecordType
		}
	}
	if c.CreditorName != "" {
		return c.CreditorName
	}
	return c.ID
}
