package extract

import (
	"encoding/json"
	"strings"

	"github.com/ppiankov/tradeline/internal/model"
	"github.com/spf13/cast"
)

// FallbackNA is returned when a field cannot be resolved
const FallbackNA = "N/A"

// Path addresses a value: Key at the top level, or Key inside the sub-object Sub.
// A sub-object may be a single object or an array of objects.
type Path struct {
	Sub string
	Key string
}

// P is shorthand for a top-level path
func P(key string) Path { return Path{Key: key} }

// In is shorthand for a nested path
func In(sub, key string) Path { return Path{Sub: sub, Key: key} }

// FieldTable maps a canonical field name to its ordered source paths
type FieldTable map[string][]Path

// Canonical field names
const (
	FieldID             = "id"
	FieldBureau         = "bureau"
	FieldAccountNumber  = "accountNumber"
	FieldSubscriberCode = "subscriberCode"
	FieldCreditorName   = "creditorName"
	FieldAccountType    = "accountType"
	FieldAccountStatus  = "accountStatus"
	FieldStatusCode     = "statusCode"
	FieldBalance        = "balance"
	FieldCreditLimit    = "creditLimit"
	FieldPastDue        = "pastDue"
	FieldDerogatory     = "derogatory"
	FieldCollection     = "collection"
	FieldChargeOff      = "chargeOff"
	FieldCurrentRating  = "currentRating"
	FieldChargeOffDate  = "chargeOffDate"
	FieldClosedDate     = "closedDate"
	FieldOpenedDate     = "openedDate"
	FieldReportedDate   = "reportedDate"
	FieldPaymentPattern = "paymentPattern"
	FieldLate30         = "late30"
	FieldLate60         = "late60"
	FieldLate90         = "late90"
	FieldInquiryName    = "inquiryName"
	FieldInquiryDate    = "inquiryDate"
	FieldCaseNumber     = "caseNumber"
	FieldRecordType     = "recordType"
	FieldFiledDate      = "filedDate"
	FieldCourtName      = "courtName"
)

// Known sub-objects searched one level deep when no table path matches
const (
	SubRating         = "_CURRENT_RATING"
	SubPaymentPattern = "_PAYMENT_PATTERN"
	SubCreditor       = "_CREDITOR"
	SubLateCount      = "_LATE_COUNT"
	SubRepository     = "CREDIT_REPOSITORY"
)

// NestedObjects are the sub-objects used by the one-level fallback
var NestedObjects = []string{SubRating, SubPaymentPattern, SubCreditor, SubLateCount}

// DefaultTable lists the alternate spellings seen across bureau feeds
var DefaultTable = FieldTable{
	FieldID:             {P("@CreditLiabilityID"), P("@CreditInquiryID"), P("@CreditPublicRecordID"), P("@_ID"), P("ID")},
	FieldBureau:         {In(SubRepository, "@_SourceType"), P("@CreditRepositorySourceType"), P("@_SourceType"), P("bureau"), P("source")},
	FieldAccountNumber:  {P("@_AccountIdentifier"), P("@AccountNumber"), P("@_AccountNumber"), P("account_number")},
	FieldSubscriberCode: {P("@_SubscriberCode"), P("@CreditTradeReferenceID"), In(SubCreditor, "@_SubscriberCode"), P("subscriber_code")},
	FieldCreditorName:   {In(SubCreditor, "@_Name"), P("@_CreditorName"), P("@_SubscriberName"), P("creditor"), P("creditor_name")},
	FieldAccountType:    {P("@_AccountType"), P("@CreditLoanType"), P("@_LoanType"), P("account_type")},
	FieldAccountStatus:  {P("@_AccountStatusType"), P("@_AccountStatus"), P("status"), P("account_status")},
	FieldStatusCode:     {P("@_AccountStatusCode"), P("@_StatusCode"), P("status_code")},
	FieldBalance:        {P("@_UnpaidBalanceAmount"), P("@_BalanceAmount"), P("@_CurrentBalance"), P("balance")},
	FieldCreditLimit:    {P("@_CreditLimitAmount"), P("@_HighCreditAmount"), P("@_HighBalanceAmount"), P("credit_limit")},
	FieldPastDue:        {P("@_PastDueAmount"), P("@_AmountPastDue"), P("past_due")},
	FieldDerogatory:     {P("@_DerogatoryDataIndicator"), P("@DerogatoryDataIndicator"), P("derogatory")},
	FieldCollection:     {P("@IsCollectionIndicator"), P("@_CollectionIndicator"), P("@IsCollection"), P("collection")},
	FieldChargeOff:      {P("@IsChargeoffIndicator"), P("@_ChargeOffIndicator"), P("@IsChargeOff"), P("charge_off")},
	FieldCurrentRating:  {In(SubRating, "@_Code"), P("@_CurrentRatingCode"), P("current_rating")},
	FieldChargeOffDate:  {P("@_ChargeOffDate"), P("@ChargeOffDate"), P("charge_off_date")},
	FieldClosedDate:     {P("@_AccountClosedDate"), P("@_ClosedDate"), P("closed_date")},
	FieldOpenedDate:     {P("@_AccountOpenedDate"), P("@_OpenedDate"), P("opened_date")},
	FieldReportedDate:   {P("@_AccountReportedDate"), P("@_ReportedDate"), P("reported_date")},
	FieldPaymentPattern: {In(SubPaymentPattern, "@_Data"), P("@_PaymentPatternData"), P("payment_pattern")},
	FieldLate30:         {In(SubLateCount, "@_30Days"), P("@_30DayLateCount")},
	FieldLate60:         {In(SubLateCount, "@_60Days"), P("@_60DayLateCount")},
	FieldLate90:         {In(SubLateCount, "@_90Days"), P("@_90DayLateCount")},
	FieldInquiryName:    {P("@_Name"), P("@_InquiryName"), P("@_SubscriberName"), P("name")},
	FieldInquiryDate:    {P("@_Date"), P("@_InquiryDate"), P("date")},
	FieldCaseNumber:     {P("@_DocketIdentifier"), P("@_CaseNumber"), P("case_number")},
	FieldRecordType:     {P("@_Type"), P("@_PublicRecordType"), P("type")},
	FieldFiledDate:      {P("@_FiledDate"), P("@_DispositionDate"), P("filed_date")},
	FieldCourtName:      {P("@_CourtName"), P("court")},
}

// Extractor resolves canonical fields from raw bureau records
type Extractor struct {
	table    FieldTable
	nested   []string
	fallback string
}

// NewExtractor creates an extractor over the default table
func NewExtractor() *Extractor {
	return NewExtractorWithTable(DefaultTable, FallbackNA)
}

// NewExtractorWithTable creates an extractor with a custom table and fallback.
// An empty fallback is replaced by FallbackNA.
func NewExtractorWithTable(table FieldTable, fallback string) *Extractor {
	if fallback == "" {
		fallback = FallbackNA
	}
	return &Extractor{
		table:    table,
		nested:   NestedObjects,
		fallback: fallback,
	}
}

// Resolve returns the field value or the configured fallback
func (e *Extractor) Resolve(item model.RawItem, name string) string {
	if v, ok := e.Lookup(item, name); ok {
		return v
	}
	return e.fallback
}

// ResolveOr returns the field value or the given fallback (FallbackNA when empty)
func (e *Extractor) ResolveOr(item model.RawItem, name, fallback string) string {
	if v, ok := e.Lookup(item, name); ok {
		return v
	}
	if fallback == "" {
		return FallbackNA
	}
	return fallback
}

// Lookup resolves a field: direct key, then table paths in order, then one
// level into the known sub-objects. The item is never modified.
func (e *Extractor) Lookup(item model.RawItem, name string) (string, bool) {
	if item == nil {
		return "", false
	}

	// 1. Direct key
	if v, ok := scalar(item[name]); ok {
		return v, true
	}

	// 2. Alternate spellings
	paths := e.table[name]
	for _, p := range paths {
		if v, ok := lookupPath(item, p); ok {
			return v, true
		}
	}

	// 3. One level into known sub-objects
	for _, sub := range e.nested {
		if v, ok := lookupPath(item, In(sub, name)); ok {
			return v, true
		}
		for _, p := range paths {
			if p.Sub != "" {
				continue
			}
			if v, ok := lookupPath(item, In(sub, p.Key)); ok {
				return v, true
			}
		}
	}

	return "", false
}

// All returns every value a field takes across an array sub-object, e.g. all
// repositories a merged record was reported by
func (e *Extractor) All(item model.RawItem, name string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range e.table[name] {
		if p.Sub == "" {
			if v, ok := scalar(item[p.Key]); ok && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
			continue
		}
		for _, obj := range Objects(item[p.Sub]) {
			if v, ok := scalar(obj[p.Key]); ok && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func lookupPath(item model.RawItem, p Path) (string, bool) {
	if p.Sub == "" {
		return scalar(item[p.Key])
	}
	for _, obj := range Objects(item[p.Sub]) {
		if v, ok := scalar(obj[p.Key]); ok {
			return v, true
		}
	}
	return "", false
}

// Objects normalizes a value that may be one object or an array of objects
func Objects(v any) []model.RawItem {
	switch t := v.(type) {
	case model.RawItem:
		return []model.RawItem{t}
	case map[string]any:
		return []model.RawItem{t}
	case []model.RawItem:
		return t
	case []any:
		out := make([]model.RawItem, 0, len(t))
		for _, el := range t {
			switch m := el.(type) {
			case model.RawItem:
				out = append(out, m)
			case map[string]any:
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// scalar converts a leaf value to a trimmed string; objects, arrays, nil and
// blank strings do not resolve
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case nil, map[string]any, model.RawItem, []any:
		return "", false
	case json.Number:
		v = t.String()
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}
