package extract

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/tradeline/internal/model"
	"github.com/spf13/cast"
)

// Items holds every canonical item of a document, by kind
type Items struct {
	PersonalInfo  []model.CanonicalItem
	Accounts      []model.CanonicalItem
	Inquiries     []model.CanonicalItem
	PublicRecords []model.CanonicalItem
}

// Normalizer turns raw bureau records into canonical items
type Normalizer struct {
	fields *Extractor
}

// NewNormalizer creates a normalizer over the default field table
func NewNormalizer() *Normalizer {
	return &Normalizer{fields: NewExtractor()}
}

// Fields exposes the underlying field extractor
func (n *Normalizer) Fields() *Extractor {
	return n.fields
}

// Normalize converts a whole document. Item ids are unique within the result.
func (n *Normalizer) Normalize(doc *model.Document) Items {
	var items Items
	if doc == nil {
		return items
	}
	body := doc.Response
	ids := make(map[string]int)

	items.PersonalInfo = uniqueIDs(n.PersonalInfo(body.Borrower), ids)

	for i, raw := range body.Liabilities {
		items.Accounts = append(items.Accounts, n.Account(raw, i))
	}
	for i, raw := range body.Inquiries {
		items.Inquiries = append(items.Inquiries, n.Inquiry(raw, i))
	}
	for i, raw := range body.PublicRecords {
		items.PublicRecords = append(items.PublicRecords, n.PublicRecord(raw, i))
	}

	items.Accounts = uniqueIDs(items.Accounts, ids)
	items.Inquiries = uniqueIDs(items.Inquiries, ids)
	items.PublicRecords = uniqueIDs(items.PublicRecords, ids)
	return items
}

// Account normalizes a tradeline record
func (n *Normalizer) Account(raw model.RawItem, index int) model.CanonicalItem {
	f := n.fields
	item := model.CanonicalItem{
		Kind:           model.KindAccount,
		Bureau:         n.bureau(raw),
		AccountNumber:  n.str(raw, FieldAccountNumber),
		SubscriberCode: n.str(raw, FieldSubscriberCode),
		CreditorName:   n.str(raw, FieldCreditorName),
		AccountType:    n.str(raw, FieldAccountType),
		Status:         n.str(raw, FieldAccountStatus),
		StatusCode:     n.str(raw, FieldStatusCode),
		CurrentRating:  n.str(raw, FieldCurrentRating),
		Balance:        ParseAmount(n.str(raw, FieldBalance)),
		PastDue:        ParseAmount(n.str(raw, FieldPastDue)),
		CreditLimit:    ParseAmount(n.str(raw, FieldCreditLimit)),
		Derogatory:     IsYes(n.str(raw, FieldDerogatory)),
		Collection:     IsYes(n.str(raw, FieldCollection)),
		ChargeOff:      IsYes(n.str(raw, FieldChargeOff)),
		Opened:         ParseDate(n.str(raw, FieldOpenedDate)),
		Reported:       ParseDate(n.str(raw, FieldReportedDate)),
		Closed:         ParseDate(n.str(raw, FieldClosedDate)),
		ChargeOffDate:  ParseDate(n.str(raw, FieldChargeOffDate)),
		PaymentPattern: n.str(raw, FieldPaymentPattern),
		Late30:         ParseCount(n.str(raw, FieldLate30)),
		Late60:         ParseCount(n.str(raw, FieldLate60)),
		Late90:         ParseCount(n.str(raw, FieldLate90)),
		Raw:            raw,
	}
	item.ID = itemID(f, raw, item, index, item.AccountNumber, item.SubscriberCode, item.CreditorName)
	return item
}

// Inquiry normalizes a hard inquiry record
func (n *Normalizer) Inquiry(raw model.RawItem, index int) model.CanonicalItem {
	item := model.CanonicalItem{
		Kind:           model.KindInquiry,
		Bureau:         n.bureau(raw),
		CreditorName:   n.str(raw, FieldInquiryName),
		SubscriberCode: n.str(raw, FieldSubscriberCode),
		AccountType:    n.str(raw, FieldAccountType),
		Date:           ParseDate(n.str(raw, FieldInquiryDate)),
		Raw:            raw,
	}
	item.ID = itemID(n.fields, raw, item, index, item.CreditorName, n.str(raw, FieldInquiryDate))
	return item
}

// PublicRecord normalizes a public record (bankruptcy, judgment, lien)
func (n *Normalizer) PublicRecord(raw model.RawItem, index int) model.CanonicalItem {
	item := model.CanonicalItem{
		Kind:          model.KindPublicRecord,
		Bureau:        n.bureau(raw),
		CaseNumber:    n.str(raw, FieldCaseNumber),
		RecordType:    n.str(raw, FieldRecordType),
		CreditorName:  n.str(raw, FieldCourtName),
		Status:        n.str(raw, FieldAccountStatus),
		Balance:       ParseAmount(n.str(raw, FieldBalance)),
		PastDue:       ParseAmount(n.str(raw, FieldPastDue)),
		Derogatory:    IsYes(n.str(raw, FieldDerogatory)),
		Date:          ParseDate(n.str(raw, FieldFiledDate)),
		ChargeOffDate: ParseDate(n.str(raw, FieldChargeOffDate)),
		Raw:           raw,
	}
	item.ID = itemID(n.fields, raw, item, index, item.CaseNumber, item.RecordType)
	return item
}

// PersonalInfo splits the borrower block into independently disputable entries
func (n *Normalizer) PersonalInfo(borrower model.RawItem) []model.CanonicalItem {
	if borrower == nil {
		return nil
	}
	var items []model.CanonicalItem
	bureau := n.bureau(borrower)

	if name := fullName(borrower); name != "" {
		items = append(items, personal(model.PersonalName, "", name, bureau, borrower))
	}
	for i, alias := range Objects(borrower["_ALIAS"]) {
		if name := fullName(alias); name != "" {
			items = append(items, personal(model.PersonalAlias, fmt.Sprint(i), name, bureauOr(n.bureau(alias), bureau), alias))
		}
	}
	if dob, ok := scalar(borrower["@_BirthDate"]); ok {
		items = append(items, personal(model.PersonalBirthDate, "", dob, bureau, borrower))
	}

	current := false
	prior := 0
	for _, res := range Objects(borrower["_RESIDENCE"]) {
		addr := address(res)
		if addr == "" {
			continue
		}
		kind, _ := scalar(res["@BorrowerResidencyType"])
		b := bureauOr(n.bureau(res), bureau)
		if strings.EqualFold(kind, "Current") && !current {
			current = true
			items = append(items, personal(model.PersonalCurrentAddress, "", addr, b, res))
			continue
		}
		items = append(items, personal(model.PersonalPreviousAddress, fmt.Sprint(prior), addr, b, res))
		prior++
	}

	for i, emp := range Objects(borrower["EMPLOYER"]) {
		if name, ok := scalar(emp["@_Name"]); ok {
			items = append(items, personal(model.PersonalEmployer, fmt.Sprint(i), name, bureauOr(n.bureau(emp), bureau), emp))
		}
	}
	return items
}

func (n *Normalizer) str(raw model.RawItem, field string) string {
	v, _ := n.fields.Lookup(raw, field)
	return v
}

func (n *Normalizer) bureau(raw model.RawItem) model.Bureau {
	v, ok := n.fields.Lookup(raw, FieldBureau)
	if !ok {
		return model.BureauUnknown
	}
	return model.ParseBureau(v)
}

func bureauOr(b, fallback model.Bureau) model.Bureau {
	if b == model.BureauUnknown {
		return fallback
	}
	return b
}

func personal(field model.PersonalField, suffix, value string, bureau model.Bureau, raw model.RawItem) model.CanonicalItem {
	id := "personal:" + string(field)
	if suffix != "" {
		id += ":" + suffix
	}
	return model.CanonicalItem{
		ID:     id,
		Kind:   model.KindPersonalInfo,
		Bureau: bureau,
		Field:  field,
		Value:  value,
		Raw:    raw,
	}
}

func fullName(raw model.RawItem) string {
	if v, ok := scalar(raw["@_UnparsedName"]); ok {
		return v
	}
	var parts []string
	for _, key := range []string{"@_FirstName", "@_MiddleName", "@_LastName", "@_NameSuffix"} {
		if v, ok := scalar(raw[key]); ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func address(raw model.RawItem) string {
	street, _ := scalar(raw["@_StreetAddress"])
	city, _ := scalar(raw["@_City"])
	state, _ := scalar(raw["@_State"])
	zip, _ := scalar(raw["@_PostalCode"])

	var b strings.Builder
	b.WriteString(street)
	if city != "" {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(city)
	}
	if state != "" || zip != "" {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strings.TrimSpace(state + " " + zip))
	}
	return b.String()
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// itemID derives a stable identity: the raw id attribute, then the item's
// identifiers plus bureau, then its position plus bureau
func itemID(f *Extractor, raw model.RawItem, item model.CanonicalItem, index int, identifiers ...string) string {
	prefix := string(item.Kind) + ":"
	if id, ok := f.Lookup(raw, FieldID); ok {
		return prefix + id
	}

	var parts []string
	for _, ident := range identifiers {
		if s := slug(ident); s != "" {
			parts = append(parts, s)
		}
	}
	bureau := slug(string(item.Bureau))
	if len(parts) > 0 {
		return prefix + strings.Join(parts, "-") + "@" + bureau
	}
	return fmt.Sprintf("%s%d@%s", prefix, index, bureau)
}

func uniqueIDs(items []model.CanonicalItem, seen map[string]int) []model.CanonicalItem {
	for i := range items {
		id := items[i].ID
		if n, dup := seen[id]; dup {
			seen[id] = n + 1
			items[i].ID = fmt.Sprintf("%s~%d", id, n+1)
			continue
		}
		seen[id] = 0
	}
	return items
}

// ParseAmount parses a monetary amount; anything unparseable is 0
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == FallbackNA {
		return 0
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = strings.Trim(s, "()")

	v, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if negative {
		v = -v
	}
	return v
}

// ParseCount parses a non-negative counter; anything unparseable is 0
func ParseCount(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"2006-01",
	"01/2006",
	"20060102",
}

// ParseDate parses the date formats bureaus send; failures yield the zero time
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" || s == FallbackNA {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// IsYes reports whether an indicator is set (Y, Yes, true, 1)
func IsYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true
	default:
		return false
	}
}
