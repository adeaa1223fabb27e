package llm

import (
	"context"
	"strings"
)

// StubProvider derives tags from fixed rules so scans work offline and
// repeat exactly
type StubProvider struct{}

// NewStubProvider creates the rule-based provider
func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

// Name returns the provider name
func (p *StubProvider) Name() string {
	return "stub"
}

// IsAvailable is always true
func (p *StubProvider) IsAvailable(ctx context.Context) bool {
	return true
}

// Scan applies the rules to every negative account
func (p *StubProvider) Scan(ctx context.Context, req ScanRequest) (*ScanResponse, error) {
	out := make(map[string][]string)
	for _, a := range req.Accounts {
		if !a.Negative {
			continue
		}
		if tags := stubTags(a); len(tags) > 0 {
			out[a.ID] = tags
		}
	}
	return &ScanResponse{Violations: out, Model: "rules"}, nil
}

func stubTags(a AccountSummary) []string {
	var tags []string
	if a.Closed && a.Balance > 0 && !a.Collection && !a.ChargeOff {
		tags = append(tags, "Metro 2 Violation: Closed account reports a non-zero balance")
	}
	if a.Closed && a.PastDue > 0 {
		tags = append(tags, "Metro 2 Violation: Past due amount reported on a closed account")
	}
	if a.Late30+a.Late60+a.Late90 > 0 && strings.Contains(strings.ToLower(a.Status), "paid") {
		tags = append(tags, "FCRA Violation: Late payments reported on an account shown as paid")
	}
	if a.Collection && len(a.Bureaus) > 0 && len(a.Bureaus) < 3 {
		tags = append(tags, "Metro 2 Violation: Collection reported inconsistently across bureaus")
	}
	if len(tags) == 0 {
		tags = append(tags, "FCRA Violation: Derogatory information is not verifiably accurate")
	}
	return tags
}
