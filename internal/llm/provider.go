// Package llm runs the optional AI violation scan over a report's accounts.
//
// Every provider returns a map of account id to violation tags. The result
// only ever feeds violation tags into dispute text; it never changes how an
// item is classified.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/tradeline/internal/model"
)

// Provider defines the interface for violation scan providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Scan returns violation tags per account id
	Scan(ctx context.Context, req ScanRequest) (*ScanResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// AccountSummary is the per-account view sent to a provider
type AccountSummary struct {
	ID          string   `json:"id"`
	Creditor    string   `json:"creditor"`
	AccountType string   `json:"account_type,omitempty"`
	Status      string   `json:"status,omitempty"`
	Rating      string   `json:"rating,omitempty"`
	Bureaus     []string `json:"bureaus"`
	Balance     float64  `json:"balance"`
	PastDue     float64  `json:"past_due"`
	Late30      int      `json:"late_30,omitempty"`
	Late60      int      `json:"late_60,omitempty"`
	Late90      int      `json:"late_90,omitempty"`
	Collection  bool     `json:"collection,omitempty"`
	ChargeOff   bool     `json:"charge_off,omitempty"`
	Negative    bool     `json:"negative"`
	Closed      bool     `json:"closed"`
}

// ScanRequest contains the input for a violation scan
type ScanRequest struct {
	// Accounts is the STRICT allowlist of account ids a provider may name
	Accounts []AccountSummary

	// CreditData is the raw report document, sent only by the remote provider
	CreditData json.RawMessage

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// ScanResponse contains the scan output
type ScanResponse struct {
	// Violations maps account id to violation tags
	Violations map[string][]string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "remote", "stub", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (Ollama, the remote scan API)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictIDs rejects results naming accounts outside the request
	StrictIDs bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		StrictIDs: true,
		MaxTokens: 1500,
	}
}

// AccountsFromAnalysis summarizes every account group of an analysis
func AccountsFromAnalysis(a *model.Analysis) []AccountSummary {
	out := make([]AccountSummary, 0, len(a.Accounts))
	for _, gv := range a.Accounts {
		p := gv.Group.Primary()
		s := AccountSummary{
			ID:          gv.Group.ID,
			Creditor:    p.CreditorName,
			AccountType: p.AccountType,
			Status:      p.Status,
			Rating:      p.CurrentRating,
			Balance:     p.Balance,
			PastDue:     p.PastDue,
			Collection:  p.Collection,
			ChargeOff:   p.ChargeOff,
			Negative:    gv.Group.Negative,
			Closed:      gv.Group.Closed,
		}
		for _, m := range gv.Group.Members {
			s.Late30 = max(s.Late30, m.Late30)
			s.Late60 = max(s.Late60, m.Late60)
			s.Late90 = max(s.Late90, m.Late90)
		}
		for _, b := range gv.Group.Bureaus {
			s.Bureaus = append(s.Bureaus, string(b))
		}
		out = append(out, s)
	}
	return out
}

// BuildPrompt constructs the default scan prompt with a strict account id allowlist
func BuildPrompt(accounts []AccountSummary) string {
	var b strings.Builder
	b.WriteString(`You are reviewing tradelines from a consumer credit report for data-reporting problems.

CRITICAL RULES:
1. Respond with ONE JSON object and nothing else.
2. Keys MUST be account ids from the list below. Never invent ids.
3. Each value is a list of short violation tags. Prefix each tag with
   "Metro 2 Violation:" for reporting-format problems or
   "FCRA Violation:" for accuracy problems.
4. Omit accounts with no problems. Return {} when nothing is wrong.

Accounts:
`)
	data, _ := json.MarshalIndent(limitAccounts(accounts, 50), "", "  ")
	b.Write(data)
	if len(accounts) > 50 {
		fmt.Fprintf(&b, "\n... and %d more accounts not shown", len(accounts)-50)
	}
	b.WriteString("\n")
	return b.String()
}

func limitAccounts(accounts []AccountSummary, n int) []AccountSummary {
	if len(accounts) > n {
		return accounts[:n]
	}
	return accounts
}

// ParseViolations extracts the JSON object from a model reply.
// Code fences and surrounding prose are tolerated.
func ParseViolations(text string) (map[string][]string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var raw map[string][]string
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parse violations: %w", err)
	}

	out := make(map[string][]string, len(raw))
	for id, tags := range raw {
		var clean []string
		for _, t := range tags {
			if t = strings.TrimSpace(t); t != "" {
				clean = append(clean, t)
			}
		}
		if len(clean) > 0 {
			out[id] = clean
		}
	}
	return out, nil
}

// Enforce checks returned ids against the request allowlist. In strict
// mode an unknown id fails the scan; otherwise unknown ids are dropped and
// returned.
func Enforce(accounts []AccountSummary, violations map[string][]string, strict bool) (map[string][]string, []string, error) {
	allowed := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		allowed[a.ID] = true
	}

	var unknown []string
	for id := range violations {
		if !allowed[id] {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)

	if len(unknown) == 0 {
		return violations, nil, nil
	}
	if strict {
		return nil, unknown, fmt.Errorf("UNKNOWN ACCOUNT: scan named account ids outside the request: %s", strings.Join(unknown, ", "))
	}

	kept := make(map[string][]string, len(violations))
	for id, tags := range violations {
		if allowed[id] {
			kept[id] = tags
		}
	}
	return kept, unknown, nil
}

func pickModel(req ScanRequest, cfg Config, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if cfg.Model != "" {
		return cfg.Model
	}
	return fallback
}

func pickMaxTokens(req ScanRequest, cfg Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return 1500
}

func promptFor(req ScanRequest) string {
	if req.Prompt != "" {
		return req.Prompt
	}
	return BuildPrompt(req.Accounts)
}

const systemPrompt = "You find data-reporting problems in credit report tradelines and answer only with JSON keyed by the given account ids."
