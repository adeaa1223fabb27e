package llm

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ppiankov/tradeline/internal/cache"
	"github.com/ppiankov/tradeline/internal/logging"
	"github.com/ppiankov/tradeline/internal/model"
	"go.uber.org/zap"
)

// Scanner runs a provider over an analysis and degrades to warnings on failure
type Scanner struct {
	provider Provider
	config   Config
	cache    cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewScanner creates a scanner from configuration. A disabled provider
// yields a scanner whose ScanAnalysis returns nil. c may be nil.
func NewScanner(config Config, c cache.Cache, logger *zap.Logger) (*Scanner, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return NewScannerWithProvider(provider, config, c, logger), nil
}

// NewScannerWithProvider wraps an existing provider
func NewScannerWithProvider(provider Provider, config Config, c cache.Cache, logger *zap.Logger) *Scanner {
	if c == nil {
		c = cache.Nop{}
	}
	return &Scanner{
		provider: provider,
		config:   config,
		cache:    c,
		ttl:      24 * time.Hour,
		logger:   logging.OrNop(logger),
	}
}

// IsEnabled reports whether a provider is configured
func (s *Scanner) IsEnabled() bool {
	return s.provider != nil
}

// ProviderName returns the configured provider, or ""
func (s *Scanner) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// ScanAnalysis scans the accounts of an analysis. raw is the report
// document; its hash keys the cache. Failures never fail the analysis:
// they come back as warnings on the summary.
func (s *Scanner) ScanAnalysis(ctx context.Context, a *model.Analysis, raw []byte) *model.AIScanSummary {
	if s.provider == nil {
		return nil
	}

	summary := &model.AIScanSummary{
		Enabled:  true,
		Provider: s.provider.Name(),
		Model:    s.config.Model,
	}

	accounts := AccountsFromAnalysis(a)
	if len(accounts) == 0 {
		summary.Warnings = append(summary.Warnings, "No accounts to scan")
		return summary
	}

	key := cache.Key(cache.NamespaceAIScan, s.provider.Name(), s.config.Model, cache.ContentHash(raw))
	var cached map[string][]string
	if cache.GetJSON(s.cache, key, &cached) {
		s.logger.Debug("ai scan cache hit", zap.String("provider", s.provider.Name()))
		summary.Violations = cached
		summary.Warnings = append(summary.Warnings, "Loaded from cache")
		return summary
	}

	if !s.provider.IsAvailable(ctx) {
		summary.Enabled = false
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Provider %s is not available", s.provider.Name()))
		return summary
	}

	resp, err := s.provider.Scan(ctx, ScanRequest{
		Accounts:   accounts,
		CreditData: raw,
		Model:      s.config.Model,
		MaxTokens:  s.config.MaxTokens,
	})
	if err != nil {
		s.logger.Warn("ai scan failed", zap.String("provider", s.provider.Name()), zap.String("op", "ai_scan"), zap.Error(err))
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Scan failed: %v", err))
		return summary
	}

	violations, dropped, err := Enforce(accounts, resp.Violations, s.config.StrictIDs)
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Scan rejected: %v", err))
		return summary
	}
	if len(dropped) > 0 {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Dropped %d unknown account ids", len(dropped)))
	}

	if resp.Model != "" {
		summary.Model = resp.Model
	}
	summary.Violations = violations
	if resp.TokensUsed > 0 {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}
	summary.Warnings = append(summary.Warnings, fmt.Sprintf("Verified %d flagged accounts against %d sent", len(violations), len(accounts)))

	if err := cache.SetJSON(s.cache, key, violations, s.ttl); err != nil {
		s.logger.Debug("ai scan cache write failed", zap.Error(err))
	}
	return summary
}

// FlaggedIDs returns the account ids with at least one tag, sorted
func FlaggedIDs(summary *model.AIScanSummary) []string {
	if summary == nil {
		return nil
	}
	ids := make([]string, 0, len(summary.Violations))
	for id, tags := range summary.Violations {
		if len(tags) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
