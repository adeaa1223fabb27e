package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/tradeline/internal/model"
	"github.com/ppiankov/tradeline/internal/persist"
)

// ScanClient posts report data to a scan endpoint
type ScanClient interface {
	AIScan(ctx context.Context, creditData any) (map[string][]string, error)
}

// RemoteProvider calls POST /api/ai-scan on the persistence API
type RemoteProvider struct {
	client ScanClient
	config Config
}

// NewRemoteProvider creates a provider for the scan endpoint at config.BaseURL
func NewRemoteProvider(config Config) (*RemoteProvider, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("remote scan requires a base URL")
	}
	timeout := time.Duration(config.Timeout) * time.Second
	client := persist.NewClient(config.BaseURL, model.HTTPConfig{
		Timeout:    timeout,
		UserAgent:  model.DefaultConfig().HTTP.UserAgent,
		HTTPProxy:  config.HTTPProxy,
		HTTPSProxy: config.HTTPSProxy,
		NoProxy:    config.NoProxy,
	}, nil, nil)
	return NewRemoteProviderWithClient(client, config), nil
}

// NewRemoteProviderWithClient wraps an existing scan client
func NewRemoteProviderWithClient(client ScanClient, config Config) *RemoteProvider {
	return &RemoteProvider{client: client, config: config}
}

// Name returns the provider name
func (p *RemoteProvider) Name() string {
	return "remote"
}

// IsAvailable reports whether a client is configured; the endpoint has no health route
func (p *RemoteProvider) IsAvailable(ctx context.Context) bool {
	return p.client != nil
}

// Scan sends the raw report as creditData
func (p *RemoteProvider) Scan(ctx context.Context, req ScanRequest) (*ScanResponse, error) {
	var creditData any = map[string]any{"accounts": req.Accounts}
	if len(req.CreditData) > 0 {
		creditData = req.CreditData
	}

	violations, err := p.client.AIScan(ctx, creditData)
	if err != nil {
		return nil, fmt.Errorf("remote scan: %w", err)
	}
	if violations == nil {
		violations = map[string][]string{}
	}
	return &ScanResponse{Violations: violations, Model: "remote"}, nil
}
