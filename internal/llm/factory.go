package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/tradeline/internal/model"
)

// NewProvider creates a scan provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "remote":
		return NewRemoteProvider(config)

	case "stub":
		return NewStubProvider(), nil

	case "":
		// No provider configured - scan disabled
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama, remote, stub)", config.Provider)
	}
}

// ConfigFromModel converts the application config. The remote provider
// falls back to the persistence API base URL.
func ConfigFromModel(cfg *model.Config) Config {
	c := Config{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLM.Timeout,
		StrictIDs:  cfg.LLM.StrictIDs,
		MaxTokens:  cfg.LLM.MaxTokens,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
	}
	if strings.EqualFold(c.Provider, "remote") && c.BaseURL == "" {
		c.BaseURL = cfg.Store.BaseURL
	}
	return c
}
