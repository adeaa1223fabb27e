package model

import "time"

// Config is the complete tradeline configuration.
// Field tags serve both yaml (config show/init) and viper unmarshalling.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Session      SessionConfig      `yaml:"session" mapstructure:"session"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// HTTPConfig controls report loading and persistence API calls
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls the AI scan and template caches
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig sizes the worker pools
type ConcurrencyConfig struct {
	Workers        int `yaml:"workers" mapstructure:"workers"`                 // Batch analysis workers
	PersistWorkers int `yaml:"persist_workers" mapstructure:"persist_workers"` // Fire-and-forget persistence workers
}

// RateLimitingConfig limits calls per persistence API host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LLMConfig configures the optional AI violation scan
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, remote, stub, "" (disabled)
	Model     string `yaml:"model,omitempty" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	StrictIDs bool   `yaml:"strict_ids" mapstructure:"strict_ids"` // Reject results naming unknown accounts
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // memory, sqlite, http
	Path    string `yaml:"path,omitempty" mapstructure:"path"`
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// SessionConfig tunes the dispute session
type SessionConfig struct {
	TypingInterval time.Duration `yaml:"typing_interval" mapstructure:"typing_interval"`
	ReferenceDate  string        `yaml:"reference_date,omitempty" mapstructure:"reference_date"` // YYYY-MM-DD; empty = today
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
	Color         bool `yaml:"color" mapstructure:"color"`
}

// LoggingConfig controls the structured logger
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "tradeline/0.1 (+https://github.com/ppiankov/tradeline)",
			MaxBodyBytes: 10_000_000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:        4,
			PersistWorkers: 2,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 1500,
			StrictIDs: true,
		},
		Store: StoreConfig{
			Backend: "memory",
		},
		Session: SessionConfig{
			TypingInterval: 15 * time.Millisecond,
		},
		Output: OutputConfig{
			IncludeFooter: true,
			Color:         true,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}
