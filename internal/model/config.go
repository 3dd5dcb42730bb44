package model

import "time"

// Config is the complete application configuration
type Config struct {
	HTTP        HTTPConfig        `json:"http" yaml:"http"`
	Cache       CacheConfig       `json:"cache" yaml:"cache"`
	LLM         LLMConfig         `json:"llm" yaml:"llm"`
	Rephraser   LLMConfig         `json:"rephraser" yaml:"rephraser"`
	Concurrency ConcurrencyConfig `json:"concurrency" yaml:"concurrency"`
	Output      OutputConfig      `json:"output" yaml:"output"`
}

// HTTPConfig controls URL ingestion
type HTTPConfig struct {
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
	UserAgent    string        `json:"user_agent" yaml:"user_agent"`
	MaxBodyBytes int64         `json:"max_body_bytes" yaml:"max_body_bytes"`
	InsecureTLS  bool          `json:"insecure_tls" yaml:"insecure_tls"`
	HTTPProxy    string        `json:"http_proxy,omitempty" yaml:"http_proxy,omitempty"`
	HTTPSProxy   string        `json:"https_proxy,omitempty" yaml:"https_proxy,omitempty"`
	NoProxy      string        `json:"no_proxy,omitempty" yaml:"no_proxy,omitempty"`
}

// CacheConfig controls analysis result caching
type CacheConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	Dir       string        `json:"dir" yaml:"dir"`
	MemoryTTL time.Duration `json:"memory_ttl" yaml:"memory_ttl"`
	DiskTTL   time.Duration `json:"disk_ttl" yaml:"disk_ttl"`
}

// LLMConfig holds inference provider configuration
type LLMConfig struct {
	// Provider name: "ollama", "openai", ""
	Provider string `json:"provider" yaml:"provider"`

	// Model name (provider-specific)
	Model string `json:"model" yaml:"model"`

	// APIKey for OpenAI-compatible endpoints (unused by Ollama)
	APIKey string `json:"-" yaml:"-"`

	// BaseURL for custom endpoints (e.g. a local llama.cpp server)
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Timeout for the full streaming call, in seconds
	Timeout int `json:"timeout" yaml:"timeout"`

	// MaxTokens limits response generation
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MaxInputTokens rejects over-long inputs before inference
	MaxInputTokens int `json:"max_input_tokens" yaml:"max_input_tokens"`
}

// ConcurrencyConfig controls batch processing and validation fan-out
type ConcurrencyConfig struct {
	Workers           int     `json:"workers" yaml:"workers"`
	ValidationWorkers int     `json:"validation_workers" yaml:"validation_workers"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `json:"verbose" yaml:"verbose"`
	IncludeFooter bool `json:"include_footer" yaml:"include_footer"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "AlterEgo/0.1 (+https://github.com/alterego-ai/alterego)",
			MaxBodyBytes: 2_000_000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:       "ollama",
			Model:          "",
			Timeout:        120, // local models are slow
			MaxTokens:      1024,
			MaxInputTokens: 1024,
		},
		Rephraser: LLMConfig{
			Provider:       "ollama",
			Model:          "",
			Timeout:        180,
			MaxTokens:      1024,
			MaxInputTokens: 1024,
		},
		Concurrency: ConcurrencyConfig{
			Workers:           2, // a local inference server rarely benefits from more
			ValidationWorkers: 8,
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
	}
}
