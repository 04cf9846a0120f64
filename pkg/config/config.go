// Package config loads and serves runtime configuration.
//
// Configuration comes from three layers, later layers winning:
//  1. Built-in defaults (DefaultConfig)
//  2. The opendev.yaml project file
//  3. Environment variables (API keys, debug flags)
//
// A process-wide singleton holds the loaded config; call LoadConfig once at
// startup and GetConfig everywhere else. Model metadata (KnownModels) and
// provider inference (ProviderPatterns) are static tables, not configuration.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Provider name constants. These are the names callers pass when selecting
// which backend answers a request.
const (
	ProviderAnthropic   = "anthropic"
	ProviderOpenAI      = "openai"
	ProviderGemini      = "gemini"
	ProviderOllamaLocal = "ollama_local"
	ProviderOllamaCloud = "ollama_cloud"
)

// KnownProviders returns the provider names accepted by the client registry,
// in display order.
func KnownProviders() []string {
	return []string{
		ProviderAnthropic,
		ProviderOpenAI,
		ProviderGemini,
		ProviderOllamaLocal,
		ProviderOllamaCloud,
	}
}

// IsKnownProvider reports whether name is a recognized provider.
func IsKnownProvider(name string) bool {
	for _, p := range KnownProviders() {
		if p == name {
			return true
		}
	}
	return false
}

// ModelInfo holds static metadata about a model.
type ModelInfo struct {
	Provider        string
	ContextWindow   int
	MaxOutputTokens int
	SupportsTools   bool
}

// KnownModels maps model identifiers to their metadata.
//
//nolint:gochecknoglobals // Static lookup table
var KnownModels = map[string]ModelInfo{
	"claude-sonnet-4-5": {
		Provider:        ProviderAnthropic,
		ContextWindow:   200000,
		MaxOutputTokens: 64000,
		SupportsTools:   true,
	},
	"claude-haiku-4-5": {
		Provider:        ProviderAnthropic,
		ContextWindow:   200000,
		MaxOutputTokens: 64000,
		SupportsTools:   true,
	},
	"gpt-5": {
		Provider:        ProviderOpenAI,
		ContextWindow:   400000,
		MaxOutputTokens: 128000,
		SupportsTools:   true,
	},
	"gpt-5-mini": {
		Provider:        ProviderOpenAI,
		ContextWindow:   400000,
		MaxOutputTokens: 128000,
		SupportsTools:   true,
	},
	"gemini-2.5-pro": {
		Provider:        ProviderGemini,
		ContextWindow:   1048576,
		MaxOutputTokens: 65536,
		SupportsTools:   true,
	},
	"gemini-2.5-flash": {
		Provider:        ProviderGemini,
		ContextWindow:   1048576,
		MaxOutputTokens: 65536,
		SupportsTools:   true,
	},
	"qwen3:8b": {
		Provider:        ProviderOllamaLocal,
		ContextWindow:   40960,
		MaxOutputTokens: 8192,
		SupportsTools:   true,
	},
	"gpt-oss:120b": {
		Provider:        ProviderOllamaCloud,
		ContextWindow:   131072,
		MaxOutputTokens: 32768,
		SupportsTools:   true,
	},
}

// ProviderPatterns infers a provider from a model name prefix when the model
// is not in KnownModels.
//
//nolint:gochecknoglobals // Static lookup table
var ProviderPatterns = map[string]string{
	"claude-": ProviderAnthropic,
	"gpt-":    ProviderOpenAI,
	"o3":      ProviderOpenAI,
	"o4":      ProviderOpenAI,
	"gemini-": ProviderGemini,
}

// GetModelProvider returns the provider for a model name, using KnownModels
// first and prefix patterns as fallback.
func GetModelProvider(model string) (string, error) {
	if info, ok := KnownModels[model]; ok {
		return info.Provider, nil
	}
	for prefix, provider := range ProviderPatterns {
		if strings.HasPrefix(model, prefix) {
			return provider, nil
		}
	}
	return "", fmt.Errorf("unknown model %q: no provider mapping", model)
}

// GetModelInfo returns metadata for a known model.
func GetModelInfo(model string) (ModelInfo, error) {
	info, ok := KnownModels[model]
	if !ok {
		return ModelInfo{}, fmt.Errorf("unknown model %q", model)
	}
	return info, nil
}

// apiKeyEnvVars maps providers to the secret name holding their API key.
//
//nolint:gochecknoglobals // Static lookup table
var apiKeyEnvVars = map[string]string{
	ProviderAnthropic:   "ANTHROPIC_API_KEY",
	ProviderOpenAI:      "OPENAI_API_KEY",
	ProviderGemini:      "GEMINI_API_KEY",
	ProviderOllamaCloud: "OLLAMA_API_KEY",
}

// GetAPIKey returns the API key for a provider using the standard secret
// precedence (decrypted secrets file, then environment). Local Ollama needs
// no key and always succeeds with an empty string.
func GetAPIKey(provider string) (string, error) {
	envVar, ok := apiKeyEnvVars[provider]
	if !ok {
		if provider == ProviderOllamaLocal {
			return "", nil
		}
		return "", fmt.Errorf("no API key mapping for provider %q", provider)
	}
	key, err := GetSecret(envVar)
	if err != nil {
		return "", fmt.Errorf("API key for provider %s: %w", provider, err)
	}
	return key, nil
}

// ProviderConfig holds per-provider settings from the config file.
type ProviderConfig struct {
	Model   string `yaml:"model"`
	Host    string `yaml:"host,omitempty"` // Ollama only
	Enabled *bool  `yaml:"enabled,omitempty"`
}

// RetryConfig controls the retry middleware.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

// CircuitBreakerConfig controls the circuit breaker middleware.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// ExecutionConfig bounds the orchestration engine.
type ExecutionConfig struct {
	MaxIterations  int           `yaml:"max_iterations"`  // reasoning-action loop ceiling
	StepTimeout    time.Duration `yaml:"step_timeout"`    // per-step wall clock bound
	RequestTimeout time.Duration `yaml:"request_timeout"` // single LLM call bound
	MaxTokens      int           `yaml:"max_tokens"`      // completion token cap
}

// WebConfig holds the HTTP server settings.
type WebConfig struct {
	Bind    string `yaml:"bind"`
	Enabled bool   `yaml:"enabled"`
}

// Config is the root configuration document.
type Config struct {
	Providers       map[string]ProviderConfig `yaml:"providers,omitempty"`
	DefaultProvider string                    `yaml:"default_provider"`
	WorkspaceDir    string                    `yaml:"workspace_dir"`
	DatabasePath    string                    `yaml:"database_path"`
	Execution       ExecutionConfig           `yaml:"execution"`
	Retry           RetryConfig               `yaml:"retry"`
	CircuitBreaker  CircuitBreakerConfig      `yaml:"circuit_breaker"`
	Web             WebConfig                 `yaml:"web"`
}

// DefaultConfig returns the built-in defaults applied before the yaml file.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{
			ProviderAnthropic:   {Model: "claude-sonnet-4-5"},
			ProviderOpenAI:      {Model: "gpt-5-mini"},
			ProviderGemini:      {Model: "gemini-2.5-flash"},
			ProviderOllamaLocal: {Model: "qwen3:8b", Host: "http://localhost:11434"},
			ProviderOllamaCloud: {Model: "gpt-oss:120b", Host: "https://ollama.com"},
		},
		DefaultProvider: ProviderAnthropic,
		WorkspaceDir:    ".",
		DatabasePath:    ".opendev/opendev.db",
		Execution: ExecutionConfig{
			MaxIterations:  15,
			StepTimeout:    10 * time.Minute,
			RequestTimeout: 5 * time.Minute,
			MaxTokens:      8192,
		},
		Retry: RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  1 * time.Second,
			MaxDelay:      30 * time.Second,
			BackoffFactor: 2.0,
		},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          60 * time.Second,
		},
		Web: WebConfig{
			Bind:    ":8742",
			Enabled: true,
		},
	}
}

// Validate checks cross-field consistency after loading.
func (c *Config) Validate() error {
	if c.DefaultProvider != "" && !IsKnownProvider(c.DefaultProvider) {
		return fmt.Errorf("default_provider %q is not a known provider", c.DefaultProvider)
	}
	for name := range c.Providers {
		if !IsKnownProvider(name) {
			return fmt.Errorf("providers.%s is not a known provider", name)
		}
	}
	if c.Execution.MaxIterations <= 0 {
		return fmt.Errorf("execution.max_iterations must be positive, got %d", c.Execution.MaxIterations)
	}
	if c.Execution.MaxTokens <= 0 {
		return fmt.Errorf("execution.max_tokens must be positive, got %d", c.Execution.MaxTokens)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

// ModelForProvider returns the configured model for a provider, falling back
// to the built-in default when the provider section is absent.
func (c *Config) ModelForProvider(provider string) (string, error) {
	if pc, ok := c.Providers[provider]; ok && pc.Model != "" {
		return pc.Model, nil
	}
	if pc, ok := DefaultConfig().Providers[provider]; ok {
		return pc.Model, nil
	}
	return "", fmt.Errorf("no model configured for provider %q", provider)
}

// HostForProvider returns the configured host URL for Ollama providers.
func (c *Config) HostForProvider(provider string) string {
	if pc, ok := c.Providers[provider]; ok && pc.Host != "" {
		return pc.Host
	}
	if pc, ok := DefaultConfig().Providers[provider]; ok {
		return pc.Host
	}
	return ""
}

// Global singleton, guarded for concurrent readers.
//
//nolint:gochecknoglobals // Intentional process-wide config
var (
	globalConfig *Config
	configMutex  sync.RWMutex
)

// SetConfig installs the process-wide configuration.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// GetConfig returns the process-wide configuration, or defaults when
// LoadConfig has not run (tests, one-off tools).
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	if globalConfig == nil {
		return DefaultConfig()
	}
	return globalConfig
}
