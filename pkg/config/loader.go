package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the project configuration file looked up relative to the
// project directory.
const ConfigFileName = "opendev.yaml"

// LoadConfig reads opendev.yaml from projectDir, merges it over the built-in
// defaults, validates, and installs the result as the process-wide config.
// A missing file is not an error; defaults apply.
func LoadConfig(projectDir string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(projectDir, ConfigFileName)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	default:
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		mergeConfig(cfg, &fileCfg)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	SetConfig(cfg)
	return cfg, nil
}

// mergeConfig overlays non-zero fields from src onto dst.
func mergeConfig(dst, src *Config) {
	if src.DefaultProvider != "" {
		dst.DefaultProvider = src.DefaultProvider
	}
	if src.WorkspaceDir != "" {
		dst.WorkspaceDir = src.WorkspaceDir
	}
	if src.DatabasePath != "" {
		dst.DatabasePath = src.DatabasePath
	}
	for name, pc := range src.Providers {
		merged := dst.Providers[name]
		if pc.Model != "" {
			merged.Model = pc.Model
		}
		if pc.Host != "" {
			merged.Host = pc.Host
		}
		if pc.Enabled != nil {
			merged.Enabled = pc.Enabled
		}
		dst.Providers[name] = merged
	}
	if src.Execution.MaxIterations != 0 {
		dst.Execution.MaxIterations = src.Execution.MaxIterations
	}
	if src.Execution.StepTimeout != 0 {
		dst.Execution.StepTimeout = src.Execution.StepTimeout
	}
	if src.Execution.RequestTimeout != 0 {
		dst.Execution.RequestTimeout = src.Execution.RequestTimeout
	}
	if src.Execution.MaxTokens != 0 {
		dst.Execution.MaxTokens = src.Execution.MaxTokens
	}
	if src.Retry.MaxAttempts != 0 {
		dst.Retry.MaxAttempts = src.Retry.MaxAttempts
	}
	if src.Retry.InitialDelay != 0 {
		dst.Retry.InitialDelay = src.Retry.InitialDelay
	}
	if src.Retry.MaxDelay != 0 {
		dst.Retry.MaxDelay = src.Retry.MaxDelay
	}
	if src.Retry.BackoffFactor != 0 {
		dst.Retry.BackoffFactor = src.Retry.BackoffFactor
	}
	if src.CircuitBreaker.FailureThreshold != 0 {
		dst.CircuitBreaker.FailureThreshold = src.CircuitBreaker.FailureThreshold
	}
	if src.CircuitBreaker.SuccessThreshold != 0 {
		dst.CircuitBreaker.SuccessThreshold = src.CircuitBreaker.SuccessThreshold
	}
	if src.CircuitBreaker.Timeout != 0 {
		dst.CircuitBreaker.Timeout = src.CircuitBreaker.Timeout
	}
	if src.Web.Bind != "" {
		dst.Web.Bind = src.Web.Bind
	}
	dst.Web.Enabled = src.Web.Enabled
}

// applyEnvOverrides applies the small set of environment overrides that make
// sense outside the yaml file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENDEV_WORKSPACE"); v != "" {
		cfg.WorkspaceDir = v
	}
	if v := os.Getenv("OPENDEV_BIND"); v != "" {
		cfg.Web.Bind = v
	}
	if v := os.Getenv("OPENDEV_DEFAULT_PROVIDER"); v != "" {
		cfg.DefaultProvider = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		pc := cfg.Providers[ProviderOllamaLocal]
		pc.Host = v
		cfg.Providers[ProviderOllamaLocal] = pc
	}
}
