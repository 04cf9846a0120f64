package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelProvider(t *testing.T) {
	tests := []struct {
		name     string
		model    string
		expected string
		wantErr  bool
	}{
		{name: "known claude model", model: "claude-sonnet-4-5", expected: ProviderAnthropic},
		{name: "known openai model", model: "gpt-5-mini", expected: ProviderOpenAI},
		{name: "known gemini model", model: "gemini-2.5-flash", expected: ProviderGemini},
		{name: "known local ollama model", model: "qwen3:8b", expected: ProviderOllamaLocal},
		{name: "prefix inference claude", model: "claude-future-model", expected: ProviderAnthropic},
		{name: "prefix inference o3", model: "o3-mini", expected: ProviderOpenAI},
		{name: "unknown model", model: "mystery-model", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := GetModelProvider(tt.model)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, provider)
		})
	}
}

func TestIsKnownProvider(t *testing.T) {
	for _, p := range KnownProviders() {
		assert.True(t, IsKnownProvider(p), p)
	}
	assert.False(t, IsKnownProvider("azure"))
	assert.False(t, IsKnownProvider(""))
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ProviderAnthropic, cfg.DefaultProvider)
	assert.Positive(t, cfg.Execution.MaxIterations)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultProvider = "not-a-provider"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Execution.MaxIterations = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Retry.MaxAttempts = 0
	assert.Error(t, cfg.Validate())
}

func TestModelForProvider(t *testing.T) {
	cfg := DefaultConfig()

	model, err := cfg.ModelForProvider(ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "gpt-5-mini", model)

	cfg.Providers[ProviderOpenAI] = ProviderConfig{Model: "gpt-5"}
	model, err = cfg.ModelForProvider(ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", model)

	_, err = cfg.ModelForProvider("bogus")
	assert.Error(t, err)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().DefaultProvider, cfg.DefaultProvider)
}

func TestLoadConfigMergesFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
default_provider: gemini
providers:
  gemini:
    model: gemini-2.5-pro
  ollama_local:
    host: http://10.0.0.5:11434
execution:
  max_iterations: 7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yaml), 0644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.DefaultProvider)
	assert.Equal(t, 7, cfg.Execution.MaxIterations)

	model, err := cfg.ModelForProvider(ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", model)

	assert.Equal(t, "http://10.0.0.5:11434", cfg.HostForProvider(ProviderOllamaLocal))
	// Untouched providers keep defaults.
	model, err = cfg.ModelForProvider(ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", model)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	yaml := "default_provider: azure\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yaml), 0644))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestGetAPIKeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key-123")
	SetDecryptedSecrets(nil)

	key, err := GetAPIKey(ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "test-key-123", key)
}

func TestGetAPIKeyLocalOllamaNeedsNone(t *testing.T) {
	key, err := GetAPIKey(ProviderOllamaLocal)
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestGetAPIKeySecretsPrecedence(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	SetDecryptedSecrets(map[string]string{"OPENAI_API_KEY": "file-key"})
	defer SetDecryptedSecrets(nil)

	key, err := GetAPIKey(ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "file-key", key)
}
