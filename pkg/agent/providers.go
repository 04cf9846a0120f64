// Package agent provides LLM provider clients with middleware chain construction.
package agent

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"opendev/pkg/agent/internal/llmimpl/anthropic"
	"opendev/pkg/agent/internal/llmimpl/google"
	"opendev/pkg/agent/internal/llmimpl/ollama"
	"opendev/pkg/agent/internal/llmimpl/openaiofficial"
	"opendev/pkg/agent/llm"
	"opendev/pkg/agent/middleware/metrics"
	"opendev/pkg/agent/middleware/resilience/circuit"
	"opendev/pkg/agent/middleware/resilience/retry"
	"opendev/pkg/agent/middleware/resilience/timeout"
	"opendev/pkg/config"
	"opendev/pkg/logx"
)

// ErrUnknownProvider is returned when a provider name is not recognized.
var ErrUnknownProvider = errors.New("unknown provider")

// ProviderStatus describes one provider for status listings.
type ProviderStatus struct {
	Name        string `json:"name"`
	Model       string `json:"model"`
	Configured  bool   `json:"configured"`  // credentials are available
	Initialized bool   `json:"initialized"` // a client handle is cached
}

// Registry hands out LLM clients by provider name. Raw clients are created
// lazily on first use and cached; a failed initialization is NOT cached, so
// the next request retries from scratch. Circuit breakers are shared per
// provider across all clients.
type Registry struct {
	cfg      *config.Config
	recorder metrics.Recorder
	logger   *logx.Logger
	breakers map[string]circuit.Breaker

	mu      sync.Mutex
	clients map[string]llm.LLMClient // successfully initialized raw clients
}

// NewRegistry creates a provider registry backed by the given configuration.
func NewRegistry(cfg *config.Config, recorder metrics.Recorder) *Registry {
	circuitConfig := circuit.Config{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		SuccessThreshold: cfg.CircuitBreaker.SuccessThreshold,
		Timeout:          cfg.CircuitBreaker.Timeout,
	}
	breakers := make(map[string]circuit.Breaker)
	for _, name := range config.KnownProviders() {
		breakers[name] = circuit.New(circuitConfig)
	}

	return &Registry{
		cfg:      cfg,
		recorder: recorder,
		logger:   logx.NewLogger("providers"),
		breakers: breakers,
		clients:  make(map[string]llm.LLMClient),
	}
}

// Client returns a middleware-wrapped client for the provider, labeled with
// the given task for metrics. The underlying raw client is shared; the cheap
// middleware chain is rebuilt per call so task labels stay accurate. Callers
// request one client per conversation, so providers that keep conversation
// state hand out a fresh instance here.
func (r *Registry) Client(provider string, task metrics.TaskProvider) (llm.LLMClient, error) {
	raw, err := r.rawClient(provider)
	if err != nil {
		return nil, err
	}
	if starter, ok := raw.(llm.ConversationStarter); ok {
		raw = starter.NewConversation()
	}

	if task == nil {
		task = metrics.StaticTask("", "")
	}

	retryPolicy := retry.NewPolicy(retry.Config{
		MaxAttempts:   r.cfg.Retry.MaxAttempts,
		InitialDelay:  r.cfg.Retry.InitialDelay,
		MaxDelay:      r.cfg.Retry.MaxDelay,
		BackoffFactor: r.cfg.Retry.BackoffFactor,
		Jitter:        true,
	}, nil)

	// Metrics -> CircuitBreaker -> Retry -> Timeout -> RawClient
	return llm.Chain(raw,
		metrics.Middleware(r.recorder, nil, task, provider, r.logger),
		circuit.Middleware(r.breakers[provider]),
		retry.Middleware(retryPolicy),
		timeout.Middleware(r.cfg.Execution.RequestTimeout),
	), nil
}

// rawClient returns the cached raw client for a provider, creating it on
// first use. Initialization errors are returned without caching anything.
func (r *Registry) rawClient(provider string) (llm.LLMClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[provider]; ok {
		return client, nil
	}

	client, err := r.buildClient(provider)
	if err != nil {
		return nil, err
	}

	r.clients[provider] = client
	r.logger.Info("Initialized %s client (model %s)", provider, client.GetModelName())
	return client, nil
}

// buildClient constructs a raw client for the provider. Callers hold r.mu.
func (r *Registry) buildClient(provider string) (llm.LLMClient, error) {
	if !config.IsKnownProvider(provider) {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownProvider, provider, strings.Join(config.KnownProviders(), ", "))
	}

	model, err := r.cfg.ModelForProvider(provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.GetAPIKey(provider)
	if err != nil {
		return nil, fmt.Errorf("provider %s not configured: %w", provider, err)
	}

	switch provider {
	case config.ProviderAnthropic:
		return anthropic.NewClient(apiKey, model), nil
	case config.ProviderOpenAI:
		return openaiofficial.NewClient(apiKey, model), nil
	case config.ProviderGemini:
		return google.NewClient(apiKey, model), nil
	case config.ProviderOllamaLocal, config.ProviderOllamaCloud:
		return ollama.NewClient(r.cfg.HostForProvider(provider), apiKey, model), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

// Invalidate drops the cached client for a provider and resets its circuit
// breaker, forcing a fresh initialization on the next request.
func (r *Registry) Invalidate(provider string) {
	r.mu.Lock()
	delete(r.clients, provider)
	r.mu.Unlock()

	if breaker, ok := r.breakers[provider]; ok {
		breaker.Reset()
	}
	r.logger.Info("Invalidated %s client", provider)
}

// Providers reports the status of every known provider.
func (r *Registry) Providers() []ProviderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := config.KnownProviders()
	statuses := make([]ProviderStatus, 0, len(names))
	for _, name := range names {
		model, _ := r.cfg.ModelForProvider(name)
		_, keyErr := config.GetAPIKey(name)
		_, cached := r.clients[name]
		statuses = append(statuses, ProviderStatus{
			Name:        name,
			Model:       model,
			Configured:  keyErr == nil,
			Initialized: cached,
		})
	}
	return statuses
}

// DefaultProvider returns the configured default provider name.
func (r *Registry) DefaultProvider() string {
	if r.cfg.DefaultProvider != "" {
		return r.cfg.DefaultProvider
	}
	return config.ProviderAnthropic
}

// Resolve maps an optional requested provider to a concrete provider name.
func (r *Registry) Resolve(requested string) (string, error) {
	if requested == "" {
		return r.DefaultProvider(), nil
	}
	if !config.IsKnownProvider(requested) {
		return "", fmt.Errorf("%w: %q (known: %s)", ErrUnknownProvider, requested, strings.Join(config.KnownProviders(), ", "))
	}
	return requested, nil
}
