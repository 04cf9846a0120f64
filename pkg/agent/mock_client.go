package agent

import (
	"context"
	"fmt"
	"sync"

	"opendev/pkg/agent/llm"
)

// MockLLMClient provides a controllable implementation of llm.LLMClient for testing.
type MockLLMClient struct {
	mu            sync.Mutex
	responses     []llm.CompletionResponse
	responseIndex int
	errors        []error
	errorIndex    int
	requests      []llm.CompletionRequest
	model         string
}

// NewMockLLMClient creates a new mock client with predefined responses.
// Errors are consumed before responses: a non-nil entry in errors is returned
// for the corresponding call, letting tests interleave failures.
func NewMockLLMClient(responses []llm.CompletionResponse, errs []error) *MockLLMClient {
	return &MockLLMClient{
		responses: responses,
		errors:    errs,
		model:     "mock-model",
	}
}

// Complete returns the next predefined response or error.
func (m *MockLLMClient) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.errorIndex < len(m.errors) {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		if err != nil {
			return llm.CompletionResponse{}, err
		}
	}

	if m.responseIndex >= len(m.responses) {
		return llm.CompletionResponse{}, fmt.Errorf("mock client: no more responses")
	}

	resp := m.responses[m.responseIndex]
	m.responseIndex++
	return resp, nil
}

// Stream returns a channel carrying the next predefined response.
func (m *MockLLMClient) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	resp, err := m.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	ch := make(chan llm.StreamChunk, 1)
	go func() {
		defer close(ch)
		ch <- llm.StreamChunk{Content: resp.Content, Done: true}
	}()
	return ch, nil
}

// GetModelName returns the mock model name.
func (m *MockLLMClient) GetModelName() string {
	return m.model
}

// Requests returns a copy of every request seen so far.
func (m *MockLLMClient) Requests() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns how many Complete calls the mock has served.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
