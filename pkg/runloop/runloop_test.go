package runloop

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opendev/pkg/agent/llm"
	"opendev/pkg/contextmgr"
	"opendev/pkg/logx"
	"opendev/pkg/tools"
)

// scriptedClient returns canned responses in order.
type scriptedClient struct {
	responses []llm.CompletionResponse
	requests  []llm.CompletionRequest
	calls     int
}

func (c *scriptedClient) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	c.requests = append(c.requests, req)
	if c.calls >= len(c.responses) {
		return llm.CompletionResponse{}, errors.New("no more scripted responses")
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

func (c *scriptedClient) Stream(_ context.Context, _ llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return nil, errors.New("streaming not supported")
}

func (c *scriptedClient) GetModelName() string { return "scripted-model" }

// echoTool records invocations and returns a fixed payload.
type echoTool struct {
	name    string
	payload string
	err     error
	calls   int
}

func (t *echoTool) Name() string { return t.name }

func (t *echoTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{Name: t.name, InputSchema: tools.InputSchema{Type: "object"}}
}

func (t *echoTool) Exec(_ context.Context, _ map[string]any) (*tools.ExecResult, error) {
	t.calls++
	if t.err != nil {
		return nil, t.err
	}
	return &tools.ExecResult{Content: t.payload}, nil
}

func (t *echoTool) PromptDocumentation() string { return "" }

type stubProvider struct {
	tools map[string]tools.Tool
}

func (p *stubProvider) Get(name string) (tools.Tool, error) {
	if t, ok := p.tools[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("tool not available: %s", name)
}

func (p *stubProvider) Definitions() []tools.ToolDefinition {
	defs := make([]tools.ToolDefinition, 0, len(p.tools))
	for _, t := range p.tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

func newTestLoop(client llm.LLMClient) *Loop {
	return New(client, logx.NewLogger("runloop-test"))
}

func TestRunReturnsPlainContent(t *testing.T) {
	client := &scriptedClient{responses: []llm.CompletionResponse{
		{Content: "done, nothing to do"},
	}}
	loop := newTestLoop(client)

	result, err := loop.Run(context.Background(), &Config{
		ContextManager: contextmgr.NewContextManager(),
		ToolProvider:   &stubProvider{},
		InitialPrompt:  "hello",
		MaxIterations:  3,
	})

	require.NoError(t, err)
	assert.Equal(t, "done, nothing to do", result)
	assert.Equal(t, 1, client.calls)
}

func TestRunExecutesToolsThenReturns(t *testing.T) {
	client := &scriptedClient{responses: []llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "probe", Parameters: map[string]any{}}}},
		{Content: "final answer"},
	}}
	probe := &echoTool{name: "probe", payload: `{"success":true}`}
	loop := newTestLoop(client)

	cm := contextmgr.NewContextManager()
	result, err := loop.Run(context.Background(), &Config{
		ContextManager: cm,
		ToolProvider:   &stubProvider{tools: map[string]tools.Tool{"probe": probe}},
		InitialPrompt:  "do something",
		MaxIterations:  5,
	})

	require.NoError(t, err)
	assert.Equal(t, "final answer", result)
	assert.Equal(t, 1, probe.calls)

	// Second request must carry the tool result back to the model.
	require.Len(t, client.requests, 2)
	var sawResult bool
	for _, msg := range client.requests[1].Messages {
		for _, tr := range msg.ToolResults {
			if tr.ToolCallID == "c1" {
				sawResult = true
				assert.Equal(t, `{"success":true}`, tr.Content)
			}
		}
	}
	assert.True(t, sawResult)
}

func TestRunToolErrorFoldedAsResult(t *testing.T) {
	client := &scriptedClient{responses: []llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "broken"}}},
		{Content: "recovered"},
	}}
	broken := &echoTool{name: "broken", err: errors.New("disk on fire")}
	loop := newTestLoop(client)

	var invoked []string
	var invokedErr []bool
	result, err := loop.Run(context.Background(), &Config{
		ContextManager: contextmgr.NewContextManager(),
		ToolProvider:   &stubProvider{tools: map[string]tools.Tool{"broken": broken}},
		InitialPrompt:  "try it",
		MaxIterations:  5,
		OnToolInvoked: func(name string, isError bool) {
			invoked = append(invoked, name)
			invokedErr = append(invokedErr, isError)
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, []string{"broken"}, invoked)
	assert.Equal(t, []bool{true}, invokedErr)

	// Error surfaced to the model as an error tool result, not a hard failure.
	require.Len(t, client.requests, 2)
	var sawError bool
	for _, msg := range client.requests[1].Messages {
		for _, tr := range msg.ToolResults {
			if tr.IsError {
				sawError = true
				assert.Contains(t, tr.Content, "disk on fire")
			}
		}
	}
	assert.True(t, sawError)
}

func TestRunUnknownToolFoldedAsResult(t *testing.T) {
	client := &scriptedClient{responses: []llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "missing"}}},
		{Content: "ok"},
	}}
	loop := newTestLoop(client)

	result, err := loop.Run(context.Background(), &Config{
		ContextManager: contextmgr.NewContextManager(),
		ToolProvider:   &stubProvider{},
		InitialPrompt:  "go",
		MaxIterations:  5,
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestRunIterationLimit(t *testing.T) {
	// Model keeps calling tools forever.
	resp := llm.CompletionResponse{ToolCalls: []llm.ToolCall{{ID: "c", Name: "probe"}}}
	client := &scriptedClient{responses: []llm.CompletionResponse{resp, resp, resp, resp}}
	probe := &echoTool{name: "probe", payload: "{}"}
	loop := newTestLoop(client)

	_, err := loop.Run(context.Background(), &Config{
		ContextManager: contextmgr.NewContextManager(),
		ToolProvider:   &stubProvider{tools: map[string]tools.Tool{"probe": probe}},
		InitialPrompt:  "loop forever",
		MaxIterations:  3,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIterationLimit)
	assert.Contains(t, err.Error(), "maximum tool iterations (3) exceeded")
	assert.Equal(t, 3, client.calls)
}

func TestRunCheckTerminal(t *testing.T) {
	client := &scriptedClient{responses: []llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "submit", Parameters: map[string]any{"answer": "42"}}}},
	}}
	submit := &echoTool{name: "submit", payload: `{"success":true}`}
	loop := newTestLoop(client)

	result, err := loop.Run(context.Background(), &Config{
		ContextManager: contextmgr.NewContextManager(),
		ToolProvider:   &stubProvider{tools: map[string]tools.Tool{"submit": submit}},
		InitialPrompt:  "answer me",
		MaxIterations:  5,
		CheckTerminal: func(calls []llm.ToolCall, _ []string) string {
			for _, call := range calls {
				if call.Name == "submit" {
					return fmt.Sprintf("%v", call.Parameters["answer"])
				}
			}
			return ""
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "42", result)
	assert.Equal(t, 1, client.calls)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptedClient{responses: []llm.CompletionResponse{{Content: "never"}}}
	loop := newTestLoop(client)

	_, err := loop.Run(ctx, &Config{
		ContextManager: contextmgr.NewContextManager(),
		ToolProvider:   &stubProvider{},
		InitialPrompt:  "x",
		MaxIterations:  3,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, client.calls)
}

func TestRunRequiresContextManager(t *testing.T) {
	loop := newTestLoop(&scriptedClient{})
	_, err := loop.Run(context.Background(), &Config{ToolProvider: &stubProvider{}})
	require.Error(t, err)
}

func TestRunRequiresPositiveMaxIterations(t *testing.T) {
	client := &scriptedClient{responses: []llm.CompletionResponse{{Content: "never"}}}
	loop := newTestLoop(client)

	_, err := loop.Run(context.Background(), &Config{
		ContextManager: contextmgr.NewContextManager(),
		ToolProvider:   &stubProvider{},
		InitialPrompt:  "x",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxIterations must be positive")
	assert.Equal(t, 0, client.calls)
}
