package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opendev/pkg/agent/llm"
	"opendev/pkg/logx"
)

type observation struct {
	model     string
	provider  string
	taskID    string
	mode      string
	success   bool
	errorType string
}

// capturingRecorder records every observation for assertions.
type capturingRecorder struct {
	observations []observation
}

func (c *capturingRecorder) ObserveRequest(model, provider, taskID, mode string,
	_, _ int, success bool, errorType string, _ time.Duration) {
	c.observations = append(c.observations, observation{
		model: model, provider: provider, taskID: taskID, mode: mode,
		success: success, errorType: errorType,
	})
}

func (c *capturingRecorder) IncThrottle(_, _ string) {}

type fakeClient struct {
	err error
}

func (f fakeClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	if f.err != nil {
		return llm.CompletionResponse{}, f.err
	}
	return llm.CompletionResponse{Content: "ok"}, nil
}

func (f fakeClient) Stream(_ context.Context, _ llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk)
	close(ch)
	return ch, nil
}

func (f fakeClient) GetModelName() string { return "fake-model" }

func TestMiddlewareRecordsSuccess(t *testing.T) {
	rec := &capturingRecorder{}
	client := llm.Chain(fakeClient{},
		Middleware(rec, nil, StaticTask("task-1", "ask"), "anthropic", logx.NewLogger("test")))

	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.CompletionMessage{llm.NewUserMessage("hello")},
	})
	require.NoError(t, err)

	require.Len(t, rec.observations, 1)
	obs := rec.observations[0]
	assert.Equal(t, "fake-model", obs.model)
	assert.Equal(t, "anthropic", obs.provider)
	assert.Equal(t, "task-1", obs.taskID)
	assert.Equal(t, "ask", obs.mode)
	assert.True(t, obs.success)
	assert.Empty(t, obs.errorType)
}

func TestMiddlewareRecordsFailure(t *testing.T) {
	rec := &capturingRecorder{}
	client := llm.Chain(fakeClient{err: errors.New("boom")},
		Middleware(rec, nil, StaticTask("task-2", "edit"), "openai", logx.NewLogger("test")))

	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	require.Error(t, err)

	require.Len(t, rec.observations, 1)
	assert.False(t, rec.observations[0].success)
	assert.NotEmpty(t, rec.observations[0].errorType)
}

func TestInternalRecorderAggregates(t *testing.T) {
	r := NewInternalRecorder()
	r.Reset()

	r.ObserveRequest("task-a", 100, 20, true)
	r.ObserveRequest("task-a", 50, 10, true)
	r.ObserveRequest("task-a", 999, 999, false) // failures are not counted
	r.ObserveRequest("", 10, 10, true)          // no task, dropped

	tm := r.GetTaskMetrics("task-a")
	require.NotNil(t, tm)
	assert.Equal(t, int64(150), tm.PromptTokens)
	assert.Equal(t, int64(30), tm.CompletionTokens)
	assert.Equal(t, int64(180), tm.TotalTokens)
	assert.Equal(t, int64(2), tm.RequestCount)

	all := r.GetAllTaskMetrics()
	assert.Len(t, all, 1)
}
