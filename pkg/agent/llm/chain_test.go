package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	calls *[]string
	tag   string
}

func (r recordingClient) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	*r.calls = append(*r.calls, r.tag)
	return CompletionResponse{Content: "base"}, nil
}

func (r recordingClient) Stream(_ context.Context, _ CompletionRequest) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk)
	close(ch)
	return ch, nil
}

func (r recordingClient) GetModelName() string { return "base-model" }

func taggingMiddleware(calls *[]string, tag string) Middleware {
	return func(next LLMClient) LLMClient {
		return WrapClient(
			func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				*calls = append(*calls, tag)
				return next.Complete(ctx, req)
			},
			next.Stream,
			next.GetModelName,
		)
	}
}

func TestChainOrder(t *testing.T) {
	var calls []string
	base := recordingClient{calls: &calls, tag: "base"}

	client := Chain(base,
		taggingMiddleware(&calls, "outer"),
		taggingMiddleware(&calls, "inner"),
	)

	resp, err := client.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "base", resp.Content)

	// First middleware in the slice is outermost.
	assert.Equal(t, []string{"outer", "inner", "base"}, calls)
}

func TestChainEmpty(t *testing.T) {
	var calls []string
	base := recordingClient{calls: &calls, tag: "base"}

	client := Chain(base)
	assert.Equal(t, "base-model", client.GetModelName())
}

func TestWrapClientDelegates(t *testing.T) {
	client := WrapClient(
		func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			return CompletionResponse{Content: "wrapped"}, nil
		},
		func(_ context.Context, _ CompletionRequest) (<-chan StreamChunk, error) {
			ch := make(chan StreamChunk)
			close(ch)
			return ch, nil
		},
		func() string { return "wrapped-model" },
	)

	resp, err := client.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "wrapped", resp.Content)
	assert.Equal(t, "wrapped-model", client.GetModelName())
}
