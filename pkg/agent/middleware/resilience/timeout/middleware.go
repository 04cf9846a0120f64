// Package timeout provides timeout middleware for LLM clients.
package timeout

import (
	"context"
	"time"

	"opendev/pkg/agent/llm"
)

// Middleware returns a middleware that applies a per-request timeout to
// prevent hanging requests.
func Middleware(duration time.Duration) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()

				return next.Complete(timeoutCtx, req)
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()

				return next.Stream(timeoutCtx, req)
			},
			next.GetModelName,
		)
	}
}
