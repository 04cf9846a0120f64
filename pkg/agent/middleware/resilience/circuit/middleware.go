// Package circuit provides circuit breaker middleware for LLM clients.
package circuit

import (
	"context"

	"opendev/pkg/agent/llm"
)

// Middleware returns a middleware that wraps an LLM client with circuit
// breaker logic. If the circuit is OPEN, requests are rejected immediately
// without calling the underlying client, giving the service time to recover.
func Middleware(breaker Breaker) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if !breaker.Allow() {
					return llm.CompletionResponse{}, &Error{State: breaker.GetState()}
				}

				resp, err := next.Complete(ctx, req)
				breaker.Record(err == nil)

				return resp, err //nolint:wrapcheck // middleware passes errors through unchanged
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				if !breaker.Allow() {
					return nil, &Error{State: breaker.GetState()}
				}

				// Only stream establishment counts toward breaker state.
				ch, err := next.Stream(ctx, req)
				breaker.Record(err == nil)

				return ch, err //nolint:wrapcheck // middleware passes errors through unchanged
			},
			next.GetModelName,
		)
	}
}
