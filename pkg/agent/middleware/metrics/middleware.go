// Package metrics provides metrics middleware for LLM clients.
package metrics

import (
	"context"
	"time"

	"opendev/pkg/agent/llm"
	"opendev/pkg/logx"
	"opendev/pkg/utils"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor extracts token usage from a request and response.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor estimates usage with tiktoken since not every provider
// reports token counts.
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	var promptText string
	for i := range req.Messages {
		promptText += req.Messages[i].Content + "\n"
	}
	promptTokens = utils.CountTokensSimple(promptText)
	completionTokens = utils.CountTokensSimple(resp.Content)
	return promptTokens, completionTokens
}

// Middleware returns a middleware that records metrics for LLM operations:
// request latency, token usage, success/failure rates, and error types.
func Middleware(recorder Recorder, usageExtractor UsageExtractor, task TaskProvider, provider string, logger *logx.Logger) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()

				model := next.GetModelName()
				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				}

				errorType := ""
				if err != nil {
					errorType = getErrorType(err)
				}

				taskID := task.GetTaskID()
				mode := task.GetMode()

				recorder.ObserveRequest(
					model,
					provider,
					taskID,
					mode,
					promptTokens,
					completionTokens,
					err == nil,
					errorType,
					duration,
				)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError
					}
					logger.Info("LLM request: model=%s provider=%s mode=%s tokens=%d+%d status=%s duration=%dms",
						model, provider, mode, promptTokens, completionTokens, status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // middleware passes errors through unchanged
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				start := time.Now()

				model := next.GetModelName()
				ch, err := next.Stream(ctx, req)
				duration := time.Since(start)

				// Only setup time and success/failure are tracked for streams;
				// token counting would require consuming the whole stream.
				errorType := ""
				if err != nil {
					errorType = getErrorType(err)
				}

				recorder.ObserveRequest(
					model,
					provider,
					task.GetTaskID(),
					task.GetMode(),
					0,
					0,
					err == nil,
					errorType,
					duration,
				)

				return ch, err //nolint:wrapcheck // middleware passes errors through unchanged
			},
			next.GetModelName,
		)
	}
}

// getErrorType classifies errors for metrics labeling.
func getErrorType(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()
	switch {
	case errStr == "circuit breaker is OPEN" || errStr == "circuit breaker is HALF_OPEN":
		return "circuit_breaker"
	case errStr == "context deadline exceeded":
		return "timeout"
	case errStr == "context canceled":
		return "canceled"
	default:
		return "unknown"
	}
}
