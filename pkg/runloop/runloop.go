// Package runloop provides the bounded reasoning-action loop shared by every
// execution mode: call the model, execute any requested tools, feed results
// back, repeat until the model answers in plain text or a terminal tool fires.
package runloop

import (
	"context"
	"fmt"
	"time"

	"opendev/pkg/agent/llm"
	"opendev/pkg/contextmgr"
	"opendev/pkg/logx"
	"opendev/pkg/tools"
)

// ToolProvider is what the loop needs from a tool provider.
type ToolProvider interface {
	Get(name string) (tools.Tool, error)
	Definitions() []tools.ToolDefinition
}

// Loop manages LLM interactions with tool calling. One Loop can serve many
// Run calls; per-run state lives in Config and its ContextManager.
type Loop struct {
	client llm.LLMClient
	logger *logx.Logger
}

// New creates a new Loop instance.
func New(client llm.LLMClient, logger *logx.Logger) *Loop {
	return &Loop{
		client: client,
		logger: logger,
	}
}

// Config defines how the loop behaves for one run.
//
//nolint:govet // fieldalignment: struct fields ordered for clarity over memory alignment
type Config struct {
	// ContextManager holds the conversation. Passed in, not owned, so the
	// caller can seed it and inspect it afterwards.
	ContextManager *contextmgr.ContextManager

	// ToolProvider supplies tool definitions and execution.
	ToolProvider ToolProvider

	// CheckTerminal is called after ALL tools in the current turn execute.
	// Returning a non-empty string ends the loop with that value as the
	// result. Empty string continues iterating.
	CheckTerminal func(calls []llm.ToolCall, results []string) string

	// OnToolInvoked, when set, observes each tool execution (progress events).
	OnToolInvoked func(name string, isError bool)

	// MaxIterations bounds the number of model calls. Required and must be
	// positive; exceeding it returns ErrIterationLimit wrapped with the
	// configured ceiling.
	MaxIterations int

	// MaxTokens caps each completion.
	MaxTokens int

	// Temperature for each completion. Zero means the client default.
	Temperature float32

	// ToolChoice forces tool usage when set to "any".
	ToolChoice string

	// InitialPrompt is added as a user message before the first call.
	// If empty, the existing context is used as-is.
	InitialPrompt string
}

// Run executes the loop. It returns the terminal result: either the model's
// final plain-text content, or the value produced by CheckTerminal.
func (l *Loop) Run(ctx context.Context, cfg *Config) (string, error) {
	if cfg.ContextManager == nil {
		return "", fmt.Errorf("ContextManager is required")
	}
	if cfg.ToolProvider == nil {
		return "", fmt.Errorf("ToolProvider is required")
	}
	if cfg.MaxIterations <= 0 {
		return "", fmt.Errorf("MaxIterations must be positive, got %d", cfg.MaxIterations)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}

	if cfg.InitialPrompt != "" {
		cfg.ContextManager.AddMessage("user", cfg.InitialPrompt)
	}

	toolDefs := cfg.ToolProvider.Definitions()

	for iteration := 0; iteration < cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if err := cfg.ContextManager.CompactIfNeeded(); err != nil {
			return "", fmt.Errorf("context compaction failed: %w", err)
		}

		req := llm.CompletionRequest{
			Messages:    buildMessages(cfg.ContextManager),
			Tools:       toolDefs,
			ToolChoice:  cfg.ToolChoice,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}

		l.logger.Info("Starting LLM call to model '%s' with %d messages, %d tools (iteration %d/%d)",
			l.client.GetModelName(), len(req.Messages), len(toolDefs), iteration+1, cfg.MaxIterations)

		start := time.Now()
		resp, err := l.client.Complete(ctx, req)
		duration := time.Since(start)

		if err != nil {
			l.logger.Error("LLM call failed after %.3gs: %v", duration.Seconds(), err)
			return "", fmt.Errorf("LLM completion failed: %w", err)
		}

		l.logger.Info("LLM call completed in %.3gs, response length: %d chars, tool calls: %d",
			duration.Seconds(), len(resp.Content), len(resp.ToolCalls))

		if len(resp.ToolCalls) == 0 {
			cfg.ContextManager.AddAssistantMessage(resp.Content)
			return resp.Content, nil
		}

		toolCalls := make([]contextmgr.ToolCall, len(resp.ToolCalls))
		for i := range resp.ToolCalls {
			toolCalls[i] = contextmgr.ToolCall{
				ID:         resp.ToolCalls[i].ID,
				Name:       resp.ToolCalls[i].Name,
				Parameters: resp.ToolCalls[i].Parameters,
			}
		}
		cfg.ContextManager.AddAssistantMessageWithTools(resp.Content, toolCalls)

		// Execute ALL tools: every tool_use must get a tool_result, including
		// failures, which are folded back as error results for the model to
		// react to rather than aborting the step.
		results := make([]string, len(resp.ToolCalls))
		for i := range resp.ToolCalls {
			toolCall := &resp.ToolCalls[i]
			resultStr, isError := l.executeTool(ctx, cfg, toolCall)
			results[i] = resultStr
			cfg.ContextManager.AddToolResult(toolCall.ID, resultStr, isError)
			if cfg.OnToolInvoked != nil {
				cfg.OnToolInvoked(toolCall.Name, isError)
			}
		}

		if cfg.CheckTerminal != nil {
			if signal := cfg.CheckTerminal(resp.ToolCalls, results); signal != "" {
				l.logger.Debug("Terminal tool signaled completion")
				return signal, nil
			}
		}
	}

	l.logger.Warn("Maximum tool iterations (%d) reached", cfg.MaxIterations)
	return "", fmt.Errorf("maximum tool iterations (%d) exceeded: %w", cfg.MaxIterations, ErrIterationLimit)
}

// executeTool runs one tool call and formats its result for the model.
func (l *Loop) executeTool(ctx context.Context, cfg *Config, toolCall *llm.ToolCall) (result string, isError bool) {
	tool, err := cfg.ToolProvider.Get(toolCall.Name)
	if err != nil {
		l.logger.Error("Failed to get tool %s: %v", toolCall.Name, err)
		return err.Error(), true
	}

	start := time.Now()
	execResult, err := tool.Exec(ctx, toolCall.Parameters)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("Tool %s failed after %.3fs: %v", toolCall.Name, duration.Seconds(), err)
		return fmt.Sprintf("Tool failed: %v", err), true
	}

	l.logger.Debug("Tool %s completed in %.3fs", toolCall.Name, duration.Seconds())
	if execResult == nil {
		return "", false
	}
	return execResult.Content, false
}

// buildMessages converts context manager messages to llm.CompletionMessage format.
func buildMessages(cm *contextmgr.ContextManager) []llm.CompletionMessage {
	contextMessages := cm.GetMessages()

	messages := make([]llm.CompletionMessage, 0, len(contextMessages))
	for i := range contextMessages {
		msg := &contextMessages[i]

		var toolCalls []llm.ToolCall
		if len(msg.ToolCalls) > 0 {
			toolCalls = make([]llm.ToolCall, len(msg.ToolCalls))
			for j := range msg.ToolCalls {
				toolCalls[j] = llm.ToolCall{
					ID:         msg.ToolCalls[j].ID,
					Name:       msg.ToolCalls[j].Name,
					Parameters: msg.ToolCalls[j].Parameters,
				}
			}
		}

		var toolResults []llm.ToolResult
		if len(msg.ToolResults) > 0 {
			toolResults = make([]llm.ToolResult, len(msg.ToolResults))
			for j := range msg.ToolResults {
				toolResults[j] = llm.ToolResult{
					ToolCallID: msg.ToolResults[j].ToolCallID,
					Content:    msg.ToolResults[j].Content,
					IsError:    msg.ToolResults[j].IsError,
				}
			}
		}

		messages = append(messages, llm.CompletionMessage{
			Role:        llm.CompletionRole(msg.Role),
			Content:     msg.Content,
			ToolCalls:   toolCalls,
			ToolResults: toolResults,
		})
	}

	return messages
}
