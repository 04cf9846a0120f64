// Package anthropic provides the Anthropic Claude implementation of llm.LLMClient.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"opendev/pkg/agent/llm"
	"opendev/pkg/agent/llmerrors"
	"opendev/pkg/tools"
)

// ClaudeClient wraps the Anthropic API client to implement llm.LLMClient.
type ClaudeClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClient creates a raw Claude client; middleware is applied at a higher level.
func NewClient(apiKey, model string) llm.LLMClient {
	return &ClaudeClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// buildMessages converts the generic conversation into Anthropic message params.
// System messages are extracted into the top-level system parameter; assistant
// tool calls become tool_use blocks and the following user turn's results
// become tool_result blocks so the API sees every tool_use answered.
func buildMessages(messages []llm.CompletionMessage) (systemPrompt string, params []anthropic.MessageParam, err error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	params = make([]anthropic.MessageParam, 0, len(messages))

	for i := range messages {
		msg := &messages[i]

		if msg.Role == llm.RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}

		blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls)+len(msg.ToolResults))
		for j := range msg.ToolResults {
			tr := &msg.ToolResults[j]
			blocks = append(blocks, anthropic.NewToolResultBlock(tr.ToolCallID, tr.Content, tr.IsError))
		}
		if msg.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
		}
		for j := range msg.ToolCalls {
			call := &msg.ToolCalls[j]
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    call.ID,
					Name:  call.Name,
					Input: call.Parameters,
				},
			})
		}
		if len(blocks) == 0 {
			continue
		}

		switch msg.Role {
		case llm.RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(blocks...))
		case llm.RoleUser:
			// Merge into the previous user turn to preserve alternation.
			if n := len(params); n > 0 && params[n-1].Role == anthropic.MessageParamRoleUser {
				params[n-1].Content = append(params[n-1].Content, blocks...)
			} else {
				params = append(params, anthropic.NewUserMessage(blocks...))
			}
		default:
			return "", nil, fmt.Errorf("unsupported role %q at index %d", msg.Role, i)
		}
	}

	if len(params) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}
	if params[0].Role != anthropic.MessageParamRoleUser {
		return "", nil, fmt.Errorf("first message must be user role")
	}

	return strings.Join(systemParts, "\n\n"), params, nil
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // passing CompletionRequest by value matches the interface
func (c *ClaudeClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	systemPrompt, messages, err := buildMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(in.MaxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}

	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: systemPrompt,
			Type: "text",
		}}
	}

	if len(in.Tools) > 0 {
		tools := make([]anthropic.ToolUnionParam, 0, len(in.Tools))
		for i := range in.Tools {
			def := &in.Tools[i]

			var properties any
			if len(def.InputSchema.Properties) > 0 {
				props := make(map[string]any, len(def.InputSchema.Properties))
				for name := range def.InputSchema.Properties {
					prop := def.InputSchema.Properties[name]
					props[name] = propertyToMap(&prop)
				}
				properties = props
			}

			toolParam := anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Type:       "object",
					Properties: properties,
					Required:   def.InputSchema.Required,
				},
			}
			tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		params.Tools = tools

		switch in.ToolChoice {
		case "any":
			params.ToolChoice = anthropic.ToolChoiceUnionParam{
				OfAny: &anthropic.ToolChoiceAnyParam{},
			}
		default:
			params.ToolChoice = anthropic.ToolChoiceUnionParam{
				OfAuto: &anthropic.ToolChoiceAutoParam{},
			}
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	if resp == nil || len(resp.Content) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty or nil response from Claude API")
	}

	var responseText string
	var toolCalls []llm.ToolCall

	for i := range resp.Content {
		block := &resp.Content[i]
		switch block.Type {
		case "text":
			responseText += block.AsText().Text
		case "tool_use":
			toolUse := block.AsToolUse()
			var args map[string]any
			if err := json.Unmarshal(toolUse.Input, &args); err != nil {
				return llm.CompletionResponse{}, fmt.Errorf("failed to parse tool input: %w", err)
			}
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:         toolUse.ID,
				Name:       toolUse.Name,
				Parameters: args,
			})
		}
	}

	return llm.CompletionResponse{
		Content:    responseText,
		ToolCalls:  toolCalls,
		StopReason: string(resp.StopReason),
	}, nil
}

// propertyToMap converts a tool property (recursively) to a JSON Schema map.
func propertyToMap(prop *tools.Property) map[string]any {
	m := map[string]any{"type": prop.Type}
	if prop.Description != "" {
		m["description"] = prop.Description
	}
	if len(prop.Enum) > 0 {
		m["enum"] = prop.Enum
	}
	if prop.Items != nil {
		m["items"] = propertyToMap(prop.Items)
	}
	if len(prop.Properties) > 0 {
		nested := make(map[string]any, len(prop.Properties))
		for name, p := range prop.Properties {
			nested[name] = propertyToMap(p)
		}
		m["properties"] = nested
	}
	if len(prop.Required) > 0 {
		m["required"] = prop.Required
	}
	return m
}

// Stream implements the llm.LLMClient interface by draining Complete.
//
//nolint:gocritic // passing CompletionRequest by value matches the interface
func (c *ClaudeClient) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk, 1)
	go func() {
		defer close(ch)
		resp, err := c.Complete(ctx, in)
		if err != nil {
			ch <- llm.StreamChunk{Error: err}
			return
		}
		ch <- llm.StreamChunk{Content: resp.Content}
		ch <- llm.StreamChunk{Done: true}
	}()
	return ch, nil
}

// GetModelName returns the model name for this client.
func (c *ClaudeClient) GetModelName() string {
	return string(c.model)
}

// classifyError maps Anthropic SDK errors to structured error types.
func classifyError(err error) *llmerrors.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request canceled")
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeAuth, apiErr.StatusCode, "authentication failed - check API key")
		case 429:
			return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeRateLimit, apiErr.StatusCode, "rate limit exceeded")
		case 400:
			return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeBadPrompt, apiErr.StatusCode, "bad request - check prompt format and parameters")
		case 500, 502, 503, 504:
			return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeTransient, apiErr.StatusCode, "server error")
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "connection"),
		strings.Contains(errStr, "network"),
		strings.Contains(errStr, "eof"),
		strings.Contains(errStr, "reset"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "network or connection error")
	case strings.Contains(errStr, "rate"), strings.Contains(errStr, "quota"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeRateLimit, err, "rate limiting detected")
	case strings.Contains(errStr, "auth"), strings.Contains(errStr, "unauthorized"), strings.Contains(errStr, "api key"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, err, "authentication error")
	}

	return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "unclassified error")
}
