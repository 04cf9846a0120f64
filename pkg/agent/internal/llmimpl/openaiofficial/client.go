// Package openaiofficial provides the OpenAI implementation of llm.LLMClient
// using the official OpenAI Go package and its Responses API.
package openaiofficial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"opendev/pkg/agent/llm"
	"opendev/pkg/agent/llmerrors"
	"opendev/pkg/config"
	"opendev/pkg/tools"
)

// OfficialClient wraps the official OpenAI Go client to implement llm.LLMClient.
type OfficialClient struct {
	client openai.Client
	model  string
}

// NewClient creates a raw OpenAI client; middleware is applied at a higher level.
func NewClient(apiKey, model string) llm.LLMClient {
	return &OfficialClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// convertPropertyToSchema recursively converts a Property to JSON Schema format.
func convertPropertyToSchema(prop *tools.Property) map[string]any {
	schema := map[string]any{
		"type":        prop.Type,
		"description": prop.Description,
	}

	if len(prop.Enum) > 0 {
		schema["enum"] = prop.Enum
	}
	if prop.Type == "array" && prop.Items != nil {
		schema["items"] = convertPropertyToSchema(prop.Items)
	}
	if prop.Type == "object" && prop.Properties != nil {
		properties := make(map[string]any)
		for name, childProp := range prop.Properties {
			if childProp != nil {
				properties[name] = convertPropertyToSchema(childProp)
			}
		}
		schema["properties"] = properties
		if len(prop.Required) > 0 {
			schema["required"] = prop.Required
		}
	}

	return schema
}

// buildInput converts the generic conversation into Responses API input items.
// System messages become top-level instructions; assistant tool calls become
// function_call items and their results function_call_output items.
func buildInput(messages []llm.CompletionMessage) (items responses.ResponseInputParam, instructions string) {
	items = make(responses.ResponseInputParam, 0, len(messages))

	for i := range messages {
		msg := &messages[i]

		switch msg.Role {
		case llm.RoleSystem:
			if instructions == "" {
				instructions = msg.Content
			} else {
				instructions += "\n\n" + msg.Content
			}
		case llm.RoleAssistant:
			if msg.Content != "" {
				items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleAssistant))
			}
			for j := range msg.ToolCalls {
				call := &msg.ToolCalls[j]
				argsRaw := "{}"
				if len(call.Parameters) > 0 {
					if b, err := json.Marshal(call.Parameters); err == nil {
						argsRaw = string(b)
					}
				}
				items = append(items, responses.ResponseInputItemParamOfFunctionCall(argsRaw, call.ID, call.Name))
			}
		case llm.RoleUser:
			for j := range msg.ToolResults {
				tr := &msg.ToolResults[j]
				items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(tr.ToolCallID, tr.Content))
			}
			if msg.Content != "" {
				items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleUser))
			}
		}
	}

	return items, instructions
}

// Complete implements the llm.LLMClient interface using the Responses API.
//
//nolint:gocritic // passing CompletionRequest by value matches the interface
func (o *OfficialClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	input, instructions := buildInput(in.Messages)
	if len(input) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "message list cannot be empty")
	}

	// Cap MaxTokens to the model's actual limit to prevent API errors.
	maxTokens := in.MaxTokens
	if modelInfo, exists := config.KnownModels[o.model]; exists && modelInfo.MaxOutputTokens > 0 {
		if maxTokens > modelInfo.MaxOutputTokens {
			maxTokens = modelInfo.MaxOutputTokens
		}
	}

	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(int64(maxTokens)),
		Input:           responses.ResponseNewParamsInputUnion{OfInputItemList: input},
	}
	if instructions != "" {
		params.Instructions = openai.String(instructions)
	}

	if len(in.Tools) > 0 {
		toolParams := make([]responses.ToolUnionParam, len(in.Tools))
		for i := range in.Tools {
			def := &in.Tools[i]
			properties := make(map[string]any)
			for name := range def.InputSchema.Properties {
				prop := def.InputSchema.Properties[name]
				properties[name] = convertPropertyToSchema(&prop)
			}

			toolParams[i] = responses.ToolUnionParam{
				OfFunction: &responses.FunctionToolParam{
					Name:        def.Name,
					Description: openai.String(def.Description),
					Parameters: openai.FunctionParameters(map[string]any{
						"type":       "object",
						"properties": properties,
						"required":   def.InputSchema.Required,
					}),
				},
			}
		}
		params.Tools = toolParams

		if in.ToolChoice == "any" {
			params.ToolChoice = responses.ResponseNewParamsToolChoiceUnion{
				OfToolChoiceMode: openai.Opt(responses.ToolChoiceOptionsRequired),
			}
		}
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from OpenAI Responses API")
	}

	var toolCalls []llm.ToolCall
	for i := range resp.Output {
		item := &resp.Output[i]
		if item.Type != "function_call" {
			// Reasoning and text items are covered by OutputText below.
			continue
		}
		funcItem := item.AsFunctionCall()
		var parameters map[string]any
		if funcItem.Arguments != "" {
			if err := json.Unmarshal([]byte(funcItem.Arguments), &parameters); err != nil {
				continue
			}
		}
		toolCalls = append(toolCalls, llm.ToolCall{
			ID:         funcItem.CallID,
			Name:       funcItem.Name,
			Parameters: parameters,
		})
	}

	return llm.CompletionResponse{
		Content:   resp.OutputText(),
		ToolCalls: toolCalls,
	}, nil
}

// Stream implements the llm.LLMClient interface by draining Complete.
//
//nolint:gocritic // passing CompletionRequest by value matches the interface
func (o *OfficialClient) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk, 1)
	go func() {
		defer close(ch)
		resp, err := o.Complete(ctx, in)
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
func (o *OfficialClient) GetModelName() string {
	return o.model
}

// classifyError maps OpenAI SDK errors to structured error types.
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

	var apiErr *openai.Error
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
		strings.Contains(errStr, "eof"),
		strings.Contains(errStr, "reset"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "network or connection error")
	case strings.Contains(errStr, "rate"), strings.Contains(errStr, "quota"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeRateLimit, err, "rate limiting detected")
	}

	return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, fmt.Sprintf("OpenAI Responses API failed: %v", err))
}
