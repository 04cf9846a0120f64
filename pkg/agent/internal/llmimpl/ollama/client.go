// Package ollama provides the Ollama implementation of llm.LLMClient.
// It serves both local Ollama servers and the hosted Ollama cloud, which
// differ only in host URL and the presence of an API key.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"opendev/pkg/agent/llm"
	"opendev/pkg/agent/llmerrors"
	"opendev/pkg/tools"
)

const defaultHost = "http://localhost:11434"

// Client wraps the Ollama API client to implement llm.LLMClient.
type Client struct {
	client *api.Client
	model  string
}

// bearerTransport injects the Authorization header for Ollama cloud.
type bearerTransport struct {
	apiKey string
	base   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.apiKey)
	return t.base.RoundTrip(clone)
}

// NewClient creates a raw Ollama client; middleware is applied at a higher
// level. apiKey is empty for local servers.
func NewClient(hostURL, apiKey, model string) llm.LLMClient {
	if hostURL == "" {
		hostURL = defaultHost
	}
	parsedURL, err := url.Parse(hostURL)
	if err != nil {
		parsedURL, _ = url.Parse(defaultHost)
	}

	httpClient := http.DefaultClient
	if apiKey != "" {
		httpClient = &http.Client{
			Transport: &bearerTransport{apiKey: apiKey, base: http.DefaultTransport},
		}
	}

	return &Client{
		client: api.NewClient(parsedURL, httpClient),
		model:  model,
	}
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // passing CompletionRequest by value matches the interface
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages, err := convertMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}

	if len(in.Tools) > 0 {
		req.Tools = convertTools(in.Tools)
	}

	var response api.ChatResponse
	err = o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	result := llm.CompletionResponse{
		Content:    response.Message.Content,
		StopReason: stopReason(&response),
	}
	if len(response.Message.ToolCalls) > 0 {
		result.ToolCalls = convertToolCalls(response.Message.ToolCalls)
	}

	return result, nil
}

// Stream implements the llm.LLMClient interface by draining Complete.
//
//nolint:gocritic // passing CompletionRequest by value matches the interface
func (o *Client) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
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
func (o *Client) GetModelName() string {
	return o.model
}

// convertMessages converts the generic conversation to Ollama's Message format.
// Tool results become separate role "tool" messages.
func convertMessages(messages []llm.CompletionMessage) ([]api.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}

	result := make([]api.Message, 0, len(messages))

	for i := range messages {
		msg := &messages[i]

		ollamaMsg := api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}

		if len(msg.ToolCalls) > 0 {
			ollamaMsg.ToolCalls = make([]api.ToolCall, len(msg.ToolCalls))
			for j := range msg.ToolCalls {
				tc := &msg.ToolCalls[j]
				args := api.NewToolCallFunctionArguments()
				for k, v := range tc.Parameters {
					args.Set(k, v)
				}
				ollamaMsg.ToolCalls[j] = api.ToolCall{
					ID: tc.ID,
					Function: api.ToolCallFunction{
						Name:      tc.Name,
						Arguments: args,
					},
				}
			}
		}

		if len(msg.ToolResults) > 0 {
			for j := range msg.ToolResults {
				tr := &msg.ToolResults[j]
				result = append(result, api.Message{
					Role:       "tool",
					Content:    tr.Content,
					ToolCallID: tr.ToolCallID,
				})
			}
			if msg.Content != "" {
				result = append(result, ollamaMsg)
			}
			continue
		}

		result = append(result, ollamaMsg)
	}

	return result, nil
}

// convertTools converts tool definitions to Ollama's Tool format.
func convertTools(toolDefs []tools.ToolDefinition) api.Tools {
	ollamaTools := make(api.Tools, len(toolDefs))

	for i := range toolDefs {
		td := &toolDefs[i]
		properties := api.NewToolPropertiesMap()
		for name := range td.InputSchema.Properties {
			prop := td.InputSchema.Properties[name]
			properties.Set(name, convertProperty(&prop))
		}

		ollamaTools[i] = api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        td.Name,
				Description: td.Description,
				Parameters: api.ToolFunctionParameters{
					Type:       td.InputSchema.Type,
					Properties: properties,
					Required:   td.InputSchema.Required,
				},
			},
		}
	}

	return ollamaTools
}

// convertProperty converts a tool property to Ollama format.
func convertProperty(prop *tools.Property) api.ToolProperty {
	ollamaProp := api.ToolProperty{
		Type:        api.PropertyType{prop.Type},
		Description: prop.Description,
	}

	if len(prop.Enum) > 0 {
		enumVals := make([]any, len(prop.Enum))
		for i, v := range prop.Enum {
			enumVals[i] = v
		}
		ollamaProp.Enum = enumVals
	}

	if prop.Properties != nil {
		nestedProps := make(map[string]api.ToolProperty)
		for name, nestedProp := range prop.Properties {
			nestedProps[name] = convertProperty(nestedProp)
		}
		ollamaProp.Items = map[string]any{
			"type":       "object",
			"properties": nestedProps,
		}
	}

	if prop.Items != nil {
		ollamaProp.Items = convertProperty(prop.Items)
	}

	return ollamaProp
}

// convertToolCalls extracts tool calls from an Ollama response.
func convertToolCalls(calls []api.ToolCall) []llm.ToolCall {
	result := make([]llm.ToolCall, len(calls))

	for i := range calls {
		call := &calls[i]
		id := call.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}

		result[i] = llm.ToolCall{
			ID:         id,
			Name:       call.Function.Name,
			Parameters: call.Function.Arguments.ToMap(),
		}
	}

	return result
}

// stopReason converts Ollama's done_reason to the generic stop reason format.
func stopReason(resp *api.ChatResponse) string {
	if !resp.Done {
		return "incomplete"
	}

	switch resp.DoneReason {
	case "stop", "":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return resp.DoneReason
	}
}

// classifyError converts Ollama errors to structured error types.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return llmerrors.NewError(llmerrors.ErrorTypeServiceUnavailable, fmt.Sprintf("Ollama server not reachable: %v", err))
	case strings.Contains(errStr, "model") && strings.Contains(errStr, "not found"):
		return llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("Ollama model not found: %v", err))
	case strings.Contains(errStr, "context canceled"), strings.Contains(errStr, "timeout"):
		return llmerrors.NewError(llmerrors.ErrorTypeTransient, fmt.Sprintf("request interrupted: %v", err))
	case strings.Contains(errStr, "401"), strings.Contains(errStr, "unauthorized"):
		return llmerrors.NewError(llmerrors.ErrorTypeAuth, fmt.Sprintf("Ollama authentication failed: %v", err))
	default:
		return llmerrors.NewError(llmerrors.ErrorTypeUnknown, fmt.Sprintf("Ollama API error: %v", err))
	}
}
