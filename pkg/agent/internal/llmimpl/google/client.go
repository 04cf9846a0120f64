// Package google provides the Google Gemini implementation of llm.LLMClient.
package google

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"opendev/pkg/agent/llm"
	"opendev/pkg/agent/llmerrors"
	"opendev/pkg/tools"
)

// geminiCore holds the state shared by every conversation on a provider:
// credentials and the lazily created genai client. The genai client needs a
// context, so it is created on first use; a failed creation is not cached and
// the next call retries.
type geminiCore struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

func (c *geminiCore) get(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, err, "failed to create Gemini client")
		}
		c.client = client
	}
	return c.client, nil
}

// GeminiClient implements llm.LLMClient for one conversation. The response
// cache is conversation-local; sharing it across conversations would replay
// one conversation's assistant turns into another. Callers obtain a clean
// instance per conversation via NewConversation.
type GeminiClient struct {
	core          *geminiCore
	responseCache []*genai.Content // assistant responses kept verbatim to preserve thought signatures
}

// NewClient creates a raw Gemini client; middleware is applied at a higher level.
func NewClient(apiKey, model string) llm.LLMClient {
	return &GeminiClient{
		core: &geminiCore{
			apiKey: apiKey,
			model:  model,
		},
	}
}

// NewConversation implements llm.ConversationStarter: a client with an empty
// response cache sharing the underlying genai client.
func (g *GeminiClient) NewConversation() llm.LLMClient {
	return &GeminiClient{core: g.core}
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // passing CompletionRequest by value matches the interface
func (g *GeminiClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	client, err := g.core.get(ctx)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	contents, systemInstruction, err := convertMessages(in.Messages, g.responseCache)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	//nolint:gosec // MaxTokens validated at higher layer
	maxTokens := int32(in.MaxTokens)
	config := &genai.GenerateContentConfig{
		Temperature:     &in.Temperature,
		MaxOutputTokens: maxTokens,
	}

	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	if len(in.Tools) > 0 {
		config.Tools = []*genai.Tool{
			{FunctionDeclarations: convertTools(in.Tools)},
		}

		// Gemini may return empty responses when a tool call is expected but
		// not forced, so "any" maps to mode ANY; everything else stays AUTO.
		mode := genai.FunctionCallingConfigModeAuto
		if in.ToolChoice == "any" {
			mode = genai.FunctionCallingConfigModeAny
		}
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
		}
	}

	result, err := client.Models.GenerateContent(ctx, g.core.model, contents, config)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "Gemini API call failed")
	}
	if result == nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from Gemini API")
	}

	// Cache the assistant content so later turns replay it with its thought
	// signatures intact.
	if len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		g.responseCache = append(g.responseCache, result.Candidates[0].Content)
	}

	response := llm.CompletionResponse{
		Content:    result.Text(),
		StopReason: "end_turn",
	}
	if functionCalls := result.FunctionCalls(); len(functionCalls) > 0 {
		response.ToolCalls = convertFunctionCalls(functionCalls)
	}

	return response, nil
}

// Stream implements the llm.LLMClient interface by draining Complete.
//
//nolint:gocritic // passing CompletionRequest by value matches the interface
func (g *GeminiClient) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk, 1)
	go func() {
		defer close(ch)
		resp, err := g.Complete(ctx, in)
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
func (g *GeminiClient) GetModelName() string {
	return g.core.model
}

// convertMessages converts the generic conversation to Gemini Content format.
// responseCache holds prior assistant responses; tool-calling assistant turns
// are replayed from the cache so thought signatures survive multi-turn runs.
func convertMessages(messages []llm.CompletionMessage, responseCache []*genai.Content) (contents []*genai.Content, systemInstruction string, err error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("message list cannot be empty")
	}

	assistantMsgIdx := 0

	for i := range messages {
		msg := &messages[i]

		if msg.Role == llm.RoleSystem {
			if systemInstruction != "" {
				systemInstruction += "\n\n" + msg.Content
			} else {
				systemInstruction = msg.Content
			}
			continue
		}

		var role string
		switch msg.Role {
		case llm.RoleUser:
			role = "user"
		case llm.RoleAssistant:
			role = "model"
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}

		if msg.Role == llm.RoleAssistant && len(msg.ToolCalls) > 0 && assistantMsgIdx < len(responseCache) {
			contents = append(contents, responseCache[assistantMsgIdx])
			assistantMsgIdx++
			continue
		}
		if msg.Role == llm.RoleAssistant {
			assistantMsgIdx++
		}

		var parts []*genai.Part
		if msg.Content != "" {
			parts = append(parts, &genai.Part{Text: msg.Content})
		}

		for j := range msg.ToolCalls {
			tc := &msg.ToolCalls[j]
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					Name: tc.Name,
					Args: tc.Parameters,
					ID:   tc.ID,
				},
			})
		}

		for j := range msg.ToolResults {
			tr := &msg.ToolResults[j]
			if tr.ToolCallID == "" {
				continue
			}
			// Gemini matches responses by function name, not ID; callers use
			// the function name as the call ID for this client.
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name: tr.ToolCallID,
					Response: map[string]any{
						"content":  tr.Content,
						"is_error": tr.IsError,
					},
				},
			})
		}

		if len(parts) > 0 {
			contents = append(contents, &genai.Content{
				Role:  role,
				Parts: parts,
			})
		}
	}

	return contents, systemInstruction, nil
}

// convertTools converts tool definitions to Gemini function declarations.
func convertTools(toolDefs []tools.ToolDefinition) []*genai.FunctionDeclaration {
	declarations := make([]*genai.FunctionDeclaration, len(toolDefs))

	for i := range toolDefs {
		def := &toolDefs[i]

		properties := make(map[string]*genai.Schema)
		for propName := range def.InputSchema.Properties {
			prop := def.InputSchema.Properties[propName]
			properties[propName] = convertProperty(&prop)
		}

		declarations[i] = &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   def.InputSchema.Required,
			},
		}
	}

	return declarations
}

// convertProperty recursively converts a Property to a Gemini schema.
func convertProperty(prop *tools.Property) *genai.Schema {
	schema := &genai.Schema{
		Description: prop.Description,
	}

	switch prop.Type {
	case "string":
		schema.Type = genai.TypeString
	case "number":
		schema.Type = genai.TypeNumber
	case "integer":
		schema.Type = genai.TypeInteger
	case "boolean":
		schema.Type = genai.TypeBoolean
	case "array":
		schema.Type = genai.TypeArray
		if prop.Items != nil {
			schema.Items = convertProperty(prop.Items)
		}
	case "object":
		schema.Type = genai.TypeObject
		if prop.Properties != nil {
			properties := make(map[string]*genai.Schema)
			for name, childProp := range prop.Properties {
				if childProp != nil {
					properties[name] = convertProperty(childProp)
				}
			}
			schema.Properties = properties
			schema.Required = prop.Required
		}
	default:
		schema.Type = genai.TypeString
	}

	if len(prop.Enum) > 0 {
		schema.Enum = prop.Enum
	}

	return schema
}

// convertFunctionCalls converts Gemini function calls to the generic format.
func convertFunctionCalls(calls []*genai.FunctionCall) []llm.ToolCall {
	toolCalls := make([]llm.ToolCall, len(calls))

	for i := range calls {
		call := calls[i]
		// Gemini often omits call IDs; fall back to the function name so
		// results can be matched back to their calls.
		id := call.ID
		if id == "" {
			id = call.Name
		}
		toolCalls[i] = llm.ToolCall{
			ID:         id,
			Name:       call.Name,
			Parameters: call.Args,
		}
	}

	return toolCalls
}
