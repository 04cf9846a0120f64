// Package llm provides interfaces and types for Large Language Model client implementations.
package llm

import (
	"context"
	"fmt"
	"io"

	"opendev/pkg/tools"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the AI assistant.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// TemperatureDefault is the default temperature for planning and judgment tasks.
	// Allows some exploration and creativity while staying focused.
	TemperatureDefault = 0.3

	// TemperatureDeterministic is the temperature for code edits and deterministic tasks.
	// Uses slight randomness (0.2) to avoid getting stuck in loops while maintaining consistency.
	TemperatureDeterministic = 0.2
)

// ToolCall represents a tool call made by the LLM.
type ToolCall struct {
	Parameters map[string]any `json:"parameters"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
}

// ToolResult carries the result of executing a tool call back to the model.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// CompletionMessage represents a message in a completion request.
// Assistant turns may carry ToolCalls; the following user turn carries the
// matching ToolResults.
type CompletionMessage struct {
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
	Role        CompletionRole
}

// CompletionRequest represents a request to generate a completion.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type CompletionRequest struct {
	Messages    []CompletionMessage
	Tools       []tools.ToolDefinition
	ToolChoice  string // "", "auto", or "any" (force a tool call)
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type CompletionResponse struct {
	ToolCalls  []ToolCall
	Content    string // Main response text
	StopReason string // Why the response stopped: "end_turn", "max_tokens", "tool_use", etc.
}

// StreamChunk represents a chunk of streamed completion response.
type StreamChunk struct {
	Error   error
	Content string
	Done    bool
}

// LLMClient defines the interface for language model interactions.
type LLMClient interface { //nolint:revive // Established name
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// Stream generates a completion as a stream of chunks.
	Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error)

	// GetModelName returns the model name for this LLM client.
	GetModelName() string
}

// ConversationStarter is implemented by clients that keep per-conversation
// state (e.g. cached provider responses) and therefore must not be shared
// across conversations. NewConversation returns a fresh client with clean
// conversation state; expensive resources like connections stay shared.
type ConversationStarter interface {
	NewConversation() LLMClient
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   4096,
		Temperature: TemperatureDefault,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// LLMConfig represents configuration for an LLM client.
type LLMConfig struct { //nolint:revive // Established name
	APIKey      string
	ModelName   string
	Host        string // Ollama only
	MaxTokens   int
	Temperature float32
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive")
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0")
	}
	return nil
}

// StreamToReader converts a stream channel to an io.Reader.
func StreamToReader(stream <-chan StreamChunk) io.Reader {
	pr, pw := io.Pipe()

	go func() {
		defer func() {
			_ = pw.Close()
		}()
		for chunk := range stream {
			if chunk.Error != nil {
				pw.CloseWithError(chunk.Error)
				return
			}
			if _, err := pw.Write([]byte(chunk.Content)); err != nil {
				pw.CloseWithError(err)
				return
			}
			if chunk.Done {
				return
			}
		}
	}()

	return pr
}
