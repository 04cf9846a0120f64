package google

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"opendev/pkg/agent/llm"
)

func TestNewConversationIsolatesResponseCache(t *testing.T) {
	first, ok := NewClient("key", "gemini-test").(*GeminiClient)
	require.True(t, ok)

	// Simulate a completed turn in the first conversation.
	first.responseCache = append(first.responseCache, &genai.Content{
		Role:  "model",
		Parts: []*genai.Part{{Text: "first conversation reply"}},
	})

	second, ok := first.NewConversation().(*GeminiClient)
	require.True(t, ok)

	assert.Empty(t, second.responseCache)
	assert.Same(t, first.core, second.core)
	assert.Equal(t, "gemini-test", second.GetModelName())
}

func TestConvertMessagesUsesOwnAssistantTurnWithEmptyCache(t *testing.T) {
	// A fresh conversation has no cached responses; its tool-calling assistant
	// turn must be converted from the message itself, not replayed from
	// another conversation's history.
	messages := []llm.CompletionMessage{
		llm.NewSystemMessage("be brief"),
		llm.NewUserMessage("list the workspace"),
		{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{
				{ID: "list_files", Name: "list_files", Parameters: map[string]any{"path": "."}},
			},
		},
	}

	contents, system, err := convertMessages(messages, nil)
	require.NoError(t, err)
	assert.Equal(t, "be brief", system)
	require.Len(t, contents, 2)

	model := contents[1]
	assert.Equal(t, "model", model.Role)
	require.Len(t, model.Parts, 1)
	require.NotNil(t, model.Parts[0].FunctionCall)
	assert.Equal(t, "list_files", model.Parts[0].FunctionCall.Name)
}

func TestConvertMessagesReplaysCachedAssistantTurns(t *testing.T) {
	cached := &genai.Content{
		Role:  "model",
		Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{Name: "shell", Args: map[string]any{"cmd": "ls"}}}},
	}

	messages := []llm.CompletionMessage{
		llm.NewUserMessage("run it"),
		{
			Role:      llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{{ID: "shell", Name: "shell"}},
		},
		{
			Role:        llm.RoleUser,
			ToolResults: []llm.ToolResult{{ToolCallID: "shell", Content: "ok"}},
		},
	}

	contents, _, err := convertMessages(messages, []*genai.Content{cached})
	require.NoError(t, err)
	require.Len(t, contents, 3)

	// The cached content carries the thought signatures; it replaces the
	// reconstructed assistant turn verbatim.
	assert.Same(t, cached, contents[1])
}
