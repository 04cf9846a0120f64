package contextmgr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMessage(t *testing.T) {
	cm := NewContextManager()
	cm.AddMessage("user", "hello")
	cm.AddAssistantMessage("hi there")

	msgs := cm.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
}

func TestGetMessagesReturnsCopy(t *testing.T) {
	cm := NewContextManager()
	cm.AddMessage("user", "original")

	msgs := cm.GetMessages()
	msgs[0].Content = "mutated"

	assert.Equal(t, "original", cm.GetMessages()[0].Content)
}

func TestAddAssistantMessageWithTools(t *testing.T) {
	cm := NewContextManager()
	cm.AddAssistantMessageWithTools("checking files", []ToolCall{
		{ID: "call_1", Name: "list_files", Parameters: map[string]any{"path": "."}},
	})

	msgs := cm.GetMessages()
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].ToolCalls, 1)
	assert.Equal(t, "list_files", msgs[0].ToolCalls[0].Name)
}

func TestToolResultsFoldIntoOneTurn(t *testing.T) {
	cm := NewContextManager()
	cm.AddAssistantMessageWithTools("", []ToolCall{
		{ID: "call_1", Name: "read_file"},
		{ID: "call_2", Name: "list_files"},
	})
	cm.AddToolResult("call_1", "contents", false)
	cm.AddToolResult("call_2", "entries", false)

	msgs := cm.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[1].Role)
	require.Len(t, msgs[1].ToolResults, 2)
	assert.Equal(t, "call_1", msgs[1].ToolResults[0].ToolCallID)
	assert.Equal(t, "call_2", msgs[1].ToolResults[1].ToolCallID)
}

func TestToolResultErrorFlag(t *testing.T) {
	cm := NewContextManager()
	cm.AddAssistantMessageWithTools("", []ToolCall{{ID: "call_1", Name: "shell"}})
	cm.AddToolResult("call_1", "command not found", true)

	msgs := cm.GetMessages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].ToolResults[0].IsError)
}

func TestCountTokensGrows(t *testing.T) {
	cm := NewContextManager()
	base := cm.CountTokens()
	cm.AddMessage("user", strings.Repeat("word ", 100))
	assert.Greater(t, cm.CountTokens(), base)
}

func TestCompaction(t *testing.T) {
	// Tiny window forces compaction quickly.
	cm := NewContextManagerWithLimits("", 400, 100)
	cm.AddMessage("user", "seed prompt that should survive")
	for i := 0; i < 20; i++ {
		cm.AddMessage("assistant", strings.Repeat("filler content ", 10))
	}

	require.True(t, cm.ShouldCompact())
	require.NoError(t, cm.CompactIfNeeded())

	msgs := cm.GetMessages()
	assert.Equal(t, "seed prompt that should survive", msgs[0].Content)
	assert.False(t, cm.ShouldCompact())
}

func TestCompactionKeepsSystemPromptAndSeed(t *testing.T) {
	cm := NewContextManagerWithLimits("", 400, 100)
	cm.AddMessage("system", "you are a careful assistant")
	cm.AddMessage("user", "apply the requested refactor")
	for i := 0; i < 20; i++ {
		cm.AddMessage("assistant", strings.Repeat("filler content ", 10))
	}

	require.True(t, cm.ShouldCompact())
	require.NoError(t, cm.CompactIfNeeded())

	msgs := cm.GetMessages()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "you are a careful assistant", msgs[0].Content)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "apply the requested refactor", msgs[1].Content)
	assert.False(t, cm.ShouldCompact())
}

func TestCompactionDropsToolPairsTogether(t *testing.T) {
	cm := NewContextManagerWithLimits("", 300, 100)
	cm.AddMessage("user", "seed")
	cm.AddAssistantMessageWithTools(strings.Repeat("x ", 100), []ToolCall{{ID: "c1", Name: "shell"}})
	cm.AddToolResult("c1", strings.Repeat("y ", 100), false)
	cm.AddAssistantMessage("final answer")

	require.NoError(t, cm.CompactIfNeeded())

	// No orphaned tool results after compaction.
	for _, msg := range cm.GetMessages() {
		if len(msg.ToolResults) > 0 {
			t.Fatalf("orphaned tool result turn survived compaction: %+v", msg)
		}
	}
}

func TestClearAndSummary(t *testing.T) {
	cm := NewContextManager()
	assert.Equal(t, "Empty context", cm.GetContextSummary())

	cm.AddMessage("user", "q")
	cm.AddAssistantMessage("a")
	assert.Equal(t, 2, cm.GetMessageCount())
	assert.Contains(t, cm.GetContextSummary(), "2 messages")

	cm.Clear()
	assert.Equal(t, 0, cm.GetMessageCount())
}
