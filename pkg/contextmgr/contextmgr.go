// Package contextmgr manages conversation context: message accumulation,
// token counting, and compaction when the conversation approaches the model's
// context window.
package contextmgr

import (
	"fmt"
	"strings"

	"opendev/pkg/utils"
)

// ToolCall mirrors a tool invocation recorded on an assistant message.
type ToolCall struct {
	Parameters map[string]any
	ID         string
	Name       string
}

// ToolResult records the outcome of a tool call, attached to a user message.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// Message represents a single message in the conversation context.
type Message struct {
	Role        string
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ContextManager manages conversation context and token counting.
// It is not safe for concurrent use; each reasoning loop owns one instance.
type ContextManager struct {
	messages        []Message
	counter         *utils.TokenCounter
	maxContext      int
	reservedForNext int // tokens kept free for the next reply
}

const (
	defaultMaxContext = 120000
	defaultReserved   = 16000
)

// NewContextManager creates a new context manager instance with defaults.
func NewContextManager() *ContextManager {
	return NewContextManagerWithLimits("", defaultMaxContext, defaultReserved)
}

// NewContextManagerWithLimits creates a context manager sized for a model.
// A zero or negative limit falls back to the default.
func NewContextManagerWithLimits(model string, maxContext, reservedForNext int) *ContextManager {
	if maxContext <= 0 {
		maxContext = defaultMaxContext
	}
	if reservedForNext <= 0 {
		reservedForNext = defaultReserved
	}
	counter, err := utils.NewTokenCounter(model)
	if err != nil {
		counter = nil // CountTokens falls back to estimation
	}
	return &ContextManager{
		messages:        make([]Message, 0),
		counter:         counter,
		maxContext:      maxContext,
		reservedForNext: reservedForNext,
	}
}

// AddMessage stores a role/content pair in the context.
func (cm *ContextManager) AddMessage(role, content string) {
	cm.messages = append(cm.messages, Message{Role: role, Content: content})
}

// AddAssistantMessage stores a plain assistant reply.
func (cm *ContextManager) AddAssistantMessage(content string) {
	cm.AddMessage("assistant", content)
}

// AddAssistantMessageWithTools stores an assistant reply carrying tool calls.
func (cm *ContextManager) AddAssistantMessageWithTools(content string, toolCalls []ToolCall) {
	cm.messages = append(cm.messages, Message{
		Role:      "assistant",
		Content:   content,
		ToolCalls: toolCalls,
	})
}

// AddToolResult records a tool execution outcome. Consecutive results are
// folded into a single user message so every tool_use in the preceding
// assistant turn is answered in one turn.
func (cm *ContextManager) AddToolResult(toolCallID, content string, isError bool) {
	result := ToolResult{ToolCallID: toolCallID, Content: content, IsError: isError}

	if n := len(cm.messages); n > 0 {
		last := &cm.messages[n-1]
		if last.Role == "user" && len(last.ToolResults) > 0 {
			last.ToolResults = append(last.ToolResults, result)
			return
		}
	}
	cm.messages = append(cm.messages, Message{
		Role:        "user",
		ToolResults: []ToolResult{result},
	})
}

// CountTokens returns the approximate token count of the whole context.
func (cm *ContextManager) CountTokens() int {
	total := 0
	for i := range cm.messages {
		total += cm.messageTokens(&cm.messages[i])
	}
	return total
}

func (cm *ContextManager) messageTokens(msg *Message) int {
	count := cm.countText(msg.Content)
	for i := range msg.ToolCalls {
		count += cm.countText(fmt.Sprintf("%v", msg.ToolCalls[i].Parameters))
	}
	for i := range msg.ToolResults {
		count += cm.countText(msg.ToolResults[i].Content)
	}
	return count + 4 // per-message overhead
}

func (cm *ContextManager) countText(text string) int {
	if cm.counter != nil {
		return cm.counter.CountTokens(text)
	}
	return len(text) / 4
}

// ShouldCompact checks if compaction is needed without performing it.
func (cm *ContextManager) ShouldCompact() bool {
	return cm.CountTokens()+cm.reservedForNext > cm.maxContext
}

// CompactIfNeeded drops the oldest messages until the context plus the reply
// reservation fits the window again. The leading system message (if any) and
// the seed prompt after it always survive; tool call/result pairs are dropped
// together to keep the conversation well-formed.
func (cm *ContextManager) CompactIfNeeded() error {
	if !cm.ShouldCompact() {
		return nil
	}

	// The seed prompt sits at index 0, or at index 1 when a system message
	// leads the conversation.
	keep := 1
	if len(cm.messages) > 0 && cm.messages[0].Role == "system" {
		keep = 2
	}

	target := cm.maxContext - cm.reservedForNext
	for cm.CountTokens() > target && len(cm.messages) > keep+1 {
		dropFrom := keep
		dropTo := keep + 1
		// If dropping an assistant turn with tool calls, drop its result turn too.
		if len(cm.messages[dropFrom].ToolCalls) > 0 &&
			dropTo < len(cm.messages) &&
			len(cm.messages[dropTo].ToolResults) > 0 {
			dropTo++
		}
		cm.messages = append(cm.messages[:dropFrom], cm.messages[dropTo:]...)
	}
	return nil
}

// GetMessages returns a copy of all messages in the context.
func (cm *ContextManager) GetMessages() []Message {
	result := make([]Message, len(cm.messages))
	copy(result, cm.messages)
	return result
}

// Clear removes all messages from the context.
func (cm *ContextManager) Clear() {
	cm.messages = cm.messages[:0]
}

// GetMessageCount returns the number of messages in the context.
func (cm *ContextManager) GetMessageCount() int {
	return len(cm.messages)
}

// GetContextSummary returns a brief summary of the context state.
func (cm *ContextManager) GetContextSummary() string {
	messageCount := len(cm.messages)
	if messageCount == 0 {
		return "Empty context"
	}

	roleCounts := make(map[string]int)
	for i := range cm.messages {
		roleCounts[cm.messages[i].Role]++
	}
	var roleBreakdown []string
	for role, count := range roleCounts {
		roleBreakdown = append(roleBreakdown, fmt.Sprintf("%s: %d", role, count))
	}

	return fmt.Sprintf("%d messages (%d tokens) - %s",
		messageCount, cm.CountTokens(), strings.Join(roleBreakdown, ", "))
}
