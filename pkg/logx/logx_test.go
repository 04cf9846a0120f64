package logx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger("planner")
	require.NotNil(t, logger)
	assert.Equal(t, "planner", logger.GetComponent())
}

func TestWithComponent(t *testing.T) {
	logger := NewLogger("planner")
	derived := logger.WithComponent("dispatcher")
	assert.Equal(t, "dispatcher", derived.GetComponent())
	assert.Equal(t, "planner", logger.GetComponent())
}

func TestDebugDomainFiltering(t *testing.T) {
	SetDebugConfig(true, []string{"planner"})
	defer SetDebugConfig(false, nil)

	assert.True(t, IsDebugEnabledForDomain("planner"))
	assert.False(t, IsDebugEnabledForDomain("tools"))

	SetDebugConfig(true, nil)
	assert.True(t, IsDebugEnabledForDomain("tools"))
}

func TestDebugDisabled(t *testing.T) {
	SetDebugConfig(false, nil)
	assert.False(t, IsDebugEnabled())
	assert.False(t, IsDebugEnabledForDomain("planner"))

	// Should be a no-op, not a panic.
	Debug(context.Background(), "planner", "ignored %d", 1)
}

func TestLogBufferCapturesEntries(t *testing.T) {
	logger := NewLogger("test-component")
	logger.Info("hello %s", "world")

	entries := GetRecentLogEntries("", time.Time{})
	require.NotEmpty(t, entries)

	found := false
	for _, e := range entries {
		if e.Component == "test-component" && e.Message == "hello world" {
			found = true
			assert.Equal(t, "INFO", e.Level)
		}
	}
	assert.True(t, found, "expected log entry in buffer")
}

func TestLogBufferDomainFilter(t *testing.T) {
	SetDebugConfig(true, nil)
	defer SetDebugConfig(false, nil)

	ctx := WithComponent(context.Background(), "engine")
	Debug(ctx, "dispatch-filter-test", "routed step %d", 3)

	entries := GetRecentLogEntries("dispatch-filter-test", time.Time{})
	require.NotEmpty(t, entries)
	assert.Equal(t, "engine", entries[len(entries)-1].Component)
}

func TestLogBufferMaxSize(t *testing.T) {
	buf := &InMemoryLogBuffer{maxSize: 3}
	for i := 0; i < 5; i++ {
		buf.AddLogEntry(&LogEntry{Message: string(rune('a' + i))})
	}
	entries := buf.GetLogEntries("", time.Time{})
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].Message)
	assert.Equal(t, "e", entries[2].Message)
}

func TestErrorfReturnsError(t *testing.T) {
	err := Errorf("bad state: %s", "executing")
	require.Error(t, err)
	assert.Equal(t, "bad state: executing", err.Error())
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))

	inner := Errorf("inner")
	wrapped := Wrap(inner, "outer")
	require.Error(t, wrapped)
	assert.ErrorIs(t, wrapped, inner)
	assert.Equal(t, "outer: inner", wrapped.Error())
}
