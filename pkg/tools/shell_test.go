package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	execpkg "opendev/pkg/exec"
)

func TestShellToolRun(t *testing.T) {
	dir := t.TempDir()
	tool := NewShellTool(execpkg.NewLocalExec(), dir, false, false)

	res, err := tool.Exec(context.Background(), map[string]any{"cmd": "echo workspace-test"})
	require.NoError(t, err)

	m := decodeResult(t, res)
	assert.Equal(t, true, m["success"])
	assert.Equal(t, float64(0), m["exit_code"])
	assert.Contains(t, m["stdout"], "workspace-test")
}

func TestShellToolNonZeroExit(t *testing.T) {
	tool := NewShellTool(execpkg.NewLocalExec(), t.TempDir(), false, false)

	res, err := tool.Exec(context.Background(), map[string]any{"cmd": "exit 7"})
	require.NoError(t, err)

	m := decodeResult(t, res)
	assert.Equal(t, false, m["success"])
	assert.Equal(t, float64(7), m["exit_code"])
}

func TestShellToolMissingCmd(t *testing.T) {
	tool := NewShellTool(execpkg.NewLocalExec(), t.TempDir(), false, false)
	_, err := tool.Exec(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestShellToolRunsInWorkspace(t *testing.T) {
	dir := t.TempDir()
	tool := NewShellTool(execpkg.NewLocalExec(), dir, false, false)

	res, err := tool.Exec(context.Background(), map[string]any{"cmd": "pwd"})
	require.NoError(t, err)

	m := decodeResult(t, res)
	assert.Contains(t, m["stdout"], dir)
}

func TestSubmitPlanEcho(t *testing.T) {
	tool := NewSubmitPlanTool()
	res, err := tool.Exec(context.Background(), map[string]any{
		"thinking":          "simple request",
		"requires_planning": false,
		"direct_response":   "done",
	})
	require.NoError(t, err)

	m := decodeResult(t, res)
	assert.Equal(t, true, m["success"])
	received := m["received"].(map[string]any)
	assert.Equal(t, "done", received["direct_response"])
}
