package exec

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalExecBasics(t *testing.T) {
	e := NewLocalExec()
	assert.Equal(t, ExecutorTypeLocal, e.Name())
	assert.True(t, e.Available())
}

func TestLocalExecRun(t *testing.T) {
	e := NewLocalExec()
	result, err := e.Run(context.Background(), []string{"echo", "hello"}, &Opts{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Equal(t, "local", result.ExecutorUsed)
}

func TestLocalExecNonZeroExit(t *testing.T) {
	e := NewLocalExec()
	result, err := e.Run(context.Background(), []string{"sh", "-c", "echo oops >&2; exit 3"}, &Opts{})
	require.NoError(t, err, "non-zero exit is reported via ExitCode, not error")
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, result.Stderr, "oops")
}

func TestLocalExecEmptyCommand(t *testing.T) {
	e := NewLocalExec()
	_, err := e.Run(context.Background(), nil, &Opts{})
	assert.Error(t, err)
}

func TestLocalExecWorkDir(t *testing.T) {
	e := NewLocalExec()
	dir := t.TempDir()
	result, err := e.Run(context.Background(), []string{"pwd"}, &Opts{WorkDir: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, strings.TrimSpace(result.Stdout))

	_, err = e.Run(context.Background(), []string{"pwd"}, &Opts{WorkDir: dir + "/missing"})
	assert.Error(t, err)
}

func TestLocalExecTimeout(t *testing.T) {
	e := NewLocalExec()
	start := time.Now()
	result, _ := e.Run(context.Background(), []string{"sleep", "5"}, &Opts{Timeout: 100 * time.Millisecond})
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.NotEqual(t, 0, result.ExitCode)
}

func TestLocalExecEnv(t *testing.T) {
	e := NewLocalExec()
	result, err := e.Run(context.Background(), []string{"sh", "-c", "echo $TOOL_TEST_VAR"}, &Opts{Env: []string{"TOOL_TEST_VAR=abc"}})
	require.NoError(t, err)
	assert.Equal(t, "abc", strings.TrimSpace(result.Stdout))
}
