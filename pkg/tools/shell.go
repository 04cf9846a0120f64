package tools

import (
	"context"
	"fmt"
	"time"

	execpkg "opendev/pkg/exec"
)

const defaultShellTimeout = 2 * time.Minute

// ShellTool executes shell commands through an Executor, scoped to the
// workspace directory.
type ShellTool struct {
	executor        execpkg.Executor
	workspaceRoot   string
	readOnly        bool
	networkDisabled bool
}

// NewShellTool creates a new shell tool.
func NewShellTool(executor execpkg.Executor, workspaceRoot string, readOnly, networkDisabled bool) *ShellTool {
	return &ShellTool{
		executor:        executor,
		workspaceRoot:   workspaceRoot,
		readOnly:        readOnly,
		networkDisabled: networkDisabled,
	}
}

// Name returns the tool name.
func (t *ShellTool) Name() string {
	return ToolShell
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *ShellTool) PromptDocumentation() string {
	return `- **shell** - Execute a shell command in the workspace
  - Parameters:
    - cmd (string, REQUIRED): command to run via sh -c
    - timeout_seconds (integer, optional): wall clock limit (default: 120)
  - Returns stdout, stderr, and exit_code; non-zero exit is not an error`
}

// Definition returns the tool definition for the LLM.
func (t *ShellTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolShell,
		Description: "Execute a shell command in the workspace and return stdout, stderr, and exit code.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"cmd": {
					Type:        "string",
					Description: "Command to run via sh -c",
				},
				"timeout_seconds": {
					Type:        "integer",
					Description: "Wall clock limit in seconds. Defaults to 120.",
				},
			},
			Required: []string{"cmd"},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *ShellTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	cmdStr, err := stringArg(args, "cmd")
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(intArgOrDefault(args, "timeout_seconds", int(defaultShellTimeout/time.Second))) * time.Second

	opts := &execpkg.Opts{
		WorkDir:         t.workspaceRoot,
		Timeout:         timeout,
		ReadOnly:        t.readOnly,
		NetworkDisabled: t.networkDisabled,
	}

	result, err := t.executor.Run(ctx, []string{"sh", "-c", cmdStr}, opts)
	if err != nil {
		return errorResult(fmt.Sprintf("command failed to start: %v", err))
	}

	return jsonResult(map[string]any{
		"success":   result.ExitCode == 0,
		"cmd":       cmdStr,
		"exit_code": result.ExitCode,
		"stdout":    result.Stdout,
		"stderr":    result.Stderr,
		"duration":  result.Duration.String(),
	})
}
