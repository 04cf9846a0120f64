package exec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// LocalExec executes commands directly on the local system without sandboxing.
type LocalExec struct{}

// NewLocalExec creates a new LocalExec executor.
func NewLocalExec() *LocalExec {
	return &LocalExec{}
}

// Name returns the executor type name.
func (e *LocalExec) Name() ExecutorType {
	return ExecutorTypeLocal
}

// Available returns true since local execution is always available.
func (e *LocalExec) Available() bool {
	return true
}

// Run executes a command locally with the given options.
func (e *LocalExec) Run(ctx context.Context, cmd []string, opts *Opts) (Result, error) {
	if len(cmd) == 0 {
		return Result{}, fmt.Errorf("command cannot be empty")
	}
	if opts == nil {
		defaults := DefaultExecOpts()
		opts = &defaults
	}

	startTime := time.Now()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	execCmd := exec.CommandContext(ctx, cmd[0], cmd[1:]...)

	if opts.WorkDir != "" {
		if _, err := os.Stat(opts.WorkDir); os.IsNotExist(err) {
			return Result{}, fmt.Errorf("working directory does not exist: %s", opts.WorkDir)
		}
		execCmd.Dir = opts.WorkDir
	}

	if len(opts.Env) > 0 {
		execCmd.Env = append(os.Environ(), opts.Env...)
	}

	stdout, stderr, exitCode, err := e.executeCommand(execCmd)

	result := Result{
		ExitCode:     exitCode,
		Stdout:       stdout,
		Stderr:       stderr,
		Duration:     time.Since(startTime),
		ExecutorUsed: string(e.Name()),
	}

	// Return the result even if the command failed (non-zero exit code).
	// The caller can check ExitCode to determine success/failure.
	return result, err
}

// executeCommand runs the command and captures output.
func (e *LocalExec) executeCommand(cmd *exec.Cmd) (stdout, stderr string, exitCode int, err error) {
	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()

	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()
	exitCode = 0

	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
			// Non-zero exit is not an error here - caller checks ExitCode.
			err = nil
		} else {
			exitCode = -1
		}
	}

	return stdout, stderr, exitCode, err
}
