// Package exec provides command execution abstractions for tool operations.
package exec

import (
	"context"
	"time"
)

// ExecutorType represents the type of executor.
type ExecutorType string

// Executor type constants.
const (
	ExecutorTypeLocal ExecutorType = "local"
)

// Executor defines the interface for executing commands in different environments.
type Executor interface {
	// Run executes a command with the given options and returns the result.
	Run(ctx context.Context, cmd []string, opts *Opts) (Result, error)

	// Name returns the executor type name for logging/debugging.
	Name() ExecutorType

	// Available returns true if this executor can be used in the current environment.
	Available() bool
}

// Opts contains options for command execution.
//
//nolint:govet // Configuration struct, logical grouping preferred
type Opts struct {
	// Env contains environment variables (KEY=VALUE format)
	Env []string

	// Timeout is the maximum duration for command execution.
	Timeout time.Duration

	// WorkDir is the working directory for the command.
	WorkDir string

	// ReadOnly indicates the command must not modify the workspace.
	// Executors that cannot enforce this still record it for callers.
	ReadOnly bool

	// NetworkDisabled indicates if network access should be disabled.
	NetworkDisabled bool
}

// Result contains the result of command execution.
type Result struct {
	// Stdout contains the standard output.
	Stdout string

	// Stderr contains the standard error output.
	Stderr string

	// ExecutorUsed indicates which executor was used (for debugging)
	ExecutorUsed string

	// Duration is how long the command took to execute.
	Duration time.Duration

	// ExitCode is the exit code of the command.
	ExitCode int
}

// DefaultExecOpts returns default execution options.
func DefaultExecOpts() Opts {
	return Opts{
		Timeout:         5 * time.Minute,
		ReadOnly:        false,
		NetworkDisabled: false,
	}
}
