package orchestrator

import (
	"errors"
	"fmt"
)

// Kind classifies orchestration failures. The kind determines propagation:
// planning failures and cancellation abort the whole request; step-level and
// tool-level failures are absorbed into step results and the plan continues.
type Kind string

const (
	// KindSchemaViolation means the planner's structured output did not match
	// the expected shape. Fatal: the whole request fails, no retry.
	KindSchemaViolation Kind = "schema_violation"

	// KindProviderError means an LLM invocation failed. Fatal during
	// planning, step-local during execution.
	KindProviderError Kind = "provider_error"

	// KindIterationLimit means a reasoning loop hit its iteration ceiling
	// without converging. Step-local.
	KindIterationLimit Kind = "iteration_limit_exceeded"

	// KindToolExecution means a tool call failed. Non-fatal: folded into the
	// conversation so the model can react.
	KindToolExecution Kind = "tool_execution_error"

	// KindStepExecution means a step's entire loop failed. Recorded into the
	// step results; the plan continues.
	KindStepExecution Kind = "step_execution_error"

	// KindCancellation means a cooperative stop was requested. Terminal and
	// distinct from success.
	KindCancellation Kind = "cancellation_requested"
)

// Error is a classified orchestration error.
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error with a formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError classifies an underlying error, attaching an optional message.
func WrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether any error in the chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Kind == kind
}

// KindOf extracts the kind of the first *Error in the chain, or "" if none.
func KindOf(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}
