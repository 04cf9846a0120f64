// Package orchestrator turns a natural-language engineering request into a
// terminal report: a planner decides between a direct answer and an ordered
// multi-step plan, a dispatcher runs each plan step through a mode-scoped
// reasoning loop, and a finalizer aggregates the step results.
package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"opendev/pkg/tools"
)

// Mode selects the toolset and system prompt a plan step executes under.
type Mode string

const (
	// ModeAsk answers questions with read-only inspection tools.
	ModeAsk Mode = "ask"
	// ModeEdit performs targeted file modifications.
	ModeEdit Mode = "edit"
	// ModeAgent does autonomous multi-step work with the full toolset.
	ModeAgent Mode = "agent"
)

// ParseMode validates a mode string from planner output.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAsk, ModeEdit, ModeAgent:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want ask, edit, or agent)", s)
	}
}

// Scope maps the mode to its tool scope.
func (m Mode) Scope() tools.Scope {
	switch m {
	case ModeAsk:
		return tools.ScopeAsk
	case ModeEdit:
		return tools.ScopeEdit
	default:
		return tools.ScopeAgent
	}
}

// PlanStep is one unit of work in an execution plan.
type PlanStep struct {
	Ordinal     int    `json:"step_number"` // 1-based position in the plan
	Description string `json:"description"`
	Mode        Mode   `json:"mode"`
	Instruction string `json:"instruction"` // self-contained; steps see no outer history
}

// Plan is an ordered sequence of steps.
type Plan []PlanStep

// Validate checks that the plan is non-empty, contiguously ordered from 1,
// and that every step carries a known mode and a non-empty instruction.
func (p Plan) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("plan is empty")
	}
	for i := range p {
		step := &p[i]
		if step.Ordinal != i+1 {
			return fmt.Errorf("step at index %d has ordinal %d, want %d", i, step.Ordinal, i+1)
		}
		if _, err := ParseMode(string(step.Mode)); err != nil {
			return fmt.Errorf("step %d: %w", step.Ordinal, err)
		}
		if step.Instruction == "" {
			return fmt.Errorf("step %d has an empty instruction", step.Ordinal)
		}
	}
	return nil
}

// Status is the lifecycle state of one request.
type Status string

const (
	// StatusPlanning is the initial state while the planner decides.
	StatusPlanning Status = "planning"
	// StatusExecuting means plan steps are being dispatched.
	StatusExecuting Status = "executing"
	// StatusCompleted is the successful terminal state.
	StatusCompleted Status = "completed"
	// StatusError is the terminal state for fatal planning failures,
	// unrecovered request-level faults, and cancellation.
	StatusError Status = "error"
)

// ExecutionState is the full record of one request's journey through the
// orchestrator. Invariant while executing: len(StepResults) == CurrentStepIndex.
type ExecutionState struct {
	ID               string     `json:"id"`
	Request          string     `json:"request"`
	Provider         string     `json:"provider"`
	Status           Status     `json:"status"`
	Plan             Plan       `json:"plan,omitempty"`
	CurrentStepIndex int        `json:"current_step_index"`
	StepResults      []string   `json:"step_results,omitempty"`
	FinalResponse    string     `json:"final_response,omitempty"`
	Error            string     `json:"error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// NewExecutionState creates a fresh state in the planning status.
func NewExecutionState(request, provider string) *ExecutionState {
	return &ExecutionState{
		ID:        uuid.NewString(),
		Request:   request,
		Provider:  provider,
		Status:    StatusPlanning,
		CreatedAt: time.Now().UTC(),
	}
}

// Complete moves the state to its successful terminal form.
func (s *ExecutionState) Complete(finalResponse string) {
	s.FinalResponse = finalResponse
	s.Status = StatusCompleted
	now := time.Now().UTC()
	s.CompletedAt = &now
}

// Fail moves the state to the error terminal form.
func (s *ExecutionState) Fail(err error) {
	s.Error = err.Error()
	s.Status = StatusError
	now := time.Now().UTC()
	s.CompletedAt = &now
}

// BeginExecution installs a validated plan and moves to executing.
func (s *ExecutionState) BeginExecution(plan Plan) {
	s.Plan = plan
	s.CurrentStepIndex = 0
	s.StepResults = nil
	s.Status = StatusExecuting
}
