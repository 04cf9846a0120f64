package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"opendev/pkg/agent/middleware/metrics"
	"opendev/pkg/config"
	"opendev/pkg/contextmgr"
	execpkg "opendev/pkg/exec"
	"opendev/pkg/logx"
	"opendev/pkg/runloop"
	"opendev/pkg/tools"
)

// Dispatcher runs plan steps strictly sequentially, each through a fresh
// reasoning loop scoped to the step's mode. A failed step is recorded and the
// plan continues; only cancellation aborts the remaining steps.
type Dispatcher struct {
	clients  ClientSource
	cfg      *config.Config
	executor execpkg.Executor
	events   *Broadcaster
	logger   *logx.Logger
}

// NewDispatcher creates a step dispatcher.
func NewDispatcher(clients ClientSource, cfg *config.Config, executor execpkg.Executor, events *Broadcaster) *Dispatcher {
	return &Dispatcher{
		clients:  clients,
		cfg:      cfg,
		executor: executor,
		events:   events,
		logger:   logx.NewLogger("dispatcher"),
	}
}

// Run executes every remaining plan step. The index advances by exactly one
// per step regardless of outcome, so len(StepResults) == CurrentStepIndex
// holds between steps. Returns a cancellation error if the context is done;
// all other step failures are absorbed into StepResults.
func (d *Dispatcher) Run(ctx context.Context, st *ExecutionState) error {
	for st.CurrentStepIndex < len(st.Plan) {
		if err := ctx.Err(); err != nil {
			return WrapError(KindCancellation, err, "cancelled before step %d", st.CurrentStepIndex+1)
		}

		step := &st.Plan[st.CurrentStepIndex]
		d.events.Publish(Event{
			Type:    EventStepStarted,
			TaskID:  st.ID,
			Step:    step.Ordinal,
			Mode:    string(step.Mode),
			Message: step.Description,
		})
		d.logger.Info("Step %d/%d (%s): %s", step.Ordinal, len(st.Plan), step.Mode, step.Description)

		result, err := d.executeStep(ctx, st, step)
		if err != nil {
			// A cancellation that arrived mid-step aborts the plan; anything
			// else is a step-local failure the report still accounts for.
			if ctx.Err() != nil {
				return WrapError(KindCancellation, ctx.Err(), "cancelled during step %d", step.Ordinal)
			}
			stepErr := WrapError(KindStepExecution, err, "step %d failed", step.Ordinal)
			d.logger.Error("%v", stepErr)
			st.StepResults = append(st.StepResults,
				fmt.Sprintf("Step %d (%s): error: %v", step.Ordinal, step.Mode, err))
		} else {
			st.StepResults = append(st.StepResults,
				fmt.Sprintf("Step %d (%s): %s", step.Ordinal, step.Mode, result))
		}

		st.CurrentStepIndex++
		d.events.Publish(Event{
			Type:    EventStepCompleted,
			TaskID:  st.ID,
			Step:    step.Ordinal,
			Mode:    string(step.Mode),
			Message: st.StepResults[len(st.StepResults)-1],
		})
	}
	return nil
}

// executeStep drives one reasoning loop seeded with only the step's
// instruction. The outer conversation never reaches the step executor.
func (d *Dispatcher) executeStep(ctx context.Context, st *ExecutionState, step *PlanStep) (string, error) {
	client, err := d.clients.Client(st.Provider, metrics.StaticTask(st.ID, string(step.Mode)))
	if err != nil {
		return "", WrapError(KindProviderError, err, "creating %s client", st.Provider)
	}

	cm := contextmgr.NewContextManagerWithLimits(client.GetModelName(), 0, 0)
	cm.AddMessage("system", SystemPromptForMode(step.Mode))

	toolProvider := tools.NewProviderForScope(tools.AgentContext{
		Executor: d.executor,
		WorkDir:  d.cfg.WorkspaceDir,
	}, step.Mode.Scope())

	stepCtx := ctx
	if d.cfg.Execution.StepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, d.cfg.Execution.StepTimeout)
		defer cancel()
	}

	loop := runloop.New(client, d.logger)
	result, err := loop.Run(stepCtx, &runloop.Config{
		ContextManager: cm,
		ToolProvider:   toolProvider,
		MaxIterations:  d.cfg.Execution.MaxIterations,
		MaxTokens:      d.cfg.Execution.MaxTokens,
		InitialPrompt:  step.Instruction,
		OnToolInvoked: func(name string, isError bool) {
			msg := name
			if isError {
				msg = name + " (error)"
			}
			d.events.Publish(Event{
				Type:    EventToolInvoked,
				TaskID:  st.ID,
				Step:    step.Ordinal,
				Mode:    string(step.Mode),
				Message: msg,
			})
		},
	})
	if err != nil {
		if errors.Is(err, runloop.ErrIterationLimit) {
			return "", WrapError(KindIterationLimit, err, "")
		}
		return "", WrapError(KindProviderError, err, "")
	}
	return result, nil
}
