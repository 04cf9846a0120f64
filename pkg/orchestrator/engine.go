package orchestrator

import (
	"context"

	"opendev/pkg/config"
	execpkg "opendev/pkg/exec"
	"opendev/pkg/logx"
)

// Engine binds the planner, step dispatcher, and finalizer into the
// request-level state machine: planning -> executing -> completed | error.
// One Engine serves many concurrent requests; each request owns its own
// ExecutionState and is driven by a single goroutine.
type Engine struct {
	cfg        *config.Config
	planner    *Planner
	dispatcher *Dispatcher
	events     *Broadcaster
	logger     *logx.Logger
}

// NewEngine creates an orchestration engine. A nil broadcaster gets a fresh
// one; Events exposes it for progress subscribers.
func NewEngine(cfg *config.Config, clients ClientSource, executor execpkg.Executor, events *Broadcaster) *Engine {
	if events == nil {
		events = NewBroadcaster()
	}
	return &Engine{
		cfg:        cfg,
		planner:    NewPlanner(clients, cfg),
		dispatcher: NewDispatcher(clients, cfg, executor, events),
		events:     events,
		logger:     logx.NewLogger("orchestrator"),
	}
}

// Events returns the progress broadcaster.
func (e *Engine) Events() *Broadcaster {
	return e.events
}

// Execute drives one request to a terminal state. The returned state is
// always non-nil; on error its Status is StatusError and the error carries
// the classification. A cancelled request surfaces KindCancellation, never a
// silent success.
func (e *Engine) Execute(ctx context.Context, request, provider string) (*ExecutionState, error) {
	st := NewExecutionState(request, provider)
	e.logger.Info("Request %s started (provider %s)", st.ID, provider)

	if err := ctx.Err(); err != nil {
		return e.fail(st, WrapError(KindCancellation, err, "cancelled before planning"))
	}

	if err := e.planner.Decide(ctx, st); err != nil {
		return e.fail(st, err)
	}

	if st.Status == StatusCompleted {
		// Direct response: the dispatcher never runs.
		e.events.Publish(Event{Type: EventPlanCreated, TaskID: st.ID, Message: "direct response"})
		e.events.Publish(Event{Type: EventCompleted, TaskID: st.ID, Message: st.FinalResponse})
		e.logger.Info("Request %s answered directly", st.ID)
		return st, nil
	}

	e.events.Publish(Event{
		Type:    EventPlanCreated,
		TaskID:  st.ID,
		Message: summarizePlan(st.Plan),
	})

	if err := e.dispatcher.Run(ctx, st); err != nil {
		return e.fail(st, err)
	}

	Finalize(st)
	e.events.Publish(Event{Type: EventCompleted, TaskID: st.ID, Message: st.FinalResponse})
	e.logger.Info("Request %s completed (%d steps)", st.ID, len(st.StepResults))
	return st, nil
}

// fail records the terminal error on the state and publishes the failure.
func (e *Engine) fail(st *ExecutionState, err error) (*ExecutionState, error) {
	st.Fail(err)
	e.events.Publish(Event{Type: EventFailed, TaskID: st.ID, Message: err.Error()})
	e.logger.Error("Request %s failed: %v", st.ID, err)
	return st, err
}
