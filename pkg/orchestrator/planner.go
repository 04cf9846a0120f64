package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"opendev/pkg/agent/llm"
	"opendev/pkg/agent/middleware/metrics"
	"opendev/pkg/config"
	"opendev/pkg/contextmgr"
	"opendev/pkg/logx"
	"opendev/pkg/runloop"
	"opendev/pkg/tools"
)

// ClientSource hands out middleware-wrapped LLM clients by provider name.
// *agent.Registry is the production implementation.
type ClientSource interface {
	Client(provider string, task metrics.TaskProvider) (llm.LLMClient, error)
}

// plannerDecision is the submit_plan argument shape.
type plannerDecision struct {
	Thinking         string     `json:"thinking"`
	RequiresPlanning bool       `json:"requires_planning"`
	DirectResponse   string     `json:"direct_response"`
	Plan             []PlanStep `json:"plan"`
}

// Planner asks the model for a structured planning decision: either a direct
// response or an ordered plan. The decision is carried in a forced submit_plan
// tool call; any malformed or missing decision is a fatal schema violation
// with no retry.
type Planner struct {
	clients ClientSource
	cfg     *config.Config
	logger  *logx.Logger
}

// NewPlanner creates a planner backed by the given client source.
func NewPlanner(clients ClientSource, cfg *config.Config) *Planner {
	return &Planner{
		clients: clients,
		cfg:     cfg,
		logger:  logx.NewLogger("planner"),
	}
}

// Decide runs the planning conversation and applies the outcome to the state:
// completed with a direct response, or executing with a validated plan.
// Every returned error is fatal to the request.
func (p *Planner) Decide(ctx context.Context, st *ExecutionState) error {
	client, err := p.clients.Client(st.Provider, metrics.StaticTask(st.ID, "planner"))
	if err != nil {
		return WrapError(KindProviderError, err, "creating planner client for %s", st.Provider)
	}

	cm := contextmgr.NewContextManagerWithLimits(client.GetModelName(), 0, 0)
	cm.AddMessage("system", plannerSystemPrompt)

	toolProvider := tools.NewProviderForScope(tools.AgentContext{
		WorkDir: p.cfg.WorkspaceDir,
	}, tools.ScopePlanner)

	var decision *plannerDecision
	loop := runloop.New(client, p.logger)
	_, err = loop.Run(ctx, &runloop.Config{
		ContextManager: cm,
		ToolProvider:   toolProvider,
		MaxIterations:  p.cfg.Execution.MaxIterations,
		MaxTokens:      p.cfg.Execution.MaxTokens,
		ToolChoice:     "any",
		InitialPrompt:  st.Request,
		CheckTerminal: func(calls []llm.ToolCall, _ []string) string {
			for i := range calls {
				if calls[i].Name == tools.ToolSubmitPlan {
					decision = decodeDecision(calls[i].Parameters)
					return "submitted"
				}
			}
			return ""
		},
	})

	switch {
	case err == nil:
	case ctx.Err() != nil:
		return WrapError(KindCancellation, ctx.Err(), "planning cancelled")
	case errors.Is(err, runloop.ErrIterationLimit):
		return WrapError(KindIterationLimit, err, "planner never submitted a decision")
	default:
		return WrapError(KindProviderError, err, "planning failed")
	}

	if decision == nil {
		// The loop ended with plain text instead of the terminal tool call.
		return NewError(KindSchemaViolation, "planner returned no structured decision")
	}

	return p.apply(st, decision)
}

// decodeDecision converts raw tool-call parameters into a decision. A nil
// return only happens on marshal failure of a map we just received, so the
// caller treats it like any other schema violation.
func decodeDecision(params map[string]any) *plannerDecision {
	raw, err := json.Marshal(params)
	if err != nil {
		return &plannerDecision{}
	}
	var d plannerDecision
	if err := json.Unmarshal(raw, &d); err != nil {
		return &plannerDecision{}
	}
	return &d
}

// apply validates the decision and transitions the state.
func (p *Planner) apply(st *ExecutionState, d *plannerDecision) error {
	if !d.RequiresPlanning {
		if len(d.Plan) != 0 {
			return NewError(KindSchemaViolation, "requires_planning is false but a %d-step plan was supplied", len(d.Plan))
		}
		if d.DirectResponse == "" {
			return NewError(KindSchemaViolation, "requires_planning is false but direct_response is empty")
		}
		p.logger.Info("Planner answered directly (%d chars)", len(d.DirectResponse))
		st.Complete(d.DirectResponse)
		return nil
	}

	plan := Plan(d.Plan)
	if err := plan.Validate(); err != nil {
		return WrapError(KindSchemaViolation, err, "invalid plan")
	}

	p.logger.Info("Planner produced %d steps: %s", len(plan), summarizePlan(plan))
	st.BeginExecution(plan)
	return nil
}

func summarizePlan(plan Plan) string {
	summary := ""
	for i := range plan {
		if i > 0 {
			summary += "; "
		}
		summary += fmt.Sprintf("%d[%s] %s", plan[i].Ordinal, plan[i].Mode, plan[i].Description)
	}
	return summary
}
