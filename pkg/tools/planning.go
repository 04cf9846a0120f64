package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// SubmitPlanTool is the terminal tool of the planning phase. The model is
// forced to call it exactly once; its arguments carry the full planning
// decision, which the caller parses from the tool call rather than from this
// tool's output.
type SubmitPlanTool struct{}

// NewSubmitPlanTool creates a new submit_plan tool.
func NewSubmitPlanTool() *SubmitPlanTool {
	return &SubmitPlanTool{}
}

// Name returns the tool name.
func (t *SubmitPlanTool) Name() string {
	return ToolSubmitPlan
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *SubmitPlanTool) PromptDocumentation() string {
	return `- **submit_plan** - Submit your final planning decision
  - Either set requires_planning=false with a direct_response,
    or requires_planning=true with a non-empty plan
  - Each plan step needs step_number, description, mode (ask|edit|agent), and instruction`
}

// Definition returns the tool definition for the LLM.
func (t *SubmitPlanTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolSubmitPlan,
		Description: "Submit the final planning decision: either a direct response for simple requests, or an ordered multi-step plan.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"thinking": {
					Type:        "string",
					Description: "Brief reasoning about the request and the chosen approach",
				},
				"requires_planning": {
					Type:        "boolean",
					Description: "False for simple requests answered directly, true when a multi-step plan is needed",
				},
				"direct_response": {
					Type:        "string",
					Description: "Complete answer to the request. Required when requires_planning is false.",
				},
				"plan": {
					Type:        "array",
					Description: "Ordered execution steps. Required and non-empty when requires_planning is true.",
					Items: &Property{
						Type: "object",
						Properties: map[string]*Property{
							"step_number": {
								Type:        "integer",
								Description: "1-based position in the plan",
							},
							"description": {
								Type:        "string",
								Description: "Human-readable summary of the step",
							},
							"mode": {
								Type:        "string",
								Description: "Execution mode for the step",
								Enum:        []string{"ask", "edit", "agent"},
							},
							"instruction": {
								Type:        "string",
								Description: "Self-contained instruction for the step executor",
							},
						},
						Required: []string{"step_number", "description", "mode", "instruction"},
					},
				},
			},
			Required: []string{"thinking", "requires_planning"},
		},
	}
}

// Exec echoes the submitted decision. The planner reads the decision from the
// tool call parameters; this result only closes out the tool round.
func (t *SubmitPlanTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	content, err := json.Marshal(map[string]any{
		"success":  true,
		"received": args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &ExecResult{Content: string(content)}, nil
}
