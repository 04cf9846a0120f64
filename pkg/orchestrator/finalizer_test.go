package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalizeNoOutput(t *testing.T) {
	st := NewExecutionState("req", "anthropic")
	st.BeginExecution(Plan{{Ordinal: 1, Mode: ModeAsk, Instruction: "x"}})

	Finalize(st)

	assert.Equal(t, StatusCompleted, st.Status)
	assert.Equal(t, "Task completed with no output.", st.FinalResponse)
}

func TestFinalizeAggregatesResults(t *testing.T) {
	st := NewExecutionState("req", "anthropic")
	st.BeginExecution(Plan{
		{Ordinal: 1, Mode: ModeAsk, Instruction: "x"},
		{Ordinal: 2, Mode: ModeEdit, Instruction: "y"},
	})
	st.StepResults = []string{
		"Step 1 (ask): found the bug",
		"Step 2 (edit): fixed it",
	}
	st.CurrentStepIndex = 2

	Finalize(st)

	assert.Equal(t, StatusCompleted, st.Status)
	assert.Contains(t, st.FinalResponse, "## Execution Complete")
	assert.Contains(t, st.FinalResponse, "Completed 2 of 2 steps:")
	assert.Contains(t, st.FinalResponse, "Step 1 (ask): found the bug")
	assert.Contains(t, st.FinalResponse, "Step 2 (edit): fixed it")
	// Order is preserved.
	assert.Less(t,
		strings.Index(st.FinalResponse, "Step 1"),
		strings.Index(st.FinalResponse, "Step 2"))
}
