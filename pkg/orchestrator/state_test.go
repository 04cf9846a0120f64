package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"ask", "edit", "agent"} {
		mode, err := ParseMode(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(mode))
	}

	_, err := ParseMode("yolo")
	assert.Error(t, err)
}

func TestModeScope(t *testing.T) {
	assert.Equal(t, "ask", string(ModeAsk.Scope()))
	assert.Equal(t, "edit", string(ModeEdit.Scope()))
	assert.Equal(t, "agent", string(ModeAgent.Scope()))
}

func TestPlanValidate(t *testing.T) {
	valid := Plan{
		{Ordinal: 1, Description: "look around", Mode: ModeAsk, Instruction: "inspect"},
		{Ordinal: 2, Description: "fix it", Mode: ModeEdit, Instruction: "edit the file"},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		plan Plan
	}{
		{"empty", Plan{}},
		{"starts at zero", Plan{{Ordinal: 0, Mode: ModeAsk, Instruction: "x"}}},
		{"gap in ordinals", Plan{
			{Ordinal: 1, Mode: ModeAsk, Instruction: "x"},
			{Ordinal: 3, Mode: ModeAsk, Instruction: "y"},
		}},
		{"unknown mode", Plan{{Ordinal: 1, Mode: "build", Instruction: "x"}}},
		{"empty instruction", Plan{{Ordinal: 1, Mode: ModeAgent, Instruction: ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.plan.Validate())
		})
	}
}

func TestExecutionStateTransitions(t *testing.T) {
	st := NewExecutionState("do things", "anthropic")
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, StatusPlanning, st.Status)
	assert.Nil(t, st.CompletedAt)

	st.BeginExecution(Plan{{Ordinal: 1, Mode: ModeAsk, Instruction: "x"}})
	assert.Equal(t, StatusExecuting, st.Status)
	assert.Equal(t, 0, st.CurrentStepIndex)
	assert.Empty(t, st.StepResults)

	st.Complete("done")
	assert.Equal(t, StatusCompleted, st.Status)
	assert.Equal(t, "done", st.FinalResponse)
	require.NotNil(t, st.CompletedAt)
}

func TestExecutionStateFail(t *testing.T) {
	st := NewExecutionState("do things", "anthropic")
	st.Fail(NewError(KindSchemaViolation, "bad shape"))

	assert.Equal(t, StatusError, st.Status)
	assert.Contains(t, st.Error, "schema_violation")
	require.NotNil(t, st.CompletedAt)
}
