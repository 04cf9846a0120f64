package orchestrator

import (
	"fmt"
	"strings"
)

// noOutputSentinel is the report for a plan whose execution produced nothing.
const noOutputSentinel = "Task completed with no output."

// Finalize produces the user-facing report from the accumulated step results
// and moves the state to completed.
func Finalize(st *ExecutionState) {
	if len(st.StepResults) == 0 {
		st.Complete(noOutputSentinel)
		return
	}

	var report strings.Builder
	report.WriteString("## Execution Complete\n\n")
	report.WriteString(fmt.Sprintf("Completed %d of %d steps:\n\n", len(st.StepResults), len(st.Plan)))
	report.WriteString(strings.Join(st.StepResults, "\n\n"))

	st.Complete(report.String())
}
