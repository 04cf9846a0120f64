// Package metrics provides metrics recording for LLM client operations.
package metrics

import (
	"time"
)

// TaskProvider provides access to the current task for metrics labeling.
type TaskProvider interface {
	// GetTaskID returns the ID of the task being executed.
	GetTaskID() string
	// GetMode returns the current execution mode (planner, ask, edit, agent).
	GetMode() string
}

// Recorder defines the interface for recording LLM operation metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed LLM request.
	ObserveRequest(
		model, provider, taskID, mode string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)

	// IncThrottle increments the throttle counter for rate limiting events.
	IncThrottle(model, reason string)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(
	_, _, _, _ string,
	_, _ int,
	_ bool,
	_ string,
	_ time.Duration,
) {
}

// IncThrottle does nothing in the no-op recorder.
func (n *NoopRecorder) IncThrottle(_, _ string) {
}

// staticTask is a TaskProvider with fixed values.
type staticTask struct {
	taskID string
	mode   string
}

func (s staticTask) GetTaskID() string { return s.taskID }
func (s staticTask) GetMode() string   { return s.mode }

// StaticTask returns a TaskProvider that always reports the given task and mode.
func StaticTask(taskID, mode string) TaskProvider {
	return staticTask{taskID: taskID, mode: mode}
}
