// Package metrics provides internal metrics tracking for LLM operations.
package metrics

import (
	"sync"
	"time"
)

// InternalRecorder aggregates per-task usage in memory. It backs the web UI's
// usage view without requiring a Prometheus server.
type InternalRecorder struct {
	tasks map[string]*TaskMetrics
	mu    sync.RWMutex
}

// TaskMetrics represents aggregated usage for one task.
//
//nolint:govet
type TaskMetrics struct {
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	RequestCount     int64     `json:"request_count"`
	TaskID           string    `json:"task_id"`
	LastUpdated      time.Time `json:"last_updated"`
}

var (
	internalInstance *InternalRecorder //nolint:gochecknoglobals
	internalOnce     sync.Once         //nolint:gochecknoglobals
)

// NewInternalRecorder returns the singleton internal metrics recorder.
func NewInternalRecorder() *InternalRecorder {
	internalOnce.Do(func() {
		internalInstance = &InternalRecorder{
			tasks: make(map[string]*TaskMetrics),
		}
	})
	return internalInstance
}

// ObserveRequest records usage for a completed LLM request.
func (r *InternalRecorder) ObserveRequest(taskID string, promptTokens, completionTokens int, success bool) {
	if !success || taskID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	task, exists := r.tasks[taskID]
	if !exists {
		task = &TaskMetrics{TaskID: taskID}
		r.tasks[taskID] = task
	}

	task.PromptTokens += int64(promptTokens)
	task.CompletionTokens += int64(completionTokens)
	task.TotalTokens = task.PromptTokens + task.CompletionTokens
	task.RequestCount++
	task.LastUpdated = time.Now()
}

// GetTaskMetrics returns the aggregated usage for a specific task.
func (r *InternalRecorder) GetTaskMetrics(taskID string) *TaskMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if task, exists := r.tasks[taskID]; exists {
		cp := *task
		return &cp
	}
	return nil
}

// GetAllTaskMetrics returns usage for all tasks.
func (r *InternalRecorder) GetAllTaskMetrics() map[string]*TaskMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*TaskMetrics, len(r.tasks))
	for taskID, task := range r.tasks {
		cp := *task
		result[taskID] = &cp
	}
	return result
}

// Reset clears all usage data.
func (r *InternalRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = make(map[string]*TaskMetrics)
}
