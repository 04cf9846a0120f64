package orchestrator

import (
	"sync"
	"time"
)

// EventType identifies a progress milestone.
type EventType string

const (
	// EventPlanCreated fires once the planner commits to a plan (or a direct answer).
	EventPlanCreated EventType = "plan_created"
	// EventStepStarted fires before a step's reasoning loop begins.
	EventStepStarted EventType = "step_started"
	// EventToolInvoked fires after each tool execution inside a step.
	EventToolInvoked EventType = "tool_invoked"
	// EventStepCompleted fires after a step's result is recorded, success or not.
	EventStepCompleted EventType = "step_completed"
	// EventCompleted fires when the request reaches a successful terminal state.
	EventCompleted EventType = "completed"
	// EventFailed fires when the request reaches the error terminal state.
	EventFailed EventType = "failed"
)

// Event is one progress notification. Events for step N are published before
// any event for step N+1; steps run sequentially so this follows from the
// single-threaded control flow.
type Event struct {
	Type      EventType `json:"type"`
	TaskID    string    `json:"task_id"`
	Step      int       `json:"step,omitempty"` // 1-based ordinal, 0 when not step-scoped
	Mode      string    `json:"mode,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const subscriberBuffer = 64

// Broadcaster fans progress events out to subscribers. Publishing never
// blocks: a subscriber that falls more than a buffer behind loses events
// rather than stalling orchestration.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe registers a new listener. The returned cancel function must be
// called to release the subscription; the channel is closed on cancel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber, stamping the time if unset.
// Slow subscribers are skipped.
func (b *Broadcaster) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
