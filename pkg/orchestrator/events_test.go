package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterDeliversInOrder(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(Event{Type: EventStepStarted, Step: 1})
	b.Publish(Event{Type: EventStepCompleted, Step: 1})
	b.Publish(Event{Type: EventStepStarted, Step: 2})

	ev := <-ch
	assert.Equal(t, EventStepStarted, ev.Type)
	assert.Equal(t, 1, ev.Step)
	assert.False(t, ev.Timestamp.IsZero())

	ev = <-ch
	assert.Equal(t, EventStepCompleted, ev.Type)

	ev = <-ch
	assert.Equal(t, 2, ev.Step)
}

func TestBroadcasterNeverBlocksOnSlowSubscriber(t *testing.T) {
	b := NewBroadcaster()
	_, cancel := b.Subscribe() // never drained
	defer cancel()

	// Publishing well past the buffer must not block.
	for i := 0; i < subscriberBuffer*2; i++ {
		b.Publish(Event{Type: EventToolInvoked, Step: i})
	}
}

func TestBroadcasterCancelClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.SubscriberCount())

	// Publishing with no subscribers is a no-op.
	b.Publish(Event{Type: EventCompleted})
}
