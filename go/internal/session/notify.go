package session

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/timez-app/timez/go/internal/session/events"
)

// DefaultSubscriberBuffer is used when Subscribe is given a non-positive size.
const DefaultSubscriberBuffer = 64

// Subscribe registers an observer of session changes. Events are delivered
// in order on the returned channel. A subscriber that falls behind by more
// than buffer events loses the overflow rather than blocking the timer.
// The returned func unsubscribes and closes the channel; it is idempotent.
func (t *Timer) Subscribe(buffer int) (<-chan events.Event, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan events.Event, buffer)

	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.subscribers[id] = ch
	t.mu.Unlock()

	unsubscribe := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if sub, ok := t.subscribers[id]; ok {
			delete(t.subscribers, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// emit fans an event out to every subscriber without blocking.
// Caller must hold t.mu.
func (t *Timer) emit(eventType events.EventType, payload interface{}) {
	if len(t.subscribers) == 0 {
		return
	}

	event := events.Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: t.clock.Now(),
		State:      t.snapshotLocked(),
		Payload:    payload,
	}
	event.SessionID = event.State.SessionID

	for id, ch := range t.subscribers {
		select {
		case ch <- event:
		default:
			log.Warn().
				Int("subscriber", id).
				Str("event_type", string(eventType)).
				Msg("subscriber buffer full, dropping event")
		}
	}
}
