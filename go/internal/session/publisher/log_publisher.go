package publisher

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/timez-app/timez/go/internal/session/events"
)

// LogPublisher writes events to the log instead of a broker. Used when NATS
// is disabled.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, msg Message) error {
	level := zerolog.InfoLevel
	if msg.EventType == string(events.EventTypeTimerTick) {
		level = zerolog.DebugLevel
	}

	log.WithLevel(level).
		Str("event_id", msg.ID.String()).
		Str("event_type", msg.EventType).
		Str("session_id", msg.SessionID).
		RawJSON("payload", msg.Payload).
		Msg("session event")
	return nil
}
