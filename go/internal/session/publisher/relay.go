package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/timez-app/timez/go/internal/session/events"
)

// Source is anything that fans out session events
type Source interface {
	Subscribe(buffer int) (<-chan events.Event, func())
}

type Config struct {
	Buffer     int
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		Buffer:     256,
		MaxRetries: 3,
		RetryDelay: 200 * time.Millisecond,
	}
}

// Relay forwards every event of a session to a publisher, in order
type Relay struct {
	source    Source
	publisher EventPublisher
	config    Config

	mu          sync.Mutex
	running     bool
	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewRelay(source Source, publisher EventPublisher, cfg Config) *Relay {
	return &Relay{
		source:    source,
		publisher: publisher,
		config:    cfg,
	}
}

// Start subscribes to the source. Events emitted after Start returns are
// delivered.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("event relay already running")
	}
	r.running = true

	ctx, cancel := context.WithCancel(ctx)
	ch, unsubscribe := r.source.Subscribe(r.config.Buffer)
	r.cancel = cancel
	r.unsubscribe = unsubscribe

	r.wg.Add(1)
	go r.run(ctx, ch)

	log.Info().
		Int("buffer", r.config.Buffer).
		Int("max_retries", r.config.MaxRetries).
		Msg("event relay started")
	return nil
}

// Stop unsubscribes and waits for in-flight publishing to finish
func (r *Relay) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return fmt.Errorf("event relay not running")
	}
	r.running = false
	unsubscribe, cancel := r.unsubscribe, r.cancel
	r.mu.Unlock()

	unsubscribe()
	cancel()
	r.wg.Wait()

	log.Info().Msg("event relay stopped")
	return nil
}

func (r *Relay) run(ctx context.Context, ch <-chan events.Event) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			r.forward(ctx, e)
		}
	}
}

func (r *Relay) forward(ctx context.Context, e events.Event) {
	msg, err := FromEvent(e)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(e.Type)).Msg("failed to convert event")
		return
	}

	if err := r.publishWithRetry(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("event_id", msg.ID.String()).
			Str("event_type", msg.EventType).
			Msg("failed to publish event")
	}
}

func (r *Relay) publishWithRetry(ctx context.Context, msg Message) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := r.publisher.Publish(ctx, msg); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("event_id", msg.ID.String()).
				Int("attempt", attempt+1).
				Msg("failed to publish event, retrying")
			continue
		}

		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}
