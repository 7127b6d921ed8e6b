package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/timez-app/timez/go/internal/session"
	"github.com/timez-app/timez/go/internal/session/events"
)

// Service exposes a session over WebSocket, REST and Connect, relaying
// every session event to connected clients
type Service struct {
	session           Session
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	connectHandler    *ConnectHandler

	mu          sync.Mutex
	unsubscribe func()
	done        chan struct{}
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	// SubscriberBuffer is the event backlog kept for the relay
	SubscriberBuffer int
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		SubscriberBuffer: 256,
	}
}

// NewService creates a new gateway service
func NewService(s Session, config Config) *Service {
	svc := &Service{
		session:        s,
		stateHandler:   NewStateHandler(s),
		connectHandler: NewConnectHandler(s),
	}
	svc.connectionManager = NewConnectionManager(config.ConnectionConfig, svc)
	svc.wsHandler = NewWebSocketHandler(svc.connectionManager)

	if config.SubscriberBuffer <= 0 {
		config.SubscriberBuffer = session.DefaultSubscriberBuffer
	}
	ch, unsubscribe := s.Subscribe(config.SubscriberBuffer)
	svc.unsubscribe = unsubscribe
	svc.done = make(chan struct{})
	go svc.relay(ch)

	return svc
}

// Start begins broadcasting to clients and returns once ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting session gateway service")

	go s.connectionManager.Start(ctx)

	<-ctx.Done()

	log.Info().Msg("session gateway service shutting down")
	return s.Stop()
}

// Stop detaches the service from the session. Safe to call more than once.
func (s *Service) Stop() error {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		<-s.done
	}
	log.Info().Msg("session gateway service stopped")
	return nil
}

// relay forwards session events to every connection until the subscription
// is closed
func (s *Service) relay(ch <-chan events.Event) {
	defer close(s.done)

	for e := range ch {
		event, err := NewSessionEvent(e)
		if err != nil {
			log.Error().Err(err).Str("event_type", string(e.Type)).Msg("failed to convert session event")
			continue
		}
		s.connectionManager.Broadcast(event)
	}
}

// StateSync implements ClientHandler
func (s *Service) StateSync() (*SessionEvent, error) {
	state := s.session.Snapshot()
	return newGatewayEvent(EventTypeStateSync, state.SessionID, StateSyncPayload{
		State: state,
		Stats: s.session.Stats(),
	})
}

// HandleCommand implements ClientHandler
func (s *Service) HandleCommand(cmd Command) error {
	_, err := applyCommand(s.session, cmd)
	return err
}

// RegisterRoutes registers the gateway HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	mux.Handle(NewSessionServiceHandler(s.connectHandler))
	log.Info().Msg("session gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
