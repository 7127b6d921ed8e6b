package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timez-app/timez/go/internal/models"
	"github.com/timez-app/timez/go/internal/session/events"
)

// SessionEvent is the wire envelope sent to websocket clients
type SessionEvent struct {
	ID        string           `json:"id"`         // Event UUID
	SessionID string           `json:"session_id"` // Session UUID, empty while idle
	Type      events.EventType `json:"type"`       // Event type
	Timestamp time.Time        `json:"timestamp"`  // Event creation time
	Data      json.RawMessage  `json:"data"`       // Event-specific payload

	// State is the snapshot right after the change, so a client that
	// missed earlier events is back in sync on the next one.
	State *models.SessionState `json:"state,omitempty"`
}

// Gateway-only event types
const (
	EventTypeStateSync events.EventType = "StateSync"
	EventTypeError     events.EventType = "Error"
)

// StateSyncPayload is sent to a client right after it connects
type StateSyncPayload struct {
	State models.SessionState `json:"state"`
	Stats models.SessionStats `json:"stats"`
}

// ErrorPayload reports a rejected client command to the client that sent it
type ErrorPayload struct {
	Action  string `json:"action"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewSessionEvent wraps a timer event in the wire envelope
func NewSessionEvent(e events.Event) (*SessionEvent, error) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Type, err)
	}
	state := e.State
	return &SessionEvent{
		ID:        e.ID.String(),
		SessionID: e.SessionID,
		Type:      e.Type,
		Timestamp: e.OccurredAt,
		Data:      data,
		State:     &state,
	}, nil
}

func newGatewayEvent(eventType events.EventType, sessionID string, payload interface{}) (*SessionEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &SessionEvent{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}, nil
}

func (e *SessionEvent) decode(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}
