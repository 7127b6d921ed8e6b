package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timez-app/timez/go/internal/session/events"
)

// Message is a session event ready to leave the process
type Message struct {
	ID         uuid.UUID
	SessionID  string
	EventType  string
	Payload    json.RawMessage
	OccurredAt time.Time
}

// EventPublisher delivers messages to an external system
type EventPublisher interface {
	Publish(ctx context.Context, msg Message) error
}

// FromEvent converts a timer event into a Message
func FromEvent(e events.Event) (Message, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", e.Type, err)
	}
	return Message{
		ID:         e.ID,
		SessionID:  e.SessionID,
		EventType:  string(e.Type),
		Payload:    payload,
		OccurredAt: e.OccurredAt,
	}, nil
}

// Envelope renders the message in the same shape websocket clients receive
func (m Message) Envelope() ([]byte, error) {
	env := map[string]interface{}{
		"id":         m.ID.String(),
		"session_id": m.SessionID,
		"type":       m.EventType,
		"timestamp":  m.OccurredAt.UTC(),
		"data":       m.Payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// ParseEnvelope is the inverse of Envelope
func ParseEnvelope(data []byte) (Message, error) {
	var env struct {
		ID        string          `json:"id"`
		SessionID string          `json:"session_id"`
		Type      string          `json:"type"`
		Timestamp time.Time       `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("unmarshal event envelope: %w", err)
	}

	id, err := uuid.Parse(env.ID)
	if err != nil {
		return Message{}, fmt.Errorf("parse event ID: %w", err)
	}
	if !events.EventType(env.Type).Known() {
		return Message{}, fmt.Errorf("unknown event type: %s", env.Type)
	}

	return Message{
		ID:         id,
		SessionID:  env.SessionID,
		EventType:  env.Type,
		Payload:    env.Data,
		OccurredAt: env.Timestamp,
	}, nil
}
