package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/timez-app/timez/go/internal/models"
)

// EventType names a session change.
type EventType string

const (
	EventTypeSessionConfigured        EventType = "SessionConfigured"
	EventTypeSessionStarted           EventType = "SessionStarted"
	EventTypeSessionStopped           EventType = "SessionStopped"
	EventTypeTimerTick                EventType = "TimerTick"
	EventTypeExtensionPrompted        EventType = "ExtensionPrompted"
	EventTypeExtensionPromptDismissed EventType = "ExtensionPromptDismissed"
	EventTypeExtensionGranted         EventType = "ExtensionGranted"
	EventTypeExtensionDeclined        EventType = "ExtensionDeclined"
	EventTypeQuestionFinalized        EventType = "QuestionFinalized"
	EventTypeQuestionStarted          EventType = "QuestionStarted"
	EventTypeSessionCompleted         EventType = "SessionCompleted"
	EventTypeSessionReset             EventType = "SessionReset"
)

// Known reports whether t is one of the session event types above.
func (t EventType) Known() bool {
	switch t {
	case EventTypeSessionConfigured, EventTypeSessionStarted, EventTypeSessionStopped,
		EventTypeTimerTick, EventTypeExtensionPrompted, EventTypeExtensionPromptDismissed,
		EventTypeExtensionGranted, EventTypeExtensionDeclined, EventTypeQuestionFinalized,
		EventTypeQuestionStarted, EventTypeSessionCompleted, EventTypeSessionReset:
		return true
	}
	return false
}

// Event is emitted by the session timer after every state change.
// State is the snapshot taken right after the change.
type Event struct {
	ID         uuid.UUID
	Type       EventType
	SessionID  string
	OccurredAt time.Time
	State      models.SessionState
	Payload    interface{}
}

// Event payload types shared between the timer, the gateway and the publisher

// SessionConfiguredPayload is the payload for a SessionConfigured event
type SessionConfiguredPayload struct {
	TotalQuestions     int `json:"total_questions"`
	SecondsPerQuestion int `json:"seconds_per_question"`
}

// SessionStartedPayload is the payload for a SessionStarted event
type SessionStartedPayload struct {
	QuestionNumber   int       `json:"question_number"`
	RemainingSeconds int       `json:"remaining_seconds"`
	StartedAt        time.Time `json:"started_at"`
}

// SessionStoppedPayload is the payload for a SessionStopped event
type SessionStoppedPayload struct {
	QuestionNumber   int       `json:"question_number"`
	RemainingSeconds int       `json:"remaining_seconds"`
	StoppedAt        time.Time `json:"stopped_at"`
}

// TimerTickPayload is the payload for a TimerTick event
type TimerTickPayload struct {
	QuestionNumber   int       `json:"question_number"`
	RemainingSeconds int       `json:"remaining_seconds"`
	TickedAt         time.Time `json:"ticked_at"`
}

// ExtensionPromptedPayload is the payload for an ExtensionPrompted event
type ExtensionPromptedPayload struct {
	QuestionNumber   int       `json:"question_number"`
	RemainingSeconds int       `json:"remaining_seconds"`
	DismissAt        time.Time `json:"dismiss_at"`
}

// ExtensionPromptDismissedPayload is the payload for an ExtensionPromptDismissed event
type ExtensionPromptDismissedPayload struct {
	QuestionNumber int `json:"question_number"`
}

// ExtensionGrantedPayload is the payload for an ExtensionGranted event
type ExtensionGrantedPayload struct {
	QuestionNumber    int `json:"question_number"`
	Seconds           int `json:"seconds"`
	RemainingSeconds  int `json:"remaining_seconds"`
	ExtensionsGranted int `json:"extensions_granted"`
}

// ExtensionDeclinedPayload is the payload for an ExtensionDeclined event
type ExtensionDeclinedPayload struct {
	QuestionNumber int `json:"question_number"`
}

// QuestionFinalizedPayload is the payload for a QuestionFinalized event
type QuestionFinalizedPayload struct {
	Record models.QuestionRecord `json:"record"`
}

// QuestionStartedPayload is the payload for a QuestionStarted event
type QuestionStartedPayload struct {
	QuestionNumber   int `json:"question_number"`
	RemainingSeconds int `json:"remaining_seconds"`
}

// SessionCompletedPayload is the payload for a SessionCompleted event
type SessionCompletedPayload struct {
	CompletedAt time.Time           `json:"completed_at"`
	Stats       models.SessionStats `json:"stats"`
}

// SessionResetPayload is the payload for a SessionReset event
type SessionResetPayload struct {
	PreviousSessionID string `json:"previous_session_id,omitempty"`
}
