package gateway

import (
	"errors"
	"fmt"

	"github.com/timez-app/timez/go/internal/models"
	"github.com/timez-app/timez/go/internal/session"
	"github.com/timez-app/timez/go/internal/session/events"
)

// Command actions accepted over REST, websocket and Connect
const (
	ActionConfigure = "configure"
	ActionStart     = "start"
	ActionStop      = "stop"
	ActionDone      = "done"
	ActionSkip      = "skip"
	ActionExtend    = "extend"
	ActionDecline   = "decline"
	ActionReset     = "reset"
)

var knownActions = map[string]bool{
	ActionConfigure: true,
	ActionStart:     true,
	ActionStop:      true,
	ActionDone:      true,
	ActionSkip:      true,
	ActionExtend:    true,
	ActionDecline:   true,
	ActionReset:     true,
}

var (
	// ErrUnknownAction is returned for an action outside the known set
	ErrUnknownAction = errors.New("unknown action")
	// ErrBadRequest is returned for a malformed command body
	ErrBadRequest = errors.New("bad request")
)

// Command is a client request to change the session
type Command struct {
	Action             string `json:"action"`
	Seconds            int    `json:"seconds,omitempty"`
	TotalQuestions     int    `json:"total_questions,omitempty"`
	SecondsPerQuestion int    `json:"seconds_per_question,omitempty"`
}

// Session is the subset of *session.Timer the gateway drives
type Session interface {
	Configure(totalQuestions, secondsPerQuestion int) error
	Start()
	Stop()
	MarkDone() error
	MarkSkipped() error
	GrantExtension(seconds int) error
	DeclineExtension()
	Reset()
	Snapshot() models.SessionState
	Stats() models.SessionStats
	Subscribe(buffer int) (<-chan events.Event, func())
}

// IsKnownAction reports whether action names a session command
func IsKnownAction(action string) bool {
	return knownActions[action]
}

// applyCommand runs cmd against s and returns the resulting snapshot
func applyCommand(s Session, cmd Command) (models.SessionState, error) {
	var err error

	switch cmd.Action {
	case ActionConfigure:
		err = s.Configure(cmd.TotalQuestions, cmd.SecondsPerQuestion)
	case ActionStart:
		s.Start()
	case ActionStop:
		s.Stop()
	case ActionDone:
		err = s.MarkDone()
	case ActionSkip:
		err = s.MarkSkipped()
	case ActionExtend:
		err = s.GrantExtension(cmd.Seconds)
	case ActionDecline:
		s.DeclineExtension()
	case ActionReset:
		s.Reset()
	default:
		return models.SessionState{}, fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}

	if err != nil {
		return models.SessionState{}, err
	}
	return s.Snapshot(), nil
}

// errorCode names the class of err for client payloads
func errorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, session.ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, ErrUnknownAction):
		return "unknown_action"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	default:
		return "internal"
	}
}
