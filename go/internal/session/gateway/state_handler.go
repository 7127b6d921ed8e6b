package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/timez-app/timez/go/internal/session"
)

const sessionRoutePrefix = "/api/session/"

// StateHandler handles HTTP requests for session state and commands
type StateHandler struct {
	session Session
}

// NewStateHandler creates a new state handler
func NewStateHandler(s Session) *StateHandler {
	return &StateHandler{
		session: s,
	}
}

// HandleGetState handles GET /api/session/state
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// HandleGetStats handles GET /api/session/stats
func (h *StateHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Stats())
}

// HandleGetReport handles GET /api/session/report
func (h *StateHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, session.Report(h.session.Snapshot())); err != nil {
		log.Error().Err(err).Msg("failed to write session report")
	}
}

// HandleAction handles POST /api/session/{action}
func (h *StateHandler) HandleAction(w http.ResponseWriter, r *http.Request, action string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cmd, err := decodeCommand(r.Body, action)
	if err != nil {
		writeError(w, action, err)
		return
	}

	state, err := applyCommand(h.session, cmd)
	if err != nil {
		writeError(w, action, err)
		return
	}

	log.Debug().
		Str("action", action).
		Str("phase", string(state.Phase)).
		Msg("session action applied")
	writeJSON(w, http.StatusOK, state)
}

// RegisterStateRoutes registers session HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc(sessionRoutePrefix, func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, sessionRoutePrefix)

		switch {
		case name == "state":
			h.HandleGetState(w, r)
		case name == "stats":
			h.HandleGetStats(w, r)
		case name == "report":
			h.HandleGetReport(w, r)
		case IsKnownAction(name):
			h.HandleAction(w, r, name)
		default:
			http.NotFound(w, r)
		}
	})
}

// decodeCommand reads the optional JSON body. Configure and extend carry
// their arguments in the body; the other actions ignore it.
func decodeCommand(body io.Reader, action string) (Command, error) {
	var cmd Command
	if err := json.NewDecoder(body).Decode(&cmd); err != nil {
		if !errors.Is(err, io.EOF) {
			return Command{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		if action == ActionConfigure || action == ActionExtend {
			return Command{}, fmt.Errorf("%w: %s requires a JSON body", ErrBadRequest, action)
		}
	}
	cmd.Action = action
	return cmd, nil
}

// statusFor maps session errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidConfiguration), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrInvalidOperation):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownAction):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, action string, err error) {
	status := statusFor(err)
	log.Warn().
		Err(err).
		Str("action", action).
		Int("status", status).
		Msg("session action rejected")
	writeJSON(w, status, ErrorPayload{
		Action:  action,
		Code:    errorCode(err),
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
