package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
	"github.com/timez-app/timez/go/internal/models"
	"github.com/timez-app/timez/go/internal/session"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// SessionServiceName is the fully-qualified name of the session RPC service
const SessionServiceName = "timez.session.v1.SessionService"

// Procedure paths for SessionService
const (
	SessionServiceGetStateProcedure = "/" + SessionServiceName + "/GetState"
	SessionServiceApplyProcedure    = "/" + SessionServiceName + "/Apply"
)

// ConnectHandler serves SessionService over Connect, gRPC and gRPC-Web
type ConnectHandler struct {
	session Session
}

// NewConnectHandler creates a new Connect handler
func NewConnectHandler(s Session) *ConnectHandler {
	return &ConnectHandler{session: s}
}

// GetState returns the current snapshot
func (h *ConnectHandler) GetState(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	msg, err := stateToStruct(h.session.Snapshot())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// Apply runs a command given as {action, seconds, total_questions,
// seconds_per_question} and returns the resulting snapshot
func (h *ConnectHandler) Apply(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	cmd, err := structToCommand(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	state, err := applyCommand(h.session, cmd)
	if err != nil {
		log.Warn().Err(err).Str("action", cmd.Action).Msg("rpc session action rejected")
		return nil, connect.NewError(connectCode(err), err)
	}

	msg, err := stateToStruct(state)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// NewSessionServiceHandler builds an HTTP handler for SessionService and
// returns the path to mount it on
func NewSessionServiceHandler(h *ConnectHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	getState := connect.NewUnaryHandler(
		SessionServiceGetStateProcedure,
		h.GetState,
		append([]connect.HandlerOption{connect.WithIdempotency(connect.IdempotencyNoSideEffects)}, opts...)...,
	)
	apply := connect.NewUnaryHandler(
		SessionServiceApplyProcedure,
		h.Apply,
		opts...,
	)

	return "/" + SessionServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SessionServiceGetStateProcedure:
			getState.ServeHTTP(w, r)
		case SessionServiceApplyProcedure:
			apply.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// SessionServiceClient calls SessionService
type SessionServiceClient struct {
	getState *connect.Client[emptypb.Empty, structpb.Struct]
	apply    *connect.Client[structpb.Struct, structpb.Struct]
}

// NewSessionServiceClient creates a client for the service at baseURL
func NewSessionServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SessionServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &SessionServiceClient{
		getState: connect.NewClient[emptypb.Empty, structpb.Struct](
			httpClient,
			baseURL+SessionServiceGetStateProcedure,
			append([]connect.ClientOption{connect.WithIdempotency(connect.IdempotencyNoSideEffects)}, opts...)...,
		),
		apply: connect.NewClient[structpb.Struct, structpb.Struct](
			httpClient,
			baseURL+SessionServiceApplyProcedure,
			opts...,
		),
	}
}

// GetState fetches the current snapshot
func (c *SessionServiceClient) GetState(ctx context.Context) (models.SessionState, error) {
	res, err := c.getState.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return models.SessionState{}, err
	}
	return structToState(res.Msg)
}

// Apply sends a command and returns the resulting snapshot
func (c *SessionServiceClient) Apply(ctx context.Context, cmd Command) (models.SessionState, error) {
	msg, err := structpb.NewStruct(map[string]interface{}{
		"action":               cmd.Action,
		"seconds":              cmd.Seconds,
		"total_questions":      cmd.TotalQuestions,
		"seconds_per_question": cmd.SecondsPerQuestion,
	})
	if err != nil {
		return models.SessionState{}, err
	}
	res, err := c.apply.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return models.SessionState{}, err
	}
	return structToState(res.Msg)
}

func connectCode(err error) connect.Code {
	switch {
	case errors.Is(err, session.ErrInvalidConfiguration), errors.Is(err, ErrBadRequest):
		return connect.CodeInvalidArgument
	case errors.Is(err, session.ErrInvalidOperation):
		return connect.CodeFailedPrecondition
	case errors.Is(err, ErrUnknownAction):
		return connect.CodeUnimplemented
	default:
		return connect.CodeInternal
	}
}

// stateToStruct converts a snapshot through its JSON form
func stateToStruct(state models.SessionState) (*structpb.Struct, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return structpb.NewStruct(fields)
}

func structToState(msg *structpb.Struct) (models.SessionState, error) {
	var state models.SessionState
	data, err := json.Marshal(msg.AsMap())
	if err != nil {
		return state, fmt.Errorf("failed to marshal struct: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to decode state: %w", err)
	}
	return state, nil
}

func structToCommand(msg *structpb.Struct) (Command, error) {
	var cmd Command
	data, err := json.Marshal(msg.AsMap())
	if err != nil {
		return cmd, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return cmd, nil
}
