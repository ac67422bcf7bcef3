package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

// Inbound is what a handler extracted from the caller's request.
type Inbound struct {
	Params      func(string) string
	RawQuery    string
	ContentType string
	Body        []byte
	Credential  string
	RequestID   string
}

// Result is the status and normalized body to relay to the caller.
type Result struct {
	Status int
	Body   []byte
}

// LoginResult is a relayed credential exchange; Token is set only on success.
type LoginResult struct {
	Result
	Token string
}

// Gateway is stateless: every call carries its own credential.
type Gateway struct {
	backend *Backend
	logger  *zap.Logger
}

// New wires a Gateway to backend.
func New(backend *Backend, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{backend: backend, logger: logger}
}

// Backend exposes the underlying client for readiness checks.
func (g *Gateway) Backend() *Backend { return g.backend }

// Forward relays one call along route. The backend status is passed through;
// an error is returned only when there is nothing to relay.
func (g *Gateway) Forward(ctx context.Context, route Route, in Inbound) (Result, error) {
	if route.Auth == AuthRequired && in.Credential == "" {
		return Result{}, apperrors.NewUnauthorized("Unauthorized")
	}
	credential := in.Credential
	if route.Auth == AuthNone {
		credential = ""
	}

	path := route.Upstream
	if in.Params != nil {
		path = route.UpstreamPath(in.Params)
	}

	reply, err := g.backend.Do(ctx, Call{
		Route:       route.Name,
		Method:      route.Method,
		Path:        path,
		RawQuery:    in.RawQuery,
		ContentType: in.ContentType,
		Credential:  credential,
		RequestID:   in.RequestID,
		Body:        in.Body,
		Timeout:     route.Timeout(),
	})
	if err != nil {
		return Result{}, apperrors.NewUpstreamUnavailable(0, err)
	}

	// Error bodies are relayed whole so the backend's message survives.
	body := reply.Body
	if route.Unwrap && reply.Status >= 200 && reply.Status <= 299 {
		body, err = Normalize(reply.Body)
	} else {
		body, err = passThrough(reply.Body)
	}
	if err != nil {
		g.logger.Warn("backend answered with a non-JSON body",
			zap.String("route", route.Name),
			zap.Int("status", reply.Status),
		)
		return Result{}, apperrors.NewUpstreamUnavailable(reply.Status, err)
	}
	return Result{Status: reply.Status, Body: body}, nil
}

// Login exchanges identifier/password for a credential. On success the body is
// {"ok": true, ...backendBody} and Token carries data.token.
func (g *Gateway) Login(ctx context.Context, body []byte, requestID string) (LoginResult, error) {
	fields, status, err := g.exchange(ctx, "auth.login", "/api/auth/login", body, requestID)
	if err != nil {
		return LoginResult{}, err
	}
	if status < 200 || status > 299 {
		return LoginResult{}, relayedFailure(status, fields, "Invalid credentials")
	}

	token := tokenFrom(fields)
	if token == "" {
		return LoginResult{}, apperrors.NewDomainError(apperrors.CodeInternal,
			"Token not found in response", http.StatusInternalServerError, nil)
	}

	out, err := okBody(fields)
	if err != nil {
		return LoginResult{}, apperrors.NewInternalError(err)
	}
	return LoginResult{Result: Result{Status: http.StatusOK, Body: out}, Token: token}, nil
}

// Register creates an account; the response mirrors Login without a credential.
func (g *Gateway) Register(ctx context.Context, body []byte, requestID string) (Result, error) {
	fields, status, err := g.exchange(ctx, "auth.register", "/api/auth/register", body, requestID)
	if err != nil {
		return Result{}, err
	}
	if status < 200 || status > 299 {
		return Result{}, relayedFailure(status, fields, "Registration failed")
	}
	out, err := okBody(fields)
	if err != nil {
		return Result{}, apperrors.NewInternalError(err)
	}
	return Result{Status: http.StatusOK, Body: out}, nil
}

func (g *Gateway) exchange(ctx context.Context, name, path string, body []byte, requestID string) (map[string]json.RawMessage, int, error) {
	reply, err := g.backend.Do(ctx, Call{
		Route:       name,
		Method:      http.MethodPost,
		Path:        path,
		ContentType: "application/json",
		RequestID:   requestID,
		Body:        body,
	})
	if err != nil {
		return nil, 0, apperrors.NewUpstreamUnavailable(0, err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(reply.Body, &fields); err != nil {
		// non-JSON or non-object bodies count as empty, like a failed res.json()
		fields = map[string]json.RawMessage{}
	}
	return fields, reply.Status, nil
}

func relayedFailure(status int, fields map[string]json.RawMessage, fallback string) error {
	message := fallback
	if raw, ok := fields["message"]; ok {
		var m string
		if json.Unmarshal(raw, &m) == nil && m != "" {
			message = m
		}
	}
	return apperrors.NewDomainError(apperrors.CodeForStatus(status), message, status, nil)
}

func tokenFrom(fields map[string]json.RawMessage) string {
	var data struct {
		Token string `json:"token"`
	}
	if raw, ok := fields["data"]; ok {
		_ = json.Unmarshal(raw, &data)
	}
	return data.Token
}

func okBody(fields map[string]json.RawMessage) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["ok"] = json.RawMessage("true")
	return json.Marshal(out)
}

func passThrough(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return emptyObject, nil
	}
	if !json.Valid(body) {
		return nil, ErrNotJSON
	}
	return body, nil
}

// IsUpstreamFailure reports whether err came from an unreachable or garbled backend.
func IsUpstreamFailure(err error) bool {
	var de *apperrors.DomainError
	return errors.As(err, &de) && de.Code == apperrors.CodeUpstreamUnavailable
}
