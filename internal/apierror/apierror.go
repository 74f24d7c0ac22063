// Package apierror defines the error type every HTTP handler and middleware
// returns to the client, and its mapping to status codes and bodies.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Kind classifies a ServerError.
type Kind int

const (
	KindInternal Kind = iota
	KindAccessDenied
	KindPermission
	KindNotFound
	KindJwtVerification
	KindApi
	KindGSClient
)

func (k Kind) String() string {
	switch k {
	case KindAccessDenied:
		return "access_denied"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindJwtVerification:
		return "jwt_verification"
	case KindApi:
		return "api"
	case KindGSClient:
		return "gs_client"
	default:
		return "internal"
	}
}

// ServerError is the error boundary type. Message is shown to the client
// except for internal and upstream failures, where it is only logged.
type ServerError struct {
	Kind    Kind
	Code    int // KindApi only
	Message string
	Missing []string // KindPermission only
	// upstream response, KindGSClient only
	UpstreamStatus int
	UpstreamBody   string
	Err            error
}

func (e *ServerError) Error() string {
	switch e.Kind {
	case KindPermission:
		return "missing permissions: " + strings.Join(e.Missing, ", ")
	case KindGSClient:
		return fmt.Sprintf("game session service returned %d: %s", e.UpstreamStatus, e.UpstreamBody)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServerError) Unwrap() error { return e.Err }

// StatusCode maps the kind to an HTTP status.
func (e *ServerError) StatusCode() int {
	switch e.Kind {
	case KindAccessDenied, KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindJwtVerification:
		return http.StatusUnauthorized
	case KindApi:
		if e.Code >= 400 && e.Code < 600 {
			return e.Code
		}
		return http.StatusBadRequest
	case KindGSClient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func AccessDenied() *ServerError {
	return &ServerError{Kind: KindAccessDenied, Message: "access denied"}
}

// Permission reports the permission names the caller lacks.
func Permission(missing []string) *ServerError {
	return &ServerError{Kind: KindPermission, Message: "missing permissions", Missing: missing}
}

func NotFound(msg string) *ServerError {
	return &ServerError{Kind: KindNotFound, Message: msg}
}

func JwtVerification(msg string) *ServerError {
	return &ServerError{Kind: KindJwtVerification, Message: msg}
}

// Api is an error with an explicit status and a client-facing message.
func Api(code int, msg string) *ServerError {
	return &ServerError{Kind: KindApi, Code: code, Message: msg}
}

func BadRequest(msg string) *ServerError {
	return Api(http.StatusBadRequest, msg)
}

// GSClient wraps a failed call to the game-session service.
func GSClient(status int, body string) *ServerError {
	return &ServerError{Kind: KindGSClient, Message: "game session service unavailable", UpstreamStatus: status, UpstreamBody: body}
}

// Internal hides err from the client.
func Internal(msg string, err error) *ServerError {
	return &ServerError{Kind: KindInternal, Message: msg, Err: err}
}

// From returns err as a ServerError, treating unknown errors as internal.
func From(err error) *ServerError {
	var se *ServerError
	if errors.As(err, &se) {
		return se
	}
	return Internal("unexpected error", err)
}

type errorBody struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

// Write renders err as a JSON response and logs it.
func Write(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error) {
	se := From(err)
	status := se.StatusCode()

	body := errorBody{Error: se.Message}
	switch se.Kind {
	case KindPermission:
		body.Missing = se.Missing
	case KindInternal:
		body.Error = "internal server error"
	}

	if logger != nil {
		entry := logger.WithFields(logrus.Fields{
			"status": status,
			"kind":   se.Kind.String(),
			"path":   r.URL.Path,
			"error":  se.Error(),
		})
		if id := middleware.GetReqID(r.Context()); id != "" {
			entry = entry.WithField("request_id", id)
		}
		if status >= 500 {
			entry.Error("request failed")
		} else {
			entry.Debug("request rejected")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
