// Package apierrors defines the closed error taxonomy for the JSON API.
//
// Every fault that crosses the HTTP boundary is one of five kinds, mapped
// exactly once to a transport status code here. Handlers classify faults at
// the point they occur (wrapping the underlying error); the top-level writer
// turns them into the uniform `{"error": "..."}` envelope. Errors that reach
// the boundary unclassified are treated as upstream failures.
package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Kind classifies a fault.
type Kind int

const (
	// Unauthenticated: missing, malformed, or rejected bearer credential.
	Unauthenticated Kind = iota
	// Forbidden: authenticated but lacking the privilege for the action.
	Forbidden
	// Validation: the request payload is missing or malformed.
	Validation
	// UnknownAction: the action tag is not recognized.
	UnknownAction
	// Upstream: the backing store or the identity provider failed.
	Upstream
)

// status maps each kind to its HTTP status code. This is the only place the
// mapping exists.
func (k Kind) status() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case Validation, UnknownAction:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case Validation:
		return "validation"
	case UnknownAction:
		return "unknown_action"
	default:
		return "upstream"
	}
}

// Error is a classified API fault. Message is what the client sees; Err is
// the underlying cause, kept for logs and errors.Is/As chains.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates a classified error with a client-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted client-facing message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. The client sees message; the cause
// stays on the chain.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind from an error chain. Unclassified errors are
// upstream failures: anything a handler did not explicitly classify came from
// a collaborator (store, provider).
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Upstream
}

// Status returns the HTTP status for an error chain.
func Status(err error) int {
	return KindOf(err).status()
}

// envelope is the single error payload shape for every fault.
type envelope struct {
	Error string `json:"error"`
}

// Write serializes err into the error envelope with its mapped status code
// and logs the full chain. Upstream causes are not leaked: the client sees
// the classified message only.
func Write(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := KindOf(err)

	msg := err.Error()
	var ae *Error
	if errors.As(err, &ae) {
		msg = ae.Message
	}

	if log != nil {
		log.Warn("request failed",
			zap.String("kind", kind.String()),
			zap.Int("status", kind.status()),
			zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.status())
	_ = json.NewEncoder(w).Encode(envelope{Error: msg})
}
