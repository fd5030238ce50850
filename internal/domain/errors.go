package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error types for the client's error taxonomy. Every failure surfaced by the
// HTTP client or the services is one of these, possibly wrapped.

// Kind classifies an error for display and policy decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnreachable
	KindUnauthorized
	KindValidationRejected
	KindServerError
	KindClientValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidationRejected:
		return "validation_rejected"
	case KindServerError:
		return "server_error"
	case KindClientValidation:
		return "client_validation"
	default:
		return "unknown"
	}
}

// Fallback messages, used when the backend gives nothing better.
const (
	MsgUnreachable        = "Cannot connect to server. Please check if the backend is running."
	MsgInvalidCredentials = "Invalid email or password"
	MsgUnexpectedResponse = "Unexpected response from server"
)

// ErrUnreachable indicates no response was received (network down, backend
// down, circuit open, request cancelled before a response arrived).
type ErrUnreachable struct {
	Cause error
}

func (e *ErrUnreachable) Error() string {
	return MsgUnreachable
}

func (e *ErrUnreachable) Unwrap() error {
	return e.Cause
}

// ErrUnauthorized indicates a 401. The session has already been torn down
// by the time a caller sees it.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return MsgInvalidCredentials
}

// ErrValidationRejected indicates a 400 carrying a field -> message map.
type ErrValidationRejected struct {
	Fields map[string]string
}

func (e *ErrValidationRejected) Error() string {
	return "Validation error: " + joinFields(e.Fields)
}

// ErrServer indicates any other non-2xx response, or a 2xx body that does not
// match the documented schema.
type ErrServer struct {
	Status  int
	Message string
}

func (e *ErrServer) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Request failed with status %d", e.Status)
}

// ErrClientValidation indicates a local rule failed. It never reaches the network.
type ErrClientValidation struct {
	Fields map[string]string
}

func (e *ErrClientValidation) Error() string {
	return "invalid input: " + joinFields(e.Fields)
}

// NewClientValidation is a shorthand for a single-field ErrClientValidation.
func NewClientValidation(field, message string) *ErrClientValidation {
	return &ErrClientValidation{Fields: map[string]string{field: message}}
}

// KindOf classifies err, looking through wrapping.
func KindOf(err error) Kind {
	var unreachable *ErrUnreachable
	var unauthorized *ErrUnauthorized
	var rejected *ErrValidationRejected
	var server *ErrServer
	var local *ErrClientValidation

	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &unauthorized):
		return KindUnauthorized
	case errors.As(err, &rejected):
		return KindValidationRejected
	case errors.As(err, &server):
		return KindServerError
	case errors.As(err, &local):
		return KindClientValidation
	case errors.As(err, &unreachable):
		return KindUnreachable
	default:
		return KindUnknown
	}
}

// DisplayMessage returns the string a screen shows for err: the message of
// the innermost taxonomy error, without any wrapping context.
func DisplayMessage(err error) string {
	var unreachable *ErrUnreachable
	var unauthorized *ErrUnauthorized
	var rejected *ErrValidationRejected
	var server *ErrServer
	var local *ErrClientValidation

	switch {
	case err == nil:
		return ""
	case errors.As(err, &unauthorized):
		return unauthorized.Error()
	case errors.As(err, &rejected):
		return rejected.Error()
	case errors.As(err, &server):
		return server.Error()
	case errors.As(err, &local):
		return local.Error()
	case errors.As(err, &unreachable):
		return unreachable.Error()
	default:
		return err.Error()
	}
}

func joinFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fields[k]))
	}
	return strings.Join(parts, ", ")
}
