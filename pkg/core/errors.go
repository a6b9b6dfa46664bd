package core

import (
	"errors"
	"fmt"
	"net/url"
)

// Error is the canonical widget error.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Code    string    `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field: %s)", e.Kind, e.Message, e.Field)
	case e.Code != "":
		return fmt.Sprintf("%s: %s (code: %s)", e.Kind, e.Message, e.Code)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// ErrorKind categorizes errors.
type ErrorKind string

const (
	ErrConfiguration ErrorKind = "configuration_error"
	ErrConnection    ErrorKind = "connection_error"
	ErrValidation    ErrorKind = "validation_error"
	ErrBackend       ErrorKind = "backend_error"
	ErrStaleEvent    ErrorKind = "stale_event_error"
)

// NewConfigurationError creates a configuration error (missing agent id,
// invalid widget token, and similar setup failures).
func NewConfigurationError(message string) *Error {
	return &Error{
		Kind:    ErrConfiguration,
		Message: message,
	}
}

// NewConnectionError creates a voice-provider connection error.
func NewConnectionError(message string) *Error {
	return &Error{
		Kind:    ErrConnection,
		Message: message,
	}
}

// NewValidationError creates a validation error with field-level feedback.
func NewValidationError(message, field string) *Error {
	return &Error{
		Kind:    ErrValidation,
		Message: message,
		Field:   field,
	}
}

// NewBackendError creates a backend error for failed lead or reply calls.
func NewBackendError(message, code string) *Error {
	return &Error{
		Kind:    ErrBackend,
		Message: message,
		Code:    code,
	}
}

// NewStaleEventError creates an error for an event from a superseded voice
// session. Stale events are dropped silently and never reach the host page.
func NewStaleEventError(message string) *Error {
	return &Error{
		Kind:    ErrStaleEvent,
		Message: message,
	}
}

// IsKind reports whether err is a widget *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var werr *Error
	if !errors.As(err, &werr) {
		return false
	}
	return werr.Kind == kind
}

// TransportError represents transport-level failures (DNS, timeouts,
// connection reset, TLS handshake, websocket dial) while talking to the
// voice provider or the widget backend.
//
// Use errors.As(err, &TransportError{}) to distinguish transport failures
// from canonical widget errors (*core.Error).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Op != "" && e.URL != "":
		return fmt.Sprintf("transport error during %s %s: %v", e.Op, redactURLUserInfo(e.URL), e.Err)
	case e.Op != "":
		return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func redactURLUserInfo(raw string) string {
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	parsed.User = nil
	return parsed.String()
}
