package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure so the UI can give the right guidance
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindValidation ErrorKind = "validation" // rejected locally, never sent
	KindRejected   ErrorKind = "rejected"   // server said no (4xx, success=false)
	KindNetwork    ErrorKind = "network"    // no response at all
	KindMalformed  ErrorKind = "malformed"  // response could not be trusted
	KindServer     ErrorKind = "server"     // 5xx
	KindBusy       ErrorKind = "busy"       // another attempt is in flight
	KindStorage    ErrorKind = "storage"    // local persistence failed
)

// Error is the single error type crossing the transport boundary
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d)", e.Message, e.Status)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unauthorized reports an authentication rejection status
func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Errorf builds an *Error of the given kind
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of err; unknown errors count as network failures
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}

// MessageOf returns the user-facing text of err
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// IsUnauthorized reports whether err is a 401/403 from the server
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

// Guidance is a short hint for the user on what to do next
func Guidance(kind ErrorKind) string {
	switch kind {
	case KindNetwork:
		return "Could not reach the server. Check your connection and that the backend is running."
	case KindRejected:
		return "Check your details and try again."
	case KindServer:
		return "The server had a problem. Try again in a moment."
	case KindMalformed:
		return "The server sent an unexpected response. Try again or contact support."
	case KindBusy:
		return "Please wait for the current request to finish."
	case KindValidation:
		return "Fix the highlighted fields."
	case KindStorage:
		return "Could not save the session locally. Check the storage settings."
	default:
		return ""
	}
}
