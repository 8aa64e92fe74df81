package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Outcome kinds every backend call is reduced to. Callers match them with errors.Is / errors.As.
var (
	// ErrNetworkUnreachable means no HTTP response was received
	ErrNetworkUnreachable = errors.New("backend unreachable")
	// ErrUnauthorized means the backend rejected the bearer credential
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMalformedResponse means a 2xx body could not be mapped
	ErrMalformedResponse = errors.New("malformed backend response")
)

// ServerRejectedError is a non-2xx answer other than 401, or a 2xx envelope
// with success=false.
type ServerRejectedError struct {
	Status  int
	Message string
}

func (e *ServerRejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend rejected request (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend rejected request (%d)", e.Status)
}

// UserMessage is the backend's own message, or fallback when it sent none
func (e *ServerRejectedError) UserMessage(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

// NotFound reports whether the backend answered 404
func (e *ServerRejectedError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// Malformed wraps cause as ErrMalformedResponse
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// Outcome names err's kind for logs and metrics
func Outcome(err error) string {
	var rejected *ServerRejectedError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNetworkUnreachable):
		return "unreachable"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.As(err, &rejected):
		return "rejected"
	default:
		return "error"
	}
}
