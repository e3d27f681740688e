package api

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed is wrapped by every non-2xx response
	ErrRequestFailed = errors.New("request failed")
	// ErrInvalidRequest is wrapped by request validation failures
	ErrInvalidRequest = errors.New("invalid request")
)

// StatusError reports a response outside the 2xx range
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Unwrap lets callers match every status failure with errors.Is(err, ErrRequestFailed)
func (e *StatusError) Unwrap() error {
	return ErrRequestFailed
}
