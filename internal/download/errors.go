package download

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedBody is returned when a response body ends before the
	// advertised Content-Length. Truncation is retryable.
	ErrTruncatedBody = errors.New("response body shorter than Content-Length")

	// ErrNoSlot is returned when a download cannot acquire a
	// concurrency slot before the context is done.
	ErrNoSlot = errors.New("could not acquire download slot")
)

// StatusError reports a non-success HTTP status. Server errors (5xx)
// and 429 are retryable; other client errors are not.
type StatusError struct {
	// Code is the HTTP status code.
	Code int
}

// Error returns the status code as an error string.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == 429 || e.Code == 408
}
