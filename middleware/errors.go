package middleware

import "errors"

var (
	// ErrInvalidContext indicates middleware context is invalid
	ErrInvalidContext = errors.New("invalid middleware context")

	// ErrStopped marks a run abandoned by its stream consumer. It is not a failure.
	ErrStopped = errors.New("stream consumer stopped")
)
