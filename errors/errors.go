package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedRole indicates a message role the conversation buffers cannot accept
	ErrUnsupportedRole = errors.New("unsupported role")

	// ErrUnsupportedContent indicates a content unit that is not valid for its message role
	ErrUnsupportedContent = errors.New("unsupported content")

	// ErrUnsupportedProvider indicates an unknown provider backend was requested
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrProviderUnavailable indicates a provider backend could not be constructed
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
