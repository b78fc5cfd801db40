package model

import "errors"

// Common errors used across the application
var (
	// Input errors
	ErrInvalidArgument = errors.New("invalid argument")

	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrPhoneExists  = errors.New("phone number already registered")

	// Session errors
	ErrSessionNotFound      = errors.New("game session not found")
	ErrAttemptLimitExceeded = errors.New("attempt limit exceeded")

	// Cache errors
	ErrCacheMiss = errors.New("cache miss")
)

// InvalidArgumentError describes malformed or out-of-range input.
// It matches ErrInvalidArgument under errors.Is.
type InvalidArgumentError struct {
	Message string
}

// InvalidArgument creates an InvalidArgumentError with a client-facing message
func InvalidArgument(message string) error {
	return &InvalidArgumentError{Message: message}
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Message
}

// Is reports whether target is ErrInvalidArgument
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}
