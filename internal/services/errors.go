package services

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict is returned when registering a username that is taken.
	ErrConflict = errors.New("username already exists")

	// ErrUnauthorized is returned for bad credentials or an unknown caller.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("permission denied")

	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports a request that cannot be processed as sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
