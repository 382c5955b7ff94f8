// Package apperr defines the error kinds surfaced by stream, chat and webhook operations.
package apperr

import (
	"errors"
	"fmt"
)

// Kinds. Match with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Error carries a kind and a caller-facing message.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Unwrap returns the kind so errors.Is(err, ErrNotFound) works through wrapping.
func (e *Error) Unwrap() error { return e.kind }

func newf(kind error, format string, args ...interface{}) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// NotFound returns a NotFound error with the given message.
func NotFound(format string, args ...interface{}) error { return newf(ErrNotFound, format, args...) }

// Forbidden returns a Forbidden error.
func Forbidden(format string, args ...interface{}) error { return newf(ErrForbidden, format, args...) }

// Unauthorized returns an Unauthorized error.
func Unauthorized(format string, args ...interface{}) error {
	return newf(ErrUnauthorized, format, args...)
}

// Validation returns a Validation error.
func Validation(format string, args ...interface{}) error { return newf(ErrValidation, format, args...) }

// InvalidTransition returns an error for a status change the state machine does not allow.
func InvalidTransition(format string, args ...interface{}) error {
	return newf(ErrInvalidTransition, format, args...)
}

// Message returns the caller-facing message of err if it is (or wraps) an *Error, otherwise fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return fallback
}
