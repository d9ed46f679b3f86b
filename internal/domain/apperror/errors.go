// Package apperror defines the typed failures surfaced by workflow operations.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an application error
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
)

var (
	// ErrValidation matches any validation error with errors.Is
	ErrValidation = &Error{Kind: KindValidation, Message: "validation failed"}

	// ErrAuthorization matches any authorization error with errors.Is
	ErrAuthorization = &Error{Kind: KindAuthorization, Message: "not authorized"}

	// ErrConflict matches any conflict error with errors.Is
	ErrConflict = &Error{Kind: KindConflict, Message: "conflict with current state"}

	// ErrNotFound matches any not found error with errors.Is
	ErrNotFound = &Error{Kind: KindNotFound, Message: "not found"}
)

// Error is a classified failure scoped to one requested operation
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind, so errors.Is(err, ErrConflict) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Validation creates a validation error
func Validation(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Authorization creates an authorization error
func Authorization(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error
func Conflict(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not found error
func NotFound(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a classified error
func Wrap(kind Kind, op string, err error, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsAuthorization reports whether err is an authorization error
func IsAuthorization(err error) bool { return errors.Is(err, ErrAuthorization) }

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsNotFound reports whether err is a not found error
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
