// Package apperr classifies failures so the HTTP boundary can pick a status
// code without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindInvalidState
	KindValidation
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindValidation:
		return "validation_error"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unexpected"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindUnexpected {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match two *Error values of the same kind and message,
// which is how the OTP sentinels below are compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

var (
	ErrExpired       = &Error{Kind: KindInvalidState, Message: "access code has expired"}
	ErrRevoked       = &Error{Kind: KindInvalidState, Message: "access code has been revoked"}
	ErrUsageExceeded = &Error{Kind: KindInvalidState, Message: "access code has reached its usage limit"}
)

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized is for callers that failed or skipped authentication.
func Unauthorized(format string, args ...interface{}) error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// Unexpected wraps an infrastructure failure. The message is for logs only.
func Unexpected(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindUnexpected, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of the first *Error in the chain. Errors that were
// never classified count as unexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}
