// Package errs defines the error taxonomy shared by services and the HTTP layer.
//
// Services return *Error values (optionally wrapped); the response layer switches on
// Kind to pick a status code and envelope shape. Anything that is not an *Error is
// treated as KindUnclassified.
package errs

import (
	"errors"
	"fmt"
	"maps"
)

// Kind classifies an error for response mapping.
type Kind int

const (
	KindUnclassified Kind = iota
	KindValidation
	KindBusinessLogic
	KindNotFound
	KindInvalidArgument
	KindUnauthorized
	KindForbidden
	KindTooManyRequests
)

// Kinds lists every kind, in declaration order.
var Kinds = []Kind{
	KindUnclassified,
	KindValidation,
	KindBusinessLogic,
	KindNotFound,
	KindInvalidArgument,
	KindUnauthorized,
	KindForbidden,
	KindTooManyRequests,
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBusinessLogic:
		return "business_logic"
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "unclassified"
	}
}

// Error is a classified error.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for KindValidation.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a validation error carrying per-field messages.
func Validation(message string, fields map[string]string) *Error {
	if message == "" {
		message = "Validation failed"
	}
	return &Error{Kind: KindValidation, Message: message, Fields: maps.Clone(fields)}
}

// BusinessLogic reports a valid request that conflicts with current state.
func BusinessLogic(message string) *Error {
	return &Error{Kind: KindBusinessLogic, Message: message}
}

// NotFound reports a missing entity.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// InvalidArgument reports malformed input that is not a field-level validation
// failure, such as an unresolvable resource id.
func InvalidArgument(message string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: message}
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Forbidden reports an authenticated caller lacking permission.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// TooManyRequests reports a throttled caller.
func TooManyRequests(message string) *Error {
	return &Error{Kind: KindTooManyRequests, Message: message}
}

// Wrap classifies err under kind, keeping it as the cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnclassified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnclassified
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
