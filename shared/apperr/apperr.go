// Package apperr holds the error kinds that the API surfaces to callers.
// Anything that is not an *Error is treated as an internal failure.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Validation Kind = iota + 1
	Conflict
	Authentication
	TokenMalformed
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case Authentication:
		return "authentication"
	case TokenMalformed:
		return "token_malformed"
	default:
		return "unknown"
	}
}

// Error is a caller-facing failure with a human readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

// HTTPStatus maps the error kind to its response code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case Validation, Conflict:
		return http.StatusBadRequest
	case Authentication:
		return http.StatusUnauthorized
	case TokenMalformed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func NewValidation(msg string) *Error     { return &Error{Kind: Validation, Message: msg} }
func NewConflict(msg string) *Error       { return &Error{Kind: Conflict, Message: msg} }
func NewAuthentication(msg string) *Error { return &Error{Kind: Authentication, Message: msg} }
func NewTokenMalformed(msg string) *Error { return &Error{Kind: TokenMalformed, Message: msg} }

// As unwraps err into an *Error if it is (or wraps) one.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
