// Package apperr carries user-facing errors with a machine-readable kind.
//
// Messages are what the caller sees. The kind decides the HTTP status and the
// GraphQL extension code, so clients can branch without matching on text.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

type Kind string

const (
	KindValidation      Kind = "VALIDATION"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindStateViolation  Kind = "STATE_VIOLATION"
	KindConflict        Kind = "CONFLICT"
	KindUpstream        Kind = "UPSTREAM"
	KindInternal        Kind = "INTERNAL"
)

// HTTPStatus maps a kind to the status used when the error leaves the
// process over plain HTTP.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindStateViolation, KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports kind equality, so errors.Is(err, apperr.NotFound("")) matches
// any not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Extensions is picked up by the GraphQL executor and rendered under
// "extensions" in the error response.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": string(e.Kind)}
}

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func Validation(msg string) *Error { return newError(KindValidation, msg, nil) }

func Unauthenticated(msg string) *Error {
	if msg == "" {
		msg = "authentication required"
	}
	return newError(KindUnauthenticated, msg, nil)
}

func Forbidden(msg string) *Error {
	if msg == "" {
		msg = "access denied"
	}
	return newError(KindForbidden, msg, nil)
}

func NotFound(msg string) *Error {
	if msg == "" {
		msg = "not found"
	}
	return newError(KindNotFound, msg, nil)
}

func StateViolation(msg string) *Error { return newError(KindStateViolation, msg, nil) }

func Conflict(msg string) *Error { return newError(KindConflict, msg, nil) }

// Upstream wraps a failure of a remote collaborator. The remote message is
// kept so the caller sees why generation failed.
func Upstream(msg string, cause error) *Error { return newError(KindUpstream, msg, cause) }

func Internal(cause error) *Error { return newError(KindInternal, "unexpected error", cause) }

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Public converts any error into one that is safe to show to a caller.
// Errors that already carry a kind pass through; anything else is reported
// as an internal error without leaking its text.
func Public(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Message renders the caller-facing text. Internal causes are hidden.
func Message(err error) string {
	e := Public(err)
	if e.Kind == KindInternal {
		return e.Message
	}
	if e.Kind == KindUpstream && e.Cause != nil {
		return e.Message + ": " + strings.TrimSpace(e.Cause.Error())
	}
	return e.Message
}
