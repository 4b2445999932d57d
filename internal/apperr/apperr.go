// Package apperr defines the closed set of domain error kinds and maps
// each to the HTTP status it must produce. Handlers return *apperr.Error
// instead of writing gin.H{"error": ...} ad hoc, so every error path goes
// through one mapping function (§7 of the design).
package apperr

import (
	"net/http"
)

// Kind is the tagged enum of domain error kinds.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not-found"
	KindConflict        Kind = "conflict"
	KindGone            Kind = "gone"
	KindRateLimited     Kind = "rate-limited"
	KindInternal        Kind = "internal"
	KindUnavailable     Kind = "unavailable"
)

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the error type every handler and service function returns for
// anything that should surface to the client as a structured failure.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	// Extra carries kind-specific payload fields merged into the response
	// body, e.g. {"monthlyLimit": 1} on a quota rate-limited error.
	Extra map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Gone(message string) *Error {
	return &Error{Kind: KindGone, Message: message}
}

func RateLimited(message string, extra map[string]any) *Error {
	return &Error{Kind: KindRateLimited, Message: message, Extra: extra}
}

func Internal(message string) *Error {
	return &Error{Kind: KindInternal, Message: message}
}

func Unavailable(message string) *Error {
	return &Error{Kind: KindUnavailable, Message: message}
}

// Status maps a Kind to the HTTP status it must produce. This is the single
// function §7 requires: every error kind maps to exactly one status.
func Status(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindGone:
		return http.StatusGone
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Body is the wire shape of every error response: {message, errors?}.
type Body struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// As extracts an *Error from err, falling back to a generic internal error
// so callers never have to nil-check before calling Status/Body.
func As(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return Internal("internal error")
}
