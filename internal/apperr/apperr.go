// Package apperr defines the error taxonomy shared by the service and
// handler layers. Every error carries a kind that maps to an HTTP
// status and a stable machine-readable code, so handlers never have to
// inspect messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind int

const (
	// InvalidInput means the request shape was malformed.
	InvalidInput Kind = iota
	// Unauthenticated means no/expired/invalid token or credential mismatch.
	Unauthenticated
	// Forbidden means authenticated but policy-denied.
	Forbidden
	// NotFound means the resource is absent, reported only after
	// tenant membership has been confirmed.
	NotFound
	// Conflict means a uniqueness violation.
	Conflict
	// Internal means a storage or crypto failure.
	Internal
)

// Stable machine codes attached to errors. Clients branch on these,
// never on messages.
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL"

	CodeAccountInactive = "ACCOUNT_INACTIVE"
	CodeTenantNotActive = "TENANT_NOT_ACTIVE"
	CodeTenantRequired  = "TENANT_REQUIRED"
	CodeLimitReached    = "LIMIT_REACHED"
)

// Error is the concrete taxonomy error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on kind sentinels produced by the
// constructors below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// HTTPStatus maps the kind to its HTTP status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case InvalidInput:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func defaultCode(k Kind) string {
	switch k {
	case InvalidInput:
		return CodeInvalidInput
	case Unauthenticated:
		return CodeUnauthenticated
	case Forbidden:
		return CodeForbidden
	case NotFound:
		return CodeNotFound
	case Conflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}

// New builds a taxonomy error of the given kind with its default code.
func New(k Kind, message string) *Error {
	return &Error{Kind: k, Code: defaultCode(k), Message: message}
}

// WithCode builds a taxonomy error carrying a specific machine code.
func WithCode(k Kind, code, message string) *Error {
	return &Error{Kind: k, Code: code, Message: message}
}

// Wrap builds an Internal error around a lower-level failure.
func Wrap(message string, err error) *Error {
	return &Error{Kind: Internal, Code: CodeInternal, Message: message, Err: err}
}

// From converts any error to a taxonomy error, passing through ones
// that already are and wrapping everything else as Internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap("internal server error", err)
}

// KindOf returns the kind of err, or Internal for foreign errors.
func KindOf(err error) Kind {
	return From(err).Kind
}
