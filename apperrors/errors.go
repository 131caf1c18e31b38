package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for HTTP mapping and errors.Is checks.
type Kind string

const (
	KindNotFound       Kind = "NOT_FOUND"
	KindConflict       Kind = "CONFLICT"
	KindValidation     Kind = "VALIDATION_ERROR"
	KindUnauthorized   Kind = "UNAUTHORIZED"
	KindInfrastructure Kind = "INFRASTRUCTURE_ERROR"
	KindInternal       Kind = "INTERNAL_ERROR"
)

// Error carries a kind alongside the message so callers can branch on the
// failure class without string matching.
type Error struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by kind, and additionally by message when the target
// carries one. A bare target like apperrors.New(KindNotFound, "")
// matches every error of that kind; named sentinels sharing a kind stay
// distinguishable.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e.Kind != t.Kind {
		return false
	}
	return t.Message == "" || e.Message == t.Message
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}

// KindOf extracts the kind from err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
