package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on it
// (HTTP status mapping, metrics labels).
type Kind string

const (
	KindValidation        Kind = "validation"
	KindUnauthenticated   Kind = "unauthenticated"
	KindNotFound          Kind = "not_found"
	KindNotAuthorized     Kind = "not_authorized"
	KindSlotUnavailable   Kind = "slot_unavailable"
	KindSlotAlreadyBooked Kind = "slot_already_booked"
	KindInvalidState      Kind = "invalid_state"
	KindPaymentPending    Kind = "payment_pending"
	KindConflict          Kind = "conflict"
	KindStore             Kind = "store_error"
	KindGateway           Kind = "gateway_error"
)

// ErrNoRecord is returned by persistence collaborators when a lookup
// matches nothing.
var ErrNoRecord = errors.New("record not found")

// Error is the structured error returned by every operation in this module.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind carrying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(message string) *Error    { return New(KindValidation, message) }
func NotFound(message string) *Error      { return New(KindNotFound, message) }
func NotAuthorized(message string) *Error { return New(KindNotAuthorized, message) }

// KindOf reports the kind of err. Errors that did not come from this
// package are treated as store errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
