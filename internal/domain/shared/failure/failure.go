package failure

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that map failures to responses.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindUnauthenticated   Kind = "unauthenticated"
	KindSelfBooking       Kind = "self_booking"
	KindCapacity          Kind = "capacity"
	KindStayLength        Kind = "stay_length"
	KindConflict          Kind = "booking_conflict"
	KindInvalidTransition Kind = "invalid_transition"
	KindBusy              Kind = "busy"
)

// Error is a tagged failure carrying a human readable message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets the bare kind sentinels below match any error of their kind.
// Errors carrying a message only match themselves.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Message != "" {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
	ErrSelfBooking       = &Error{Kind: KindSelfBooking}
	ErrCapacity          = &Error{Kind: KindCapacity}
	ErrStayLength        = &Error{Kind: KindStayLength}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrBusy              = &Error{Kind: KindBusy}
)

func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags cause with kind while keeping it reachable through errors.Unwrap.
func Wrap(kind Kind, cause error, message string) error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func Validation(format string, args ...any) error { return New(KindValidation, format, args...) }

func NotFound(entity string) error { return New(KindNotFound, "%s not found", entity) }

func Forbidden(msg string) error { return New(KindForbidden, "%s", msg) }

func InvalidTransition(format string, args ...any) error {
	return New(KindInvalidTransition, format, args...)
}

// KindOf returns the kind of the first tagged error in the chain, or "" for untagged errors.
func KindOf(err error) Kind {
	var fail *Error
	if errors.As(err, &fail) {
		return fail.Kind
	}
	return ""
}
