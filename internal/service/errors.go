package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure.  Handlers map kinds to HTTP statuses;
// the webhook maps them to gateway acknowledgements.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindCapacityExceeded
	KindNotFound
	KindAlreadyCancelled
	KindUnauthorized
	KindExpired
	KindAuthenticity
	KindTransientStorage
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCapacityExceeded:
		return "capacity_exceeded"
	case KindNotFound:
		return "not_found"
	case KindAlreadyCancelled:
		return "already_cancelled"
	case KindUnauthorized:
		return "unauthorized"
	case KindExpired:
		return "expired"
	case KindAuthenticity:
		return "authenticity"
	case KindTransientStorage:
		return "transient_storage"
	case KindConflict:
		return "conflict"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the error type returned by every service operation.  Code is a
// stable machine-readable identifier; Message is safe to show to a client.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches kind sentinels: errors.Is(err, ErrExpired) holds for any
// *Error of KindExpired.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == "" {
		return t.Kind == e.Kind
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

// Kind sentinels for errors.Is.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrAlreadyCancelled = &Error{Kind: KindAlreadyCancelled}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized}
	ErrExpired          = &Error{Kind: KindExpired}
	ErrAuthenticity     = &Error{Kind: KindAuthenticity}
	ErrTransient        = &Error{Kind: KindTransientStorage}
	ErrConflict         = &Error{Kind: KindConflict}
)

// KindOf returns the kind of err, or KindTransientStorage for errors that did
// not originate in this package.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransientStorage
}

func invalid(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func capacityExceeded(code, msg string) *Error {
	return &Error{Kind: KindCapacityExceeded, Code: code, Message: msg}
}

func conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func notFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: what + "_not_found", Message: what + " not found"}
}

func alreadyCancelled() *Error {
	return &Error{Kind: KindAlreadyCancelled, Code: "already_cancelled", Message: "order is already cancelled"}
}

func unauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Code: "not_owner", Message: "order belongs to another member"}
}

func expired() *Error {
	return &Error{Kind: KindExpired, Code: "cancel_expired", Message: "cancellation deadline has passed"}
}

func transient(op string, err error) *Error {
	return &Error{Kind: KindTransientStorage, Code: "storage_unavailable",
		Message: "please retry later", Err: fmt.Errorf("%s: %w", op, err)}
}
