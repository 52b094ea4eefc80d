// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers to distinguish
// between different failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a looked-up order, request or user does not
// exist (or is no longer in the state the query asked for).
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a compare-and-swap update found the row
// in a different state than expected, e.g. an order that another
// request cancelled first.
var ErrConflict = errors.New("conflict")

// ErrSlotFull is returned when a conditional capacity decrement matched no
// row: the slot does not exist or has less remaining capacity than asked.
var ErrSlotFull = errors.New("slot full")

// ErrDuplicateOrderNumber is returned when an insert collides with an
// existing order number or cancel token.  Callers regenerate and retry.
var ErrDuplicateOrderNumber = errors.New("duplicate order number")

// ErrInsufficientPoints is returned when a member tries to spend more points
// than their balance holds.
var ErrInsufficientPoints = errors.New("insufficient points")
