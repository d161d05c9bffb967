package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// ErrInvalidTransition is returned when an order status update would move
// the status backwards.
var ErrInvalidTransition = errors.New("invalid status transition")
