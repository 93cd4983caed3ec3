package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrCapacityExhausted is returned when a request exceeds the addressable element space.
	ErrCapacityExhausted = errors.New("capacity exhausted")
	// ErrInvalidSlot is returned for unknown, stale or already released slot handles.
	ErrInvalidSlot = errors.New("invalid slot")
	// ErrOutOfRange is returned when offsets or sizes do not fit a slot's allocation.
	ErrOutOfRange = errors.New("offset or size out of range")
	ErrUnknown    = errors.New("unknown")
)

// Precondition wraps the given taxonomy sentinel with a message so callers can
// classify the failure with errors.Is from either the standard library or
// cockroachdb/errors.
func Precondition(sentinel error, format string, args ...interface{}) error {
	return errors.Wrapf(sentinel, format, args...)
}
