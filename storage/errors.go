package storage

import "errors"

var (
	// ErrNotFound indicates no row exists for the given key, slot, or id.
	ErrNotFound = errors.New("storage: not found")

	// ErrInvalidKey indicates a lookup key is not exactly 8 bytes.
	ErrInvalidKey = errors.New("storage: key must be 8 bytes")

	// ErrInvalidSlot indicates a root slot outside 0..3.
	ErrInvalidSlot = errors.New("storage: invalid root slot")

	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("storage: nil parameter")
)
