package table

import "errors"

var (
	// ErrNilRecord indicates a nil record was passed to a put operation.
	ErrNilRecord = errors.New("table: nil record")

	// ErrInvalidKind indicates a generic record kind tag outside 1..15.
	ErrInvalidKind = errors.New("table: record kind tag must be 1..15")
)
