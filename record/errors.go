package record

import "errors"

var (
	// ErrInvalidHandleBytes indicates a handle encoding is not exactly 8 bytes.
	ErrInvalidHandleBytes = errors.New("record: handle must be 8 bytes")

	// ErrShareConflict indicates a node is flagged as both an incoming
	// share and a pending share, which the server contract forbids.
	ErrShareConflict = errors.New("record: node is both inshare and pending share")
)
