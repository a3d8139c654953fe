// Package storage defines the raw storage primitive the encrypted record
// store sits on, plus the default bbolt-backed implementation.
//
// The backend never sees plaintext: keys arrive blinded and payloads arrive
// encrypted. It only understands opaque byte keys, numeric record ids, and
// the small set of plaintext columns (node type, share class) needed to
// answer aggregate queries.
package storage

import "github.com/cloudmirror/synccache/record"

// KeyLen is the required length of a blinded-handle lookup key.
const KeyLen = 8

// Root slots. Slot 0 holds the sync sequence token; slots 1-3 hold the
// three root handles.
const (
	SlotSequence = 0
	SlotRootMin  = 1
	SlotRootMax  = 3
)

// NodeRow is one node record as the backend stores it: the encrypted
// payload plus the columns aggregate queries filter on.
type NodeRow struct {
	// ParentKey is the blinded parent handle.
	ParentKey []byte

	// Fingerprint is the encrypted fingerprint blob; empty for non-files.
	Fingerprint []byte

	// Attrs is the node's opaque attribute string.
	Attrs string

	// Type is the node's type tag, kept in the clear so child counts can
	// be split by sub-type.
	Type record.NodeType

	// Share is the node's share classification.
	Share record.ShareState

	// Payload is the encrypted serialized node.
	Payload []byte
}

// GenericRow is one record on the generic id-keyed path.
type GenericRow struct {
	ID      uint32
	Payload []byte
}

// Backend is the capability interface the encrypted record store consumes.
// Implementations must report failure distinctly from "no rows":
// lookups return ErrNotFound (possibly wrapped) when the row is absent,
// and listing calls return empty owned slices.
type Backend interface {
	// PutRoot / GetRoot store standalone blobs in the fixed root slots.
	PutRoot(slot int, blob []byte) error
	GetRoot(slot int) ([]byte, error)

	// PutNode stores or replaces a node row under its blinded own-handle key.
	PutNode(key []byte, row *NodeRow) error

	// NodeByKey fetches a node's encrypted payload by blinded handle.
	NodeByKey(key []byte) ([]byte, error)

	// NodeByFingerprint fetches a node's encrypted payload by its
	// encrypted fingerprint blob.
	NodeByFingerprint(fp []byte) ([]byte, error)

	// DeleteNode removes a node row by blinded handle.
	DeleteNode(key []byte) error

	// CountChildren counts the node rows whose parent key matches,
	// restricted to the given node type.
	CountChildren(parentKey []byte, typ record.NodeType) (int, error)

	// ChildKeys lists the blinded own-handle keys of the rows whose
	// parent key matches. The returned slice is owned by the caller.
	ChildKeys(parentKey []byte) ([][]byte, error)

	// AllNodeKeys lists every node row's blinded own-handle key.
	AllNodeKeys() ([][]byte, error)

	// OutshareKeys lists keys of rows whose share class includes
	// outshares, optionally scoped to children of parentKey (nil for
	// unscoped).
	OutshareKeys(parentKey []byte) ([][]byte, error)

	// PendingShareKeys is OutshareKeys for pending shares.
	PendingShareKeys(parentKey []byte) ([][]byte, error)

	// PutUser / UserRows manage user rows keyed by blinded handle.
	// UserRows returns an owned snapshot of every payload.
	PutUser(key []byte, payload []byte) error
	UserRows() ([][]byte, error)

	// PutPCR / DeletePCR / PCRRows manage pending-contact-request rows.
	PutPCR(key []byte, payload []byte) error
	DeletePCR(key []byte) error
	PCRRows() ([][]byte, error)

	// PutRecord stores a generic record by dbid; Records returns an owned
	// snapshot of all generic rows in ascending id order.
	PutRecord(id uint32, payload []byte) error
	Records() ([]GenericRow, error)

	// Close releases the backend.
	Close() error
}
