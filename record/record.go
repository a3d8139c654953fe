// Package record defines the domain records the cache persists: filesystem
// nodes, contact users, and pending contact requests, all addressed by
// fixed-width handles.
package record

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
)

// HandleSize is the width of a handle in bytes.
const HandleSize = 8

// Handle is the fixed-width identifier for a node, user, or pending
// contact request.
type Handle uint64

// Undef is the sentinel value for an unset handle.
const Undef = Handle(^uint64(0))

// Defined reports whether h carries a real identifier.
func (h Handle) Defined() bool { return h != Undef }

// Bytes returns the 8-byte big-endian encoding of h.
func (h Handle) Bytes() [HandleSize]byte {
	var b [HandleSize]byte
	binary.BigEndian.PutUint64(b[:], uint64(h))
	return b
}

// HandleFromBytes decodes an 8-byte big-endian handle.
func HandleFromBytes(b []byte) (Handle, error) {
	if len(b) != HandleSize {
		return Undef, fmt.Errorf("%w: got %d bytes", ErrInvalidHandleBytes, len(b))
	}
	return Handle(binary.BigEndian.Uint64(b)), nil
}

// NodeType classifies a node within the remote tree.
type NodeType int

const (
	TypeUnknown NodeType = iota
	TypeFile
	TypeFolder
)

// Node is the client's view of one entry in the remote filesystem tree.
type Node struct {
	Handle Handle
	Parent Handle
	Type   NodeType

	// Attrs is the node's opaque attribute string as received from the
	// server; the cache never interprets it.
	Attrs string

	// Fingerprint is set for file nodes only.
	Fingerprint []byte

	Outshares     bool
	Inshare       bool
	PendingShares bool
}

// Serialize encodes the node for storage.
func (n *Node) Serialize() ([]byte, error) {
	return encodeGob(n)
}

// DeserializeNode decodes a node previously produced by Serialize.
func DeserializeNode(data []byte) (*Node, error) {
	var n Node
	if err := decodeGob(data, &n); err != nil {
		return nil, fmt.Errorf("record: decode node: %w", err)
	}
	return &n, nil
}

// User is a contact record.
type User struct {
	Handle  Handle
	Email   string
	Visible bool

	// LastUpdated is a server timestamp in seconds.
	LastUpdated uint64
}

// Serialize encodes the user for storage.
func (u *User) Serialize() ([]byte, error) {
	return encodeGob(u)
}

// DeserializeUser decodes a user previously produced by Serialize.
func DeserializeUser(data []byte) (*User, error) {
	var u User
	if err := decodeGob(data, &u); err != nil {
		return nil, fmt.Errorf("record: decode user: %w", err)
	}
	return &u, nil
}

// PendingContactRequest is a contact request that has not been accepted,
// denied, or cancelled yet.
type PendingContactRequest struct {
	ID       Handle
	Email    string
	Outgoing bool

	// Timestamp is a server timestamp in seconds.
	Timestamp uint64
}

// Serialize encodes the request for storage.
func (p *PendingContactRequest) Serialize() ([]byte, error) {
	return encodeGob(p)
}

// DeserializePCR decodes a request previously produced by Serialize.
func DeserializePCR(data []byte) (*PendingContactRequest, error) {
	var p PendingContactRequest
	if err := decodeGob(data, &p); err != nil {
		return nil, fmt.Errorf("record: decode pending contact request: %w", err)
	}
	return &p, nil
}

// Cachable is any record that travels through the generic id-keyed storage
// path. A dbid of 0 means the record has not been assigned one yet.
type Cachable interface {
	DBID() uint32
	SetDBID(uint32)
	Serialize() ([]byte, error)
}

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
