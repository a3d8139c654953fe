package crypt

import (
	"github.com/cloudmirror/synccache/record"
)

// HandleKeyLen is the blinding key length, matching the handle width.
const HandleKeyLen = record.HandleSize

// KeyRole selects which blinding key masks a handle. Own-handle and
// parent-handle fields use distinct keys so the two columns cannot be
// joined against each other in the raw store.
type KeyRole int

const (
	// KeyOwn blinds a record's own handle.
	KeyOwn KeyRole = iota

	// KeyParent blinds a node's parent handle.
	KeyParent
)

// Blinder XOR-masks handles into storage lookup keys. For a fixed key the
// mapping is a bijection, so equality lookups and joins still work on the
// blinded values.
type Blinder struct {
	own    [HandleKeyLen]byte
	parent [HandleKeyLen]byte
}

// NewBlinder creates a blinder from the two 8-byte blinding keys.
func NewBlinder(own, parent []byte) (*Blinder, error) {
	if len(own) != HandleKeyLen || len(parent) != HandleKeyLen {
		return nil, ErrInvalidBlindKeyLen
	}

	b := &Blinder{}
	copy(b.own[:], own)
	copy(b.parent[:], parent)
	return b, nil
}

// Blind masks h with the key selected by role.
func (b *Blinder) Blind(h record.Handle, role KeyRole) []byte {
	raw := h.Bytes()
	key := b.key(role)

	out := make([]byte, HandleKeyLen)
	for i := range out {
		out[i] = raw[i] ^ key[i]
	}
	return out
}

// Unblind recovers the handle from a blinded key produced with the same role.
func (b *Blinder) Unblind(blinded []byte, role KeyRole) (record.Handle, error) {
	if len(blinded) != HandleKeyLen {
		return record.Undef, ErrInvalidBlindKeyLen
	}

	key := b.key(role)
	raw := make([]byte, HandleKeyLen)
	for i := range raw {
		raw[i] = blinded[i] ^ key[i]
	}
	return record.HandleFromBytes(raw)
}

func (b *Blinder) key(role KeyRole) *[HandleKeyLen]byte {
	if role == KeyParent {
		return &b.parent
	}
	return &b.own
}
