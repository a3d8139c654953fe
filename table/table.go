// Package table implements the encrypted record store: durable CRUD and
// aggregate queries for nodes, users, and pending contact requests on top
// of a raw storage backend, with the record codec applied transparently.
// The backing store only ever sees blinded keys and encrypted payloads.
package table

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/cloudmirror/synccache/crypt"
	"github.com/cloudmirror/synccache/record"
	"github.com/cloudmirror/synccache/storage"
)

// Table is the encrypted record store façade. Synchronous CRUD is owned by
// a single goroutine; the async query path serializes aggregate reads onto
// the worker goroutine, so the table itself carries no locks.
type Table struct {
	backend storage.Backend
	codec   *crypt.Codec
	log     *log.Entry

	// nextID is the generic dbid counter, reseeded from ids observed
	// while iterating existing records.
	nextID uint32

	// cursor snapshots for the user / PCR / generic iteration protocols.
	userRows [][]byte
	userPos  int
	pcrRows  [][]byte
	pcrPos   int
	recRows  []storage.GenericRow
	recPos   int
}

// New creates a table over a backend and codec. Each table gets a session
// id on its log entry so concurrent sessions are distinguishable.
func New(backend storage.Backend, codec *crypt.Codec) *Table {
	return newWithLogger(backend, codec, log.StandardLogger())
}

func newWithLogger(backend storage.Backend, codec *crypt.Codec, logger *log.Logger) *Table {
	return &Table{
		backend: backend,
		codec:   codec,
		log: logger.WithFields(log.Fields{
			"component": "table",
			"session":   uuid.NewString(),
		}),
	}
}

// Close releases the backend.
func (t *Table) Close() error { return t.backend.Close() }

// PutRootHandles stores the three well-known root handles. Roots bypass
// the id-keyed path: each is text-encoded, encrypted, and written to its
// own slot. Fails on the first slot that cannot be written.
func (t *Table) PutRootHandles(roots [3]record.Handle) error {
	for i, h := range roots {
		blob := t.codec.EncodeRootHandle(h)
		if err := t.backend.PutRoot(storage.SlotRootMin+i, blob); err != nil {
			return fmt.Errorf("table: put root handle %d: %w", i, err)
		}
	}
	return nil
}

// RootHandles loads the three root handles. A decode failure on any slot
// fails the whole call; the returned handles are then all record.Undef.
func (t *Table) RootHandles() ([3]record.Handle, error) {
	roots := [3]record.Handle{record.Undef, record.Undef, record.Undef}

	for i := range roots {
		blob, err := t.backend.GetRoot(storage.SlotRootMin + i)
		if err != nil {
			return [3]record.Handle{record.Undef, record.Undef, record.Undef},
				fmt.Errorf("table: get root handle %d: %w", i, err)
		}
		h, err := t.codec.DecodeRootHandle(blob)
		if err != nil {
			return [3]record.Handle{record.Undef, record.Undef, record.Undef},
				fmt.Errorf("table: decode root handle %d: %w", i, err)
		}
		roots[i] = h
	}

	return roots, nil
}

// PutSequence stores the sync sequence token in its reserved slot,
// encrypted like any payload.
func (t *Table) PutSequence(seq []byte) error {
	if err := t.backend.PutRoot(storage.SlotSequence, t.codec.EncryptPayload(seq)); err != nil {
		return fmt.Errorf("table: put sequence: %w", err)
	}
	return nil
}

// Sequence loads the sync sequence token.
func (t *Table) Sequence() ([]byte, error) {
	blob, err := t.backend.GetRoot(storage.SlotSequence)
	if err != nil {
		return nil, fmt.Errorf("table: get sequence: %w", err)
	}
	seq, err := t.codec.DecryptPayload(blob)
	if err != nil {
		return nil, fmt.Errorf("table: decrypt sequence: %w", err)
	}
	return seq, nil
}

// PutNode stores or replaces a node. The payload is serialized and
// encrypted, both handles are blinded, and file fingerprints are encrypted
// separately so they can serve as lookup keys.
func (t *Table) PutNode(n *record.Node) error {
	if n == nil {
		return ErrNilRecord
	}

	data, err := n.Serialize()
	if err != nil {
		return fmt.Errorf("table: serialize node: %w", err)
	}

	var fp []byte
	if n.Type == record.TypeFile && len(n.Fingerprint) > 0 {
		fp = t.codec.EncryptPayload(n.Fingerprint)
	}

	share, err := record.ClassifyShare(n.Outshares, n.Inshare, n.PendingShares)
	if errors.Is(err, record.ErrShareConflict) {
		t.log.WithField("handle", n.Handle).Warn("node flagged as both inshare and pending share; classifying as inshare")
	}

	row := &storage.NodeRow{
		ParentKey:   t.codec.Blind(n.Parent, crypt.KeyParent),
		Fingerprint: fp,
		Attrs:       n.Attrs,
		Type:        n.Type,
		Share:       share,
		Payload:     t.codec.EncryptPayload(data),
	}

	if err := t.backend.PutNode(t.codec.Blind(n.Handle, crypt.KeyOwn), row); err != nil {
		t.log.WithError(err).WithField("handle", n.Handle).Error("error recording node")
		return fmt.Errorf("table: put node: %w", err)
	}
	return nil
}

// NodeByHandle fetches and decrypts a node by its handle.
func (t *Table) NodeByHandle(h record.Handle) (*record.Node, error) {
	payload, err := t.backend.NodeByKey(t.codec.Blind(h, crypt.KeyOwn))
	if err != nil {
		return nil, fmt.Errorf("table: get node: %w", err)
	}
	return t.decodeNode(payload)
}

// NodeByFingerprint fetches and decrypts a node by its file fingerprint.
// The fingerprint is encrypted to form the lookup key, relying on the
// cipher being deterministic.
func (t *Table) NodeByFingerprint(fp []byte) (*record.Node, error) {
	payload, err := t.backend.NodeByFingerprint(t.codec.EncryptPayload(fp))
	if err != nil {
		return nil, fmt.Errorf("table: get node by fingerprint: %w", err)
	}
	return t.decodeNode(payload)
}

func (t *Table) decodeNode(payload []byte) (*record.Node, error) {
	plain, err := t.codec.DecryptPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("table: decrypt node: %w", err)
	}
	return record.DeserializeNode(plain)
}

// DeleteNode removes a node by handle.
func (t *Table) DeleteNode(h record.Handle) error {
	if err := t.backend.DeleteNode(t.codec.Blind(h, crypt.KeyOwn)); err != nil {
		return fmt.Errorf("table: delete node: %w", err)
	}
	return nil
}

// PutUser stores or replaces a user record.
//
// A user with an undefined handle is a placeholder for a share target that
// is not a contact yet; it must not be persisted, and skipping it is a
// success, not an error.
func (t *Table) PutUser(u *record.User) error {
	if u == nil {
		return ErrNilRecord
	}
	if !u.Handle.Defined() {
		t.log.Debug("skipping the recording of a non-existing user")
		return nil
	}

	data, err := u.Serialize()
	if err != nil {
		return fmt.Errorf("table: serialize user: %w", err)
	}

	key := t.codec.Blind(u.Handle, crypt.KeyOwn)
	if err := t.backend.PutUser(key, t.codec.EncryptPayload(data)); err != nil {
		return fmt.Errorf("table: put user: %w", err)
	}
	return nil
}

// PutPCR stores or replaces a pending contact request.
func (t *Table) PutPCR(p *record.PendingContactRequest) error {
	if p == nil {
		return ErrNilRecord
	}

	data, err := p.Serialize()
	if err != nil {
		return fmt.Errorf("table: serialize pending contact request: %w", err)
	}

	key := t.codec.Blind(p.ID, crypt.KeyOwn)
	if err := t.backend.PutPCR(key, t.codec.EncryptPayload(data)); err != nil {
		return fmt.Errorf("table: put pending contact request: %w", err)
	}
	return nil
}

// DeletePCR removes a pending contact request by id.
func (t *Table) DeletePCR(id record.Handle) error {
	if err := t.backend.DeletePCR(t.codec.Blind(id, crypt.KeyOwn)); err != nil {
		return fmt.Errorf("table: delete pending contact request: %w", err)
	}
	return nil
}

// RewindUsers resets the user cursor to a fresh snapshot.
func (t *Table) RewindUsers() error {
	rows, err := t.backend.UserRows()
	if err != nil {
		return fmt.Errorf("table: rewind users: %w", err)
	}
	t.userRows, t.userPos = rows, 0
	return nil
}

// NextUser produces the next user from the cursor. Exhaustion is
// (nil, false, nil), distinct from an error.
func (t *Table) NextUser() (*record.User, bool, error) {
	if t.userPos >= len(t.userRows) {
		return nil, false, nil
	}
	payload := t.userRows[t.userPos]
	t.userPos++

	plain, err := t.codec.DecryptPayload(payload)
	if err != nil {
		return nil, false, fmt.Errorf("table: decrypt user: %w", err)
	}
	u, err := record.DeserializeUser(plain)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// RewindPCRs resets the pending-contact-request cursor to a fresh snapshot.
func (t *Table) RewindPCRs() error {
	rows, err := t.backend.PCRRows()
	if err != nil {
		return fmt.Errorf("table: rewind pending contact requests: %w", err)
	}
	t.pcrRows, t.pcrPos = rows, 0
	return nil
}

// NextPCR produces the next pending contact request from the cursor.
// Exhaustion is (nil, false, nil), distinct from an error.
func (t *Table) NextPCR() (*record.PendingContactRequest, bool, error) {
	if t.pcrPos >= len(t.pcrRows) {
		return nil, false, nil
	}
	payload := t.pcrRows[t.pcrPos]
	t.pcrPos++

	plain, err := t.codec.DecryptPayload(payload)
	if err != nil {
		return nil, false, fmt.Errorf("table: decrypt pending contact request: %w", err)
	}
	p, err := record.DeserializePCR(plain)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// CountChildFiles counts the file children of a parent.
func (t *Table) CountChildFiles(parent record.Handle) (int, error) {
	n, err := t.backend.CountChildren(t.codec.Blind(parent, crypt.KeyParent), record.TypeFile)
	if err != nil {
		return 0, fmt.Errorf("table: count child files: %w", err)
	}
	return n, nil
}

// CountChildFolders counts the folder children of a parent.
func (t *Table) CountChildFolders(parent record.Handle) (int, error) {
	n, err := t.backend.CountChildren(t.codec.Blind(parent, crypt.KeyParent), record.TypeFolder)
	if err != nil {
		return 0, fmt.Errorf("table: count child folders: %w", err)
	}
	return n, nil
}

// CountChildren counts the file and folder children of a parent.
func (t *Table) CountChildren(parent record.Handle) (files, folders int, err error) {
	if files, err = t.CountChildFiles(parent); err != nil {
		return 0, 0, err
	}
	if folders, err = t.CountChildFolders(parent); err != nil {
		return 0, 0, err
	}
	return files, folders, nil
}

// ChildHandles lists the handles of a parent's children. The returned
// slice is owned by the caller.
func (t *Table) ChildHandles(parent record.Handle) ([]record.Handle, error) {
	keys, err := t.backend.ChildKeys(t.codec.Blind(parent, crypt.KeyParent))
	if err != nil {
		return nil, fmt.Errorf("table: list child handles: %w", err)
	}
	return t.unblindAll(keys)
}

// AllNodeHandles lists the handles of every cached node.
func (t *Table) AllNodeHandles() ([]record.Handle, error) {
	keys, err := t.backend.AllNodeKeys()
	if err != nil {
		return nil, fmt.Errorf("table: list node handles: %w", err)
	}
	return t.unblindAll(keys)
}

// OutshareHandles lists the handles of nodes with outshares. A defined
// parent scopes the listing to that parent's children; record.Undef lists
// all of them.
func (t *Table) OutshareHandles(parent record.Handle) ([]record.Handle, error) {
	keys, err := t.backend.OutshareKeys(t.scopeKey(parent))
	if err != nil {
		return nil, fmt.Errorf("table: list outshare handles: %w", err)
	}
	return t.unblindAll(keys)
}

// PendingShareHandles lists the handles of nodes with pending shares,
// scoped like OutshareHandles.
func (t *Table) PendingShareHandles(parent record.Handle) ([]record.Handle, error) {
	keys, err := t.backend.PendingShareKeys(t.scopeKey(parent))
	if err != nil {
		return nil, fmt.Errorf("table: list pending share handles: %w", err)
	}
	return t.unblindAll(keys)
}

func (t *Table) scopeKey(parent record.Handle) []byte {
	if !parent.Defined() {
		return nil
	}
	return t.codec.Blind(parent, crypt.KeyParent)
}

func (t *Table) unblindAll(keys [][]byte) ([]record.Handle, error) {
	handles := make([]record.Handle, 0, len(keys))
	for _, k := range keys {
		h, err := t.codec.Unblind(k, crypt.KeyOwn)
		if err != nil {
			return nil, fmt.Errorf("table: unblind handle: %w", err)
		}
		handles = append(handles, h)
	}
	return handles, nil
}
