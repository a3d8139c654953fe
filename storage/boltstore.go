package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/cloudmirror/synccache/record"
)

var (
	bucketRoots        = []byte("roots")
	bucketNodes        = []byte("nodes")
	bucketFingerprints = []byte("fingerprints")
	bucketUsers        = []byte("users")
	bucketPCRs         = []byte("pcrs")
	bucketRecords      = []byte("records")
)

// BoltBackend implements Backend on top of a bbolt database.
type BoltBackend struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Backend = (*BoltBackend)(nil)

// OpenBolt opens or creates the bbolt database at dbPath. The parent
// directory is created if it does not exist.
func OpenBolt(dbPath string) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{
			bucketRoots, bucketNodes, bucketFingerprints,
			bucketUsers, bucketPCRs, bucketRecords,
		}
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("storage: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltBackend{db: db}, nil
}

// Close closes the underlying database.
func (b *BoltBackend) Close() error { return b.db.Close() }

// slotKey encodes a root slot as a single-byte key.
func slotKey(slot int) []byte { return []byte{byte(slot)} }

// idKey encodes a generic record id as a 4-byte big-endian key so the
// records bucket iterates in ascending id order.
func idKey(id uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, id)
	return k
}

func checkKey(key []byte) error {
	if len(key) != KeyLen {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(key))
	}
	return nil
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

// PutRoot stores a standalone blob in a root slot.
func (b *BoltBackend) PutRoot(slot int, blob []byte) error {
	if slot < SlotSequence || slot > SlotRootMax {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketRoots).Put(slotKey(slot), blob); err != nil {
			return fmt.Errorf("storage: put root slot %d: %w", slot, err)
		}
		return nil
	})
}

// GetRoot fetches the blob stored in a root slot.
func (b *BoltBackend) GetRoot(slot int) ([]byte, error) {
	if slot < SlotSequence || slot > SlotRootMax {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	var blob []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketRoots).Get(slotKey(slot))
		if v == nil {
			return fmt.Errorf("%w: root slot %d", ErrNotFound, slot)
		}
		blob = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// PutNode stores or replaces a node row and maintains the fingerprint index.
func (b *BoltBackend) PutNode(key []byte, row *NodeRow) error {
	if row == nil {
		return fmt.Errorf("%w: node row", ErrNilParam)
	}
	if err := checkKey(key); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		nodes := tx.Bucket(bucketNodes)
		fps := tx.Bucket(bucketFingerprints)

		// Drop the old fingerprint index entry when replacing a row.
		if old := nodes.Get(key); old != nil {
			var prev NodeRow
			if err := decodeGob(old, &prev); err == nil && len(prev.Fingerprint) > 0 {
				if err := fps.Delete(prev.Fingerprint); err != nil {
					return fmt.Errorf("storage: drop stale fingerprint: %w", err)
				}
			}
		}

		data, err := encodeGob(row)
		if err != nil {
			return fmt.Errorf("storage: encode node row: %w", err)
		}
		if err := nodes.Put(key, data); err != nil {
			return fmt.Errorf("storage: put node: %w", err)
		}
		if len(row.Fingerprint) > 0 {
			if err := fps.Put(row.Fingerprint, key); err != nil {
				return fmt.Errorf("storage: put fingerprint index: %w", err)
			}
		}
		return nil
	})
}

// NodeByKey fetches a node's encrypted payload by blinded handle.
func (b *BoltBackend) NodeByKey(key []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	var payload []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketNodes).Get(key)
		if data == nil {
			return fmt.Errorf("%w: node", ErrNotFound)
		}
		var row NodeRow
		if err := decodeGob(data, &row); err != nil {
			return fmt.Errorf("storage: decode node row: %w", err)
		}
		payload = row.Payload
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// NodeByFingerprint fetches a node's encrypted payload via the fingerprint
// index.
func (b *BoltBackend) NodeByFingerprint(fp []byte) ([]byte, error) {
	if len(fp) == 0 {
		return nil, fmt.Errorf("%w: fingerprint", ErrNilParam)
	}

	var payload []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket(bucketFingerprints).Get(fp)
		if key == nil {
			return fmt.Errorf("%w: fingerprint", ErrNotFound)
		}
		data := tx.Bucket(bucketNodes).Get(key)
		if data == nil {
			return fmt.Errorf("%w: node for fingerprint", ErrNotFound)
		}
		var row NodeRow
		if err := decodeGob(data, &row); err != nil {
			return fmt.Errorf("storage: decode node row: %w", err)
		}
		payload = row.Payload
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// DeleteNode removes a node row and its fingerprint index entry. Deleting
// an absent row is not an error.
func (b *BoltBackend) DeleteNode(key []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		nodes := tx.Bucket(bucketNodes)
		data := nodes.Get(key)
		if data == nil {
			return nil
		}

		var row NodeRow
		if err := decodeGob(data, &row); err == nil && len(row.Fingerprint) > 0 {
			if err := tx.Bucket(bucketFingerprints).Delete(row.Fingerprint); err != nil {
				return fmt.Errorf("storage: delete fingerprint index: %w", err)
			}
		}
		if err := nodes.Delete(key); err != nil {
			return fmt.Errorf("storage: delete node: %w", err)
		}
		return nil
	})
}

// CountChildren counts node rows under parentKey restricted to one type.
func (b *BoltBackend) CountChildren(parentKey []byte, typ record.NodeType) (int, error) {
	if err := checkKey(parentKey); err != nil {
		return 0, err
	}

	count := 0
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketNodes).ForEach(func(k, v []byte) error {
			var row NodeRow
			if err := decodeGob(v, &row); err != nil {
				return fmt.Errorf("storage: decode node row: %w", err)
			}
			if row.Type == typ && bytes.Equal(row.ParentKey, parentKey) {
				count++
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// nodeKeys lists the keys of node rows matching the filter.
func (b *BoltBackend) nodeKeys(match func(*NodeRow) bool) ([][]byte, error) {
	var keys [][]byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketNodes).ForEach(func(k, v []byte) error {
			var row NodeRow
			if err := decodeGob(v, &row); err != nil {
				return fmt.Errorf("storage: decode node row: %w", err)
			}
			if match(&row) {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// ChildKeys lists the keys of node rows whose parent key matches.
func (b *BoltBackend) ChildKeys(parentKey []byte) ([][]byte, error) {
	if err := checkKey(parentKey); err != nil {
		return nil, err
	}
	return b.nodeKeys(func(row *NodeRow) bool {
		return bytes.Equal(row.ParentKey, parentKey)
	})
}

// AllNodeKeys lists every node row's key.
func (b *BoltBackend) AllNodeKeys() ([][]byte, error) {
	return b.nodeKeys(func(*NodeRow) bool { return true })
}

// OutshareKeys lists keys of rows with outshares, optionally scoped to
// children of parentKey.
func (b *BoltBackend) OutshareKeys(parentKey []byte) ([][]byte, error) {
	return b.shareKeys(parentKey, record.ShareState.HasOutshares)
}

// PendingShareKeys lists keys of rows with pending shares, optionally
// scoped to children of parentKey.
func (b *BoltBackend) PendingShareKeys(parentKey []byte) ([][]byte, error) {
	return b.shareKeys(parentKey, record.ShareState.HasPendingShares)
}

func (b *BoltBackend) shareKeys(parentKey []byte, has func(record.ShareState) bool) ([][]byte, error) {
	if parentKey != nil {
		if err := checkKey(parentKey); err != nil {
			return nil, err
		}
	}
	return b.nodeKeys(func(row *NodeRow) bool {
		if !has(row.Share) {
			return false
		}
		return parentKey == nil || bytes.Equal(row.ParentKey, parentKey)
	})
}

// PutUser stores or replaces a user row.
func (b *BoltBackend) PutUser(key []byte, payload []byte) error {
	return b.putKeyed(bucketUsers, key, payload)
}

// UserRows returns a snapshot of every user payload.
func (b *BoltBackend) UserRows() ([][]byte, error) {
	return b.keyedRows(bucketUsers)
}

// PutPCR stores or replaces a pending-contact-request row.
func (b *BoltBackend) PutPCR(key []byte, payload []byte) error {
	return b.putKeyed(bucketPCRs, key, payload)
}

// DeletePCR removes a pending-contact-request row.
func (b *BoltBackend) DeletePCR(key []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketPCRs).Delete(key); err != nil {
			return fmt.Errorf("storage: delete pcr: %w", err)
		}
		return nil
	})
}

// PCRRows returns a snapshot of every pending-contact-request payload.
func (b *BoltBackend) PCRRows() ([][]byte, error) {
	return b.keyedRows(bucketPCRs)
}

func (b *BoltBackend) putKeyed(bucket, key, payload []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucket).Put(key, payload); err != nil {
			return fmt.Errorf("storage: put %s row: %w", bucket, err)
		}
		return nil
	})
}

func (b *BoltBackend) keyedRows(bucket []byte) ([][]byte, error) {
	var rows [][]byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			rows = append(rows, append([]byte(nil), v...))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// PutRecord stores a generic record by dbid.
func (b *BoltBackend) PutRecord(id uint32, payload []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketRecords).Put(idKey(id), payload); err != nil {
			return fmt.Errorf("storage: put record %d: %w", id, err)
		}
		return nil
	})
}

// Records returns a snapshot of all generic rows in ascending id order.
func (b *BoltBackend) Records() ([]GenericRow, error) {
	var rows []GenericRow
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			rows = append(rows, GenericRow{
				ID:      binary.BigEndian.Uint32(k),
				Payload: append([]byte(nil), v...),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
