package table

import (
	"fmt"

	"github.com/cloudmirror/synccache/record"
)

const (
	// IDSpacing is the dbid allocation step. Ids advance by IDSpacing per
	// record, leaving the low bits free for the kind tag, so ids never
	// collide across kinds and are strictly increasing within a kind.
	IDSpacing = 16

	// KindMask extracts the kind tag from a dbid.
	KindMask = IDSpacing - 1
)

// PutRecord stores a record on the generic id-keyed path under the given
// kind tag (1..15).
//
// A record whose serialization fails is skipped but reported as success:
// one malformed record must not abort a batch of otherwise-good writes.
func (t *Table) PutRecord(kind uint32, rec record.Cachable) error {
	if kind == 0 || kind > KindMask {
		return fmt.Errorf("%w: %d", ErrInvalidKind, kind)
	}
	if rec == nil {
		return ErrNilRecord
	}

	data, err := rec.Serialize()
	if err != nil {
		t.log.WithError(err).Debug("skipping record that failed to serialize")
		return nil
	}

	if rec.DBID() == 0 {
		t.nextID += IDSpacing
		rec.SetDBID(t.nextID | kind)
	}

	if err := t.backend.PutRecord(rec.DBID(), t.codec.EncryptPayload(data)); err != nil {
		return fmt.Errorf("table: put record: %w", err)
	}
	return nil
}

// RewindRecords resets the generic cursor to a fresh snapshot in ascending
// id order.
func (t *Table) RewindRecords() error {
	rows, err := t.backend.Records()
	if err != nil {
		return fmt.Errorf("table: rewind records: %w", err)
	}
	t.recRows, t.recPos = rows, 0
	return nil
}

// NextRecord produces the next generic record: its dbid (kind tag in the
// low bits) and decrypted payload. Exhaustion is (0, nil, false, nil).
//
// Ids observed while iterating advance the dbid counter past their
// tag-masked value, so ids assigned after a reload never collide with
// stored ones. Rows with a zero kind tag are reserved and pass through
// undecrypted.
func (t *Table) NextRecord() (uint32, []byte, bool, error) {
	if t.recPos >= len(t.recRows) {
		return 0, nil, false, nil
	}
	row := t.recRows[t.recPos]
	t.recPos++

	if row.ID&KindMask == 0 {
		return row.ID, row.Payload, true, nil
	}

	if row.ID > t.nextID {
		t.nextID = row.ID &^ KindMask
	}

	plain, err := t.codec.DecryptPayload(row.Payload)
	if err != nil {
		return 0, nil, false, fmt.Errorf("table: decrypt record %d: %w", row.ID, err)
	}
	return row.ID, plain, true, nil
}
