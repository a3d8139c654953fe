package query

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmirror/synccache/crypt"
	"github.com/cloudmirror/synccache/record"
	"github.com/cloudmirror/synccache/storage"
	"github.com/cloudmirror/synccache/table"
)

func testKeySet(seed byte) *crypt.KeySet {
	ks := &crypt.KeySet{}
	for i := range ks.Cipher {
		ks.Cipher[i] = seed
	}
	for i := range ks.Own {
		ks.Own[i] = seed + 1
	}
	for i := range ks.Parent {
		ks.Parent[i] = seed + 2
	}
	return ks
}

// tempTable builds a table with 3 file children and 2 folder children
// under parent.
func tempTable(t *testing.T, parent record.Handle) (*table.Table, *storage.BoltBackend) {
	t.Helper()

	backend, err := storage.OpenBolt(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	codec, err := crypt.NewCodec(testKeySet(0x41))
	require.NoError(t, err)
	tbl := table.New(backend, codec)

	for i := 0; i < 3; i++ {
		require.NoError(t, tbl.PutNode(&record.Node{
			Handle:      record.Handle(0x100 + i),
			Parent:      parent,
			Type:        record.TypeFile,
			Fingerprint: []byte{byte(i + 1)},
		}))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, tbl.PutNode(&record.Node{
			Handle: record.Handle(0x200 + i),
			Parent: parent,
			Type:   record.TypeFolder,
		}))
	}

	return tbl, backend
}

func TestExecuteCounts(t *testing.T) {
	parent := record.Handle(0x9000)
	tbl, _ := tempTable(t, parent)

	q := &Query{Kind: KindCountChildFiles, Handle: parent}
	q.Execute(tbl)
	assert.Equal(t, CodeOK, q.Result)
	assert.Equal(t, 3, q.Number)

	q = &Query{Kind: KindCountChildFolders, Handle: parent}
	q.Execute(tbl)
	assert.Equal(t, CodeOK, q.Result)
	assert.Equal(t, 2, q.Number)
}

func TestExecuteWithoutStore(t *testing.T) {
	q := &Query{Kind: KindCountChildFiles, Handle: 1}
	q.Execute(nil)
	assert.Equal(t, CodeNotFound, q.Result)
	assert.Zero(t, q.Number)
}

func TestExecuteUnknownKind(t *testing.T) {
	parent := record.Handle(0x9000)
	tbl, _ := tempTable(t, parent)

	q := &Query{Kind: Kind(99), Handle: parent}
	q.Execute(tbl)
	assert.Equal(t, CodeArgs, q.Result)
	assert.Zero(t, q.Number)
}

func TestExecuteReadFailure(t *testing.T) {
	parent := record.Handle(0x9000)
	tbl, backend := tempTable(t, parent)

	// Closing the backend turns every count into a read failure.
	require.NoError(t, backend.Close())

	q := &Query{Kind: KindCountChildFolders, Handle: parent}
	q.Execute(tbl)
	assert.Equal(t, CodeRead, q.Result)
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "ok", CodeOK.String())
	assert.Equal(t, "read error", CodeRead.String())
	assert.Equal(t, "unknown", Code(42).String())
}
