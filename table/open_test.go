package table

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmirror/synccache/config"
	"github.com/cloudmirror/synccache/record"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DataDir:      t.TempDir(),
		DBFile:       "cache.db",
		LogLevel:     "error",
		WakeInterval: 10 * time.Millisecond,
	}
}

func TestOpenPersistsAcrossSessions(t *testing.T) {
	cfg := testConfig(t)

	tbl, err := Open(cfg, "hunter2")
	require.NoError(t, err)

	roots := [3]record.Handle{0x111, 0x222, 0x333}
	require.NoError(t, tbl.PutRootHandles(roots))
	require.NoError(t, tbl.PutNode(folderNode(0x42, 0x111)))
	require.NoError(t, tbl.Close())

	// Same password, same salt file: the second session reads everything
	// the first one wrote.
	tbl, err = Open(cfg, "hunter2")
	require.NoError(t, err)
	defer tbl.Close()

	got, err := tbl.RootHandles()
	require.NoError(t, err)
	assert.Equal(t, roots, got)

	n, err := tbl.NodeByHandle(0x42)
	require.NoError(t, err)
	assert.Equal(t, record.Handle(0x111), n.Parent)
}

func TestOpenWrongPassword(t *testing.T) {
	cfg := testConfig(t)

	tbl, err := Open(cfg, "hunter2")
	require.NoError(t, err)
	require.NoError(t, tbl.PutRootHandles([3]record.Handle{1, 2, 3}))
	require.NoError(t, tbl.Close())

	tbl, err = Open(cfg, "wrong")
	require.NoError(t, err)
	defer tbl.Close()

	// The blobs are there but must not decode under the wrong key.
	got, err := tbl.RootHandles()
	assert.Error(t, err)
	for _, h := range got {
		assert.False(t, h.Defined())
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.LogLevel = "verbose"

	_, err := Open(cfg, "pw")
	assert.ErrorIs(t, err, config.ErrInvalidLogLevel)
}

func TestOpenRejectsCorruptSalt(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, "salt"), []byte("short"), 0600))

	_, err := Open(cfg, "pw")
	assert.Error(t, err)
}
