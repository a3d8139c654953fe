package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyShare(t *testing.T) {
	tests := []struct {
		name               string
		outshares, inshare bool
		pending            bool
		want               ShareState
	}{
		{"none", false, false, false, ShareNone},
		{"outshares only", true, false, false, ShareOut},
		{"inshare only", false, true, false, ShareIn},
		{"pending only", false, false, true, SharePending},
		{"outshares and pending", true, false, true, ShareOutPending},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ClassifyShare(tc.outshares, tc.inshare, tc.pending)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyShareConflict(t *testing.T) {
	// Inshare plus pending share is forbidden by the server contract;
	// the inshare wins and the conflict is reported.
	got, err := ClassifyShare(false, true, true)
	assert.ErrorIs(t, err, ErrShareConflict)
	assert.Equal(t, ShareIn, got)

	got, err = ClassifyShare(true, true, true)
	assert.ErrorIs(t, err, ErrShareConflict)
	assert.Equal(t, ShareIn, got)
}

func TestShareStateFlags(t *testing.T) {
	assert.True(t, ShareOut.HasOutshares())
	assert.True(t, ShareOutPending.HasOutshares())
	assert.False(t, ShareIn.HasOutshares())

	assert.True(t, SharePending.HasPendingShares())
	assert.True(t, ShareOutPending.HasPendingShares())
	assert.False(t, ShareOut.HasPendingShares())
}
