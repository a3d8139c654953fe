package record

// ShareState encodes a node's share status as a single integer column so
// share listings can be answered without decrypting payloads.
type ShareState int

const (
	// ShareNone means the node participates in no share.
	ShareNone ShareState = 0

	// ShareOut means the node has outgoing shares.
	ShareOut ShareState = 1

	// ShareIn means the node is an incoming share.
	ShareIn ShareState = 2

	// SharePending means the node has pending outgoing shares.
	SharePending ShareState = 3

	// ShareOutPending means the node has outgoing and pending shares at
	// the same time.
	ShareOutPending ShareState = 4
)

// ClassifyShare maps a node's share flags to its ShareState.
//
// An incoming share cannot also be a pending share; if both flags are set
// the incoming share wins and ErrShareConflict is returned alongside it so
// the caller can log the inconsistency. No value outside 0..4 is ever
// produced.
func ClassifyShare(outshares, inshare, pending bool) (ShareState, error) {
	if inshare {
		if pending {
			return ShareIn, ErrShareConflict
		}
		return ShareIn, nil
	}

	switch {
	case outshares && pending:
		return ShareOutPending, nil
	case pending:
		return SharePending, nil
	case outshares:
		return ShareOut, nil
	}

	return ShareNone, nil
}

// HasOutshares reports whether s includes outgoing shares.
func (s ShareState) HasOutshares() bool {
	return s == ShareOut || s == ShareOutPending
}

// HasPendingShares reports whether s includes pending shares.
func (s ShareState) HasPendingShares() bool {
	return s == SharePending || s == ShareOutPending
}
