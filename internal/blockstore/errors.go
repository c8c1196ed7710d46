package blockstore

import "errors"

// ErrNotFound is returned by Get when no block has ever been recorded at the
// requested cursor.
var ErrNotFound = errors.New("blockstore: block not found")

// ErrOutOfRange is returned by Scan when its lower bound falls below the
// retention floor established by the last Retain call: orphaned blocks in
// that span may already have been discarded, so the scan cannot promise a
// complete candidate set.
var ErrOutOfRange = errors.New("blockstore: scan range below retention floor")
