package ingestor

import (
	"github.com/dna-engine/dna/internal/types"
	"github.com/dna-engine/dna/internal/view"
)

// ViewSnapshot is the narrow, concurrency-safe read capability a
// StreamEngine needs once, at Handshake: resolve a resume cursor and learn
// the current head/finalized watermarks. This is the one exception to
// spec §5's "StreamEngines read a snapshot via the event carried in each
// IngestionEvent" rule — a brand-new stream has no prior event to carry
// that context, so it must consult the view directly before it can start
// following the bus.
type ViewSnapshot interface {
	Head() uint64
	Finalized() uint64
	Connect(cur types.Cursor) view.ConnectOutcome
}

// Head returns the current head height, synchronized against the state
// machine's tick.
func (ig *Ingestor) Head() uint64 {
	ig.viewMu.RLock()
	defer ig.viewMu.RUnlock()
	return ig.view.Head()
}

// Finalized returns the current finalized height, synchronized against the
// state machine's tick.
func (ig *Ingestor) Finalized() uint64 {
	ig.viewMu.RLock()
	defer ig.viewMu.RUnlock()
	return ig.view.Finalized()
}

// Connect resolves cur against the current view, synchronized against the
// state machine's tick.
func (ig *Ingestor) Connect(cur types.Cursor) view.ConnectOutcome {
	ig.viewMu.RLock()
	defer ig.viewMu.RUnlock()
	return ig.view.Connect(cur)
}

// Canonical reports the canonical hash at height n, synchronized against
// the state machine's tick. Exposed as the CanonicalLookup closure shape
// internal/blockstore.Scan/Retain expect.
func (ig *Ingestor) Canonical(n uint64) ([]byte, bool) {
	ig.viewMu.RLock()
	defer ig.viewMu.RUnlock()
	return ig.view.Canonical(n)
}

var _ ViewSnapshot = (*Ingestor)(nil)
