// Package stream implements the per-client StreamEngine described in the
// ingestion specification's §4.4: a state machine that turns a
// (filter, cursor) pair into an ordered StreamDataResponse sequence,
// starting from historical BlockStore data and handing off to the live
// IngestionBus once caught up.
package stream

import (
	"context"

	"github.com/dna-engine/dna/internal/blockstore"
	"github.com/dna-engine/dna/internal/bus"
	"github.com/dna-engine/dna/internal/types"
	"github.com/dna-engine/dna/internal/view"
)

// BlockStore is the narrow read capability a StreamEngine depends on. The
// full primary/secondary-index implementation lives in internal/blockstore;
// this interface keeps internal/stream testable independent of SQLite.
type BlockStore interface {
	Get(ctx context.Context, cursor types.Cursor) (*types.Block, error)
	Scan(ctx context.Context, keys []types.KeyRef, from, to uint64, canonical blockstore.CanonicalLookup) ([]types.Cursor, error)
}

// Bus is the narrow subscribe capability a StreamEngine depends on. The
// full broadcast/lag-detection implementation lives in internal/bus.
type Bus interface {
	Subscribe() *bus.Subscription
}

// ViewSnapshot is the narrow, concurrency-safe read capability a
// StreamEngine needs at Handshake: resolve a resume cursor and learn the
// current head/finalized watermarks. *internal/ingestor.Ingestor satisfies
// this structurally; internal/stream never imports internal/ingestor
// directly, only the internal/view types its methods return.
type ViewSnapshot interface {
	Head() uint64
	Finalized() uint64
	Connect(cur types.Cursor) view.ConnectOutcome
	Canonical(n uint64) (hash []byte, ok bool)
}
