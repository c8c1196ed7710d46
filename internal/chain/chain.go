// Package chain defines the Chain capability set that parameterizes
// BlockStore and StreamEngine over a specific blockchain's block schema.
// No inheritance hierarchy is used: a Chain implementation is a plain
// struct satisfying this interface, and the caller selects one at
// construction time (cmd/dna-server constructs the EVM adapter directly).
package chain

import (
	"context"
	"fmt"

	"github.com/dna-engine/dna/internal/types"
)

// ErrBlockNotFoundByHash is returned by an RPC implementation when the node
// cannot produce a block referenced by hash — e.g. a parent hash the
// Ingestor is walking back through during reorg recovery. Per the
// ingestion specification this is fatal to the ingestion pipeline: the
// operator must resync, since it means the node has pruned a block the
// engine still needs to reconcile a fork.
type ErrBlockNotFoundByHash struct {
	Hash []byte
}

func (e *ErrBlockNotFoundByHash) Error() string {
	return fmt.Sprintf("chain RPC cannot return block referenced by hash %x; resync required", e.Hash)
}

// RPC is the outbound ChainRpc capability the Ingestor depends on. Retries
// and timeouts are owned by the caller's adapter implementation, not by the
// Ingestor itself.
type RPC interface {
	// GetBlockByNumber returns the block at height n, or (nil, nil) if the
	// node does not yet know about it.
	GetBlockByNumber(ctx context.Context, n uint64) (*types.Block, error)

	// GetBlockByHash returns the block identified by hash. Returns an error
	// if the node cannot produce it — per the spec this situation is fatal
	// to the ingestion pipeline.
	GetBlockByHash(ctx context.Context, hash []byte) (*types.Block, error)

	// GetHead returns the chain's current head block.
	GetHead(ctx context.Context) (*types.Block, error)

	// GetFinalized returns the chain's current finalized (per the
	// configured finality mode) block.
	GetFinalized(ctx context.Context) (*types.Block, error)
}

// Chain is the capability set a concrete chain adapter (e.g. EVM, Starknet)
// must implement. It parameterizes BlockStore's filter-key derivation and
// StreamEngine's filter matching without either depending on a specific
// chain's wire format.
type Chain interface {
	// Name identifies the adapter, e.g. "evm".
	Name() string

	// DeriveKeys returns the set of filter keys a block contributes to the
	// BlockStore's secondary index (e.g. event from_address, topics,
	// transaction to/selector).
	DeriveKeys(block *types.Block) []types.KeyRef

	// SerializeBlock encodes a block to its durable on-disk representation.
	SerializeBlock(block *types.Block) ([]byte, error)

	// ParseBlock decodes a block from its durable on-disk representation.
	ParseBlock(data []byte) (*types.Block, error)

	// DecodeFilter parses one wire-level component filter (a kind tag plus
	// its JSON-encoded parameters, as carried by dnapb.Filter) into the
	// chain-specific value FilterKeys and Matches expect.
	DecodeFilter(kind string, params []byte) (any, error)

	// FilterKeys returns the set of keys a Filter requires BlockStore to
	// look up — the "what bitmaps do I need to intersect" half of matching.
	// Filter is an any because its concrete shape is chain-specific; the
	// EVM adapter asserts it to *evm.Filter.
	FilterKeys(filter any) ([]types.KeyRef, error)

	// Matches reports whether block satisfies filter, and if so, the
	// projected (possibly narrowed, per "include related data" flags) block
	// data to deliver to the client.
	Matches(filter any, block *types.Block) (matched bool, projected any, err error)
}
