package ingestor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dna-engine/dna/internal/chain"
	"github.com/dna-engine/dna/internal/logger"
	"github.com/dna-engine/dna/internal/metrics"
	"github.com/dna-engine/dna/internal/types"
	"github.com/dna-engine/dna/internal/view"
	"github.com/dna-engine/dna/pkg/config"
)

// BlockStore is the narrow persistence capability the Ingestor depends on.
// The full primary/secondary-index store lives in internal/blockstore; this
// interface keeps internal/ingestor buildable and testable independent of
// that package's storage details.
type BlockStore interface {
	Put(ctx context.Context, block *types.Block) error
}

// Bus is the narrow publish capability the Ingestor depends on. The full
// broadcast/lag-detection implementation lives in internal/bus.
type Bus interface {
	Publish(ctx context.Context, event types.IngestionEvent) error
}

// Ingestor drives the five-state reorg-detection state machine described in
// the ingestion specification's state-machine section: Init, Ingest,
// ForceHeadRefresh, FetchParentAndRecover, Recover.
type Ingestor struct {
	chainName string
	rpc       chain.RPC
	store     BlockStore
	bus       Bus
	ckpt      *CheckpointStore
	log       *logger.Logger

	cfg config.IngestorConfig

	// viewMu guards view against the one legitimate concurrent reader per
	// spec §5's "no shared-view reads" rule: a StreamEngine's Handshake,
	// which must resolve a resume cursor via Connect before it starts
	// consuming the bus. tick holds it for its entire body, since the
	// state machine itself is already strictly sequential within Run's
	// single goroutine; the lock only ever contends against ViewSnapshot
	// accessors called from other goroutines.
	viewMu sync.RWMutex
	view   *view.View
	state  State
	seq    uint64

	// pendingParent is the block awaiting chain-back confirmation while in
	// FetchParentAndRecover / Recover.
	pendingParent *types.Block
}

// NewIngestor constructs an Ingestor. The view is seeded from a persisted
// checkpoint if one exists, otherwise from the chain's current finalized
// block (see seedView in checkpoint.go).
func NewIngestor(ctx context.Context, chainName string, rpc chain.RPC, store BlockStore, bus Bus, ckpt *CheckpointStore, cfg config.IngestorConfig, log *logger.Logger) (*Ingestor, error) {
	existing, err := ckpt.Load()
	if err != nil {
		return nil, err
	}

	finalizedBlock, err := rpc.GetFinalized(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingestor: fetch initial finalized block: %w", err)
	}
	if finalizedBlock == nil {
		return nil, errors.New("ingestor: chain RPC has no finalized block yet")
	}

	seed := seedView(existing, finalizedBlock)

	return &Ingestor{
		chainName: chainName,
		rpc:       rpc,
		store:     store,
		bus:       bus,
		ckpt:      ckpt,
		cfg:       cfg,
		view:      view.New(seed),
		state:     Init,
		log:       log.WithComponent("ingestor"),
	}, nil
}

// Run drives the state machine until ctx is cancelled. Transient RPC errors
// are logged and retried on the next tick rather than returned — per the
// spec's failure semantics, the state machine never transitions on a
// transient failure. Only the fatal error kinds (ErrReorgDepthExceeded,
// ErrBlockNotFoundByHash) stop the loop.
func (ig *Ingestor) Run(ctx context.Context) error {
	interval := time.Duration(ig.cfg.HeadRefreshIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := ig.tick(ctx); err != nil {
			var depthErr *ErrReorgDepthExceeded
			var notFoundErr *chain.ErrBlockNotFoundByHash
			if errors.As(err, &depthErr) || errors.As(err, &notFoundErr) {
				return err
			}
			ig.log.Errorf("transient ingestion error, will retry: %v", err)
		}
	}
}

func (ig *Ingestor) setState(s State) {
	ig.state = s
	metrics.IngestorStateSet(ig.chainName, s.String())
}

// tick advances the state machine by one step according to the current
// state.
func (ig *Ingestor) tick(ctx context.Context) error {
	ig.viewMu.Lock()
	defer ig.viewMu.Unlock()

	switch ig.state {
	case Init:
		return ig.init(ctx)
	case Ingest:
		return ig.ingest(ctx)
	case ForceHeadRefresh:
		return ig.forceHeadRefresh(ctx)
	case FetchParentAndRecover:
		return ig.fetchParentAndRecover(ctx)
	case Recover:
		return ig.recover(ctx)
	default:
		return fmt.Errorf("ingestor: unknown state %d", ig.state)
	}
}

// init implements transition 1: Init -> Ingest once a head cursor is known.
func (ig *Ingestor) init(ctx context.Context) error {
	head, err := ig.rpc.GetHead(ctx)
	if err != nil {
		return fmt.Errorf("ingestor: init: fetch head: %w", err)
	}
	if head == nil {
		return errors.New("ingestor: init: chain RPC has no head yet")
	}
	ig.setState(Ingest)
	metrics.HeadBlockSet(ig.chainName, head.Cursor.Number)
	return nil
}

// ingest implements transition 2: refresh_head, refresh_finalized, and
// ingest_next_block, each run once per tick.
func (ig *Ingestor) ingest(ctx context.Context) error {
	if err := ig.refreshHead(ctx); err != nil {
		return err
	}
	// refreshHead may have moved us out of Ingest (into Recover); only
	// continue the Ingest sub-operations if we are still in it.
	if ig.state != Ingest {
		return nil
	}

	if err := ig.refreshFinalized(ctx); err != nil {
		return err
	}

	return ig.ingestNextBlock(ctx)
}

// refreshHead implements the `refresh_head` sub-operation.
func (ig *Ingestor) refreshHead(ctx context.Context) error {
	rpcHead, err := ig.rpc.GetHead(ctx)
	if err != nil {
		return fmt.Errorf("ingestor: refresh_head: %w", err)
	}
	if rpcHead == nil {
		return nil
	}

	viewHeadHash, _ := ig.view.Canonical(ig.view.Head())

	switch {
	case rpcHead.Cursor.Number == ig.view.Head() && bytes.Equal(rpcHead.Cursor.Hash, viewHeadHash):
		// Same height, same hash: nothing to do.
		return nil
	case rpcHead.Cursor.Number == ig.view.Head():
		// Same height, different hash: the tip itself was replaced.
		ig.pendingParent = rpcHead
		ig.setState(Recover)
		return nil
	case rpcHead.Cursor.Number < ig.view.Head():
		// RPC head receded: the chain shrank without us noticing a
		// same-height hash mismatch first (still a reorg).
		ig.pendingParent = rpcHead
		ig.setState(Recover)
		return nil
	case rpcHead.Cursor.Number == ig.view.Head()+1:
		return ig.addNextBlock(ctx, rpcHead)
	default:
		// Head has grown by more than one block; let ingest_next_block
		// catch up one block at a time.
		return nil
	}
}

// refreshFinalized implements the `refresh_finalized` sub-operation.
func (ig *Ingestor) refreshFinalized(ctx context.Context) error {
	rpcFinalized, err := ig.rpc.GetFinalized(ctx)
	if err != nil {
		return fmt.Errorf("ingestor: refresh_finalized: %w", err)
	}
	if rpcFinalized == nil {
		return nil
	}

	n := rpcFinalized.Cursor.Number
	if n > ig.view.Head() {
		n = ig.view.Head()
	}
	if !ig.view.CanFinalize(n) {
		// Includes the "finality regression" case (n <= view.finalized):
		// per spec, ignored — the engine never unfinalizes.
		return nil
	}

	// Finalize discards canonical entries strictly below n as it runs, so
	// capture the hashes for every height about to be finalized first.
	heights := make([]uint64, 0, n-ig.view.Finalized())
	hashes := make(map[uint64][]byte, n-ig.view.Finalized())
	for h := ig.view.Finalized() + 1; h <= n; h++ {
		hash, ok := ig.view.Canonical(h)
		if ok {
			heights = append(heights, h)
			hashes[h] = hash
		}
	}

	ig.view.Finalize(n)

	for _, height := range heights {
		ig.seq++
		event := types.FinalizedEvent(ig.seq, types.NewCursor(height, hashes[height]))
		if err := ig.bus.Publish(ctx, event); err != nil {
			return fmt.Errorf("ingestor: publish finalized event: %w", err)
		}
		metrics.FinalizedBlockSet(ig.chainName, height)
	}

	if ig.ckpt != nil {
		if err := ig.ckpt.Save(types.NewCursor(n, hashes[n]), ig.headCursor(), time.Now().UnixNano()); err != nil {
			ig.log.Warnf("checkpoint save failed: %v", err)
		}
	}

	return nil
}

// ingestNextBlock implements the `ingest_next_block` sub-operation.
func (ig *Ingestor) ingestNextBlock(ctx context.Context) error {
	next := ig.view.Head() + 1
	blk, err := ig.rpc.GetBlockByNumber(ctx, next)
	if err != nil {
		return fmt.Errorf("ingestor: ingest_next_block: fetch %d: %w", next, err)
	}
	if blk == nil {
		ig.setState(ForceHeadRefresh)
		return nil
	}
	return ig.addNextBlock(ctx, blk)
}

// addNextBlock implements `addNextBlock(blk)`.
func (ig *Ingestor) addNextBlock(ctx context.Context, blk *types.Block) error {
	if !ig.view.CanGrow(*blk) {
		ig.pendingParent = blk
		ig.setState(FetchParentAndRecover)
		return nil
	}

	if err := ig.store.Put(ctx, blk); err != nil {
		return fmt.Errorf("ingestor: persist block %s: %w", blk.Cursor, err)
	}
	ig.view.Grow(*blk)

	ig.seq++
	event := types.Ingested(ig.seq, blk, types.NewCursor(blk.Cursor.Number-1, blk.Parent), types.Pending)
	if err := ig.bus.Publish(ctx, event); err != nil {
		return fmt.Errorf("ingestor: publish ingested event: %w", err)
	}

	metrics.HeadBlockSet(ig.chainName, blk.Cursor.Number)
	metrics.BlocksIngestedInc(ig.chainName, 1)

	return nil
}

// forceHeadRefresh implements transition 3: ForceHeadRefresh -> Ingest. The
// re-query itself happens here so a failing RPC keeps this state (and is
// retried) rather than bouncing back to Ingest on a stale head; the actual
// reorg/grow decision is left to Ingest's own refresh_head on the next tick.
func (ig *Ingestor) forceHeadRefresh(ctx context.Context) error {
	head, err := ig.rpc.GetHead(ctx)
	if err != nil {
		return fmt.Errorf("ingestor: force_head_refresh: %w", err)
	}
	if head == nil {
		return nil
	}
	ig.setState(Ingest)
	return nil
}

// fetchParentAndRecover implements transition 4: FetchParentAndRecover ->
// Recover, fetching the candidate block's parent by hash.
func (ig *Ingestor) fetchParentAndRecover(ctx context.Context) error {
	candidate := ig.pendingParent
	parent, err := ig.rpc.GetBlockByHash(ctx, candidate.Parent)
	if err != nil {
		var notFound *chain.ErrBlockNotFoundByHash
		if errors.As(err, &notFound) {
			return err
		}
		return fmt.Errorf("ingestor: fetch_parent_and_recover: %w", err)
	}
	if parent == nil {
		return &chain.ErrBlockNotFoundByHash{Hash: candidate.Parent}
	}

	ig.pendingParent = parent
	ig.setState(Recover)
	return nil
}

// recover implements transition 5: iterate backward until the incoming
// ancestor matches the stored canonical ancestor at the same height, then
// shrink to the fork point. Recurses via GetAncestorByHash when they differ.
func (ig *Ingestor) recover(ctx context.Context) error {
	incoming := ig.pendingParent

	if incoming.Cursor.Number <= ig.view.Finalized() {
		return &ErrReorgDepthExceeded{FinalizedAt: ig.view.Finalized(), WalkedBackTo: incoming.Cursor.Number}
	}

	existingHash, known := ig.view.Canonical(incoming.Cursor.Number)

	if known && bytes.Equal(existingHash, incoming.Cursor.Hash) {
		forkPoint := types.NewCursor(incoming.Cursor.Number, incoming.Cursor.Hash)
		removed := ig.view.Shrink(forkPoint)

		ig.seq++
		event := types.Invalidated(ig.seq, forkPoint, removed)
		if err := ig.bus.Publish(ctx, event); err != nil {
			return fmt.Errorf("ingestor: publish invalidated event: %w", err)
		}

		metrics.ReorgsDetectedInc(ig.chainName)
		metrics.BlocksInvalidatedInc(ig.chainName, uint64(len(removed)))
		metrics.HeadBlockSet(ig.chainName, ig.view.Head())

		ig.pendingParent = nil
		ig.setState(Ingest)
		return nil
	}

	ancestor, err := ig.walkbackRPC().GetAncestorByHash(ctx, incoming.Parent)
	if err != nil {
		return fmt.Errorf("ingestor: recover: walk back from %s: %w", incoming.Cursor, err)
	}
	ig.pendingParent = ancestor
	return nil
}

// walkbackRPC type-asserts the configured chain.RPC to the capability that
// exposes the ancestor walk-back used during Recover. Only evm.ChainRpc
// implements it today; other chain adapters may implement the one-hop
// parent walk via plain GetBlockByHash instead.
func (ig *Ingestor) walkbackRPC() walkbackRPC {
	if w, ok := ig.rpc.(walkbackRPC); ok {
		return w
	}
	return fallbackWalkback{ig.rpc}
}

type walkbackRPC interface {
	GetAncestorByHash(ctx context.Context, hash []byte) (*types.Block, error)
}

// fallbackWalkback adapts a plain chain.RPC (without a dedicated walk-back
// retry budget) to the walkbackRPC capability via GetBlockByHash.
type fallbackWalkback struct {
	rpc chain.RPC
}

func (f fallbackWalkback) GetAncestorByHash(ctx context.Context, hash []byte) (*types.Block, error) {
	blk, err := f.rpc.GetBlockByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if blk == nil {
		return nil, &chain.ErrBlockNotFoundByHash{Hash: hash}
	}
	return blk, nil
}

func (ig *Ingestor) headCursor() types.Cursor {
	hash, _ := ig.view.Canonical(ig.view.Head())
	return types.NewCursor(ig.view.Head(), hash)
}
