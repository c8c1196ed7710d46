package ingestor

import (
	"context"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dna-engine/dna/internal/logger"
	"github.com/dna-engine/dna/internal/types"
	"github.com/dna-engine/dna/internal/view"
	"github.com/dna-engine/dna/pkg/config"
)

// fakeRPC is a minimal, in-memory chain.RPC used to drive the state machine
// deterministically in tests, following the fake/mock style the teacher uses
// in its own RPC-dependent tests rather than a full EVM test node.
type fakeRPC struct {
	mu              sync.Mutex
	byNumber        map[uint64]*types.Block
	byHash          map[string]*types.Block
	headNumber      uint64
	finalizedNumber uint64
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{
		byNumber: make(map[uint64]*types.Block),
		byHash:   make(map[string]*types.Block),
	}
}

func (f *fakeRPC) addBlock(blk *types.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byNumber[blk.Cursor.Number] = blk
	f.byHash[hex.EncodeToString(blk.Cursor.Hash)] = blk
}

func (f *fakeRPC) GetBlockByNumber(_ context.Context, n uint64) (*types.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byNumber[n], nil
}

func (f *fakeRPC) GetBlockByHash(_ context.Context, hash []byte) (*types.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byHash[hex.EncodeToString(hash)], nil
}

func (f *fakeRPC) GetHead(ctx context.Context) (*types.Block, error) {
	f.mu.Lock()
	n := f.headNumber
	f.mu.Unlock()
	return f.GetBlockByNumber(ctx, n)
}

func (f *fakeRPC) GetFinalized(ctx context.Context) (*types.Block, error) {
	f.mu.Lock()
	n := f.finalizedNumber
	f.mu.Unlock()
	return f.GetBlockByNumber(ctx, n)
}

type fakeStore struct {
	mu  sync.Mutex
	put []*types.Block
}

func (s *fakeStore) Put(_ context.Context, block *types.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put = append(s.put, block)
	return nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []types.IngestionEvent
}

func (b *fakeBus) Publish(_ context.Context, event types.IngestionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func blockHash(fork byte, n uint64) []byte {
	return []byte{fork, byte(n)}
}

func buildFork(rpc *fakeRPC, fork byte, upTo uint64) {
	for n := uint64(0); n <= upTo; n++ {
		var parent []byte
		if n > 0 {
			parent = blockHash(fork, n-1)
		}
		rpc.addBlock(&types.Block{
			Cursor: types.NewCursor(n, blockHash(fork, n)),
			Parent: parent,
		})
	}
}

func newTestIngestor(t *testing.T, rpc *fakeRPC, store BlockStore, bus Bus) *Ingestor {
	t.Helper()
	cfg := config.IngestorConfig{}
	cfg.ApplyDefaults()
	return &Ingestor{
		chainName: "evm",
		rpc:       rpc,
		store:     store,
		bus:       bus,
		ckpt:      nil,
		cfg:       cfg,
		view:      view.New(types.NewCursor(0, blockHash('A', 0))),
		state:     Init,
		log:       logger.NewNopLogger(),
	}
}

func driveUntil(t *testing.T, ig *Ingestor, maxTicks int, done func() bool) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < maxTicks; i++ {
		if done() {
			return
		}
		require.NoError(t, ig.tick(ctx))
	}
	require.True(t, done(), "condition not reached within %d ticks", maxTicks)
}

func TestIngestorLinearGrowth(t *testing.T) {
	rpc := newFakeRPC()
	buildFork(rpc, 'A', 0)
	rpc.headNumber = 0
	rpc.finalizedNumber = 0

	store := &fakeStore{}
	bus := &fakeBus{}
	ig := newTestIngestor(t, rpc, store, bus)

	// Grow the fake chain to height 5 before driving the ingestor.
	buildFork(rpc, 'A', 5)
	rpc.headNumber = 5

	driveUntil(t, ig, 20, func() bool { return ig.view.Head() == 5 })

	require.Equal(t, ForceHeadRefresh, ig.state)
	require.Len(t, store.put, 5)
	for i, blk := range store.put {
		require.Equal(t, uint64(i+1), blk.Cursor.Number)
	}

	ingestedCount := 0
	for _, e := range bus.events {
		if e.Kind == types.EventIngested {
			ingestedCount++
		}
	}
	require.Equal(t, 5, ingestedCount)
}

func TestIngestorRecoversFromShallowReorg(t *testing.T) {
	rpc := newFakeRPC()
	buildFork(rpc, 'A', 5)
	rpc.headNumber = 5
	rpc.finalizedNumber = 0

	store := &fakeStore{}
	bus := &fakeBus{}
	ig := newTestIngestor(t, rpc, store, bus)

	driveUntil(t, ig, 20, func() bool { return ig.view.Head() == 5 })

	// Replace block 5 with a different hash on the same parent (a one-block
	// reorg at the tip): spec scenario S3.
	reorgBlock5 := &types.Block{
		Cursor: types.NewCursor(5, blockHash('B', 5)),
		Parent: blockHash('A', 4),
	}
	rpc.addBlock(reorgBlock5)

	driveUntil(t, ig, 20, func() bool {
		h, ok := ig.view.Canonical(5)
		return ok && hex.EncodeToString(h) == hex.EncodeToString(blockHash('B', 5))
	})

	require.Equal(t, uint64(5), ig.view.Head())

	reorgs := ig.view.ReorgsAt(5)
	oldHashKey := string(blockHash('A', 5))
	require.Contains(t, reorgs, oldHashKey)
	require.Equal(t, uint64(4), reorgs[oldHashKey].Number)

	var sawInvalidated, sawIngestedB bool
	for _, e := range bus.events {
		switch e.Kind {
		case types.EventInvalidated:
			sawInvalidated = true
			require.Equal(t, uint64(4), e.NewHead.Number)
			require.Len(t, e.Removed, 1)
			require.Equal(t, uint64(5), e.Removed[0].Number)
		case types.EventIngested:
			if e.BlockCursor.Number == 5 && hex.EncodeToString(e.BlockCursor.Hash) == hex.EncodeToString(blockHash('B', 5)) {
				sawIngestedB = true
			}
		}
	}
	require.True(t, sawInvalidated, "expected an Invalidated event")
	require.True(t, sawIngestedB, "expected an Ingested event for the new block 5")
}

func TestIngestorReorgBeyondFinalizedIsFatal(t *testing.T) {
	rpc := newFakeRPC()
	store := &fakeStore{}
	bus := &fakeBus{}
	ig := newTestIngestor(t, rpc, store, bus)

	// Force the view to a finalized watermark ahead of the reorg candidate.
	for n := uint64(1); n <= 3; n++ {
		blk := types.Block{Cursor: types.NewCursor(n, blockHash('A', n)), Parent: blockHash('A', n-1)}
		ig.view.Grow(blk)
	}
	ig.view.Finalize(3)

	ig.state = Recover
	ig.pendingParent = &types.Block{
		Cursor: types.NewCursor(3, blockHash('B', 3)),
		Parent: blockHash('B', 2),
	}

	err := ig.tick(context.Background())
	require.Error(t, err)

	var depthErr *ErrReorgDepthExceeded
	require.ErrorAs(t, err, &depthErr)
	require.Equal(t, uint64(3), depthErr.FinalizedAt)
}

func TestIngestorRefreshFinalizedEmitsFinalizedEvents(t *testing.T) {
	rpc := newFakeRPC()
	store := &fakeStore{}
	bus := &fakeBus{}
	ig := newTestIngestor(t, rpc, store, bus)

	for n := uint64(1); n <= 5; n++ {
		blk := types.Block{Cursor: types.NewCursor(n, blockHash('A', n)), Parent: blockHash('A', n-1)}
		ig.view.Grow(blk)
	}

	rpc.finalizedNumber = 3
	buildFork(rpc, 'A', 3)

	require.NoError(t, ig.refreshFinalized(context.Background()))
	require.Equal(t, uint64(3), ig.view.Finalized())

	var finalizedHeights []uint64
	for _, e := range bus.events {
		if e.Kind == types.EventFinalized {
			finalizedHeights = append(finalizedHeights, e.BlockCursor.Number)
		}
	}
	require.Equal(t, []uint64{1, 2, 3}, finalizedHeights)
}
