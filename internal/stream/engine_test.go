package stream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dna-engine/dna/api/dnapb"
	"github.com/dna-engine/dna/internal/blockstore"
	"github.com/dna-engine/dna/internal/bus"
	"github.com/dna-engine/dna/internal/logger"
	"github.com/dna-engine/dna/internal/quota"
	"github.com/dna-engine/dna/internal/types"
	"github.com/dna-engine/dna/internal/view"
	"github.com/dna-engine/dna/pkg/config"
)

// fakeStore is a minimal in-memory BlockStore for exercising catch-up scans
// without internal/blockstore's SQLite backing.
type fakeStore struct {
	blocks map[uint64]*types.Block
}

func (f *fakeStore) Get(_ context.Context, cursor types.Cursor) (*types.Block, error) {
	blk, ok := f.blocks[cursor.Number]
	if !ok {
		return nil, blockstore.ErrNotFound
	}
	return blk, nil
}

func (f *fakeStore) Scan(_ context.Context, _ []types.KeyRef, from, to uint64, canonical blockstore.CanonicalLookup) ([]types.Cursor, error) {
	var out []types.Cursor
	for n := from; n <= to; n++ {
		if hash, ok := canonical(n); ok {
			out = append(out, types.NewCursor(n, hash))
		}
	}
	return out, nil
}

// fakeView is a minimal ViewSnapshot for tests.
type fakeView struct {
	head      uint64
	finalized uint64
	canonical map[uint64][]byte
}

func (f *fakeView) Head() uint64      { return f.head }
func (f *fakeView) Finalized() uint64 { return f.finalized }
func (f *fakeView) Connect(cur types.Cursor) view.ConnectOutcome {
	return view.ConnectOutcome{Result: view.Continue, Target: cur}
}
func (f *fakeView) Canonical(n uint64) ([]byte, bool) {
	h, ok := f.canonical[n]
	return h, ok
}

// fakeChain round-trips a block through JSON and matches everything,
// mirroring internal/blockstore/store_test.go's fakeChain.
type fakeChain struct{}

func (fakeChain) Name() string { return "fake" }
func (fakeChain) DeriveKeys(*types.Block) []types.KeyRef {
	return []types.KeyRef{{Kind: "addr", Key: "A"}}
}
func (fakeChain) SerializeBlock(block *types.Block) ([]byte, error) {
	return json.Marshal(block.Cursor.Number)
}
func (fakeChain) ParseBlock(data []byte) (*types.Block, error) {
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &types.Block{Cursor: types.NewCursor(n, nil)}, nil
}
func (fakeChain) DecodeFilter(kind string, params []byte) (any, error) {
	return kind, nil
}
func (fakeChain) FilterKeys(any) ([]types.KeyRef, error) {
	return nil, nil
}
func (fakeChain) Matches(any, *types.Block) (bool, any, error) {
	return true, nil, nil
}

func testConfig() config.StreamConfig {
	cfg := config.StreamConfig{}
	cfg.ApplyDefaults()
	cfg.PendingTailDepth = 2
	cfg.HistoricalBatchSize = 10
	cfg.HeartbeatIntervalMs = 60_000
	cfg.MaxLagBlocks = 1000
	return cfg
}

func newTestEngine(store *fakeStore, v *fakeView, b Bus) *Engine {
	return New("fake", Identity{Team: "t", Client: "c", Network: "n"}, store, b, v, fakeChain{}, quota.NoOp{}, testConfig(), logger.NewNopLogger())
}

func TestHandshakeLiveOnlyWithoutStartingCursor(t *testing.T) {
	v := &fakeView{head: 10, finalized: 5, canonical: map[uint64][]byte{}}
	b := bus.New("fake", 16, logger.NewNopLogger())
	e := newTestEngine(&fakeStore{blocks: map[uint64]*types.Block{}}, v, b)

	responses := make(chan *dnapb.StreamDataResponse, 4)
	err := e.handshake(context.Background(), &dnapb.StreamDataRequest{StreamId: 1}, responses)
	require.NoError(t, err)
	require.Equal(t, stateLiveFollow, e.state)
	require.Equal(t, uint64(10), e.cursor.Number)
}

func TestCatchUpBatchDeliversMatchingBlocks(t *testing.T) {
	v := &fakeView{head: 20, finalized: 5, canonical: map[uint64][]byte{}}
	blocks := map[uint64]*types.Block{}
	for n := uint64(0); n <= 5; n++ {
		hash := []byte{byte(n)}
		v.canonical[n] = hash
		blocks[n] = &types.Block{Cursor: types.NewCursor(n, hash)}
	}
	store := &fakeStore{blocks: blocks}
	b := bus.New("fake", 16, logger.NewNopLogger())
	e := newTestEngine(store, v, b)

	responses := make(chan *dnapb.StreamDataResponse, 4)
	require.NoError(t, e.handshake(context.Background(), &dnapb.StreamDataRequest{
		StreamId:       1,
		StartingCursor: &dnapb.Cursor{Number: 0},
	}, responses))
	require.Equal(t, stateHistoricalCatchUp, e.state)

	sent, err := e.catchUpBatch(context.Background(), responses)
	require.NoError(t, err)
	require.Equal(t, 6, sent)

	resp := <-responses
	require.NotNil(t, resp.Data)
	require.Equal(t, uint64(0), resp.Data.Cursor.Number)
	require.Equal(t, uint64(5), resp.Data.EndCursor.Number)
	require.Len(t, resp.Data.Data, 6)

	// The batch was clipped at the finalized height (5), so the cursor now
	// sits just past it, still below the catch-up ceiling (head - PendingTailDepth).
	require.Equal(t, uint64(6), e.cursor.Number)
}

func TestBehindTailRespectsPendingTailDepth(t *testing.T) {
	v := &fakeView{head: 10, finalized: 0, canonical: map[uint64][]byte{}}
	e := newTestEngine(&fakeStore{blocks: map[uint64]*types.Block{}}, v, bus.New("fake", 16, logger.NewNopLogger()))
	e.cursor = types.NewCursor(7, nil)
	require.True(t, e.behindTail()) // 7+2 <= 10

	e.cursor = types.NewCursor(9, nil)
	require.False(t, e.behindTail()) // 9+2 > 10
}

func TestHandleEventDeliversIngestedBlock(t *testing.T) {
	v := &fakeView{head: 10, finalized: 5, canonical: map[uint64][]byte{}}
	e := newTestEngine(&fakeStore{blocks: map[uint64]*types.Block{}}, v, bus.New("fake", 16, logger.NewNopLogger()))
	e.streamID = 42
	e.cursor = types.NewCursor(11, nil)
	e.finality = types.Pending

	blk := &types.Block{Cursor: types.NewCursor(11, []byte{0x0b})}
	ev := types.Ingested(1, blk, types.NewCursor(10, nil), types.Accepted)

	responses := make(chan *dnapb.StreamDataResponse, 1)
	require.NoError(t, e.handleEvent(context.Background(), ev, responses))

	resp := <-responses
	require.Equal(t, uint64(42), resp.StreamId)
	require.Equal(t, uint64(11), resp.Data.Cursor.Number)
	require.Equal(t, dnapb.Finality_ACCEPTED, resp.Data.Finality)
	require.Equal(t, uint64(12), e.cursor.Number)
}

func TestHandleEventRelaysInvalidate(t *testing.T) {
	v := &fakeView{head: 10, finalized: 5, canonical: map[uint64][]byte{}}
	e := newTestEngine(&fakeStore{blocks: map[uint64]*types.Block{}}, v, bus.New("fake", 16, logger.NewNopLogger()))

	ev := types.Invalidated(2, types.NewCursor(8, []byte{0x08}), []types.Cursor{types.NewCursor(9, []byte{0x09})})
	responses := make(chan *dnapb.StreamDataResponse, 1)
	require.NoError(t, e.handleEvent(context.Background(), ev, responses))

	resp := <-responses
	require.NotNil(t, resp.Invalidate)
	require.Equal(t, uint64(8), resp.Invalidate.Cursor.Number)
	require.Len(t, resp.Invalidate.Removed, 1)
	require.Equal(t, uint64(8), e.cursor.Number)
}

func TestHandleEventSuppressesFinalizeForFinalizedModeStream(t *testing.T) {
	v := &fakeView{head: 10, finalized: 5, canonical: map[uint64][]byte{}}
	e := newTestEngine(&fakeStore{blocks: map[uint64]*types.Block{}}, v, bus.New("fake", 16, logger.NewNopLogger()))
	e.finality = types.Finalized

	ev := types.FinalizedEvent(3, types.NewCursor(5, []byte{0x05}))
	responses := make(chan *dnapb.StreamDataResponse, 1)
	require.NoError(t, e.handleEvent(context.Background(), ev, responses))

	select {
	case resp := <-responses:
		t.Fatalf("expected no Finalize message for a Finalized-mode stream, got %+v", resp)
	default:
	}
}

func TestHandleEventDeliversFinalizeForAcceptedModeStream(t *testing.T) {
	v := &fakeView{head: 10, finalized: 5, canonical: map[uint64][]byte{}}
	e := newTestEngine(&fakeStore{blocks: map[uint64]*types.Block{}}, v, bus.New("fake", 16, logger.NewNopLogger()))
	e.finality = types.Accepted

	ev := types.FinalizedEvent(3, types.NewCursor(5, []byte{0x05}))
	responses := make(chan *dnapb.StreamDataResponse, 1)
	require.NoError(t, e.handleEvent(context.Background(), ev, responses))

	resp := <-responses
	require.NotNil(t, resp.Finalize)
	require.Equal(t, uint64(5), resp.Finalize.Cursor.Number)
}

func TestCatchUpCeilingBoundedByFinalizedForFinalizedModeStream(t *testing.T) {
	v := &fakeView{head: 20, finalized: 8, canonical: map[uint64][]byte{}}
	e := newTestEngine(&fakeStore{blocks: map[uint64]*types.Block{}}, v, bus.New("fake", 16, logger.NewNopLogger()))
	e.finality = types.Finalized

	// Without the Finalized bound, PendingTailDepth (2) alone would put the
	// ceiling at head-2 = 18; a Finalized-mode stream must stop at 8.
	require.Equal(t, uint64(8), e.catchUpCeiling())

	e.cursor = types.NewCursor(9, nil)
	require.False(t, e.behindTail())

	v.finalized = 15
	require.True(t, e.behindTail())
	require.Equal(t, uint64(15), e.catchUpCeiling())
}

func TestDecodeFiltersRejectsMultiWithoutAllowMultiFilter(t *testing.T) {
	v := &fakeView{head: 10, finalized: 5, canonical: map[uint64][]byte{}}
	e := newTestEngine(&fakeStore{blocks: map[uint64]*types.Block{}}, v, bus.New("fake", 16, logger.NewNopLogger()))

	_, err := e.decodeFilters([]*dnapb.Filter{{Kind: "events"}, {Kind: "transactions"}}, 1)
	require.ErrorIs(t, err, ErrInvalidFilter)
}

func TestDecodeFiltersRejectsMultiWithBatchSizeOverOne(t *testing.T) {
	v := &fakeView{head: 10, finalized: 5, canonical: map[uint64][]byte{}}
	e := newTestEngine(&fakeStore{blocks: map[uint64]*types.Block{}}, v, bus.New("fake", 16, logger.NewNopLogger()))
	e.cfg.AllowMultiFilter = true

	_, err := e.decodeFilters([]*dnapb.Filter{{Kind: "events"}, {Kind: "transactions"}}, 50)
	require.ErrorIs(t, err, ErrInvalidFilter)

	_, err = e.decodeFilters([]*dnapb.Filter{{Kind: "events"}, {Kind: "transactions"}}, 1)
	require.NoError(t, err)
}

func TestRunDeliversHistoricalThenClosesOnCancel(t *testing.T) {
	// Block 0 is at the finalized boundary; blocks 1-2 are merely Accepted.
	// catchUpBatch must split delivery there rather than mislabel either
	// side, so Run emits two DataMessages covering 3 blocks in total.
	v := &fakeView{head: 2, finalized: 0, canonical: map[uint64][]byte{0: {0x00}, 1: {0x01}, 2: {0x02}}}
	blocks := map[uint64]*types.Block{
		0: {Cursor: types.NewCursor(0, []byte{0x00})},
		1: {Cursor: types.NewCursor(1, []byte{0x01})},
		2: {Cursor: types.NewCursor(2, []byte{0x02})},
	}
	e := newTestEngine(&fakeStore{blocks: blocks}, v, bus.New("fake", 16, logger.NewNopLogger()))
	e.cfg.PendingTailDepth = 0

	ctx, cancel := context.WithCancel(context.Background())
	requests := make(chan *dnapb.StreamDataRequest, 1)
	responses := make(chan *dnapb.StreamDataResponse, 8)
	requests <- &dnapb.StreamDataRequest{StreamId: 7, StartingCursor: &dnapb.Cursor{Number: 0}}

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, requests, responses) }()

	var delivered int
	var sawFinalized, sawAccepted bool
	for delivered < 3 {
		select {
		case resp := <-responses:
			require.NotNil(t, resp.Data)
			delivered += len(resp.Data.Data)
			switch resp.Data.Finality {
			case dnapb.Finality_FINALIZED:
				sawFinalized = true
			case dnapb.Finality_ACCEPTED:
				sawAccepted = true
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for historical batches")
		}
	}
	require.Equal(t, 3, delivered)
	require.True(t, sawFinalized, "expected a batch labeled Finalized for block 0")
	require.True(t, sawAccepted, "expected a batch labeled Accepted for blocks 1-2")

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after cancellation")
	}
}
