package blockstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dna-engine/dna/internal/logger"
	"github.com/dna-engine/dna/internal/types"
	"github.com/dna-engine/dna/pkg/config"
)

// fakeChain is a minimal chain.Chain for exercising BlockStore independent of
// the concrete EVM wire format: it derives one filter key per block
// ("addr:<n mod 3>") and round-trips the block through JSON.
type fakeChain struct{}

func (fakeChain) Name() string { return "fake" }

func (fakeChain) DeriveKeys(block *types.Block) []types.KeyRef {
	bucket := block.Cursor.Number % 3
	return []types.KeyRef{{Kind: "addr", Key: string(rune('A' + bucket))}}
}

type fakeBlockJSON struct {
	Number uint64
	Hash   []byte
	Parent []byte
}

func (fakeChain) SerializeBlock(block *types.Block) ([]byte, error) {
	return json.Marshal(fakeBlockJSON{Number: block.Cursor.Number, Hash: block.Cursor.Hash, Parent: block.Parent})
}

func (fakeChain) ParseBlock(data []byte) (*types.Block, error) {
	var fb fakeBlockJSON
	if err := json.Unmarshal(data, &fb); err != nil {
		return nil, err
	}
	return &types.Block{Cursor: types.NewCursor(fb.Number, fb.Hash), Parent: fb.Parent}, nil
}

func (fakeChain) DecodeFilter(kind string, params []byte) (any, error) {
	return nil, nil
}

func (fakeChain) FilterKeys(filter any) ([]types.KeyRef, error) {
	return filter.([]types.KeyRef), nil
}

func (fakeChain) Matches(filter any, block *types.Block) (bool, any, error) {
	return true, block, nil
}

func newTestStore(t *testing.T) *BlockStore {
	t.Helper()
	cfg := config.BlockStoreConfig{SegmentSize: 10}
	cfg.DB.Path = t.TempDir() + "/blockstore.db"
	cfg.ApplyDefaults()

	store, err := New(cfg, fakeChain{}, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutAndGetRoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	blk := &types.Block{
		Cursor: types.NewCursor(5, []byte{0x05}),
		Parent: []byte{0x04},
	}
	require.NoError(t, store.Put(ctx, blk))

	got, err := store.Get(ctx, blk.Cursor)
	require.NoError(t, err)
	require.Equal(t, blk.Cursor, got.Cursor)
	require.Equal(t, blk.Parent, got.Parent)
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), types.NewCursor(99, []byte{0x99}))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPutIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	blk := &types.Block{Cursor: types.NewCursor(1, []byte{0x01}), Parent: []byte{0x00}}

	require.NoError(t, store.Put(ctx, blk))
	require.NoError(t, store.Put(ctx, blk))

	got, err := store.Get(ctx, blk.Cursor)
	require.NoError(t, err)
	require.Equal(t, blk.Cursor, got.Cursor)
}

func TestScanReturnsCanonicalCandidatesOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	canonicalHash := map[uint64][]byte{}
	for n := uint64(0); n < 9; n++ {
		hash := []byte{byte(n)}
		blk := &types.Block{Cursor: types.NewCursor(n, hash), Parent: []byte{byte(n - 1)}}
		require.NoError(t, store.Put(ctx, blk))
		canonicalHash[n] = hash
	}
	// Block 3 is orphaned: a second, non-canonical block at the same height.
	orphan := &types.Block{Cursor: types.NewCursor(3, []byte{0xff}), Parent: []byte{0x02}}
	require.NoError(t, store.Put(ctx, orphan))

	canonical := func(n uint64) ([]byte, bool) {
		h, ok := canonicalHash[n]
		return h, ok
	}

	// Bucket "A" (n%3==0) -> heights 0, 3, 6.
	cursors, err := store.Scan(ctx, []types.KeyRef{{Kind: "addr", Key: "A"}}, 0, 8, canonical)
	require.NoError(t, err)
	require.Len(t, cursors, 3)
	for _, c := range cursors {
		require.Equal(t, uint64(0), c.Number%3)
		require.Equal(t, canonicalHash[c.Number], c.Hash)
	}
}

func TestRetainKeepsCanonicalAndDropsOrphans(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	canonicalBlk := &types.Block{Cursor: types.NewCursor(1, []byte{0x01}), Parent: []byte{0x00}}
	orphanBlk := &types.Block{Cursor: types.NewCursor(1, []byte{0xee}), Parent: []byte{0x00}}
	require.NoError(t, store.Put(ctx, canonicalBlk))
	require.NoError(t, store.Put(ctx, orphanBlk))

	canonical := func(n uint64) ([]byte, bool) {
		if n == 1 {
			return []byte{0x01}, true
		}
		return nil, false
	}

	require.NoError(t, store.Retain(ctx, 5, canonical))

	_, err := store.Get(ctx, canonicalBlk.Cursor)
	require.NoError(t, err)

	_, err = store.Get(ctx, orphanBlk.Cursor)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestScanBelowRetentionFloorReturnsOutOfRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	canonical := func(n uint64) ([]byte, bool) { return nil, false }
	require.NoError(t, store.Retain(ctx, 10, canonical))

	_, err := store.Scan(ctx, []types.KeyRef{{Kind: "addr", Key: "A"}}, 5, 20, canonical)
	require.ErrorIs(t, err, ErrOutOfRange)

	// A scan starting at or above the floor is unaffected.
	_, err = store.Scan(ctx, []types.KeyRef{{Kind: "addr", Key: "A"}}, 10, 20, canonical)
	require.NoError(t, err)
}

func TestRetainPersistsFloorAcrossReopen(t *testing.T) {
	cfg := config.BlockStoreConfig{SegmentSize: 10}
	cfg.DB.Path = t.TempDir() + "/blockstore.db"
	cfg.ApplyDefaults()

	store, err := New(cfg, fakeChain{}, logger.NewNopLogger())
	require.NoError(t, err)

	canonical := func(n uint64) ([]byte, bool) { return nil, false }
	require.NoError(t, store.Retain(context.Background(), 7, canonical))
	require.NoError(t, store.Close())

	reopened, err := New(cfg, fakeChain{}, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	_, err = reopened.Scan(context.Background(), []types.KeyRef{{Kind: "addr", Key: "A"}}, 3, 20, canonical)
	require.ErrorIs(t, err, ErrOutOfRange)
}
