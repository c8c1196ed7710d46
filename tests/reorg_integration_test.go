package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dna-engine/dna/internal/blockstore"
	"github.com/dna-engine/dna/internal/bus"
	"github.com/dna-engine/dna/internal/chain/evm"
	"github.com/dna-engine/dna/internal/ingestor"
	"github.com/dna-engine/dna/internal/logger"
	"github.com/dna-engine/dna/internal/types"
	"github.com/dna-engine/dna/internal/view"
	"github.com/dna-engine/dna/pkg/config"
	"github.com/dna-engine/dna/tests/helpers"
)

// waitForHead polls the ingestor's view until it reaches at least want, or
// fails the test once timeout elapses.
func waitForHead(t *testing.T, ig *ingestor.Ingestor, want uint64, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ig.Head() >= want {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("ingestor head did not reach %d within %s (stuck at %d)", want, timeout, ig.Head())
}

// newReorgTestIngestor wires a real evm.ChainRpc against a live Anvil node
// into the full ingestor/blockstore stack, the same construction order
// cmd/dna-server uses, with a small finalizedLag so recent blocks remain
// reorg-eligible.
func newReorgTestIngestor(t *testing.T, anvilURL string) (*ingestor.Ingestor, *blockstore.BlockStore) {
	t.Helper()

	log, err := logger.NewLogger("info", false)
	require.NoError(t, err)

	ctx := t.Context()
	retryConfig := config.RetryConfig{MaxAttempts: 1}
	chainRPC, err := evm.NewChainRpc(ctx, anvilURL, types.FinalityLatest, 5, &retryConfig, &retryConfig)
	require.NoError(t, err)
	t.Cleanup(chainRPC.Close)

	blockStoreCfg := config.BlockStoreConfig{DB: config.DatabaseConfig{Path: t.TempDir() + "/blockstore.db"}}
	blockStoreCfg.ApplyDefaults()
	chainAdapter := evm.NewAdapter()
	store, err := blockstore.New(blockStoreCfg, chainAdapter, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ckptCfg := config.DatabaseConfig{Path: t.TempDir() + "/checkpoint.db"}
	ckptCfg.ApplyDefaults()
	ckpt, err := ingestor.NewCheckpointStore(ckptCfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { ckpt.Close() })

	eventBus := bus.New("evm", 16, log)

	ingestorCfg := config.IngestorConfig{HeadRefreshIntervalMs: 100, MaxWalkback: 64}
	ingestorCfg.DB = ckptCfg
	ig, err := ingestor.NewIngestor(ctx, "evm", chainRPC, store, eventBus, ckpt, ingestorCfg, log)
	require.NoError(t, err)

	return ig, store
}

// TestReorg_ShallowReorgIsRecovered drives a real Anvil node through a
// shallow reorg (within the finalized-lag window) and verifies the
// ingestor's state machine detects the fork, walks back to the common
// ancestor, and re-ingests the replacement chain with the new canonical
// block hashes.
func TestReorg_ShallowReorgIsRecovered(t *testing.T) {
	helpers.SkipIfAnvilNotAvailable(t)

	anvil := helpers.StartAnvil(t)
	ig, store := newReorgTestIngestor(t, anvil.URL)

	runCtx, cancelRun := context.WithCancel(t.Context())
	runDone := make(chan error, 1)
	go func() { runDone <- ig.Run(runCtx) }()
	t.Cleanup(func() {
		cancelRun()
		<-runDone
	})

	anvil.Mine(t, 3)
	forkPoint := anvil.GetBlockNumber(t)
	waitForHead(t, ig, forkPoint, 10*time.Second)

	snapshotID := anvil.CreateSnapshot(t)

	anvil.Mine(t, 2)
	originalTip := anvil.GetBlockNumber(t)
	waitForHead(t, ig, originalTip, 10*time.Second)

	originalTipHash := anvil.GetBlockHash(t, originalTip)
	originalBlock, err := store.Get(t.Context(), types.NewCursor(originalTip, originalTipHash.Bytes()))
	require.NoError(t, err, "pre-reorg tip must have been archived under its original hash")

	anvil.RevertToForkPoint(t, snapshotID)
	require.Equal(t, forkPoint, anvil.GetBlockNumber(t))

	// Mine a longer replacement chain so it wins over the stale original tip.
	anvil.Mine(t, 4)
	reorgTip := anvil.GetBlockNumber(t)
	reorgTipHash := anvil.GetBlockHash(t, reorgTip)

	waitForHead(t, ig, reorgTip, 15*time.Second)

	reorgBlock, err := store.Get(t.Context(), types.NewCursor(reorgTip, reorgTipHash.Bytes()))
	require.NoError(t, err, "reorg chain's new tip must have been archived under its hash")
	require.Equal(t, reorgTip, reorgBlock.Cursor.Number)

	// The old fork's block at originalTip is still archived (blockstore never
	// deletes superseded rows), but the ingestor's view must no longer treat
	// it as canonical now that the reorg chain has overtaken it.
	outcome := ig.Connect(types.NewCursor(originalTip, originalBlock.Cursor.Hash))
	require.Equal(t, view.OfflineReorg, outcome.Result, "the replaced fork must no longer be canonical")
	require.Equal(t, reorgTip, ig.Head())
}
