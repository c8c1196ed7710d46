package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dna-engine/dna/internal/blockstore"
	"github.com/dna-engine/dna/internal/bus"
	"github.com/dna-engine/dna/internal/chain/evm"
	"github.com/dna-engine/dna/internal/config"
	"github.com/dna-engine/dna/internal/db"
	"github.com/dna-engine/dna/internal/exitcode"
	"github.com/dna-engine/dna/internal/ingestor"
	"github.com/dna-engine/dna/internal/logger"
	"github.com/dna-engine/dna/internal/metrics"
	"github.com/dna-engine/dna/internal/quota"
	"github.com/dna-engine/dna/internal/statusapi"
	"github.com/dna-engine/dna/internal/streamservice"
	"github.com/dna-engine/dna/internal/types"
)

var (
	configPath          string
	flagRPC             string
	flagAddress         string
	flagBlocksPerSecond float64
	flagHeadRefreshMs   int
	flagQuotaServer     string
	flagDataDir         string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ingestion pipeline and the gRPC stream server",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	startCmd.Flags().StringVar(&flagRPC, "rpc", "", "chain JSON-RPC endpoint (overrides config)")
	startCmd.Flags().StringVar(&flagAddress, "address", "", "gRPC listen address (overrides config)")
	startCmd.Flags().Float64Var(&flagBlocksPerSecond, "blocks-per-second-limit", 0, "default per-stream rate limit (overrides config)")
	startCmd.Flags().IntVar(&flagHeadRefreshMs, "head-refresh-interval-ms", 0, "interval between head/finalized refreshes (overrides config)")
	startCmd.Flags().StringVar(&flagQuotaServer, "quota-server-address", "", "external quota service address")
	startCmd.Flags().StringVar(&flagDataDir, "data-dir", "", "directory for the checkpoint and block archive databases (overrides config DB paths)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return exitCodeErr{code: exitcode.DataErr, err: fmt.Errorf("load config: %w", err)}
	}
	applyStartFlags(cfg)

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return exitCodeErr{code: exitcode.Config, err: fmt.Errorf("build logger: %w", err)}
	}
	defer log.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received, draining...")
		cancel()
	}()

	finality, err := types.ParseBlockFinality(cfg.Chain.Finality)
	if err != nil {
		return exitCodeErr{code: exitcode.DataErr, err: err}
	}

	log.Infow("connecting to chain RPC", "url", cfg.Chain.RPCURL)
	chainRPC, err := evm.NewChainRpc(ctx, cfg.Chain.RPCURL, finality, cfg.Chain.FinalizedLag, &cfg.Chain.Retry, &cfg.Chain.WalkbackRetry)
	if err != nil {
		return exitCodeErr{code: exitcode.Unavailable, err: fmt.Errorf("chain rpc: %w", err)}
	}
	defer chainRPC.Close()

	metricsServer := metrics.NewServer(&cfg.Metrics)
	if err := metricsServer.Start(ctx); err != nil {
		return exitCodeErr{code: exitcode.Unavailable, err: fmt.Errorf("metrics server: %w", err)}
	}
	defer metricsServer.Stop(context.Background())

	ckpt, err := ingestor.NewCheckpointStore(cfg.Ingestor.DB, log)
	if err != nil {
		return exitCodeErr{code: exitcode.IOErr, err: err}
	}
	defer ckpt.Close()

	chainAdapter := evm.NewAdapter()
	store, err := blockstore.New(cfg.BlockStore, chainAdapter, log)
	if err != nil {
		return exitCodeErr{code: exitcode.IOErr, err: err}
	}
	defer store.Close()

	maintenance := db.NewMaintenanceCoordinator(cfg.BlockStore.DB.Path, store.DB(), &cfg.Maintenance, log)
	if err := maintenance.Start(ctx); err != nil {
		return exitCodeErr{code: exitcode.Software, err: fmt.Errorf("maintenance coordinator: %w", err)}
	}
	defer maintenance.Stop()

	eventBus := bus.New(cfg.Chain.Name, cfg.Bus.SubscriberBufferSize, log)

	ing, err := ingestor.NewIngestor(ctx, cfg.Chain.Name, chainRPC, store, eventBus, ckpt, cfg.Ingestor, log)
	if err != nil {
		return exitCodeErr{code: exitcode.Software, err: fmt.Errorf("ingestor: %w", err)}
	}

	var quotaImpl quota.Quota = quota.NoOp{}
	if flagQuotaServer != "" {
		log.Warnw("quota-server-address was set but no external quota client is wired; falling back to the no-op quota implementation", "address", flagQuotaServer)
	}

	streamSvc := streamservice.New(streamservice.Config{
		ChainName:     cfg.Chain.Name,
		Address:       cfg.GRPC.ListenAddress,
		StartingBlock: ing.Head(),
		Store:         store,
		Bus:           eventBus,
		View:          ing,
		Chain:         chainAdapter,
		Quota:         quotaImpl,
		Stream:        cfg.Stream,
	}, log)
	if err := streamSvc.Start(); err != nil {
		return exitCodeErr{code: exitcode.Unavailable, err: err}
	}
	defer streamSvc.Stop(context.Background())

	statusSrv := statusapi.NewServer(&cfg.StatusAPI, cfg.Chain.Name, ing.Head(), ing, log)
	go func() {
		if err := statusSrv.Start(ctx); err != nil {
			log.Errorw("status API stopped", "error", err)
		}
	}()

	log.Info("dna-server started")
	runErr := ing.Run(ctx)
	if runErr != nil && ctx.Err() == nil {
		return exitCodeErr{code: exitcode.Software, err: fmt.Errorf("ingestor stopped: %w", runErr)}
	}

	log.Info("dna-server stopped")
	return nil
}

func applyStartFlags(cfg *config.Config) {
	if flagRPC != "" {
		cfg.Chain.RPCURL = flagRPC
	}
	if flagAddress != "" {
		cfg.GRPC.ListenAddress = flagAddress
	}
	if flagBlocksPerSecond > 0 {
		cfg.Stream.RateLimitPerSecond = flagBlocksPerSecond
	}
	if flagHeadRefreshMs > 0 {
		cfg.Ingestor.HeadRefreshIntervalMs = flagHeadRefreshMs
	}
	if flagDataDir != "" {
		cfg.Ingestor.DB.Path = filepath.Join(flagDataDir, "checkpoint.db")
		cfg.BlockStore.DB.Path = filepath.Join(flagDataDir, "blockstore.db")
	}
}

// exitCodeErr carries a sysexits.h code alongside the error that caused it,
// so main can translate it to os.Exit without runStart calling os.Exit
// itself (which would skip the deferred cleanup above).
type exitCodeErr struct {
	code int
	err  error
}

func (e exitCodeErr) Error() string { return e.err.Error() }
func (e exitCodeErr) Unwrap() error { return e.err }
