// Package streamservice exposes internal/stream's per-client StreamEngine
// over gRPC, implementing api/dnapb's StreamService. It owns the listener
// lifecycle, per-client admission control, and request/response plumbing;
// all ingestion-path logic stays in internal/stream.
package streamservice

import (
	"context"
	"fmt"
	"net"

	middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"golang.org/x/sync/semaphore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/dna-engine/dna/api/dnapb"
	"github.com/dna-engine/dna/internal/chain"
	"github.com/dna-engine/dna/internal/logger"
	"github.com/dna-engine/dna/internal/quota"
	"github.com/dna-engine/dna/internal/stream"
	"github.com/dna-engine/dna/pkg/config"
)

// Config configures a Service. StartingBlock is the chain's genesis height,
// surfaced verbatim in StatusResponse; everything else is the capability
// set internal/stream.Engine needs, constructed once per chain and shared
// across every client connection.
type Config struct {
	ChainName     string
	Address       string
	StartingBlock uint64

	Store stream.BlockStore
	Bus   stream.Bus
	View  stream.ViewSnapshot
	Chain chain.Chain
	Quota quota.Quota

	Stream config.StreamConfig
}

// Service is the gRPC server for StreamService. One Service serves every
// client for a single chain; each StreamData call gets its own
// internal/stream.Engine.
type Service struct {
	dnapb.UnimplementedStreamServiceServer

	cfg      Config
	log      *logger.Logger
	listener net.Listener
	server   *grpc.Server
	sem      *semaphore.Weighted
}

// New constructs a Service. Start must be called to begin serving.
func New(cfg Config, log *logger.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log.WithComponent("streamservice"),
		sem: semaphore.NewWeighted(cfg.Stream.MaxConcurrentStreams),
	}
}

// Start binds the listener and begins serving in a background goroutine,
// following the teacher's Start/Stop/Status service lifecycle shape
// (grpc.NewServer with a recovery+logging interceptor chain, reflection
// registered for operator tooling).
func (s *Service) Start() error {
	lis, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("streamservice: listen %s: %w", s.cfg.Address, err)
	}
	s.listener = lis

	zapLogger := s.log.Desugar()
	opts := []grpc.ServerOption{
		grpc.StreamInterceptor(middleware.ChainStreamServer(
			recovery.StreamServerInterceptor(),
			grpc_zap.StreamServerInterceptor(zapLogger),
		)),
		grpc.UnaryInterceptor(middleware.ChainUnaryServer(
			recovery.UnaryServerInterceptor(),
			grpc_zap.UnaryServerInterceptor(zapLogger),
		)),
	}
	s.server = grpc.NewServer(opts...)
	dnapb.RegisterStreamServiceServer(s.server, s)
	reflection.Register(s.server)

	s.log.Infow("stream service listening", "address", s.cfg.Address)
	go func() {
		if err := s.server.Serve(lis); err != nil {
			s.log.Errorw("stream service stopped serving", "error", err)
		}
	}()
	return nil
}

// Stop gracefully drains in-flight streams and stops serving.
func (s *Service) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}
