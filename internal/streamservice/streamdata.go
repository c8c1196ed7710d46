package streamservice

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dna-engine/dna/api/dnapb"
	"github.com/dna-engine/dna/internal/logger"
	"github.com/dna-engine/dna/internal/stream"
)

// StreamData implements dnapb.StreamServiceServer. Each call is admitted
// against the MaxConcurrentStreams ceiling, then bridged to a fresh
// internal/stream.Engine: one goroutine pumps inbound Recv into a request
// channel, Engine.Run drives the state machine, and this goroutine relays
// its responses back out over Send.
func (s *Service) StreamData(srv dnapb.StreamService_StreamDataServer) error {
	if !s.sem.TryAcquire(1) {
		return status.Error(codes.ResourceExhausted, "max concurrent streams reached")
	}
	defer s.sem.Release(1)

	ctx := srv.Context()
	identity := identityFromContext(ctx)

	// connID correlates every log line emitted by this call's Engine across
	// concurrent clients; it is internal bookkeeping, distinct from the
	// client-chosen StreamId carried on the wire.
	connID := uuid.NewString()
	connLog := &logger.Logger{SugaredLogger: s.log.With("conn_id", connID, "client", identity.Client)}

	requests := make(chan *dnapb.StreamDataRequest)
	recvErr := make(chan error, 1)
	go func() {
		defer close(requests)
		for {
			req, err := srv.Recv()
			if err != nil {
				recvErr <- err
				return
			}
			select {
			case requests <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	responses := make(chan *dnapb.StreamDataResponse, s.cfg.Stream.OutboundBufferSize)
	engine := stream.New(s.cfg.ChainName, identity, s.cfg.Store, s.cfg.Bus, s.cfg.View, s.cfg.Chain, s.cfg.Quota, s.cfg.Stream, connLog)

	runErr := make(chan error, 1)
	go func() { runErr <- engine.Run(ctx, requests, responses) }()

	for {
		select {
		case resp := <-responses:
			if err := srv.Send(resp); err != nil {
				return err
			}

		case err := <-runErr:
			return translateRunError(err)

		case err := <-recvErr:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// identityFromContext resolves the caller's billing/rate-limit identity
// from gRPC metadata. Real deployments authenticate via a TLS client cert
// or an API-key interceptor upstream of this handler; absent any of that
// here, identity falls back to whatever the client declares.
func identityFromContext(ctx context.Context) stream.Identity {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return stream.Identity{}
	}
	first := func(key string) string {
		vals := md.Get(key)
		if len(vals) == 0 {
			return ""
		}
		return vals[0]
	}
	return stream.Identity{
		Team:    first("x-dna-team"),
		Client:  first("x-dna-client"),
		Network: first("x-dna-network"),
	}
}

func translateRunError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, stream.ErrInvalidFilter):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, stream.ErrResourceExhausted):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, stream.ErrIdleTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
