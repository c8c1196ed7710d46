package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/dna-engine/dna/api/dnapb"
	"github.com/dna-engine/dna/internal/bus"
	"github.com/dna-engine/dna/internal/chain"
	"github.com/dna-engine/dna/internal/logger"
	"github.com/dna-engine/dna/internal/metrics"
	"github.com/dna-engine/dna/internal/quota"
	"github.com/dna-engine/dna/internal/types"
	"github.com/dna-engine/dna/pkg/config"
)

// state is the StreamEngine's lifecycle stage, per the ingestion
// specification's §4.4 state diagram.
type state int

const (
	stateHandshake state = iota
	stateHistoricalCatchUp
	stateLiveFollow
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateHandshake:
		return "handshake"
	case stateHistoricalCatchUp:
		return "historical_catch_up"
	case stateLiveFollow:
		return "live_follow"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Identity names the caller a stream is billed/rate-limited against. It is
// resolved by internal/streamservice from connection metadata (API key,
// peer) before Run is invoked; internal/stream itself never parses auth.
type Identity struct {
	Team    string
	Client  string
	Network string
}

// Engine is a single client's StreamEngine: one instance per active
// StreamData call, holding no state shared across streams other than the
// read-only capabilities it was constructed with.
type Engine struct {
	chainName string
	identity  Identity

	store BlockStore
	bus   Bus
	view  ViewSnapshot
	chain chain.Chain
	quota quota.Quota

	cfg config.StreamConfig
	log *logger.Logger

	limiter *rateLimiter

	state state
	sub   *bus.Subscription

	streamID uint64
	filters  []any
	finality types.Finality
	cursor   types.Cursor

	lagBytes int64
}

// New constructs an Engine. store/busImpl/viewSnapshot/ch are the narrow
// capability interfaces this package depends on; q may be quota.NoOp{} when
// no external quota service is configured.
func New(
	chainName string,
	identity Identity,
	store BlockStore,
	busImpl Bus,
	viewSnapshot ViewSnapshot,
	ch chain.Chain,
	q quota.Quota,
	cfg config.StreamConfig,
	log *logger.Logger,
) *Engine {
	return &Engine{
		chainName: chainName,
		identity:  identity,
		store:     store,
		bus:       busImpl,
		view:      viewSnapshot,
		chain:     ch,
		quota:     q,
		cfg:       cfg,
		log:       log.WithComponent("stream"),
		limiter:   newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, cfg.BytesPerSecondLimit, cfg.BytesPerSecondBurst),
		state:     stateHandshake,
	}
}

func (e *Engine) setState(s state) {
	if s == e.state {
		return
	}
	metrics.StreamStateTransitions.WithLabelValues(e.state.String(), s.String()).Inc()
	e.state = s
}

func (e *Engine) heartbeatInterval() time.Duration {
	return time.Duration(e.cfg.HeartbeatIntervalMs) * time.Millisecond
}

// Run drives the StreamEngine to completion: it blocks until ctx is
// cancelled, the client closes requests, an unrecoverable error occurs, or
// the stream is terminated for exceeding its resource budget. requests
// delivers every StreamDataRequest the client sends on this logical
// channel — the first is the initial Handshake, and each subsequent one
// supersedes whatever the engine was doing. responses is the engine's sole
// output; Run never closes it (the caller owns that).
func (e *Engine) Run(ctx context.Context, requests <-chan *dnapb.StreamDataRequest, responses chan<- *dnapb.StreamDataResponse) error {
	metrics.ActiveStreams.WithLabelValues(e.chainName).Inc()
	defer metrics.ActiveStreams.WithLabelValues(e.chainName).Dec()
	defer e.setState(stateClosed)
	defer func() {
		if e.sub != nil {
			e.sub.Unsubscribe()
		}
	}()

	var initial *dnapb.StreamDataRequest
	select {
	case <-ctx.Done():
		return ctx.Err()
	case req, ok := <-requests:
		if !ok {
			return nil
		}
		initial = req
	}

	if err := e.handshake(ctx, initial, responses); err != nil {
		return err
	}

	heartbeat := time.NewTimer(e.heartbeatInterval())
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case req, ok := <-requests:
			if !ok {
				return nil
			}
			metrics.StreamCancellations.WithLabelValues("superseded").Inc()
			if err := e.handshake(ctx, req, responses); err != nil {
				return err
			}
			resetTimer(heartbeat, e.heartbeatInterval())
			continue

		case <-heartbeat.C:
			if err := e.send(ctx, responses, &dnapb.StreamDataResponse{
				StreamId:  e.streamID,
				Heartbeat: &dnapb.HeartbeatMessage{},
			}, 0); err != nil {
				return err
			}
			resetTimer(heartbeat, e.heartbeatInterval())
			continue

		default:
		}

		if head := e.view.Head(); e.state == stateLiveFollow && head > e.cursor.Number && int(head-e.cursor.Number) > e.cfg.MaxLagBlocks {
			metrics.StreamBackpressureEvents.WithLabelValues(e.chainName).Inc()
			return ErrResourceExhausted
		}

		if e.behindTail() {
			e.setState(stateHistoricalCatchUp)
			sent, err := e.catchUpBatch(ctx, responses)
			if err != nil {
				return err
			}
			if sent > 0 {
				resetTimer(heartbeat, e.heartbeatInterval())
			}
			continue
		}

		e.setState(stateLiveFollow)
		if e.sub == nil {
			e.sub = e.bus.Subscribe()
		}
		if err := e.liveFollowOnce(ctx, requests, responses, heartbeat); err != nil {
			return err
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// send delivers one response, enforcing backpressure (MaxLagBlocks via the
// caller's bookkeeping, MaxLagBytes here) and rate limiting (both
// blocks_per_second and bytes_per_second) before the blocking channel send.
func (e *Engine) send(ctx context.Context, responses chan<- *dnapb.StreamDataResponse, resp *dnapb.StreamDataResponse, weight int) error {
	if weight > 0 {
		if err := e.limiter.Wait(ctx, 1, weight); err != nil {
			metrics.StreamRateLimited.WithLabelValues(e.chainName).Inc()
			return fmt.Errorf("stream: rate limiter: %w", err)
		}
		e.lagBytes += int64(weight)
		if e.lagBytes > e.cfg.MaxLagBytes {
			metrics.StreamBackpressureEvents.WithLabelValues(e.chainName).Inc()
			return ErrResourceExhausted
		}
		if e.quota != nil {
			verdict, err := e.quota.UpdateAndCheck(ctx, e.identity.Team, e.identity.Client, e.identity.Network, uint64(weight))
			if err != nil {
				return fmt.Errorf("stream: quota check: %w", err)
			}
			if verdict == quota.Exceeded {
				return ErrResourceExhausted
			}
		}
	}

	select {
	case responses <- resp:
		e.lagBytes = 0
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
