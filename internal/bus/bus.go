// Package bus implements the IngestionBus: a single-writer, many-reader
// broadcast of IngestionEvents in strict ingestion order. It is modeled on
// go-ethereum's event.Feed (as used throughout the sharding/beacon-chain
// services this repository's stack is grounded on), generalized with
// explicit per-subscriber lag detection: event.Feed blocks the writer when a
// subscriber's channel is full, but a lagging StreamEngine must instead be
// detached and told to resync from BlockStore rather than stall ingestion.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/dna-engine/dna/internal/logger"
	"github.com/dna-engine/dna/internal/metrics"
	"github.com/dna-engine/dna/internal/types"
)

// Bus fans out IngestionEvents to every active Subscription. Publish never
// blocks on a slow reader: a subscriber whose buffer is full is detached
// immediately and signalled via its Lagged channel.
type Bus struct {
	chainName  string
	bufferSize int
	log        *logger.Logger

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
}

// New constructs a Bus. bufferSize is the number of undelivered events a
// subscriber may queue before being considered lagged.
func New(chainName string, bufferSize int, log *logger.Logger) *Bus {
	return &Bus{
		chainName:  chainName,
		bufferSize: bufferSize,
		log:        log.WithComponent("bus"),
		subs:       make(map[uint64]*Subscription),
	}
}

// Subscription is a single reader's handle on the bus. Events delivers
// in-order IngestionEvents; Lagged is closed exactly once, the moment this
// subscription is detached for falling behind. Callers must always select on
// both: once Lagged fires, Events will receive no further sends and should
// be abandoned in favor of a BlockStore-seeded historical catch-up.
type Subscription struct {
	id     uint64
	Events chan types.IngestionEvent
	Lagged chan struct{}

	bus       *Bus
	closeOnce sync.Once
}

// Unsubscribe detaches this subscription without signalling Lagged. Safe to
// call multiple times and safe to call after the subscription has already
// been detached for lag.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s.id)
	s.closeOnce.Do(func() { close(s.Events) })
}

// Subscribe registers a new reader. The returned Subscription must be
// unsubscribed (or drained until Lagged fires) by the caller.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		Events: make(chan types.IngestionEvent, b.bufferSize),
		Lagged: make(chan struct{}),
		bus:    b,
	}
	b.subs[sub.id] = sub
	return sub
}

// Publish broadcasts event to every currently subscribed reader in a single
// pass. A reader whose buffer is full is detached and its Lagged channel
// closed; Publish itself never blocks waiting for a reader to drain.
func (b *Bus) Publish(_ context.Context, event types.IngestionEvent) error {
	start := time.Now()
	defer func() { metrics.BusPublishDuration.Observe(time.Since(start).Seconds()) }()

	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.Events <- event:
		default:
			b.detachLagged(sub)
		}
	}
	return nil
}

// detachLagged removes sub from the subscriber set and signals Lagged. Safe
// to race with a concurrent Unsubscribe: only the first of the two closes
// each channel.
func (b *Bus) detachLagged(sub *Subscription) {
	b.remove(sub.id)
	closedNow := false
	sub.closeOnce.Do(func() {
		close(sub.Events)
		closedNow = true
	})
	if closedNow {
		close(sub.Lagged)
		metrics.BusLaggedSubscribers.WithLabelValues(b.chainName).Inc()
		b.log.Warnf("subscriber %d lagged and was detached from the bus", sub.id)
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// SubscriberCount reports the number of currently attached subscribers, for
// status/health reporting.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
