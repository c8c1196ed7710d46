package stream

import (
	"context"
	"time"

	"github.com/dna-engine/dna/api/dnapb"
	"github.com/dna-engine/dna/internal/metrics"
	"github.com/dna-engine/dna/internal/types"
)

// liveFollowOnce consumes IngestionEvents from the bus subscription until
// one of: a new request supersedes this stream, the subscription is
// detected lagged (handled by re-entering historical catch-up from the new
// head), or the context is cancelled. It returns after handling at most one
// event so Run's outer loop can re-check behindTail/requests between each.
func (e *Engine) liveFollowOnce(ctx context.Context, requests <-chan *dnapb.StreamDataRequest, responses chan<- *dnapb.StreamDataResponse, heartbeat *time.Timer) error {
	select {
	case <-ctx.Done():
		return ctx.Err()

	case req, ok := <-requests:
		if !ok {
			return nil
		}
		metrics.StreamCancellations.WithLabelValues("superseded").Inc()
		return e.handshake(ctx, req, responses)

	case <-e.sub.Lagged:
		metrics.BusLaggedSubscribers.WithLabelValues(e.chainName).Inc()
		e.sub = nil
		// Resume from the last cursor this engine actually delivered; the
		// next Run iteration's behindTail check will re-enter catch-up.
		return nil

	case <-heartbeat.C:
		err := e.send(ctx, responses, &dnapb.StreamDataResponse{StreamId: e.streamID, Heartbeat: &dnapb.HeartbeatMessage{}}, 0)
		if err == nil {
			resetTimer(heartbeat, e.heartbeatInterval())
		}
		return err

	case ev, ok := <-e.sub.Events:
		if !ok {
			return nil
		}
		return e.handleEvent(ctx, ev, responses)
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev types.IngestionEvent, responses chan<- *dnapb.StreamDataResponse) error {
	switch ev.Kind {
	case types.EventIngested:
		if ev.BlockCursor.Number < e.cursor.Number {
			return nil
		}
		if !ev.Finality.AtLeast(e.finality) {
			// Every live Ingested event is Pending (the ingestor never emits a
			// live Accepted/Finalized transition). Leaving e.cursor unmoved
			// here is deliberate: Run's loop re-checks behindTail right after
			// this returns, so once the block ages past catchUpCeiling it is
			// delivered through historical catch-up instead, with its true
			// finality label.
			return nil
		}
		matched, _, err := e.matchAny(ev.Block)
		if err != nil {
			return err
		}
		if !matched {
			e.cursor = types.NewCursor(ev.BlockCursor.Number+1, nil)
			return nil
		}
		data, err := e.chain.SerializeBlock(ev.Block)
		if err != nil {
			return err
		}
		if err := e.send(ctx, responses, &dnapb.StreamDataResponse{
			StreamId: e.streamID,
			Data: &dnapb.DataMessage{
				Cursor:    cursorToWire(ev.BlockCursor),
				EndCursor: cursorToWire(ev.BlockCursor),
				Finality:  finalityToWire(ev.Finality),
				Data:      [][]byte{data},
			},
		}, len(data)); err != nil {
			return err
		}
		e.cursor = types.NewCursor(ev.BlockCursor.Number+1, nil)
		return nil

	case types.EventInvalidated:
		e.cursor = ev.NewHead
		return e.send(ctx, responses, &dnapb.StreamDataResponse{
			StreamId: e.streamID,
			Invalidate: &dnapb.InvalidateMessage{
				Cursor:  cursorToWire(ev.NewHead),
				Removed: cursorsToWire(ev.Removed),
			},
		}, 0)

	case types.EventFinalized:
		// A Finalized-mode client already only ever receives data labeled
		// Finalized (via catch-up re-entry as view.Finalized() advances, see
		// catchUpCeiling) and has no use for the promotion notice itself.
		if e.finality == types.Finalized {
			return nil
		}
		return e.send(ctx, responses, &dnapb.StreamDataResponse{
			StreamId: e.streamID,
			Finalize: &dnapb.FinalizeMessage{Cursor: cursorToWire(ev.BlockCursor)},
		}, 0)

	default:
		return nil
	}
}
