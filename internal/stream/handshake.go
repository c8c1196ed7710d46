package stream

import (
	"context"
	"fmt"

	"github.com/dna-engine/dna/api/dnapb"
	"github.com/dna-engine/dna/internal/types"
	"github.com/dna-engine/dna/internal/view"
)

// handshake validates req, resolves its filters and resume cursor, and —
// per spec §4.4 step 1 — consults the view directly (the one exception to
// "StreamEngines only read state via bus events") to detect whether the
// client's starting cursor was already superseded by an offline reorg.
func (e *Engine) handshake(ctx context.Context, req *dnapb.StreamDataRequest, responses chan<- *dnapb.StreamDataResponse) error {
	filters, err := e.decodeFilters(req.GetFilter(), req.GetBatchSize())
	if err != nil {
		return err
	}

	e.streamID = req.GetStreamId()
	e.filters = filters
	e.finality = wireToFinality(req.GetFinality())
	e.lagBytes = 0
	if e.sub != nil {
		e.sub.Unsubscribe()
		e.sub = nil
	}

	start, hasStart := wireToCursor(req.GetStartingCursor())
	if !hasStart {
		// No resume point: begin at the current head, live-only.
		e.cursor = types.NewCursor(e.view.Head(), nil)
		e.setState(stateLiveFollow)
		return nil
	}

	e.cursor = start
	if start.IsWildcard() {
		e.setState(stateHistoricalCatchUp)
		return nil
	}

	outcome := e.view.Connect(start)
	if outcome.Result == view.OfflineReorg {
		e.cursor = outcome.Target
		if err := e.send(ctx, responses, &dnapb.StreamDataResponse{
			StreamId: e.streamID,
			Invalidate: &dnapb.InvalidateMessage{
				Cursor: cursorToWire(outcome.Target),
			},
		}, 0); err != nil {
			return err
		}
	}

	e.setState(stateHistoricalCatchUp)
	return nil
}

func (e *Engine) decodeFilters(wire []*dnapb.Filter, batchSize uint32) ([]any, error) {
	if len(wire) == 0 {
		return nil, nil
	}
	if len(wire) > 1 && !e.cfg.AllowMultiFilter {
		return nil, fmt.Errorf("%w: multiple component filters require multi_filter mode", ErrInvalidFilter)
	}
	if len(wire) > 1 && batchSize != 1 {
		return nil, fmt.Errorf("%w: multi-filter streams require batch_size == 1", ErrInvalidFilter)
	}
	out := make([]any, 0, len(wire))
	for _, f := range wire {
		decoded, err := e.chain.DecodeFilter(f.GetKind(), f.GetParams())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		out = append(out, decoded)
	}
	return out, nil
}
