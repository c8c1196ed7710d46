package stream

import (
	"context"

	"github.com/dna-engine/dna/api/dnapb"
	"github.com/dna-engine/dna/internal/types"
)

// behindTail reports whether the engine's cursor is still far enough from
// its catch-up ceiling (spec §4.4's PendingTailDepth, K, further bounded by
// view.Finalized() for Finalized-mode streams) that historical catch-up
// should keep scanning BlockStore rather than switch to following the live
// bus — a cursor within K of head risks racing a reorg that hasn't
// propagated to BlockStore yet, and the ingestor never emits a live
// Accepted/Finalized transition for a block (it only ever delivers Pending
// over the bus, promoting via a separate Finalize control message), so a
// Finalized-mode client's data must come from catch-up re-entry as
// view.Finalized() advances rather than from a live Data message.
func (e *Engine) behindTail() bool {
	return e.cursor.Number < e.catchUpCeiling()+1
}

// catchUpCeiling is the highest block number historical catch-up may
// currently deliver. It is always bounded by PendingTailDepth below head
// (blocks any closer to head are still Pending and are only ever delivered
// live), and for Finalized-mode streams it is additionally bounded by
// view.Finalized(), since Accepted blocks must never reach a client that
// asked only for Finalized data. As view.Finalized() advances (signalled by
// an EventFinalized bus event waking the Run loop), the ceiling grows and
// behindTail naturally re-admits the newly-finalized range to catch-up.
func (e *Engine) catchUpCeiling() uint64 {
	head := e.view.Head()
	ceiling := head - e.cfg.PendingTailDepth
	if e.finality == types.Finalized {
		if fin := e.view.Finalized(); fin < ceiling {
			ceiling = fin
		}
	}
	return ceiling
}

// catchUpBatch scans one bounded batch of matching blocks from BlockStore
// and delivers them as a single DataMessage. It returns the number of
// blocks sent (0 is a legitimate outcome: the batch range had no matches).
// The batch is clipped at the view.Finalized() boundary so its single
// Finality label is always accurate: a range that is part Accepted and
// part Finalized is split across two batches rather than mislabeled.
func (e *Engine) catchUpBatch(ctx context.Context, responses chan<- *dnapb.StreamDataResponse) (int, error) {
	ceiling := e.catchUpCeiling()
	from := e.cursor.Number
	to := from + e.cfg.HistoricalBatchSize - 1
	if to > ceiling {
		to = ceiling
	}
	if to < from {
		return 0, nil
	}

	label := types.Accepted
	if finalized := e.view.Finalized(); from <= finalized {
		if to > finalized {
			to = finalized
		}
		label = types.Finalized
	}

	keys, err := e.filterKeys()
	if err != nil {
		return 0, err
	}

	candidates, err := e.store.Scan(ctx, keys, from, to, e.view.Canonical)
	if err != nil {
		return 0, err
	}

	var cursors []types.Cursor
	var payloads [][]byte
	for _, cand := range candidates {
		blk, err := e.store.Get(ctx, cand)
		if err != nil {
			return 0, err
		}
		matched, _, err := e.matchAny(blk)
		if err != nil {
			return 0, err
		}
		if !matched {
			continue
		}
		data, err := e.chain.SerializeBlock(blk)
		if err != nil {
			return 0, err
		}
		cursors = append(cursors, cand)
		payloads = append(payloads, data)
	}

	e.cursor = types.NewCursor(to+1, nil)

	if len(cursors) == 0 {
		return 0, nil
	}

	weight := 0
	for _, p := range payloads {
		weight += len(p)
	}

	resp := &dnapb.StreamDataResponse{
		StreamId: e.streamID,
		Data: &dnapb.DataMessage{
			Cursor:    cursorToWire(cursors[0]),
			EndCursor: cursorToWire(cursors[len(cursors)-1]),
			Finality:  finalityToWire(label),
			Data:      payloads,
		},
	}
	if err := e.send(ctx, responses, resp, weight); err != nil {
		return 0, err
	}
	return len(cursors), nil
}

// matchAny evaluates chain.Chain.Matches against each of the stream's
// component filters (OR semantics across filters, see AllowMultiFilter) and
// reports the first match. The narrowed projection Matches returns is not
// separately serialized — SerializeBlock always encodes the full matched
// block, keeping internal/stream chain-agnostic rather than needing a
// second, projection-specific encoder per chain adapter.
func (e *Engine) matchAny(blk *types.Block) (bool, any, error) {
	if len(e.filters) == 0 {
		return true, blk, nil
	}
	for _, f := range e.filters {
		matched, projected, err := e.chain.Matches(f, blk)
		if err != nil {
			return false, nil, err
		}
		if matched {
			return true, projected, nil
		}
	}
	return false, nil, nil
}

func (e *Engine) filterKeys() ([]types.KeyRef, error) {
	if len(e.filters) == 0 {
		return nil, nil
	}
	var keys []types.KeyRef
	for _, f := range e.filters {
		ks, err := e.chain.FilterKeys(f)
		if err != nil {
			return nil, err
		}
		keys = append(keys, ks...)
	}
	return keys, nil
}
