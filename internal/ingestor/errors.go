package ingestor

import "fmt"

// ErrReorgDepthExceeded is fatal to the ingestion pipeline: an incoming
// block's ancestor chain walked back past view.finalized without finding a
// match, which indicates either a finality mis-assumption or store
// corruption. Operator intervention is required (spec §7).
type ErrReorgDepthExceeded struct {
	FinalizedAt uint64
	WalkedBackTo uint64
}

func (e *ErrReorgDepthExceeded) Error() string {
	return fmt.Sprintf("reorg walk-back passed finalized height %d (reached %d) without finding a common ancestor",
		e.FinalizedAt, e.WalkedBackTo)
}

// ReorgDetectedError is emitted (not returned as a fatal error — ingestion
// continues) whenever Recover successfully resolves a reorg, so callers can
// distinguish "recovered from a reorg" from "ordinary progress" in logs and
// metrics.
type ReorgDetectedError struct {
	ForkPoint  uint64
	RemovedMax uint64
}

func (e *ReorgDetectedError) Error() string {
	return fmt.Sprintf("reorg detected: fork point %d, removed up to height %d", e.ForkPoint, e.RemovedMax)
}

// NewReorgDetectedError constructs a ReorgDetectedError.
func NewReorgDetectedError(forkPoint, removedMax uint64) *ReorgDetectedError {
	return &ReorgDetectedError{ForkPoint: forkPoint, RemovedMax: removedMax}
}
