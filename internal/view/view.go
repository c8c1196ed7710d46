// Package view implements ChainView, the pure, non-blocking value type that
// tracks the in-memory canonical chain segment [finalized..head] plus reorg
// redirection history, as owned exclusively by the Ingestor.
package view

import (
	"bytes"
	"fmt"

	"github.com/dna-engine/dna/internal/types"
)

// ConnectResult is the outcome of View.Connect.
type ConnectResult int

const (
	// Continue means the queried cursor is still canonical.
	Continue ConnectResult = iota
	// OfflineReorg means the queried cursor was superseded; Target is the
	// cursor to resume from.
	OfflineReorg
)

// ConnectOutcome pairs a ConnectResult with the redirection target, when any.
type ConnectOutcome struct {
	Result ConnectResult
	Target types.Cursor
}

// View is the pure, immutable-by-convention value type described in the
// ingestion specification's §4.1. All operations are total: Can* predicates
// never panic, and the corresponding mutator must only be called when its
// precondition holds (callers in internal/ingestor always check first).
type View struct {
	finalized uint64
	head      uint64

	// canonical[n] is the hash canonical at height n, defined exactly on
	// [finalized..head].
	canonical map[uint64][]byte

	// reorgs[n][oldHash] redirects an orphaned hash at height n to the
	// cursor of the fork point that replaced it.
	reorgs map[uint64]map[string]types.Cursor
}

// New seeds a View at genesis: finalized == head == genesis.Number.
func New(genesis types.Cursor) *View {
	v := &View{
		finalized: genesis.Number,
		head:      genesis.Number,
		canonical: map[uint64][]byte{genesis.Number: append([]byte(nil), genesis.Hash...)},
		reorgs:    map[uint64]map[string]types.Cursor{genesis.Number: {}},
	}
	return v
}

// Finalized returns the current finalized height.
func (v *View) Finalized() uint64 { return v.finalized }

// Head returns the current head height.
func (v *View) Head() uint64 { return v.head }

// Canonical returns the canonical hash at height n and whether it is defined.
func (v *View) Canonical(n uint64) ([]byte, bool) {
	h, ok := v.canonical[n]
	return h, ok
}

// CanGrow reports whether blk extends the current head by exactly one block
// whose parent is the current canonical head.
func (v *View) CanGrow(blk types.Block) bool {
	if blk.Cursor.Number != v.head+1 {
		return false
	}
	headHash, ok := v.canonical[v.head]
	if !ok {
		return false
	}
	return bytes.Equal(headHash, blk.Parent)
}

// Grow extends head by one block. Panics if CanGrow(blk) is false; callers
// must check the precondition first (per the spec's Can*/mutator pairing).
func (v *View) Grow(blk types.Block) {
	if !v.CanGrow(blk) {
		panic(fmt.Sprintf("view: Grow precondition violated for %s", blk.Cursor))
	}
	v.head = blk.Cursor.Number
	v.canonical[v.head] = append([]byte(nil), blk.Cursor.Hash...)
	if _, ok := v.reorgs[v.head]; !ok {
		v.reorgs[v.head] = map[string]types.Cursor{}
	}
}

// CanShrink reports whether cur identifies a currently canonical block
// strictly between finalized and head.
func (v *View) CanShrink(cur types.Cursor) bool {
	if !(v.finalized < cur.Number && cur.Number < v.head) {
		return false
	}
	h, ok := v.canonical[cur.Number]
	if !ok {
		return false
	}
	return bytes.Equal(h, cur.Hash)
}

// Shrink truncates head to cur.Number. For every removed height, the old
// canonical hash is redirected to cur in the reorgs map. Panics if
// CanShrink(cur) is false.
func (v *View) Shrink(cur types.Cursor) []types.Cursor {
	if !v.CanShrink(cur) {
		panic(fmt.Sprintf("view: Shrink precondition violated for %s", cur))
	}

	removed := make([]types.Cursor, 0, v.head-cur.Number)
	for n := v.head; n > cur.Number; n-- {
		oldHash, ok := v.canonical[n]
		if ok {
			removed = append(removed, types.NewCursor(n, oldHash))
			if _, ok := v.reorgs[n]; !ok {
				v.reorgs[n] = map[string]types.Cursor{}
			}
			v.reorgs[n][string(oldHash)] = cur
			delete(v.canonical, n)
		}
	}
	v.head = cur.Number
	return removed
}

// CanFinalize reports whether n is a valid next finalization height.
func (v *View) CanFinalize(n uint64) bool {
	return v.finalized < n && n <= v.head
}

// Finalize discards canonical and reorgs entries strictly below n and
// advances the finalized watermark. Panics if CanFinalize(n) is false.
// Returns the list of heights newly finalized, in ascending order, so
// callers can emit one Finalized event per height.
func (v *View) Finalize(n uint64) []uint64 {
	if !v.CanFinalize(n) {
		panic(fmt.Sprintf("view: Finalize precondition violated for %d", n))
	}

	newlyFinalized := make([]uint64, 0, n-v.finalized)
	for h := v.finalized + 1; h <= n; h++ {
		newlyFinalized = append(newlyFinalized, h)
	}

	for h := v.finalized; h < n; h++ {
		delete(v.canonical, h)
		delete(v.reorgs, h)
	}
	v.finalized = n
	return newlyFinalized
}

// Connect resolves a client-supplied resume cursor against the current
// view. If cur is still canonical, returns Continue. Otherwise it follows
// the reorgs redirection chain forward until it lands on a currently
// canonical cursor, returning OfflineReorg(target).
func (v *View) Connect(cur types.Cursor) ConnectOutcome {
	if h, ok := v.canonical[cur.Number]; ok && bytes.Equal(h, cur.Hash) {
		return ConnectOutcome{Result: Continue, Target: cur}
	}

	current := cur
	// Bound the walk by the number of recorded reorg entries to guarantee
	// termination even in the face of a programming error that introduces
	// a cycle (the invariant guarantees none exists).
	maxHops := 1
	for _, m := range v.reorgs {
		maxHops += len(m)
	}

	for hop := 0; hop < maxHops; hop++ {
		redirects, ok := v.reorgs[current.Number]
		if !ok {
			break
		}
		target, ok := redirects[string(current.Hash)]
		if !ok {
			break
		}
		if h, ok := v.canonical[target.Number]; ok && bytes.Equal(h, target.Hash) {
			return ConnectOutcome{Result: OfflineReorg, Target: target}
		}
		current = target
	}

	return ConnectOutcome{Result: OfflineReorg, Target: current}
}

// ReorgsAt returns a copy of the redirection map recorded at height n, for
// diagnostics and tests.
func (v *View) ReorgsAt(n uint64) map[string]types.Cursor {
	out := make(map[string]types.Cursor, len(v.reorgs[n]))
	for k, c := range v.reorgs[n] {
		out[k] = c
	}
	return out
}
