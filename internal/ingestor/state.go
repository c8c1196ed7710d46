package ingestor

// State is one of the five explicit states of the reorg-detection state
// machine.
type State int

const (
	// Init: no head cursor known yet.
	Init State = iota
	// Ingest: steady state; may refresh head, refresh finalized, or ingest
	// the next block.
	Ingest
	// ForceHeadRefresh: the next block at head+1 could not be retrieved by
	// number; re-query head before proceeding.
	ForceHeadRefresh
	// FetchParentAndRecover: candidate next block does not chain onto the
	// current head; walk back via parent hashes to find a fork point.
	FetchParentAndRecover
	// Recover: iterating backward comparing incoming ancestor to stored
	// canonical ancestor; on match, issue shrink and return to Ingest.
	Recover
)

// String renders the state as its lowercase_with_underscore metric label.
func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Ingest:
		return "ingest"
	case ForceHeadRefresh:
		return "force_head_refresh"
	case FetchParentAndRecover:
		return "fetch_parent_and_recover"
	case Recover:
		return "recover"
	default:
		return "unknown"
	}
}
