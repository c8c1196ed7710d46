package types

// Block is the chain-agnostic envelope the Ingestor, BlockStore, and
// StreamEngine pass around. Payload carries the chain-parameterized body
// (for EVM: header, transactions, logs, receipts, withdrawals); only the
// Chain adapter (internal/chain) interprets it.
type Block struct {
	Cursor  Cursor
	Parent  []byte
	Payload any
}

// KeyRef identifies one filter key derived from a block by the chain
// adapter (e.g. an event's from_address, or a topic). Kind namespaces the
// Key so different component filters never collide in the bitmap index.
type KeyRef struct {
	Kind string
	Key  string
}
