package evm

import (
	gethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/dna-engine/dna/internal/types"
)

// HeaderMode selects how aggressively a HeaderFilter matches.
type HeaderMode int

const (
	// HeaderAlways matches every block regardless of other filters.
	HeaderAlways HeaderMode = iota
	// HeaderWeak only matches when accompanying a match from another
	// component filter in the same request (used to "also include the
	// header" rather than select on it).
	HeaderWeak
)

// EventFilter selects logs by emitting contract address and/or topics
// (event keys). A nil/empty Addresses or Keys slice is a wildcard.
type EventFilter struct {
	Addresses         []gethcommon.Address
	Keys              []gethcommon.Hash
	IncludeTransaction bool
}

// TransactionFilter selects transactions by recipient and/or 4-byte
// selector.
type TransactionFilter struct {
	To       *gethcommon.Address
	Selector []byte
}

// HeaderFilter selects (or tags along) the block header.
type HeaderFilter struct {
	Mode HeaderMode
}

// Filter is the sum of EVM component filters a StreamDataRequest carries.
// Exactly one of Events, Transactions, Header is populated per element of
// the wire-level filter list; StreamEngine evaluates the disjunction of all
// elements supplied by the client.
type Filter struct {
	Events      *EventFilter
	Transactions *TransactionFilter
	Header      *HeaderFilter
}

const (
	keyKindEventAddress = "event_address"
	keyKindEventTopic   = "event_topic"
	keyKindTxTo         = "tx_to"
	keyKindTxSelector   = "tx_selector"
)

func eventAddressKey(addr gethcommon.Address) types.KeyRef {
	return types.KeyRef{Kind: keyKindEventAddress, Key: addr.Hex()}
}

func eventTopicKey(topic gethcommon.Hash) types.KeyRef {
	return types.KeyRef{Kind: keyKindEventTopic, Key: topic.Hex()}
}

func txToKey(addr gethcommon.Address) types.KeyRef {
	return types.KeyRef{Kind: keyKindTxTo, Key: addr.Hex()}
}

func txSelectorKey(selector []byte) types.KeyRef {
	return types.KeyRef{Kind: keyKindTxSelector, Key: gethcommon.Bytes2Hex(selector)}
}
