package evm

import (
	"encoding/json"
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Component filter kinds as carried on the wire by dnapb.Filter.Kind.
const (
	FilterKindEvents       = "events"
	FilterKindTransactions = "transactions"
	FilterKindHeader       = "header"
)

// eventFilterJSON is the human-readable sink-config shape for EventFilter:
// gethcommon.Address/Hash already marshal to/from hex strings, satisfying
// the wire format rule that JSON filters carry hex rather than raw bytes.
type eventFilterJSON struct {
	Addresses          []gethcommon.Address `json:"addresses,omitempty"`
	Keys               []gethcommon.Hash    `json:"keys,omitempty"`
	IncludeTransaction bool                 `json:"include_transaction,omitempty"`
}

type transactionFilterJSON struct {
	To       *gethcommon.Address `json:"to,omitempty"`
	Selector hexutil.Bytes       `json:"selector,omitempty"`
}

type headerFilterJSON struct {
	Mode string `json:"mode,omitempty"`
}

// DecodeFilter parses one wire-level component filter (kind, JSON params)
// into the *Filter value FilterKeys/Matches expect. Implements
// chain.Chain.DecodeFilter.
func (a *Adapter) DecodeFilter(kind string, params []byte) (any, error) {
	switch kind {
	case FilterKindEvents:
		var w eventFilterJSON
		if len(params) > 0 {
			if err := json.Unmarshal(params, &w); err != nil {
				return nil, fmt.Errorf("evm: decode events filter: %w", err)
			}
		}
		return &Filter{Events: &EventFilter{
			Addresses:          w.Addresses,
			Keys:               w.Keys,
			IncludeTransaction: w.IncludeTransaction,
		}}, nil

	case FilterKindTransactions:
		var w transactionFilterJSON
		if len(params) > 0 {
			if err := json.Unmarshal(params, &w); err != nil {
				return nil, fmt.Errorf("evm: decode transactions filter: %w", err)
			}
		}
		return &Filter{Transactions: &TransactionFilter{
			To:       w.To,
			Selector: []byte(w.Selector),
		}}, nil

	case FilterKindHeader:
		var w headerFilterJSON
		if len(params) > 0 {
			if err := json.Unmarshal(params, &w); err != nil {
				return nil, fmt.Errorf("evm: decode header filter: %w", err)
			}
		}
		mode := HeaderAlways
		if w.Mode == "weak" {
			mode = HeaderWeak
		}
		return &Filter{Header: &HeaderFilter{Mode: mode}}, nil

	default:
		return nil, fmt.Errorf("evm: unknown filter kind %q", kind)
	}
}
