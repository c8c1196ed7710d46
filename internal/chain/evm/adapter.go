// Package evm implements the chain.Chain capability set for EVM-compatible
// chains: block/log decoding, filter-key derivation, and filter matching,
// backed by go-ethereum's wire types.
package evm

import (
	"encoding/json"
	"fmt"

	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/dna-engine/dna/internal/chain"
	"github.com/dna-engine/dna/internal/types"
)

// Adapter implements chain.Chain for EVM-compatible chains.
type Adapter struct{}

var _ chain.Chain = (*Adapter)(nil)

// NewAdapter constructs the EVM chain adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Name implements chain.Chain.
func (a *Adapter) Name() string { return "evm" }

// DeriveKeys implements chain.Chain. It derives one event_address/event_topic
// key per log, and one tx_to/tx_selector key per transaction, matching the
// component filters defined in filter.go.
func (a *Adapter) DeriveKeys(block *types.Block) []types.KeyRef {
	payload, ok := block.Payload.(*Payload)
	if !ok || payload == nil {
		return nil
	}

	var keys []types.KeyRef
	for _, log := range payload.Logs {
		keys = append(keys, eventAddressKey(log.Address))
		for _, topic := range log.Topics {
			keys = append(keys, eventTopicKey(topic))
		}
	}

	for _, tx := range payload.Transactions {
		if to := tx.To(); to != nil {
			keys = append(keys, txToKey(*to))
		}
		if data := tx.Data(); len(data) >= 4 {
			keys = append(keys, txSelectorKey(data[:4]))
		}
	}

	return keys
}

// wireBlock is the JSON-serializable durable encoding of a Block.
type wireBlock struct {
	Number  uint64 `json:"number"`
	Hash    []byte `json:"hash"`
	Parent  []byte `json:"parent"`
	Payload struct {
		Header       json.RawMessage   `json:"header"`
		Transactions []json.RawMessage `json:"transactions"`
		Logs         []json.RawMessage `json:"logs"`
		Receipts     []json.RawMessage `json:"receipts,omitempty"`
		Withdrawals  []json.RawMessage `json:"withdrawals,omitempty"`
	} `json:"payload"`
}

// SerializeBlock implements chain.Chain using each go-ethereum wire type's
// own JSON marshaling, wrapped in a stable envelope BlockStore persists.
func (a *Adapter) SerializeBlock(block *types.Block) ([]byte, error) {
	payload, ok := block.Payload.(*Payload)
	if !ok || payload == nil {
		return nil, fmt.Errorf("evm: SerializeBlock: block payload is not *evm.Payload")
	}

	var wb wireBlock
	wb.Number = block.Cursor.Number
	wb.Hash = block.Cursor.Hash
	wb.Parent = block.Parent

	headerJSON, err := json.Marshal(payload.Header)
	if err != nil {
		return nil, fmt.Errorf("evm: marshal header: %w", err)
	}
	wb.Payload.Header = headerJSON

	for _, tx := range payload.Transactions {
		txJSON, err := tx.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("evm: marshal transaction: %w", err)
		}
		wb.Payload.Transactions = append(wb.Payload.Transactions, txJSON)
	}

	for _, log := range payload.Logs {
		logJSON, err := json.Marshal(log)
		if err != nil {
			return nil, fmt.Errorf("evm: marshal log: %w", err)
		}
		wb.Payload.Logs = append(wb.Payload.Logs, logJSON)
	}

	for _, receipt := range payload.Receipts {
		receiptJSON, err := json.Marshal(receipt)
		if err != nil {
			return nil, fmt.Errorf("evm: marshal receipt: %w", err)
		}
		wb.Payload.Receipts = append(wb.Payload.Receipts, receiptJSON)
	}

	for _, wd := range payload.Withdrawals {
		wdJSON, err := json.Marshal(wd)
		if err != nil {
			return nil, fmt.Errorf("evm: marshal withdrawal: %w", err)
		}
		wb.Payload.Withdrawals = append(wb.Payload.Withdrawals, wdJSON)
	}

	return json.Marshal(wb)
}

// ParseBlock implements chain.Chain, the inverse of SerializeBlock.
func (a *Adapter) ParseBlock(data []byte) (*types.Block, error) {
	var wb wireBlock
	if err := json.Unmarshal(data, &wb); err != nil {
		return nil, fmt.Errorf("evm: unmarshal wire block: %w", err)
	}

	payload := &Payload{Header: &gethtypes.Header{}}
	if err := json.Unmarshal(wb.Payload.Header, payload.Header); err != nil {
		return nil, fmt.Errorf("evm: unmarshal header: %w", err)
	}

	for _, raw := range wb.Payload.Transactions {
		tx := new(gethtypes.Transaction)
		if err := tx.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("evm: unmarshal transaction: %w", err)
		}
		payload.Transactions = append(payload.Transactions, tx)
	}

	for _, raw := range wb.Payload.Logs {
		log := new(gethtypes.Log)
		if err := json.Unmarshal(raw, log); err != nil {
			return nil, fmt.Errorf("evm: unmarshal log: %w", err)
		}
		payload.Logs = append(payload.Logs, log)
	}

	for _, raw := range wb.Payload.Receipts {
		receipt := new(gethtypes.Receipt)
		if err := json.Unmarshal(raw, receipt); err != nil {
			return nil, fmt.Errorf("evm: unmarshal receipt: %w", err)
		}
		payload.Receipts = append(payload.Receipts, receipt)
	}

	for _, raw := range wb.Payload.Withdrawals {
		wd := new(gethtypes.Withdrawal)
		if err := json.Unmarshal(raw, wd); err != nil {
			return nil, fmt.Errorf("evm: unmarshal withdrawal: %w", err)
		}
		payload.Withdrawals = append(payload.Withdrawals, wd)
	}

	return &types.Block{
		Cursor:  types.NewCursor(wb.Number, wb.Hash),
		Parent:  wb.Parent,
		Payload: payload,
	}, nil
}

// FilterKeys implements chain.Chain.
func (a *Adapter) FilterKeys(filter any) ([]types.KeyRef, error) {
	f, ok := filter.(*Filter)
	if !ok {
		return nil, fmt.Errorf("evm: FilterKeys: expected *evm.Filter, got %T", filter)
	}

	var keys []types.KeyRef
	switch {
	case f.Events != nil:
		for _, addr := range f.Events.Addresses {
			keys = append(keys, eventAddressKey(addr))
		}
		for _, key := range f.Events.Keys {
			keys = append(keys, eventTopicKey(key))
		}
	case f.Transactions != nil:
		if f.Transactions.To != nil {
			keys = append(keys, txToKey(*f.Transactions.To))
		}
		if len(f.Transactions.Selector) >= 4 {
			keys = append(keys, txSelectorKey(f.Transactions.Selector[:4]))
		}
	}
	// HeaderAlways/HeaderWeak require no index lookup: every segment is a
	// candidate, so FilterKeys returns no keys for a header-only filter;
	// BlockStore.Scan treats that as "every canonical block in range is a
	// candidate" rather than "match nothing".
	return keys, nil
}

// Matches implements chain.Chain.
func (a *Adapter) Matches(filter any, block *types.Block) (bool, any, error) {
	f, ok := filter.(*Filter)
	if !ok {
		return false, nil, fmt.Errorf("evm: Matches: expected *evm.Filter, got %T", filter)
	}
	payload, ok := block.Payload.(*Payload)
	if !ok || payload == nil {
		return false, nil, fmt.Errorf("evm: Matches: block payload is not *evm.Payload")
	}

	switch {
	case f.Header != nil && f.Header.Mode == HeaderAlways:
		return true, payload.Header, nil

	case f.Events != nil:
		var matched []*gethtypes.Log
		for _, log := range payload.Logs {
			if matchesEventFilter(f.Events, log) {
				matched = append(matched, log)
			}
		}
		if len(matched) == 0 {
			return false, nil, nil
		}
		return true, matched, nil

	case f.Transactions != nil:
		var matched []*gethtypes.Transaction
		for _, tx := range payload.Transactions {
			if matchesTransactionFilter(f.Transactions, tx) {
				matched = append(matched, tx)
			}
		}
		if len(matched) == 0 {
			return false, nil, nil
		}
		return true, matched, nil
	}

	return false, nil, nil
}

func matchesEventFilter(f *EventFilter, log *gethtypes.Log) bool {
	if len(f.Addresses) > 0 {
		found := false
		for _, addr := range f.Addresses {
			if addr == log.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Keys) > 0 {
		found := false
		for _, topic := range log.Topics {
			for _, key := range f.Keys {
				if topic == key {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func matchesTransactionFilter(f *TransactionFilter, tx *gethtypes.Transaction) bool {
	if f.To != nil {
		to := tx.To()
		if to == nil || *to != *f.To {
			return false
		}
	}
	if len(f.Selector) >= 4 {
		data := tx.Data()
		if len(data) < 4 {
			return false
		}
		for i := 0; i < 4; i++ {
			if data[i] != f.Selector[i] {
				return false
			}
		}
	}
	return true
}
