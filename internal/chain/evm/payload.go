package evm

import (
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Payload is the EVM-parameterized block body. Each component is
// individually addressable: a component filter may request any subset.
type Payload struct {
	Header       *gethtypes.Header
	Transactions []*gethtypes.Transaction
	Logs         []*gethtypes.Log
	Receipts     []*gethtypes.Receipt
	Withdrawals  []*gethtypes.Withdrawal
}
