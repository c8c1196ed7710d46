package evm

import gethcommon "github.com/ethereum/go-ethereum/common"

// bytesToHash converts a raw hash to go-ethereum's fixed-size common.Hash,
// left-padding if shorter than 32 bytes.
func bytesToHash(b []byte) gethcommon.Hash {
	return gethcommon.BytesToHash(b)
}
