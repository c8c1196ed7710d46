package types

import (
	"encoding/hex"
	"fmt"
)

// Cursor uniquely identifies a block in space-time. The hash discriminates
// forks at the same height. A Cursor with an empty Hash matches any hash at
// that height — used to resume "from here, regardless of fork".
type Cursor struct {
	Number uint64
	Hash   []byte
}

// NewCursor builds a Cursor from a block number and hash.
func NewCursor(number uint64, hash []byte) Cursor {
	return Cursor{Number: number, Hash: append([]byte(nil), hash...)}
}

// IsWildcard reports whether this cursor matches any hash at its height.
func (c Cursor) IsWildcard() bool {
	return len(c.Hash) == 0
}

// Equal reports whether two cursors reference the same (number, hash) pair.
// A wildcard cursor is equal only to another wildcard cursor at the same
// height — callers that want "matches any hash" semantics should check
// IsWildcard explicitly instead.
func (c Cursor) Equal(other Cursor) bool {
	if c.Number != other.Number {
		return false
	}
	if len(c.Hash) != len(other.Hash) {
		return false
	}
	for i := range c.Hash {
		if c.Hash[i] != other.Hash[i] {
			return false
		}
	}
	return true
}

// String renders the cursor as "number:0xhash".
func (c Cursor) String() string {
	if c.IsWildcard() {
		return fmt.Sprintf("%d:*", c.Number)
	}
	return fmt.Sprintf("%d:0x%s", c.Number, hex.EncodeToString(c.Hash))
}
