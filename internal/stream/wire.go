package stream

import (
	"github.com/dna-engine/dna/api/dnapb"
	"github.com/dna-engine/dna/internal/types"
)

func wireToFinality(f dnapb.Finality) types.Finality {
	switch f {
	case dnapb.Finality_ACCEPTED:
		return types.Accepted
	case dnapb.Finality_FINALIZED:
		return types.Finalized
	default:
		return types.Pending
	}
}

func finalityToWire(f types.Finality) dnapb.Finality {
	switch f {
	case types.Accepted:
		return dnapb.Finality_ACCEPTED
	case types.Finalized:
		return dnapb.Finality_FINALIZED
	default:
		return dnapb.Finality_PENDING
	}
}

func wireToCursor(c *dnapb.Cursor) (types.Cursor, bool) {
	if c == nil {
		return types.Cursor{}, false
	}
	return types.NewCursor(c.GetNumber(), c.GetHash()), true
}

func cursorToWire(c types.Cursor) *dnapb.Cursor {
	return &dnapb.Cursor{Number: c.Number, Hash: c.Hash}
}

func cursorsToWire(cs []types.Cursor) []*dnapb.Cursor {
	out := make([]*dnapb.Cursor, len(cs))
	for i, c := range cs {
		out[i] = cursorToWire(c)
	}
	return out
}
