package blockstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/dna-engine/dna/internal/types"
)

// segmentOf returns the fixed-size segment a block number belongs to, per
// spec §4.3's "blocks are grouped into fixed-size segments for compaction".
func segmentOf(number, segmentSize uint64) uint64 {
	return number / segmentSize
}

// indexKey namespaces a KeyRef into the flat string the filter_index table
// keys bitmaps by, so component filters of different kinds (event
// from_address vs. transaction selector, say) never collide.
func indexKey(k types.KeyRef) string {
	return k.Kind + ":" + k.Key
}

// loadBitmap reads the bitmap for (segment, key), returning an empty bitmap
// if none has been written yet.
func loadBitmap(ctx context.Context, q queryer, segment uint64, key string) (*roaring.Bitmap, error) {
	var data []byte
	err := q.QueryRowContext(ctx, `SELECT bitmap FROM filter_index WHERE segment = ? AND key = ?`, segment, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return roaring.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("blockstore: load bitmap (segment=%d key=%s): %w", segment, key, err)
	}

	bm := roaring.New()
	if _, err := bm.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("blockstore: decode bitmap (segment=%d key=%s): %w", segment, key, err)
	}
	return bm, nil
}

// saveBitmap upserts the bitmap for (segment, key).
func saveBitmap(ctx context.Context, e execer, segment uint64, key string, bm *roaring.Bitmap) error {
	var buf bytes.Buffer
	if _, err := bm.WriteTo(&buf); err != nil {
		return fmt.Errorf("blockstore: encode bitmap (segment=%d key=%s): %w", segment, key, err)
	}

	_, err := e.ExecContext(ctx,
		`INSERT INTO filter_index (segment, key, bitmap) VALUES (?, ?, ?)
		 ON CONFLICT(segment, key) DO UPDATE SET bitmap = excluded.bitmap`,
		segment, key, buf.Bytes())
	if err != nil {
		return fmt.Errorf("blockstore: save bitmap (segment=%d key=%s): %w", segment, key, err)
	}
	return nil
}

// queryer and execer narrow *sql.DB/*sql.Tx to what filterindex.go needs, so
// index updates can run inside the same transaction as the primary block
// write (spec §4.3's "all writes for one block are atomic").
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
