// Package blockstore implements the append-only, durable block archive
// described in spec §4.3: a primary (number, hash) -> serialized Block index
// plus segmented roaring-bitmap inverted indexes over chain-derived filter
// keys.
package blockstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/russross/meddler"

	"github.com/dna-engine/dna/internal/blockstore/migrations"
	"github.com/dna-engine/dna/internal/chain"
	"github.com/dna-engine/dna/internal/db"
	"github.com/dna-engine/dna/internal/logger"
	"github.com/dna-engine/dna/internal/metrics"
	"github.com/dna-engine/dna/internal/types"
	"github.com/dna-engine/dna/pkg/config"
)

// CanonicalLookup answers "what hash is canonical at height n, if any" for
// Scan and Retain without BlockStore depending on internal/view directly —
// the Ingestor is the only owner of View (spec §3 "Ownership"), so callers
// pass a closure backed by their own snapshot rather than a shared pointer.
type CanonicalLookup func(number uint64) (hash []byte, ok bool)

// BlockStore is the SQLite-backed primary archive and filter-key bitmap
// index. Safe for concurrent use: one Ingestor writer, many StreamEngine
// readers, per spec §5's "reader-many / writer-one" resource policy.
type BlockStore struct {
	db             *sql.DB
	chainAdapter   chain.Chain
	segmentSize    uint64
	chainName      string
	log            *logger.Logger
	retentionFloor atomic.Uint64
}

// New opens (creating if absent) the block archive database at cfg's path,
// running embedded migrations first.
func New(cfg config.BlockStoreConfig, chainAdapter chain.Chain, log *logger.Logger) (*BlockStore, error) {
	sqlDB, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("blockstore: open db: %w", err)
	}

	if err := db.RunMigrationsDB(log, sqlDB, migrations.All); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("blockstore: run migrations: %w", err)
	}

	var floor uint64
	if err := sqlDB.QueryRow(`SELECT floor FROM retention WHERE id = 1`).Scan(&floor); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("blockstore: load retention floor: %w", err)
	}

	store := &BlockStore{
		db:           sqlDB,
		chainAdapter: chainAdapter,
		segmentSize:  cfg.SegmentSize,
		chainName:    chainAdapter.Name(),
		log:          log.WithComponent("blockstore"),
	}
	store.retentionFloor.Store(floor)
	return store, nil
}

// Close closes the underlying database handle.
func (s *BlockStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle, for components such as the
// maintenance coordinator that operate on it directly.
func (s *BlockStore) DB() *sql.DB {
	return s.db
}

// Put writes block and updates its live-segment filter indexes. Idempotent
// on (number, hash): re-putting an already-seen block is a no-op. All writes
// for one block are atomic, per spec §4.3's consistency requirement.
func (s *BlockStore) Put(ctx context.Context, block *types.Block) error {
	start := time.Now()
	defer func() { metrics.DBQueryDuration("blockstore", "put", time.Since(start)) }()
	metrics.DBQueryInc("blockstore", "put")

	payload, err := s.chainAdapter.SerializeBlock(block)
	if err != nil {
		metrics.DBErrorsInc("blockstore", "serialize")
		return fmt.Errorf("blockstore: serialize block %s: %w", block.Cursor, err)
	}
	keys := s.chainAdapter.DeriveKeys(block)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.DBErrorsInc("blockstore", "begin_tx")
		return fmt.Errorf("blockstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	row := &blockRow{
		Number:     block.Cursor.Number,
		Hash:       block.Cursor.Hash,
		ParentHash: block.Parent,
		Payload:    payload,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO blocks (number, hash, parent_hash, payload) VALUES (?, ?, ?, ?)
		 ON CONFLICT(number, hash) DO NOTHING`,
		row.Number, row.Hash, row.ParentHash, row.Payload)
	if err != nil {
		metrics.DBErrorsInc("blockstore", "insert_block")
		return fmt.Errorf("blockstore: insert block %s: %w", block.Cursor, err)
	}

	segment := segmentOf(block.Cursor.Number, s.segmentSize)
	for _, k := range keys {
		key := indexKey(k)
		bm, err := loadBitmap(ctx, tx, segment, key)
		if err != nil {
			metrics.DBErrorsInc("blockstore", "load_bitmap")
			return err
		}
		bm.Add(uint32(block.Cursor.Number))
		if err := saveBitmap(ctx, tx, segment, key, bm); err != nil {
			metrics.DBErrorsInc("blockstore", "save_bitmap")
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.DBErrorsInc("blockstore", "commit")
		return fmt.Errorf("blockstore: commit block %s: %w", block.Cursor, err)
	}
	return nil
}

// Get retrieves the block at cursor. A wildcard cursor (empty hash) returns
// whichever block was recorded at that height first matched by the query —
// callers that care which fork should always pass an exact cursor. Returns
// ErrNotFound if the block has never been seen.
func (s *BlockStore) Get(ctx context.Context, cursor types.Cursor) (*types.Block, error) {
	start := time.Now()
	defer func() { metrics.DBQueryDuration("blockstore", "get", time.Since(start)) }()
	metrics.DBQueryInc("blockstore", "get")

	row := new(blockRow)
	var err error
	if cursor.IsWildcard() {
		err = meddler.QueryRow(s.db, row, `SELECT * FROM blocks WHERE number = ? LIMIT 1`, cursor.Number)
	} else {
		err = meddler.QueryRow(s.db, row, `SELECT * FROM blocks WHERE number = ? AND hash = ?`, cursor.Number, cursor.Hash)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.DBErrorsInc("blockstore", "get")
		return nil, fmt.Errorf("blockstore: get %s: %w", cursor, err)
	}

	block, err := s.chainAdapter.ParseBlock(row.Payload)
	if err != nil {
		return nil, fmt.Errorf("blockstore: parse block %s: %w", cursor, err)
	}
	return block, nil
}

// Scan returns the cursors of canonical blocks in [from, to] whose derived
// filter keys include at least one of keys. This is the "fast path"
// candidate set from spec §4.3: callers (internal/stream) still need to
// fetch each candidate and run the chain adapter's precise Matches to
// confirm a true positive, since bitmap membership only proves a block
// contributed *some* key a filter might need, not that the whole filter
// predicate holds. With no keys (a header-only filter), every canonical
// block in [from, to] is a candidate.
//
// Returns ErrOutOfRange if from falls below the retention floor established
// by the last Retain call: orphaned blocks in that span may already be gone,
// so the candidate set could be incomplete.
func (s *BlockStore) Scan(ctx context.Context, keys []types.KeyRef, from, to uint64, canonical CanonicalLookup) ([]types.Cursor, error) {
	start := time.Now()
	defer func() { metrics.DBQueryDuration("blockstore", "scan", time.Since(start)) }()
	metrics.DBQueryInc("blockstore", "scan")

	if from > to {
		return nil, nil
	}

	if floor := s.retentionFloor.Load(); from < floor {
		return nil, ErrOutOfRange
	}

	if len(keys) == 0 {
		// No index keys (a header-only filter): every canonical block in
		// range is a candidate.
		cursors := make([]types.Cursor, 0, to-from+1)
		for num := from; num <= to; num++ {
			if hash, ok := canonical(num); ok {
				cursors = append(cursors, types.NewCursor(num, hash))
			}
		}
		return cursors, nil
	}

	firstSegment := segmentOf(from, s.segmentSize)
	lastSegment := segmentOf(to, s.segmentSize)

	numbers := make(map[uint64]struct{})
	for segment := firstSegment; segment <= lastSegment; segment++ {
		for _, k := range keys {
			bm, err := loadBitmap(ctx, s.db, segment, indexKey(k))
			if err != nil {
				metrics.DBErrorsInc("blockstore", "scan_load_bitmap")
				return nil, err
			}
			for _, n := range bm.ToArray() {
				num := uint64(n)
				if num >= from && num <= to {
					numbers[num] = struct{}{}
				}
			}
		}
	}

	cursors := make([]types.Cursor, 0, len(numbers))
	for num := range numbers {
		hash, ok := canonical(num)
		if !ok {
			metrics.FilterIndexLookupInc(s.chainName, false)
			continue
		}
		metrics.FilterIndexLookupInc(s.chainName, true)
		cursors = append(cursors, types.NewCursor(num, hash))
	}

	sort.Slice(cursors, func(i, j int) bool { return cursors[i].Number < cursors[j].Number })
	return cursors, nil
}

// Retain discards orphaned (non-canonical) blocks strictly below floor.
// Canonical blocks — as reported by canonical — are always retained
// regardless of height, per spec §4.3. floor also becomes the new
// retention floor Scan enforces, provided it exceeds the previous one.
func (s *BlockStore) Retain(ctx context.Context, floor uint64, canonical CanonicalLookup) error {
	metrics.DBQueryInc("blockstore", "retain")

	rows, err := s.db.QueryContext(ctx, `SELECT number, hash FROM blocks WHERE number < ?`, floor)
	if err != nil {
		metrics.DBErrorsInc("blockstore", "retain_scan")
		return fmt.Errorf("blockstore: retain scan: %w", err)
	}
	defer rows.Close()

	type key struct {
		number uint64
		hash   string
	}
	var toDelete []key
	for rows.Next() {
		var number uint64
		var hash []byte
		if err := rows.Scan(&number, &hash); err != nil {
			return fmt.Errorf("blockstore: retain scan row: %w", err)
		}
		canonicalHash, ok := canonical(number)
		if ok && string(canonicalHash) == string(hash) {
			continue
		}
		toDelete = append(toDelete, key{number: number, hash: string(hash)})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("blockstore: retain scan iteration: %w", err)
	}

	for _, k := range toDelete {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM blocks WHERE number = ? AND hash = ?`, k.number, []byte(k.hash)); err != nil {
			metrics.DBErrorsInc("blockstore", "retain_delete")
			return fmt.Errorf("blockstore: retain delete %d: %w", k.number, err)
		}
	}

	if floor > s.retentionFloor.Load() {
		if _, err := s.db.ExecContext(ctx, `UPDATE retention SET floor = ? WHERE id = 1`, floor); err != nil {
			metrics.DBErrorsInc("blockstore", "retain_floor")
			return fmt.Errorf("blockstore: persist retention floor: %w", err)
		}
		s.retentionFloor.Store(floor)
	}
	return nil
}
