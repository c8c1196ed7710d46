package ingestor

import (
	"database/sql"
	"fmt"

	"github.com/russross/meddler"

	"github.com/dna-engine/dna/internal/db"
	"github.com/dna-engine/dna/internal/ingestor/migrations"
	"github.com/dna-engine/dna/internal/logger"
	"github.com/dna-engine/dna/internal/types"
	"github.com/dna-engine/dna/pkg/config"
)

// checkpointRow is the single persisted row describing where the view was
// left: the finalized cursor and the head cursor at last checkpoint. It is
// adapted from the teacher's SyncState (single last-indexed-block-number) to
// carry the pair of cursors a View needs to re-seed itself.
type checkpointRow struct {
	ID                int    `meddler:"id,pk"`
	FinalizedNumber   uint64 `meddler:"finalized_number"`
	FinalizedHash     []byte `meddler:"finalized_hash"`
	HeadNumber        uint64 `meddler:"head_number"`
	HeadHash          []byte `meddler:"head_hash"`
	UpdatedAtUnixNano int64  `meddler:"updated_at_unix_nano"`
}

const checkpointRowID = 1

// CheckpointStore persists the view's seed cursors across restarts, the same
// role the teacher's downloader.SyncManager plays for a single
// last-indexed-block-number.
type CheckpointStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewCheckpointStore opens (creating if absent) the checkpoint database at
// cfg.Path, running embedded migrations first.
func NewCheckpointStore(cfg config.DatabaseConfig, log *logger.Logger) (*CheckpointStore, error) {
	sqlDB, err := db.NewSQLiteDBFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("ingestor: open checkpoint db: %w", err)
	}

	if err := db.RunMigrationsDB(log, sqlDB, migrations.All); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ingestor: run migrations: %w", err)
	}

	return &CheckpointStore{db: sqlDB, log: log.WithComponent("checkpoint")}, nil
}

// Load returns the persisted checkpoint, or (nil, nil) if none exists yet.
func (s *CheckpointStore) Load() (*checkpointRow, error) {
	row := new(checkpointRow)
	err := meddler.QueryRow(s.db, row, `SELECT * FROM ingestor_checkpoint WHERE id = ?`, checkpointRowID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingestor: load checkpoint: %w", err)
	}
	return row, nil
}

// Save upserts the checkpoint row for (finalized, head).
func (s *CheckpointStore) Save(finalized, head types.Cursor, nowUnixNano int64) error {
	row := &checkpointRow{
		ID:                checkpointRowID,
		FinalizedNumber:   finalized.Number,
		FinalizedHash:     finalized.Hash,
		HeadNumber:        head.Number,
		HeadHash:          head.Hash,
		UpdatedAtUnixNano: nowUnixNano,
	}

	existing, err := s.Load()
	if err != nil {
		return err
	}
	if existing == nil {
		if err := meddler.Insert(s.db, "ingestor_checkpoint", row); err != nil {
			return fmt.Errorf("ingestor: insert checkpoint: %w", err)
		}
		return nil
	}

	if err := meddler.Update(s.db, "ingestor_checkpoint", row); err != nil {
		return fmt.Errorf("ingestor: update checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

// seedView determines the cursors to seed a fresh View with: a persisted
// checkpoint if one exists, otherwise the node's current finalized block via
// rpc. Simplification: in both cases the view's head is also set to that
// finalized cursor (a checkpoint's saved head is not used) — the in-memory
// canonical map between finalized and the real chain head is NOT
// reconstructed from BlockStore, so ingestion re-walks forward from
// finalized rather than resuming exactly at the prior head. This trades a
// burst of re-ingestion after a restart for not needing a
// BlockStore-scan-based replay path.
func seedView(ckpt *checkpointRow, head *types.Block) types.Cursor {
	if ckpt != nil {
		return types.NewCursor(ckpt.FinalizedNumber, ckpt.FinalizedHash)
	}
	return head.Cursor
}
