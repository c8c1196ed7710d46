package helpers

import (
	"database/sql"
	"path"
	"testing"

	"github.com/dna-engine/dna/internal/db"
	"github.com/dna-engine/dna/pkg/config"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new temporary SQLite database for testing purposes,
// applying the given set of migrations (e.g. blockstore/migrations.All or
// ingestor/migrations.All).
func NewTestDB(t *testing.T, dbName string, migs []db.Migration) *sql.DB {
	t.Helper()

	tmpDBPath := path.Join(t.TempDir(), dbName)

	dbConfig := config.DatabaseConfig{Path: tmpDBPath}
	dbConfig.ApplyDefaults()

	require.NoError(t, db.RunMigrations(tmpDBPath, migs))

	database, err := db.NewSQLiteDBFromConfig(dbConfig)
	require.NoError(t, err)

	return database
}
