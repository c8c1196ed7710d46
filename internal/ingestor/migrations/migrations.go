package migrations

import (
	_ "embed"

	"github.com/dna-engine/dna/internal/db"
)

//go:embed 001_ingestor_checkpoint.sql
var mig001 string

// All is the ordered set of migrations for the ingestor's checkpoint
// database, in the internal/db.Migration shape sql-migrate expects.
var All = []db.Migration{
	{
		ID:  "001_ingestor_checkpoint.sql",
		SQL: mig001,
	},
}
