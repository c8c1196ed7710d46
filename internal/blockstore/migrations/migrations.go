package migrations

import (
	_ "embed"

	"github.com/dna-engine/dna/internal/db"
)

//go:embed 001_blocks.sql
var mig001 string

//go:embed 002_retention.sql
var mig002 string

// All is the ordered set of migrations for the block archive database.
var All = []db.Migration{
	{
		ID:  "001_blocks.sql",
		SQL: mig001,
	},
	{
		ID:  "002_retention.sql",
		SQL: mig002,
	},
}
