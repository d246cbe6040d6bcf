package migrations

import (
	_ "embed"

	"github.com/rwabridge/bridgenode/db"
	"github.com/rwabridge/bridgenode/db/types"
)

//go:embed bridge0001.sql
var mig001 string

func RunMigrations(dbPath string) error {
	migrations := []types.Migration{
		{
			ID:  "bridge0001",
			SQL: mig001,
		},
	}
	return db.RunMigrations(dbPath, migrations)
}
