package migration

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed init.sql
var initSchema string

func RunMigrations(db *sql.DB) error {
	if _, err := db.Exec(initSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
