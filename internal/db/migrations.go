package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{
	// Migration 1: seed the two tag taxonomies the overview modes map to.
	`INSERT OR IGNORE INTO tag_types (name) VALUES ('Equipment')`,
	`INSERT OR IGNORE INTO tag_types (name) VALUES ('Consumables')`,
}

// Migrate creates the schema and runs all migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
