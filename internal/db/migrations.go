package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS properties (
		id               TEXT    NOT NULL,
		address          TEXT    NOT NULL DEFAULT '',
		rent_display     TEXT    NOT NULL DEFAULT '',
		rent_yen         INTEGER NOT NULL DEFAULT 0,
		layout           TEXT    NOT NULL DEFAULT '',
		area             TEXT    NOT NULL DEFAULT '',
		station_info     TEXT    NOT NULL DEFAULT '',
		walk_minutes     INTEGER NOT NULL DEFAULT 0,
		building_age     TEXT    NOT NULL DEFAULT '',
		management_fee   TEXT    NOT NULL DEFAULT '',
		source_file      TEXT    NOT NULL DEFAULT '',
		follow_up_status TEXT    NOT NULL DEFAULT 'none'
			CHECK (follow_up_status IN ('none', 'pending', 'called')),
		follow_up_notes  TEXT    NOT NULL DEFAULT '',
		last_checked_at  DATETIME,
		created_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id, source_file)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_follow_up ON properties (follow_up_status)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	columnMigrations := []struct {
		table, column, definition string
	}{
		{"properties", "found_sites", "TEXT NOT NULL DEFAULT ''"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) (err error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating columns: %w", err)
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}
