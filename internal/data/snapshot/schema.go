package snapshot

import (
	"database/sql"
	"fmt"
)

const SchemaVersion = 2

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS autoload_meta (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  extension TEXT NOT NULL,
  saved_at_utc TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS autoload_roots (
  position INTEGER PRIMARY KEY,
  prefix TEXT NOT NULL UNIQUE,
  dir TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS autoload_classmap (
  position INTEGER PRIMARY KEY,
  prefix TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS autoload_classmap_globs (
  classmap_position INTEGER NOT NULL REFERENCES autoload_classmap(position) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  glob TEXT NOT NULL,
  PRIMARY KEY (classmap_position, position)
);
`,
	},
	{
		version: 2,
		sql:     `ALTER TABLE autoload_meta ADD COLUMN fingerprint TEXT NOT NULL DEFAULT '';`,
	},
}

func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}

	return nil
}
