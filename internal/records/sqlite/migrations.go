package sqlite

import (
	"fmt"
)

// migrations are applied in order; schema_version records the last applied
// index. New schema changes append here, never edit a prior entry.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS records (
		id           TEXT PRIMARY KEY,
		natural_key  TEXT NOT NULL,
		kind         TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		parent_id    TEXT NOT NULL DEFAULT '',
		text_fields  TEXT NOT NULL DEFAULT '{}',
		audit        TEXT NOT NULL DEFAULT '[]',
		created_at   TEXT NOT NULL DEFAULT '',
		updated_at   TEXT NOT NULL DEFAULT '',
		deleted      INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_records_natural_key ON records(natural_key);
	CREATE INDEX IF NOT EXISTS idx_records_parent_id ON records(parent_id);
	CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind);`,
}

// migrate brings the schema up to date.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var version int
	row := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", i+1, err)
		}
	}
	return nil
}
