package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// migration represents a single schema migration.
type migration struct {
	version     int
	description string
	apply       func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// New migrations are appended at the end; never modify existing entries.
var migrations = []migration{
	{
		version:     1,
		description: "initial schema (applied via schemaSQL)",
		apply:       func(tx *sql.Tx) error { return nil }, // base schema applied separately
	},
	{
		version:     2,
		description: "add correct_answer_alternates to questions",
		apply: func(tx *sql.Tx) error {
			// Present in the base schema for new databases; this keeps
			// databases created before the column existed working.
			stmt := "ALTER TABLE questions ADD COLUMN correct_answer_alternates TEXT"
			if _, err := tx.Exec(stmt); err != nil {
				slog.Debug("migration 2: column may already exist", "sql", stmt, "error", err)
			}
			return nil
		},
	},
	{
		version:     3,
		description: "add version counter to student_ability for CAS",
		apply: func(tx *sql.Tx) error {
			// Present in the base schema for new databases; this keeps
			// databases created before the column existed working. Backfill
			// existing rows to 1 so the first CAS against them succeeds.
			stmt := "ALTER TABLE student_ability ADD COLUMN version INTEGER NOT NULL DEFAULT 1"
			if _, err := tx.Exec(stmt); err != nil {
				slog.Debug("migration 3: column may already exist", "sql", stmt, "error", err)
			}
			return nil
		},
	},
}

// Migrate runs all pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("store: creating schema_version table: %w", err)
	}

	var current int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("store: reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		slog.Info("applying migration", "version", m.version, "description", m.description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("store: begin migration %d: %w", m.version, err)
		}

		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: migration %d failed: %w", m.version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_version (version, description) VALUES (?, ?)",
			m.version, m.description); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: recording migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: committing migration %d: %w", m.version, err)
		}
	}

	return nil
}
