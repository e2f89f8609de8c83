package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS shifts (
					id TEXT PRIMARY KEY,
					started_at DATETIME NOT NULL,
					ended_at DATETIME
				)`,
				`CREATE INDEX idx_shifts_started_at ON shifts(started_at)`,

				`CREATE TABLE IF NOT EXISTS studies (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					shift_id TEXT NOT NULL,
					accession TEXT NOT NULL,
					procedure_text TEXT NOT NULL DEFAULT '',
					patient_class TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL,
					value REAL NOT NULL DEFAULT 0,
					start_time DATETIME NOT NULL,
					end_time DATETIME NOT NULL,
					duration_ns INTEGER NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (shift_id, accession),
					FOREIGN KEY (shift_id) REFERENCES shifts(id)
				)`,
				`CREATE INDEX idx_studies_start_time ON studies(shift_id, start_time)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Track multi-accession batches",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE studies ADD COLUMN is_batch BOOLEAN DEFAULT 0`,
				`CREATE TABLE IF NOT EXISTS batch_members (
					shift_id TEXT NOT NULL,
					accession TEXT NOT NULL,
					batch_accession TEXT NOT NULL,
					PRIMARY KEY (shift_id, accession),
					FOREIGN KEY (shift_id) REFERENCES shifts(id)
				)`,
				`CREATE INDEX idx_batch_members_batch ON batch_members(shift_id, batch_accession)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Index studies by category for shift summaries",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_studies_category ON studies(shift_id, category)`)
			return err
		},
	},
}

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, version)
	}

	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
