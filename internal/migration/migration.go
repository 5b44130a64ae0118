package migration

import (
	"context"
	"fmt"

	"cropyield/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. Statements are
// portable across PostgreSQL and SQLite.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createArtifactsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create artifacts table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createArtifactsTable(ctx context.Context, db *sqlx.DB) error {
	payloadType := "BYTEA"
	if db.DriverName() == "sqlite" {
		payloadType = "BLOB"
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS artifacts (
			name        TEXT PRIMARY KEY,
			run_id      TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			payload     %s NOT NULL,
			created_at  TIMESTAMP NOT NULL
		)`, payloadType)
	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_artifacts_run_id ON artifacts (run_id)`)
	return err
}
