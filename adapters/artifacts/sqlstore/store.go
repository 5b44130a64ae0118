// Package sqlstore keeps training artifacts as rows of one table, replaced
// as a unit inside a transaction.
package sqlstore

import (
	"context"
	"fmt"
	"log"
	"time"

	"cropyield/adapters/artifacts"
	apperrors "cropyield/internal/errors"
	"cropyield/internal/migration"
	"cropyield/ports"

	"github.com/jmoiron/sqlx"
)

// artifactRow maps one record of the artifacts table.
type artifactRow struct {
	Name        string    `db:"name"`
	RunID       string    `db:"run_id"`
	Fingerprint string    `db:"fingerprint"`
	Payload     []byte    `db:"payload"`
	CreatedAt   time.Time `db:"created_at"`
}

// Store is a SQL-backed ports.ArtifactStore for PostgreSQL or SQLite.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects with driver ("postgres" or "sqlite") and applies migrations.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeDatabaseError,
			fmt.Errorf("failed to connect to %s: %w", driver, err))
	}
	if driver == "sqlite" {
		// one writer; avoids SQLITE_BUSY between the delete and inserts
		db.SetMaxOpenConns(1)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewStore(db), nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Describe names the backend for logs.
func (s *Store) Describe() string {
	return "sql:" + s.db.DriverName()
}

// Save replaces all artifact rows in one transaction.
func (s *Store) Save(ctx context.Context, bundle *ports.ArtifactBundle) error {
	blobs, err := artifacts.EncodeBundle(bundle)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin artifact transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts`); err != nil {
		return fmt.Errorf("failed to clear artifacts: %w", err)
	}

	insert := tx.Rebind(`INSERT INTO artifacts (name, run_id, fingerprint, payload, created_at) VALUES (?, ?, ?, ?, ?)`)
	fingerprint := bundle.Encoders.Fingerprint().String()
	created := bundle.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	for _, name := range ports.ArtifactNames {
		if _, err := tx.ExecContext(ctx, insert, name, bundle.RunID.String(), fingerprint, blobs[name], created.UTC()); err != nil {
			return fmt.Errorf("failed to insert %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit artifacts: %w", err)
	}
	log.Printf("[ArtifactStore] published run %s to %s", bundle.RunID, s.Describe())
	return nil
}

// Load reads every artifact row in one snapshot.
func (s *Store) Load(ctx context.Context) (*ports.ArtifactBundle, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin artifact read: %w", err)
	}
	defer tx.Rollback()

	var rows []artifactRow
	if err := tx.SelectContext(ctx, &rows, `SELECT name, run_id, fingerprint, payload, created_at FROM artifacts`); err != nil {
		return nil, fmt.Errorf("failed to read artifacts: %w", err)
	}

	blobs := make(map[string][]byte, len(rows))
	for _, row := range rows {
		blobs[row.Name] = row.Payload
	}
	return artifacts.DecodeBundle(blobs)
}
