package migration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sqlx.ConnectContext(ctx, "sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	runner := NewRunner()
	require.NoError(t, runner.Run(ctx, db))
	require.NoError(t, runner.Run(ctx, db))
	assert.Equal(t, "1.0.0", runner.Version())

	var names []string
	require.NoError(t, db.SelectContext(ctx, &names,
		`SELECT name FROM sqlite_master WHERE tbl_name = 'artifacts' ORDER BY name`))
	assert.Equal(t, []string{"artifacts", "idx_artifacts_run_id", "sqlite_autoindex_artifacts_1"}, names)
}
