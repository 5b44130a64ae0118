package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cropyield/adapters/artifacts"
	"cropyield/domain/core"
	"cropyield/internal/testkit"
	"cropyield/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "artifacts")
	store := NewStore(dir)

	bundle, err := testkit.SampleBundle()
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, bundle))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"label_encoders.gob", "best_model.gob", "model_performance.gob"}, names)

	back, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, bundle.RunID, back.RunID)
	assert.Equal(t, bundle.Champion.Name, back.Champion.Name)
}

func TestSaveReplacesPreviousRun(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "artifacts")
	store := NewStore(dir)

	first, err := testkit.SampleBundle()
	require.NoError(t, err)
	second, err := testkit.SampleBundle()
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	back, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.RunID, back.RunID)

	_, err = os.Stat(dir + ".previous")
	assert.True(t, os.IsNotExist(err), "backup is dropped after a successful swap")
}

func TestFailedSaveKeepsPreviousRun(t *testing.T) {
	ctx := context.Background()
	store := NewStore(filepath.Join(t.TempDir(), "artifacts"))

	good, err := testkit.SampleBundle()
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, good))

	bad, err := testkit.SampleBundle()
	require.NoError(t, err)
	bad.Champion = nil
	require.Error(t, store.Save(ctx, bad))

	back, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, good.RunID, back.RunID)
}

func TestLoadWithMissingPerformanceFile(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "artifacts")
	store := NewStore(dir)

	bundle, err := testkit.SampleBundle()
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, bundle))
	require.NoError(t, os.Remove(filepath.Join(dir, artifacts.FileName(ports.ArtifactPerformance))))

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, core.ErrArtifactMismatch)
	var am *core.ArtifactMismatchError
	require.ErrorAs(t, err, &am)
	assert.Equal(t, []string{ports.ArtifactPerformance}, am.Missing)
}

func TestLoadFromEmptyDirectory(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "never-written")).Load(context.Background())
	assert.ErrorIs(t, err, core.ErrArtifactMismatch)
}

func TestLoadFallsBackToBackup(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "artifacts")
	store := NewStore(dir)

	bundle, err := testkit.SampleBundle()
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, bundle))

	// simulate a crash between moving the live set aside and publishing staging
	require.NoError(t, os.Rename(dir, dir+".previous"))

	back, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, bundle.RunID, back.RunID)
}
