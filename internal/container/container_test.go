package container

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"cropyield/internal/config"
	"cropyield/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Dataset: config.DatasetConfig{File: filepath.Join(dir, "train.csv"), Sheet: "Sheet1"},
		Artifacts: config.ArtifactConfig{
			Driver:     driver,
			Dir:        filepath.Join(dir, "artifacts"),
			SQLitePath: filepath.Join(dir, "db", "artifacts.db"),
		},
		Training: config.TrainingConfig{Seed: 42, TestFraction: 0.2},
		Server:   config.ServerConfig{Port: "8080"},
	}
}

func TestContainerTrainsAndServes(t *testing.T) {
	for _, driver := range []string{config.DriverFS, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, driver)

			gen := testkit.NewCropDataGenerator(testkit.CropGeneratorConfig{
				RowCount: 60,
				Regions:  []string{"A", "B"},
				Seasons:  []string{"Kharif", "Rabi"},
				Crops:    []string{"Rice", "Wheat"},
				Years:    5, StartYear: 2000, NoiseStdDev: 0.05, Seed: 42,
			})
			rows, err := gen.GenerateRows()
			require.NoError(t, err)
			require.NoError(t, testkit.WriteCSV(cfg.Dataset.File, rows))

			c, err := New(ctx, cfg)
			require.NoError(t, err)
			t.Cleanup(func() { c.Shutdown(ctx) })
			assert.True(t, strings.HasPrefix(c.Store.Describe(), map[string]string{
				config.DriverFS: "fs:", config.DriverSQLite: "sql:",
			}[driver]))

			runner, err := c.TrainingRunner("")
			require.NoError(t, err)
			summary, err := runner.Run(ctx)
			require.NoError(t, err)
			assert.Equal(t, 60, summary.Records)

			svc := c.InferenceService()
			require.NoError(t, svc.Load(ctx))
			values, err := svc.KnownValues("region")
			require.NoError(t, err)
			assert.Equal(t, []string{"A", "B"}, values)
		})
	}
}

func TestContainerRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), testConfig(t, "redis"))
	assert.Error(t, err)

	_, err = New(context.Background(), nil)
	assert.Error(t, err)
}
