package container

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"cropyield/adapters/artifacts/fs"
	"cropyield/adapters/artifacts/s3"
	"cropyield/adapters/artifacts/sqlstore"
	"cropyield/adapters/excel"
	"cropyield/adapters/regression"
	"cropyield/adapters/rng"
	"cropyield/app"
	"cropyield/internal"
	"cropyield/internal/config"
	"cropyield/ports"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	Store ports.ArtifactStore
	RNG   ports.RNGPort

	closers []func() error
}

// New creates a new dependency injection container and opens the
// configured artifact store.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.LogLevel != "" {
		if level, err := internal.ParseLogLevel(cfg.LogLevel); err == nil {
			internal.DefaultLogger.SetLevel(level)
		}
	}

	c := &Container{
		Config: cfg,
		RNG:    rng.NewSeededAdapter(),
	}
	if err := c.initStore(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initStore(ctx context.Context) error {
	a := c.Config.Artifacts
	switch a.Driver {
	case config.DriverFS:
		c.Store = fs.NewStore(a.Dir)

	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(a.SQLitePath), 0o755); err != nil {
			return fmt.Errorf("failed to create sqlite directory: %w", err)
		}
		store, err := sqlstore.Open(ctx, config.DriverSQLite, a.SQLitePath)
		if err != nil {
			return err
		}
		c.Store = store
		c.closers = append(c.closers, store.Close)

	case config.DriverPostgres:
		store, err := sqlstore.Open(ctx, config.DriverPostgres, a.DatabaseURL)
		if err != nil {
			return err
		}
		c.Store = store
		c.closers = append(c.closers, store.Close)

	case config.DriverS3:
		store, err := s3.New(ctx, s3.Config{
			Region:    a.S3Region,
			Bucket:    a.S3Bucket,
			Prefix:    a.S3Prefix,
			Endpoint:  a.S3Endpoint,
			PathStyle: a.S3PathStyle,
		})
		if err != nil {
			return err
		}
		c.Store = store

	default:
		return fmt.Errorf("unsupported artifact driver %q", a.Driver)
	}

	log.Printf("[Container] artifact store: %s", c.Store.Describe())
	return nil
}

// DatasetReader returns a reader for the configured dataset, or for path when set.
func (c *Container) DatasetReader(path string) ports.DatasetReader {
	if path == "" {
		path = c.Config.Dataset.File
	}
	cfg := excel.DefaultReaderConfig(path)
	cfg.Sheet = c.Config.Dataset.Sheet
	return excel.NewDataReader(cfg)
}

// TrainingRunner wires the batch training job.
func (c *Container) TrainingRunner(datasetPath string) (*app.TrainingRunner, error) {
	preparer, err := app.NewPreparer(app.DefaultPreparerConfig())
	if err != nil {
		return nil, err
	}
	harness, err := app.NewHarness(app.HarnessConfig{
		Seed:         c.Config.Training.Seed,
		TestFraction: c.Config.Training.TestFraction,
	}, c.RNG)
	if err != nil {
		return nil, err
	}
	return app.NewTrainingRunner(c.DatasetReader(datasetPath), preparer, harness, c.Store,
		regression.DefaultCandidates(c.Config.Training.Seed)), nil
}

// InferenceService returns an uninitialized service over the store.
func (c *Container) InferenceService() *app.InferenceService {
	return app.NewInferenceService(c.Store)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
