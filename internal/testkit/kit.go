package testkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cropyield/adapters/rng"
	"cropyield/domain/core"
	"cropyield/domain/crop"
	"cropyield/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	store     *MemoryStore
	rng       *rng.SeededAdapter
	generator CropGeneratorConfig
}

// NewTestKit creates a new test kit with an empty in-memory store
func NewTestKit() *TestKit {
	return &TestKit{
		store:     NewMemoryStore(),
		rng:       rng.NewSeededAdapter(),
		generator: DefaultCropConfig(),
	}
}

// WithGenerator replaces the synthetic dataset configuration.
func (t *TestKit) WithGenerator(cfg CropGeneratorConfig) *TestKit {
	t.generator = cfg
	return t
}

// ArtifactStore returns the shared in-memory store.
func (t *TestKit) ArtifactStore() *MemoryStore {
	return t.store
}

// RNGAdapter returns the deterministic RNG port.
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return t.rng
}

// DatasetReader returns a reader over freshly generated records.
func (t *TestKit) DatasetReader() ports.DatasetReader {
	return &GeneratedReader{Config: t.generator}
}

// GeneratedReader implements ports.DatasetReader over the synthetic generator.
type GeneratedReader struct {
	Config CropGeneratorConfig
}

// ReadRecords generates the configured rows
func (r *GeneratedReader) ReadRecords(ctx context.Context) ([]crop.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewCropDataGenerator(r.Config).GenerateRecords()
}

// Source names the generator and its seed
func (r *GeneratedReader) Source() string {
	return fmt.Sprintf("synthetic(rows=%d, seed=%d)", r.Config.RowCount, r.Config.Seed)
}

// MemoryStore is an in-memory ports.ArtifactStore. Save replaces the held
// bundle as a unit; failures can be injected for either direction.
type MemoryStore struct {
	mu      sync.RWMutex
	bundle  *ports.ArtifactBundle
	saveErr error
	loadErr error
	delay   time.Duration
	saves   int
	loads   int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith creates a store already holding bundle
func NewMemoryStoreWith(bundle *ports.ArtifactBundle) *MemoryStore {
	return &MemoryStore{bundle: bundle}
}

// Save stores bundle unless a save error is injected
func (s *MemoryStore) Save(ctx context.Context, bundle *ports.ArtifactBundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	if bundle == nil {
		return fmt.Errorf("nil artifact bundle")
	}
	s.bundle = bundle
	return nil
}

// Load returns the held bundle, the injected error, or a missing-artifacts error
func (s *MemoryStore) Load(ctx context.Context) (*ports.ArtifactBundle, error) {
	s.mu.Lock()
	s.loads++
	delay, err, bundle := s.delay, s.loadErr, s.bundle
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if bundle == nil {
		return nil, core.NewMissingArtifactsError(ports.ArtifactNames...)
	}
	return bundle, nil
}

// Describe names the backend for logs
func (s *MemoryStore) Describe() string { return "memory" }

// FailSaves makes every Save return err; nil clears it
func (s *MemoryStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// FailLoads makes every Load return err; nil clears it
func (s *MemoryStore) FailLoads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

// SetDelay slows every Load by d
func (s *MemoryStore) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Bundle returns the held bundle
func (s *MemoryStore) Bundle() *ports.ArtifactBundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle
}

// Saves returns the number of Save calls
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Loads returns the number of Load calls
func (s *MemoryStore) Loads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads
}
