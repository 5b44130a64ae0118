package app

import (
	"context"
	"fmt"
	"time"

	"cropyield/domain/core"
	"cropyield/domain/model"
	"cropyield/internal"
	"cropyield/internal/metrics"
	"cropyield/ports"
)

// TrainingSummary describes a published training run.
type TrainingSummary struct {
	RunID       core.RunID             `json:"run_id"`
	Source      string                 `json:"source"`
	Store       string                 `json:"store"`
	Records     int                    `json:"records"`
	Dropped     int                    `json:"dropped"`
	Champion    string                 `json:"champion"`
	Performance model.PerformanceTable `json:"performance"`
	Duration    time.Duration          `json:"duration"`
}

// TrainingRunner executes one batch training job end to end. Artifacts are
// published only after every earlier step succeeded.
type TrainingRunner struct {
	reader     ports.DatasetReader
	preparer   *Preparer
	harness    *Harness
	store      ports.ArtifactStore
	candidates []model.Candidate
	logger     *internal.Logger
}

// NewTrainingRunner creates a new training runner
func NewTrainingRunner(reader ports.DatasetReader, preparer *Preparer, harness *Harness, store ports.ArtifactStore, candidates []model.Candidate) *TrainingRunner {
	return &TrainingRunner{
		reader:     reader,
		preparer:   preparer,
		harness:    harness,
		store:      store,
		candidates: candidates,
		logger:     internal.DefaultLogger.With("TrainingRunner"),
	}
}

// Run reads, prepares, selects and publishes.
func (r *TrainingRunner) Run(ctx context.Context) (summary *TrainingSummary, err error) {
	start := time.Now()
	defer func() { metrics.RecordTrainingRun(err) }()

	runID := core.NewRunID()
	r.logger.Info("run %s: reading %s", runID, r.reader.Source())

	records, err := r.reader.ReadRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	prepared, err := r.preparer.Prepare(records)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dataset: %w", err)
	}

	result, err := r.harness.TrainAndSelect(ctx, prepared.Rows, prepared.Targets, prepared.FeatureOrder, r.candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to select champion: %w", err)
	}

	bundle := &ports.ArtifactBundle{
		RunID:       runID,
		Encoders:    prepared.Encoders,
		Champion:    result.Champion,
		Performance: result.Performance,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.store.Save(ctx, bundle); err != nil {
		return nil, fmt.Errorf("failed to publish artifacts: %w", err)
	}

	summary = &TrainingSummary{
		RunID:       runID,
		Source:      r.reader.Source(),
		Store:       r.store.Describe(),
		Records:     len(records),
		Dropped:     prepared.Dropped,
		Champion:    result.Champion.Name,
		Performance: result.Performance,
		Duration:    time.Since(start),
	}
	r.logger.Info("run %s complete: champion %s published to %s in %s (encoders %s)",
		runID, summary.Champion, summary.Store, summary.Duration.Round(time.Millisecond),
		prepared.Encoders.Fingerprint().Short())
	return summary, nil
}
