package ports

import (
	"context"
	"time"

	"cropyield/domain/core"
	"cropyield/domain/encoding"
	"cropyield/domain/model"
)

// Artifact names. A complete set contains all three.
const (
	ArtifactEncoders    = "label_encoders"
	ArtifactModel       = "best_model"
	ArtifactPerformance = "model_performance"
)

// ArtifactNames lists the artifacts in write order.
var ArtifactNames = []string{ArtifactEncoders, ArtifactModel, ArtifactPerformance}

// ArtifactBundle is everything one training run produces.
type ArtifactBundle struct {
	RunID       core.RunID
	Encoders    *encoding.Registry
	Champion    *model.Champion
	Performance model.PerformanceTable
	CreatedAt   time.Time
}

// ArtifactStore persists and restores the artifacts of a training run.
// Save replaces any previous set as a unit. Load returns either a complete
// set from a single run or an error; it never mixes runs.
type ArtifactStore interface {
	Save(ctx context.Context, bundle *ArtifactBundle) error
	Load(ctx context.Context) (*ArtifactBundle, error)
	Describe() string
}
