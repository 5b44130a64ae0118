package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cropyield/domain/core"
	"cropyield/domain/crop"
	"cropyield/domain/model"
	"cropyield/internal"
	"cropyield/internal/metrics"
	"cropyield/ports"

	"golang.org/x/sync/singleflight"
)

// InferenceState is the lifecycle stage of an InferenceService.
type InferenceState string

const (
	StateUninitialized InferenceState = "uninitialized"
	StateReady         InferenceState = "ready"
	StateUnavailable   InferenceState = "unavailable"
)

// InferenceService scores single raw inputs against the published champion.
// The loaded bundle is shared read-only by every caller.
type InferenceService struct {
	store  ports.ArtifactStore
	logger *internal.Logger
	group  singleflight.Group

	mu      sync.RWMutex
	state   InferenceState
	bundle  *ports.ArtifactBundle
	loadErr error
}

// NewInferenceService creates an uninitialized service
func NewInferenceService(store ports.ArtifactStore) *InferenceService {
	return &InferenceService{
		store:  store,
		state:  StateUninitialized,
		logger: internal.DefaultLogger.With("InferenceService"),
	}
}

// Load reads the artifacts once. Concurrent callers share one read. Calling
// Load again after a failure retries; after success it is a no-op.
func (s *InferenceService) Load(ctx context.Context) error {
	if s.State() == StateReady {
		return nil
	}
	_, err, _ := s.group.Do("load", func() (interface{}, error) {
		if s.State() == StateReady {
			return nil, nil
		}
		bundle, err := s.store.Load(ctx)
		metrics.RecordArtifactLoad(err)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.state = StateUnavailable
			s.loadErr = err
			s.logger.Error("artifact load from %s failed: %v", s.store.Describe(), err)
			return nil, err
		}
		s.bundle = bundle
		s.state = StateReady
		s.loadErr = nil
		s.logger.Info("loaded run %s from %s: champion %s over %v",
			bundle.RunID, s.store.Describe(), bundle.Champion.Name, bundle.Champion.FeatureOrder)
		return nil, nil
	})
	return err
}

// State returns the current lifecycle stage.
func (s *InferenceService) State() InferenceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *InferenceService) loaded() (*ports.ArtifactBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.state {
	case StateReady:
		return s.bundle, nil
	case StateUnavailable:
		return nil, &core.ArtifactUnavailableError{Cause: s.loadErr}
	default:
		return nil, &core.ArtifactUnavailableError{Cause: fmt.Errorf("artifacts not loaded")}
	}
}

// Prediction is the outcome of one successful Predict call.
type Prediction struct {
	Value float64 `json:"prediction"`
	Model string  `json:"model"`
	RunID string  `json:"run_id"`
}

// Predict encodes the input with the persisted registry, aligns it to the
// champion's feature order and scores it. Unknown categories, missing or
// unexpected fields, and out-of-domain numbers are refused, never defaulted.
func (s *InferenceService) Predict(ctx context.Context, input crop.InferenceInput) (result Prediction, err error) {
	start := time.Now()
	defer func() { metrics.RecordPrediction(time.Since(start), err) }()

	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	bundle, err := s.loaded()
	if err != nil {
		return Prediction{}, err
	}
	row, err := AlignRow(bundle, input)
	if err != nil {
		return Prediction{}, err
	}
	value, err := bundle.Champion.Predict(row)
	if err != nil {
		return Prediction{}, fmt.Errorf("champion %s failed to score: %w", bundle.Champion.Name, err)
	}
	return Prediction{Value: value, Model: bundle.Champion.Name, RunID: bundle.RunID.String()}, nil
}

// AlignRow builds the numeric feature row in the champion's declared order.
func AlignRow(bundle *ports.ArtifactBundle, input crop.InferenceInput) ([]float64, error) {
	order := bundle.Champion.FeatureOrder
	registry := bundle.Encoders
	row := make([]float64, len(order))
	// field name -> encoded by the registry
	categorical := make(map[string]bool, len(order))

	for i, field := range order {
		categorical[field] = registry.Has(field)
		if categorical[field] {
			value, ok := input.Categorical[field]
			if !ok {
				return nil, core.NewSchemaMismatchError(field, "required categorical field is absent")
			}
			code, err := registry.Encode(field, value)
			if err != nil {
				return nil, err
			}
			row[i] = float64(code)
			continue
		}
		value, ok := input.Numeric[field]
		if !ok {
			return nil, core.NewSchemaMismatchError(field, "required numeric field is absent")
		}
		row[i] = value
	}

	if err := unexpectedField(input, categorical); err != nil {
		return nil, err
	}
	for i, field := range order {
		if categorical[field] {
			continue
		}
		if err := crop.CheckDomain(field, row[i]); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// unexpectedField refuses, in name order, the first field that is not in the
// schema or that arrived as the wrong kind.
func unexpectedField(input crop.InferenceInput, categorical map[string]bool) error {
	reasons := make(map[string]string)
	for f := range input.Categorical {
		isCategorical, known := categorical[f]
		switch {
		case !known:
			reasons[f] = "field is not part of the model schema"
		case !isCategorical:
			reasons[f] = "numeric field was sent as a categorical value"
		}
	}
	for f := range input.Numeric {
		isCategorical, known := categorical[f]
		switch {
		case !known:
			reasons[f] = "field is not part of the model schema"
		case isCategorical:
			reasons[f] = "categorical field was sent as a numeric value"
		}
	}
	if len(reasons) == 0 {
		return nil
	}
	fields := make([]string, 0, len(reasons))
	for f := range reasons {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return core.NewSchemaMismatchError(fields[0], reasons[fields[0]])
}

// KnownValues returns the legal values of one categorical field.
func (s *InferenceService) KnownValues(field string) ([]string, error) {
	bundle, err := s.loaded()
	if err != nil {
		return nil, err
	}
	return bundle.Encoders.KnownValues(field)
}

// AllKnownValues returns the legal values of every categorical field.
func (s *InferenceService) AllKnownValues() (map[string][]string, error) {
	bundle, err := s.loaded()
	if err != nil {
		return nil, err
	}
	return bundle.Encoders.Domains(), nil
}

// Performance returns the persisted comparison table and the champion name.
func (s *InferenceService) Performance() (model.PerformanceTable, string, error) {
	bundle, err := s.loaded()
	if err != nil {
		return model.PerformanceTable{}, "", err
	}
	return bundle.Performance, bundle.Champion.Name, nil
}

// FeatureOrder returns the champion's declared feature order.
func (s *InferenceService) FeatureOrder() ([]string, error) {
	bundle, err := s.loaded()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(bundle.Champion.FeatureOrder))
	copy(out, bundle.Champion.FeatureOrder)
	return out, nil
}
