package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"cropyield/adapters/regression"
	"cropyield/domain/core"
	"cropyield/domain/model"
	"cropyield/internal"
	"cropyield/internal/metrics"
	"cropyield/ports"
)

// splitStream names the RNG stream used for the train/held-out split.
const splitStream = "train-test-split"

// HarnessConfig fixes the evaluation protocol.
type HarnessConfig struct {
	Seed         int64   `json:"seed"`
	TestFraction float64 `json:"test_fraction"`
}

// DefaultHarnessConfig is an 80/20 split with seed 42.
func DefaultHarnessConfig() HarnessConfig {
	return HarnessConfig{Seed: regression.DefaultSeed, TestFraction: 0.2}
}

// Split is one partition of a prepared dataset.
type Split struct {
	TrainX, TestX [][]float64
	TrainY, TestY []float64
}

// SelectionResult is the outcome of comparing every candidate.
type SelectionResult struct {
	Champion    *model.Champion
	Performance model.PerformanceTable
}

// Harness trains a fixed roster on one reproducible split and selects a champion.
// It does not persist anything.
type Harness struct {
	cfg    HarnessConfig
	rng    ports.RNGPort
	logger *internal.Logger
}

// NewHarness creates a harness; TestFraction must be in (0, 1).
func NewHarness(cfg HarnessConfig, rng ports.RNGPort) (*Harness, error) {
	if !(cfg.TestFraction > 0 && cfg.TestFraction < 1) {
		return nil, fmt.Errorf("test fraction must be in (0, 1), got %g", cfg.TestFraction)
	}
	if rng == nil {
		return nil, fmt.Errorf("harness requires an RNG port")
	}
	return &Harness{cfg: cfg, rng: rng, logger: internal.DefaultLogger.With("Harness")}, nil
}

// Split shuffles row indices with the seeded stream and holds out
// ceil(n*TestFraction) rows, at least one.
func (h *Harness) Split(ctx context.Context, X [][]float64, y []float64) (*Split, error) {
	n := len(y)
	if len(X) != n {
		return nil, core.NewTrainingFailedError("", fmt.Errorf("%d rows but %d targets", len(X), n))
	}
	if n < 2 {
		return nil, core.NewTrainingFailedError("", fmt.Errorf("need at least 2 rows to split, got %d", n))
	}
	r, err := h.rng.SeededStream(ctx, splitStream, h.cfg.Seed)
	if err != nil {
		return nil, err
	}
	idx := r.Perm(n)

	nTest := int(math.Ceil(h.cfg.TestFraction * float64(n)))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}
	nTrain := n - nTest

	s := &Split{
		TrainX: make([][]float64, nTrain),
		TrainY: make([]float64, nTrain),
		TestX:  make([][]float64, nTest),
		TestY:  make([]float64, nTest),
	}
	for i, j := range idx {
		if i < nTrain {
			s.TrainX[i], s.TrainY[i] = X[j], y[j]
		} else {
			s.TestX[i-nTrain], s.TestY[i-nTrain] = X[j], y[j]
		}
	}
	return s, nil
}

// TrainAndSelect fits every candidate on the same split. A candidate that
// cannot be fit or scored gets a warning row with null scores; the run fails
// only when no candidate is usable.
func (h *Harness) TrainAndSelect(ctx context.Context, X [][]float64, y []float64, featureOrder []string, candidates []model.Candidate) (*SelectionResult, error) {
	if len(candidates) == 0 {
		return nil, core.NewTrainingFailedError("", fmt.Errorf("empty candidate roster"))
	}
	if len(X) > 0 && len(X[0]) != len(featureOrder) {
		return nil, core.NewSchemaMismatchError("feature_order",
			fmt.Sprintf("rows have %d values but %d features are declared", len(X[0]), len(featureOrder)))
	}
	split, err := h.Split(ctx, X, y)
	if err != nil {
		return nil, err
	}
	h.logger.Info("split %d rows into %d train / %d held-out (seed %d)",
		len(y), len(split.TrainY), len(split.TestY), h.cfg.Seed)

	var table model.PerformanceTable
	fitted := make(map[string]model.Regressor, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		reg, scores, err := h.evaluate(c, split)
		rec := model.PerformanceRecord{ModelName: c.Name}
		if err != nil {
			rec.Warning = err.Error()
			h.logger.Warn("candidate %s excluded: %v", c.Name, err)
		} else {
			rec.RSquared = model.Float(scores.RSquared)
			rec.RMSE = model.Float(scores.RMSE)
			fitted[c.Name] = reg
			h.logger.Info("candidate %s: r_squared=%.4f rmse=%.4f (%s)",
				c.Name, scores.RSquared, scores.RMSE, time.Since(start).Round(time.Millisecond))
		}
		if err := table.Add(rec); err != nil {
			return nil, core.NewTrainingFailedError(c.Name, err)
		}
		metrics.RecordCandidateScore(c.Name, rec.RSquared)
	}

	best, ok := table.Best()
	if !ok {
		return nil, core.ErrNoChampion
	}
	h.logger.Info("champion %s with r_squared=%.4f", best.ModelName, *best.RSquared)

	order := make([]string, len(featureOrder))
	copy(order, featureOrder)
	return &SelectionResult{
		Champion: &model.Champion{
			Name:         best.ModelName,
			FeatureOrder: order,
			Model:        fitted[best.ModelName],
			Score:        best,
			TrainedAt:    time.Now().UTC(),
			TrainRows:    len(split.TrainY),
			HeldOutRows:  len(split.TestY),
		},
		Performance: table,
	}, nil
}

// evaluate fits and scores one candidate, converting panics into errors.
func (h *Harness) evaluate(c model.Candidate, split *Split) (reg model.Regressor, scores regression.Scores, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = core.NewTrainingFailedError(c.Name, fmt.Errorf("panic: %v", r))
		}
	}()

	reg = c.New()
	if err = reg.Fit(split.TrainX, split.TrainY); err != nil {
		return nil, scores, asTrainingFailed(c.Name, err)
	}
	predicted, err := reg.Predict(split.TestX)
	if err != nil {
		return nil, scores, asTrainingFailed(c.Name, err)
	}
	scores, err = regression.Score(split.TestY, predicted)
	if err != nil {
		return nil, scores, asTrainingFailed(c.Name, err)
	}
	if !scores.Finite() {
		return nil, scores, core.NewTrainingFailedError(c.Name,
			fmt.Errorf("non-finite scores r_squared=%g rmse=%g", scores.RSquared, scores.RMSE))
	}
	return reg, scores, nil
}

func asTrainingFailed(name string, err error) error {
	var tf *core.TrainingFailedError
	if errors.As(err, &tf) {
		return err
	}
	return core.NewTrainingFailedError(name, err)
}
