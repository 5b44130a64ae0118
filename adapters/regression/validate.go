package regression

import (
	"errors"
	"fmt"
	"math"

	"cropyield/domain/core"
)

var errNotFitted = errors.New("model is not fitted")

// validateFitInput rejects inputs no estimator can learn from.
func validateFitInput(name string, X [][]float64, y []float64) error {
	if len(X) == 0 || len(y) == 0 {
		return core.NewTrainingFailedError(name, core.ErrEmptyDataset)
	}
	if len(X) != len(y) {
		return core.NewTrainingFailedError(name, fmt.Errorf("%d rows but %d targets", len(X), len(y)))
	}
	width := len(X[0])
	if width == 0 {
		return core.NewTrainingFailedError(name, fmt.Errorf("rows have no features"))
	}
	for i, row := range X {
		if len(row) != width {
			return core.NewTrainingFailedError(name, fmt.Errorf("row %d has %d features, want %d", i, len(row), width))
		}
		for j, v := range row {
			if !finite(v) {
				return core.NewTrainingFailedError(name, fmt.Errorf("row %d feature %d is not finite", i, j))
			}
		}
	}
	constant := true
	for i, v := range y {
		if !finite(v) {
			return core.NewTrainingFailedError(name, fmt.Errorf("target %d is not finite", i))
		}
		if v != y[0] {
			constant = false
		}
	}
	if constant {
		return core.NewTrainingFailedError(name, fmt.Errorf("target is constant"))
	}
	return nil
}

// validatePredictInput checks row widths against the fitted width.
func validatePredictInput(X [][]float64, width int) error {
	if width == 0 {
		return errNotFitted
	}
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, model expects %d", i, len(row), width)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
