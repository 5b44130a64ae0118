package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Scores are the held-out metrics for one candidate.
type Scores struct {
	RSquared float64
	RMSE     float64
}

// Finite reports whether both scores are usable.
func (s Scores) Finite() bool {
	return finite(s.RSquared) && finite(s.RMSE)
}

// Score computes the coefficient of determination and root mean squared
// error of predictions against observed values.
func Score(observed, predicted []float64) (Scores, error) {
	if len(observed) == 0 {
		return Scores{}, fmt.Errorf("no observations to score")
	}
	if len(observed) != len(predicted) {
		return Scores{}, fmt.Errorf("%d observations but %d predictions", len(observed), len(predicted))
	}
	return Scores{
		RSquared: stat.RSquaredFrom(predicted, observed, nil),
		RMSE:     floats.Distance(predicted, observed, 2) / math.Sqrt(float64(len(observed))),
	}, nil
}
