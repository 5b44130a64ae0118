package regression

import (
	"cropyield/domain/core"

	"github.com/montanaflynn/stats"
)

// GradientBoosting fits shallow trees to squared-loss residuals in sequence.
type GradientBoosting struct {
	NEstimators  int
	LearningRate float64
	MaxDepth     int
	Init         float64
	Trees        []*RegressionTree
}

// NewGradientBoosting returns an unfit booster.
func NewGradientBoosting(nEstimators int, learningRate float64, maxDepth int) *GradientBoosting {
	return &GradientBoosting{
		NEstimators:  nEstimators,
		LearningRate: learningRate,
		MaxDepth:     maxDepth,
	}
}

// Fit starts from the target mean and adds one residual tree per stage.
func (g *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if err := validateFitInput(NameBoosting, X, y); err != nil {
		return err
	}
	base, err := stats.Mean(y)
	if err != nil {
		return core.NewTrainingFailedError(NameBoosting, err)
	}

	n := len(X)
	current := make([]float64, n)
	for i := range current {
		current[i] = base
	}
	residual := make([]float64, n)
	idx := make([]int, n)

	trees := make([]*RegressionTree, 0, g.NEstimators)
	for stage := 0; stage < g.NEstimators; stage++ {
		for i := range residual {
			residual[i] = y[i] - current[i]
			idx[i] = i
		}
		tree := NewRegressionTree(g.MaxDepth, 2, 1)
		tree.grow(X, residual, idx)
		for i, row := range X {
			current[i] += g.LearningRate * tree.predictRow(row)
		}
		trees = append(trees, tree)
	}

	g.Init = base
	g.Trees = trees
	return nil
}

// Predict sums the shrunken stage outputs.
func (g *GradientBoosting) Predict(X [][]float64) ([]float64, error) {
	if len(g.Trees) == 0 {
		return nil, errNotFitted
	}
	if err := validatePredictInput(X, g.Trees[0].NumFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		v := g.Init
		for _, tree := range g.Trees {
			v += g.LearningRate * tree.predictRow(row)
		}
		out[i] = v
	}
	return out, nil
}
