package regression

import (
	"context"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RandomForest averages bootstrap-trained regression trees.
type RandomForest struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
	Trees           []*RegressionTree
}

// NewRandomForest returns an unfit forest.
func NewRandomForest(nEstimators int, seed int64) *RandomForest {
	return &RandomForest{
		NEstimators:     nEstimators,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            seed,
	}
}

// Fit grows every tree concurrently. Each tree draws its bootstrap sample
// from its own stream derived from Seed, so the result does not depend on
// scheduling.
func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	if err := validateFitInput(NameForest, X, y); err != nil {
		return err
	}
	n := len(X)
	trees := make([]*RegressionTree, f.NEstimators)

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range trees {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(f.Seed + int64(i)*7919))
			sample := make([]int, n)
			for k := range sample {
				sample[k] = rng.Intn(n)
			}
			tree := NewRegressionTree(f.MaxDepth, f.MinSamplesSplit, f.MinSamplesLeaf)
			tree.grow(X, y, sample)
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	f.Trees = trees
	return nil
}

// Predict averages the trees' predictions.
func (f *RandomForest) Predict(X [][]float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, errNotFitted
	}
	out := make([]float64, len(X))
	for _, tree := range f.Trees {
		pred, err := tree.Predict(X)
		if err != nil {
			return nil, err
		}
		for i, v := range pred {
			out[i] += v
		}
	}
	scale := 1 / float64(len(f.Trees))
	for i := range out {
		out[i] *= scale
	}
	return out, nil
}
