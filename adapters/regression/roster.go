// Package regression implements the candidate estimators compared at
// training time and the metrics used to rank them.
package regression

import (
	"encoding/gob"

	"cropyield/domain/model"
)

// Candidate names, in roster order. Roster order breaks score ties.
const (
	NameLinear   = "Linear Regression"
	NameForest   = "Random Forest"
	NameBoosting = "Gradient Boosting"
	NameSVR      = "Support Vector Regressor (SVR)"
)

// DefaultSeed is the fixed seed for stochastic estimators.
const DefaultSeed int64 = 42

func init() {
	// concrete types must be known to gob to decode model.Regressor values
	gob.Register(&LinearRegression{})
	gob.Register(&RegressionTree{})
	gob.Register(&RandomForest{})
	gob.Register(&GradientBoosting{})
	gob.Register(&SVR{})
}

// DefaultCandidates returns the fixed roster. Every New call yields a fresh,
// identically configured estimator.
func DefaultCandidates(seed int64) []model.Candidate {
	return []model.Candidate{
		{
			Name:   NameLinear,
			Params: map[string]any{"fit_intercept": true},
			New:    func() model.Regressor { return NewLinearRegression() },
		},
		{
			Name:   NameForest,
			Params: map[string]any{"n_estimators": 100, "max_depth": "none", "min_samples_split": 2, "min_samples_leaf": 1, "seed": seed},
			New:    func() model.Regressor { return NewRandomForest(100, seed) },
		},
		{
			Name:   NameBoosting,
			Params: map[string]any{"n_estimators": 100, "learning_rate": 0.1, "max_depth": 3, "seed": seed},
			New:    func() model.Regressor { return NewGradientBoosting(100, 0.1, 3) },
		},
		{
			Name:   NameSVR,
			Params: map[string]any{"kernel": "rbf", "C": 1.0, "epsilon": 0.1, "gamma": "scale", "max_samples": 2000, "seed": seed},
			New:    func() model.Regressor { return NewSVR(1.0, 0.1, seed) },
		},
	}
}
