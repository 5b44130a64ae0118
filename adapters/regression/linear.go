package regression

import (
	"fmt"

	"cropyield/domain/core"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ordinary least squares with an intercept.
type LinearRegression struct {
	Coefficients []float64
	Intercept    float64
	// Ridge is a vanishing diagonal load that keeps collinear designs solvable.
	Ridge float64
}

// NewLinearRegression returns an unfit OLS estimator.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{Ridge: 1e-10}
}

// Fit solves the centered normal equations by Cholesky factorization.
func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	if err := validateFitInput(NameLinear, X, y); err != nil {
		return err
	}
	n, p := len(X), len(X[0])

	xMean := make([]float64, p)
	for _, row := range X {
		floats.Add(xMean, row)
	}
	floats.Scale(1/float64(n), xMean)
	yMean := floats.Sum(y) / float64(n)

	xc := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	for i, row := range X {
		for j, v := range row {
			xc.Set(i, j, v-xMean[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	xtx := mat.NewSymDense(p, nil)
	xtx.SymOuterK(1, xc.T())
	load := m.Ridge * (1 + mat.Trace(xtx)/float64(p))
	for j := 0; j < p; j++ {
		xtx.SetSym(j, j, xtx.At(j, j)+load)
	}

	xty := mat.NewVecDense(p, nil)
	xty.MulVec(xc.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(xtx); !ok {
		return core.NewTrainingFailedError(NameLinear, fmt.Errorf("normal equations are not positive definite"))
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, xty); err != nil {
		return core.NewTrainingFailedError(NameLinear, err)
	}

	coef := make([]float64, p)
	for j := range coef {
		coef[j] = beta.AtVec(j)
		if !finite(coef[j]) {
			return core.NewTrainingFailedError(NameLinear, fmt.Errorf("coefficient %d is not finite", j))
		}
	}
	m.Coefficients = coef
	m.Intercept = yMean - floats.Dot(xMean, coef)
	return nil
}

// Predict returns intercept + x·β for each row.
func (m *LinearRegression) Predict(X [][]float64) ([]float64, error) {
	if err := validatePredictInput(X, len(m.Coefficients)); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = m.Intercept + floats.Dot(row, m.Coefficients)
	}
	return out, nil
}
