package regression

import (
	"fmt"
	"math"
	"math/rand"

	"cropyield/domain/core"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SVR is epsilon-insensitive support vector regression with an RBF kernel.
// The bias is folded into the kernel as K(a,b)+1, so the dual has box
// constraints only and is solved one coordinate at a time.
type SVR struct {
	C          float64
	Epsilon    float64
	Gamma      float64
	MaxIter    int
	Tol        float64
	MaxSamples int
	Seed       int64

	SupportVectors [][]float64
	Coef           []float64
	NumFeatures    int
}

// NewSVR returns an unfit SVR; gamma is derived from the data at fit time.
func NewSVR(c, epsilon float64, seed int64) *SVR {
	return &SVR{
		C:          c,
		Epsilon:    epsilon,
		MaxIter:    200,
		Tol:        1e-3,
		MaxSamples: 2000,
		Seed:       seed,
	}
}

// Fit solves min ½βᵀQβ − yᵀβ + ε‖β‖₁ subject to |βᵢ| ≤ C, Q = K + 1.
func (s *SVR) Fit(X [][]float64, y []float64) error {
	if err := validateFitInput(NameSVR, X, y); err != nil {
		return err
	}
	X, y = s.subsample(X, y)
	n, p := len(X), len(X[0])

	flat := make([]float64, 0, n*p)
	for _, row := range X {
		flat = append(flat, row...)
	}
	variance := stat.Variance(flat, nil) * float64(len(flat)-1) / float64(len(flat))
	gamma := 1.0
	if variance > 0 {
		gamma = 1 / (float64(p) * variance)
	}

	q := make([][]float64, n)
	for i := range q {
		q[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		q[i][i] = 2
		for j := i + 1; j < n; j++ {
			v := rbf(X[i], X[j], gamma) + 1
			q[i][j] = v
			q[j][i] = v
		}
	}

	beta := make([]float64, n)
	// grad holds (Qβ)ᵢ; β starts at zero
	grad := make([]float64, n)
	for iter := 0; iter < s.MaxIter; iter++ {
		maxStep := 0.0
		for i := 0; i < n; i++ {
			r := q[i][i]*beta[i] - (grad[i] - y[i])
			z := math.Copysign(math.Max(math.Abs(r)-s.Epsilon, 0), r) / q[i][i]
			if z > s.C {
				z = s.C
			} else if z < -s.C {
				z = -s.C
			}
			delta := z - beta[i]
			if delta == 0 {
				continue
			}
			beta[i] = z
			floats.AddScaled(grad, delta, q[i])
			if math.Abs(delta) > maxStep {
				maxStep = math.Abs(delta)
			}
		}
		if maxStep < s.Tol {
			break
		}
	}

	var vectors [][]float64
	var coef []float64
	for i, b := range beta {
		if b != 0 {
			vectors = append(vectors, append([]float64(nil), X[i]...))
			coef = append(coef, b)
		}
	}
	if len(coef) == 0 {
		return core.NewTrainingFailedError(NameSVR, fmt.Errorf("no support vectors: targets lie within epsilon of zero"))
	}

	s.Gamma = gamma
	s.SupportVectors = vectors
	s.Coef = coef
	s.NumFeatures = p
	return nil
}

// subsample caps the training set at MaxSamples rows with a seeded draw.
func (s *SVR) subsample(X [][]float64, y []float64) ([][]float64, []float64) {
	if s.MaxSamples <= 0 || len(X) <= s.MaxSamples {
		return X, y
	}
	rng := rand.New(rand.NewSource(s.Seed))
	perm := rng.Perm(len(X))[:s.MaxSamples]
	xs := make([][]float64, len(perm))
	ys := make([]float64, len(perm))
	for k, i := range perm {
		xs[k] = X[i]
		ys[k] = y[i]
	}
	return xs, ys
}

// Predict evaluates Σ βᵢ (K(svᵢ, x) + 1).
func (s *SVR) Predict(X [][]float64) ([]float64, error) {
	if err := validatePredictInput(X, s.NumFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		v := 0.0
		for k, sv := range s.SupportVectors {
			v += s.Coef[k] * (rbf(sv, row, s.Gamma) + 1)
		}
		out[i] = v
	}
	return out, nil
}

func rbf(a, b []float64, gamma float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-gamma * d * d)
}
