package app

import (
	"context"
	"errors"
	"sort"
	"testing"

	"cropyield/adapters/regression"
	"cropyield/adapters/rng"
	"cropyield/domain/core"
	"cropyield/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRegressor predicts a fixed offset from the first feature.
type stubRegressor struct {
	fitErr error
	panics bool
	scale  float64
}

func (s *stubRegressor) Fit(X [][]float64, y []float64) error {
	if s.panics {
		panic("boom")
	}
	return s.fitErr
}

func (s *stubRegressor) Predict(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = s.scale * row[0]
	}
	return out, nil
}

func stubCandidate(name string, r *stubRegressor) model.Candidate {
	return model.Candidate{Name: name, New: func() model.Regressor {
		c := *r
		return &c
	}}
}

func newTestHarness(t *testing.T) *Harness {
	t.Helper()
	h, err := NewHarness(DefaultHarnessConfig(), rng.NewSeededAdapter())
	require.NoError(t, err)
	return h
}

func identityData(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		X[i] = []float64{float64(i)}
		y[i] = float64(i)
	}
	return X, y
}

func TestSplitSizes(t *testing.T) {
	h := newTestHarness(t)
	for n, wantTest := range map[int]int{2: 1, 5: 1, 10: 2, 11: 3, 100: 20} {
		X, y := identityData(n)
		s, err := h.Split(context.Background(), X, y)
		require.NoError(t, err, n)
		assert.Len(t, s.TestY, wantTest, n)
		assert.Len(t, s.TrainY, n-wantTest, n)

		all := append(append([]float64{}, s.TrainY...), s.TestY...)
		sort.Float64s(all)
		assert.Equal(t, y, all, "split is a partition")
	}
}

func TestSplitIsReproducible(t *testing.T) {
	X, y := identityData(50)
	a, err := newTestHarness(t).Split(context.Background(), X, y)
	require.NoError(t, err)
	b, err := newTestHarness(t).Split(context.Background(), X, y)
	require.NoError(t, err)
	assert.Equal(t, a.TestY, b.TestY)

	other, err := NewHarness(HarnessConfig{Seed: 7, TestFraction: 0.2}, rng.NewSeededAdapter())
	require.NoError(t, err)
	c, err := other.Split(context.Background(), X, y)
	require.NoError(t, err)
	assert.NotEqual(t, a.TestY, c.TestY)
}

func TestSplitNeedsTwoRows(t *testing.T) {
	X, y := identityData(1)
	_, err := newTestHarness(t).Split(context.Background(), X, y)
	assert.ErrorIs(t, err, core.ErrTrainingFailed)
}

func TestNewHarnessValidatesFraction(t *testing.T) {
	for _, f := range []float64{0, 1, -0.1, 1.5} {
		_, err := NewHarness(HarnessConfig{TestFraction: f}, rng.NewSeededAdapter())
		assert.Error(t, err, f)
	}
}

func TestTrainAndSelectIsolatesFailures(t *testing.T) {
	X, y := identityData(30)
	candidates := []model.Candidate{
		stubCandidate("fails", &stubRegressor{fitErr: errors.New("singular")}),
		stubCandidate("half", &stubRegressor{scale: 0.5}),
		stubCandidate("panics", &stubRegressor{panics: true}),
		stubCandidate("exact", &stubRegressor{scale: 1}),
		stubCandidate("exact-too", &stubRegressor{scale: 1}),
	}

	res, err := newTestHarness(t).TrainAndSelect(context.Background(), X, y, []string{"x"}, candidates)
	require.NoError(t, err)

	assert.Equal(t, []string{"fails", "half", "panics", "exact", "exact-too"}, res.Performance.Names())
	for _, name := range []string{"fails", "panics"} {
		rec, ok := res.Performance.Get(name)
		require.True(t, ok)
		assert.False(t, rec.Scored(), name)
		assert.Nil(t, rec.RSquared, name)
		assert.Contains(t, rec.Warning, name)
	}

	assert.Equal(t, "exact", res.Champion.Name, "first of tied candidates wins")
	assert.InDelta(t, 1.0, *res.Champion.Score.RSquared, 1e-12)
	assert.Equal(t, []string{"x"}, res.Champion.FeatureOrder)
	assert.Equal(t, 24, res.Champion.TrainRows)
	assert.Equal(t, 6, res.Champion.HeldOutRows)
}

func TestTrainAndSelectNoChampion(t *testing.T) {
	X, y := identityData(10)
	_, err := newTestHarness(t).TrainAndSelect(context.Background(), X, y, []string{"x"}, []model.Candidate{
		stubCandidate("fails", &stubRegressor{fitErr: errors.New("singular")}),
	})
	assert.ErrorIs(t, err, core.ErrNoChampion)
	assert.ErrorIs(t, err, core.ErrTrainingFailed)
}

func TestTrainAndSelectConstantTarget(t *testing.T) {
	X, _ := identityData(20)
	y := make([]float64, 20)
	for i := range y {
		y[i] = 3
	}
	_, err := newTestHarness(t).TrainAndSelect(context.Background(), X, y, []string{"x"}, regression.DefaultCandidates(regression.DefaultSeed))
	assert.ErrorIs(t, err, core.ErrNoChampion)
}

func TestTrainAndSelectRosterOnScenario(t *testing.T) {
	ds, err := newTestPreparer(t).Prepare(scenarioRecords(60))
	require.NoError(t, err)

	res, err := newTestHarness(t).TrainAndSelect(context.Background(), ds.Rows, ds.Targets, ds.FeatureOrder,
		regression.DefaultCandidates(regression.DefaultSeed))
	require.NoError(t, err)

	assert.Equal(t, []string{regression.NameLinear, regression.NameForest, regression.NameBoosting, regression.NameSVR},
		res.Performance.Names())
	for _, rec := range res.Performance.Records {
		if rec.Scored() {
			assert.LessOrEqual(t, *rec.RSquared, *res.Champion.Score.RSquared, rec.ModelName)
			assert.GreaterOrEqual(t, *rec.RMSE, 0.0, rec.ModelName)
		}
	}
	assert.Equal(t, ds.FeatureOrder, res.Champion.FeatureOrder)
}

func TestTrainAndSelectRejectsWidthMismatch(t *testing.T) {
	X, y := identityData(10)
	_, err := newTestHarness(t).TrainAndSelect(context.Background(), X, y, []string{"a", "b"},
		[]model.Candidate{stubCandidate("exact", &stubRegressor{scale: 1})})
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)
}
