package app

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cropyield/adapters/artifacts/fs"
	"cropyield/domain/core"
	"cropyield/domain/crop"
	"cropyield/internal/testkit"
	"cropyield/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func readyService(t *testing.T) (*InferenceService, *ports.ArtifactBundle) {
	t.Helper()
	bundle, err := testkit.SampleBundle()
	require.NoError(t, err)
	svc := NewInferenceService(testkit.NewMemoryStoreWith(bundle))
	require.NoError(t, svc.Load(context.Background()))
	require.Equal(t, StateReady, svc.State())
	return svc, bundle
}

func sampleInput() crop.InferenceInput {
	return crop.NewInferenceInput("A", "Kharif", "Rice", 200, 100, 2, 900)
}

// trainedService runs the documented scenario end to end through the fs store.
func trainedService(t *testing.T) (*InferenceService, string) {
	t.Helper()
	reader := &mockReader{}
	reader.On("ReadRecords", mock.Anything).Return(scenarioRecords(24), nil)
	dir := filepath.Join(t.TempDir(), "artifacts")
	_, err := newTestRunner(t, reader, fs.NewStore(dir)).Run(context.Background())
	require.NoError(t, err)

	svc := NewInferenceService(fs.NewStore(dir))
	require.NoError(t, svc.Load(context.Background()))
	return svc, dir
}

func TestScenarioTrainThenPredict(t *testing.T) {
	svc, _ := trainedService(t)

	got, err := svc.Predict(context.Background(), crop.NewInferenceInput("A", "Kharif", "Rice", 2.0, 100, 10, 800))
	require.NoError(t, err)
	assert.False(t, math.IsNaN(got.Value) || math.IsInf(got.Value, 0), "prediction %v is finite", got.Value)
	assert.NotEmpty(t, got.Model)
	assert.NotEmpty(t, got.RunID)
}

func TestScenarioUnknownRegion(t *testing.T) {
	svc, _ := trainedService(t)

	_, err := svc.Predict(context.Background(), crop.NewInferenceInput("Atlantis", "Kharif", "Rice", 2.0, 100, 10, 800))
	require.ErrorIs(t, err, core.ErrUnknownCategory)
	var uc *core.UnknownCategoryError
	require.ErrorAs(t, err, &uc)
	assert.Equal(t, crop.FieldRegion, uc.Field)
	assert.Equal(t, "Atlantis", uc.Value)
}

func TestScenarioMissingPerformanceArtifact(t *testing.T) {
	_, dir := trainedService(t)
	require.NoError(t, os.Remove(filepath.Join(dir, ports.ArtifactPerformance+".gob")))

	svc := NewInferenceService(fs.NewStore(dir))
	err := svc.Load(context.Background())
	require.ErrorIs(t, err, core.ErrArtifactMismatch)
	assert.Equal(t, StateUnavailable, svc.State())

	_, err = svc.Predict(context.Background(), sampleInput())
	assert.ErrorIs(t, err, core.ErrArtifactUnavailable)
	assert.ErrorIs(t, err, core.ErrArtifactMismatch, "cause stays visible")
	_, _, err = svc.Performance()
	assert.ErrorIs(t, err, core.ErrArtifactUnavailable)
}

func TestPredictRejectsNonPositiveDomain(t *testing.T) {
	svc, _ := readyService(t)
	for _, tc := range []struct {
		field string
		value float64
	}{
		{crop.FieldArea, 0},
		{crop.FieldRainfall, -5},
		{crop.FieldFertilizer, -1},
		{crop.FieldPesticide, math.Inf(1)},
		{crop.FieldArea, math.NaN()},
	} {
		in := sampleInput()
		in.Numeric[tc.field] = tc.value
		_, err := svc.Predict(context.Background(), in)
		require.ErrorIs(t, err, core.ErrInvalidInput, tc.field)
		var ii *core.InvalidInputError
		require.ErrorAs(t, err, &ii)
		assert.Equal(t, tc.field, ii.Field)
	}
}

func TestPredictSchemaMismatch(t *testing.T) {
	svc, _ := readyService(t)

	missing := sampleInput()
	delete(missing.Numeric, crop.FieldPesticide)
	_, err := svc.Predict(context.Background(), missing)
	var sm *core.SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, crop.FieldPesticide, sm.Field)

	missingCat := sampleInput()
	delete(missingCat.Categorical, crop.FieldSeason)
	_, err = svc.Predict(context.Background(), missingCat)
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, crop.FieldSeason, sm.Field)

	extra := sampleInput()
	extra.Numeric[crop.ExtraProduction] = 10
	_, err = svc.Predict(context.Background(), extra)
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, crop.ExtraProduction, sm.Field)

	// a categorical sent as numeric is absent from the categorical set
	misplaced := sampleInput()
	delete(misplaced.Categorical, crop.FieldCrop)
	misplaced.Numeric[crop.FieldCrop] = 1
	_, err = svc.Predict(context.Background(), misplaced)
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)
}

func TestPredictRejectsDuplicateFieldOfWrongKind(t *testing.T) {
	svc, _ := readyService(t)

	strayCategorical := sampleInput()
	strayCategorical.Categorical[crop.FieldArea] = "200"
	_, err := svc.Predict(context.Background(), strayCategorical)
	var sm *core.SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, crop.FieldArea, sm.Field)
	assert.Contains(t, sm.Reason, "sent as a categorical")

	strayNumeric := sampleInput()
	strayNumeric.Numeric[crop.FieldRegion] = 0
	_, err = svc.Predict(context.Background(), strayNumeric)
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, crop.FieldRegion, sm.Field)
	assert.Contains(t, sm.Reason, "sent as a numeric")
}

func TestUnknownCategoryIsCheckedBeforeDomain(t *testing.T) {
	svc, _ := readyService(t)
	in := crop.NewInferenceInput("A", "Monsoon", "Rice", 0, 100, 2, 900)
	_, err := svc.Predict(context.Background(), in)
	assert.ErrorIs(t, err, core.ErrUnknownCategory)
}

func TestAlignRowFollowsChampionOrder(t *testing.T) {
	bundle, err := testkit.SampleBundle()
	require.NoError(t, err)
	in := crop.NewInferenceInput("B", "Rabi", "Rice", 200, 100, 2, 900)

	row, err := AlignRow(bundle, in)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0, 200, 100, 2, 900}, row)

	reversed := make([]string, len(bundle.Champion.FeatureOrder))
	for i, f := range bundle.Champion.FeatureOrder {
		reversed[len(reversed)-1-i] = f
	}
	bundle.Champion.FeatureOrder = reversed
	row, err = AlignRow(bundle, in)
	require.NoError(t, err)
	assert.Equal(t, []float64{900, 2, 100, 200, 0, 1, 1}, row)
}

func TestPredictMatchesDirectScoring(t *testing.T) {
	svc, bundle := readyService(t)

	got, err := svc.Predict(context.Background(), sampleInput())
	require.NoError(t, err)

	want, err := bundle.Champion.Model.Predict([][]float64{{0, 0, 0, 200, 100, 2, 900}})
	require.NoError(t, err)
	assert.InDelta(t, want[0], got.Value, 1e-12)
	assert.Equal(t, bundle.Champion.Name, got.Model)
}

func TestPredictBeforeLoad(t *testing.T) {
	svc := NewInferenceService(testkit.NewMemoryStore())
	assert.Equal(t, StateUninitialized, svc.State())
	_, err := svc.Predict(context.Background(), sampleInput())
	assert.ErrorIs(t, err, core.ErrArtifactUnavailable)
	_, err = svc.KnownValues(crop.FieldRegion)
	assert.ErrorIs(t, err, core.ErrArtifactUnavailable)
}

func TestLoadFailureThenRetry(t *testing.T) {
	bundle, err := testkit.SampleBundle()
	require.NoError(t, err)
	store := testkit.NewMemoryStoreWith(bundle)
	store.FailLoads(errors.New("disk on fire"))
	svc := NewInferenceService(store)

	require.Error(t, svc.Load(context.Background()))
	assert.Equal(t, StateUnavailable, svc.State())
	for i := 0; i < 3; i++ {
		_, err := svc.Predict(context.Background(), sampleInput())
		assert.ErrorIs(t, err, core.ErrArtifactUnavailable)
	}
	assert.Equal(t, 1, store.Loads(), "predict never reloads")

	store.FailLoads(nil)
	require.NoError(t, svc.Load(context.Background()))
	assert.Equal(t, StateReady, svc.State())
	_, err = svc.Predict(context.Background(), sampleInput())
	assert.NoError(t, err)
}

func TestConcurrentLoadReadsOnce(t *testing.T) {
	bundle, err := testkit.SampleBundle()
	require.NoError(t, err)
	store := testkit.NewMemoryStoreWith(bundle)
	store.SetDelay(20 * time.Millisecond)
	svc := NewInferenceService(store)

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error { return svc.Load(context.Background()) })
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, store.Loads())
	require.NoError(t, svc.Load(context.Background()))
	assert.Equal(t, 1, store.Loads())
}

func TestConcurrentPredictions(t *testing.T) {
	svc, _ := readyService(t)
	want, err := svc.Predict(context.Background(), sampleInput())
	require.NoError(t, err)

	g, ctx := errgroup.WithContext(context.Background())
	results := make([]float64, 64)
	for i := range results {
		i := i
		g.Go(func() error {
			got, err := svc.Predict(ctx, sampleInput())
			results[i] = got.Value
			return err
		})
	}
	require.NoError(t, g.Wait())
	for _, v := range results {
		assert.Equal(t, want.Value, v)
	}
}

func TestKnownValuesAndPerformance(t *testing.T) {
	svc, bundle := readyService(t)

	values, err := svc.KnownValues(crop.FieldSeason)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kharif", "Rabi"}, values)

	_, err = svc.KnownValues(crop.FieldArea)
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)

	all, err := svc.AllKnownValues()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	table, champion, err := svc.Performance()
	require.NoError(t, err)
	assert.Equal(t, bundle.Performance.Names(), table.Names())
	assert.Equal(t, bundle.Champion.Name, champion)

	order, err := svc.FeatureOrder()
	require.NoError(t, err)
	assert.Equal(t, crop.DefaultSchema().FeatureOrder(), order)
}
