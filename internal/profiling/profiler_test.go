package profiling

import (
	"context"
	"math"
	"testing"

	"cropyield/app"
	"cropyield/domain/crop"
	"cropyield/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeColumnSymmetric(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	p, err := AnalyzeColumn("x", data)
	require.NoError(t, err)

	assert.Equal(t, 10, p.Count)
	assert.InDelta(t, 5.5, p.Mean, 1e-12)
	assert.InDelta(t, 5.5, p.Median, 1e-12)
	assert.Equal(t, 1.0, p.Min)
	assert.Equal(t, 10.0, p.Max)
	assert.InDelta(t, 0, p.Skewness, 1e-12)
	assert.LessOrEqual(t, p.Q25, p.Median)
	assert.GreaterOrEqual(t, p.Q75, p.Median)
	assert.Zero(t, p.Outliers)
}

func TestAnalyzeColumnFlagsOutlier(t *testing.T) {
	data := []float64{10, 11, 12, 11, 10, 12, 11, 10, 12, 500}
	p, err := AnalyzeColumn("x", data)
	require.NoError(t, err)

	assert.Equal(t, 1, p.Outliers)
	assert.Greater(t, p.Skewness, 1.0)
	assert.False(t, p.LooksNormal())
}

func TestAnalyzeColumnConstant(t *testing.T) {
	p, err := AnalyzeColumn("x", []float64{3, 3, 3, 3, 3})
	require.NoError(t, err)

	assert.Zero(t, p.StdDev)
	assert.Zero(t, p.Skewness)
	assert.Zero(t, p.Kurtosis)
	assert.False(t, math.IsNaN(p.NormalityP))
	assert.True(t, p.LooksNormal())
}

func TestAnalyzeColumnSingleValue(t *testing.T) {
	p, err := AnalyzeColumn("x", []float64{7})
	require.NoError(t, err)
	assert.Equal(t, 7.0, p.Q25)
	assert.Equal(t, 7.0, p.Q75)
}

func TestAnalyzeColumnEmpty(t *testing.T) {
	_, err := AnalyzeColumn("x", nil)
	assert.Error(t, err)
}

func TestProfileDataset(t *testing.T) {
	ctx := context.Background()
	records, err := testkit.NewCropDataGenerator(testkit.DefaultCropConfig()).GenerateRecords()
	require.NoError(t, err)

	preparer, err := app.NewPreparer(app.DefaultPreparerConfig())
	require.NoError(t, err)
	ds, err := preparer.Prepare(records)
	require.NoError(t, err)

	schema := crop.DefaultSchema()
	profile, err := NewDataProfiler(schema).ProfileDataset(ctx, ds)
	require.NoError(t, err)

	assert.Equal(t, ds.Len(), profile.Rows)
	assert.Equal(t, ds.Dropped, profile.Dropped)

	var names []string
	for _, c := range profile.Columns {
		names = append(names, c.Name)
		assert.Equal(t, ds.Len(), c.Count)
	}
	assert.Equal(t, append(schema.Continuous(), schema.Target), names)

	yield, ok := profile.Column(crop.FieldYield)
	require.True(t, ok)
	assert.Greater(t, yield.Mean, 0.0)
	assert.LessOrEqual(t, yield.Min, yield.Max)

	_, ok = profile.Column(crop.FieldRegion)
	assert.False(t, ok, "categorical codes are not profiled")
}

func TestProfileDatasetCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ds := &app.PreparedDataset{
		Rows:         [][]float64{{1}},
		Targets:      []float64{2},
		FeatureOrder: []string{crop.FieldArea},
	}
	_, err := NewDataProfiler(crop.DefaultSchema()).ProfileDataset(ctx, ds)
	assert.ErrorIs(t, err, context.Canceled)
}
