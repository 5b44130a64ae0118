package artifacts

import (
	"testing"

	"cropyield/domain/core"
	"cropyield/domain/crop"
	"cropyield/domain/encoding"
	"cropyield/domain/model"
	"cropyield/internal/testkit"
	"cropyield/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleRoundTrip(t *testing.T) {
	bundle, err := testkit.SampleBundle()
	require.NoError(t, err)

	blobs, err := EncodeBundle(bundle)
	require.NoError(t, err)
	assert.Len(t, blobs, 3)

	back, err := DecodeBundle(blobs)
	require.NoError(t, err)
	assert.Equal(t, bundle.RunID, back.RunID)
	assert.Equal(t, bundle.Encoders.Domains(), back.Encoders.Domains())
	assert.Equal(t, bundle.Champion.Name, back.Champion.Name)
	assert.Equal(t, bundle.Champion.FeatureOrder, back.Champion.FeatureOrder)
	assert.Equal(t, bundle.Performance.Names(), back.Performance.Names())
	assert.True(t, bundle.CreatedAt.Equal(back.CreatedAt))

	row := []float64{1, 0, 1, 200, 110, 2, 1050}
	want, err := bundle.Champion.Predict(row)
	require.NoError(t, err)
	got, err := back.Champion.Predict(row)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	code, err := back.Encoders.Encode(crop.FieldCrop, "Wheat")
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestBundleRoundTripKeepsZeroScores(t *testing.T) {
	bundle, err := testkit.SampleBundle()
	require.NoError(t, err)

	bundle.Performance.Records[0].RMSE = model.Float(0)
	bundle.Performance.Records[1].RSquared = model.Float(0)
	bundle.Champion.Score = bundle.Performance.Records[0]

	blobs, err := EncodeBundle(bundle)
	require.NoError(t, err)
	back, err := DecodeBundle(blobs)
	require.NoError(t, err)

	assert.Equal(t, bundle.Performance, back.Performance)
	assert.Equal(t, bundle.Champion.Score, back.Champion.Score)

	linear, ok := back.Performance.Get(bundle.Champion.Name)
	require.True(t, ok)
	require.True(t, linear.Scored())
	assert.Equal(t, 0.0, *linear.RMSE)

	forest := back.Performance.Records[1]
	require.True(t, forest.Scored())
	assert.Equal(t, 0.0, *forest.RSquared)

	svr := back.Performance.Records[3]
	assert.False(t, svr.Scored())
	assert.Nil(t, svr.RSquared)
	assert.NotEmpty(t, svr.Warning)

	best, ok := back.Performance.Best()
	require.True(t, ok)
	assert.Equal(t, bundle.Champion.Name, best.ModelName)
}

func TestDecodeRequiresAllThree(t *testing.T) {
	bundle, err := testkit.SampleBundle()
	require.NoError(t, err)
	blobs, err := EncodeBundle(bundle)
	require.NoError(t, err)

	delete(blobs, ports.ArtifactPerformance)
	_, err = DecodeBundle(blobs)
	require.ErrorIs(t, err, core.ErrArtifactMismatch)

	var am *core.ArtifactMismatchError
	require.ErrorAs(t, err, &am)
	assert.Equal(t, []string{ports.ArtifactPerformance}, am.Missing)

	_, err = DecodeBundle(nil)
	require.ErrorAs(t, err, &am)
	assert.Equal(t, ports.ArtifactNames, am.Missing)
}

func TestDecodeRejectsMixedRuns(t *testing.T) {
	a, err := testkit.SampleBundle()
	require.NoError(t, err)
	b, err := testkit.SampleBundle()
	require.NoError(t, err)

	blobsA, err := EncodeBundle(a)
	require.NoError(t, err)
	blobsB, err := EncodeBundle(b)
	require.NoError(t, err)

	blobsA[ports.ArtifactModel] = blobsB[ports.ArtifactModel]
	_, err = DecodeBundle(blobsA)
	assert.ErrorIs(t, err, core.ErrArtifactMismatch)
}

func TestDecodeRejectsForeignEncoders(t *testing.T) {
	bundle, err := testkit.SampleBundle()
	require.NoError(t, err)
	blobs, err := EncodeBundle(bundle)
	require.NoError(t, err)

	// same run id, different domain
	other, err := encoding.FitRegistry(map[string][]string{
		crop.FieldRegion: {"A", "B", "C"},
		crop.FieldSeason: {"Kharif", "Rabi"},
		crop.FieldCrop:   {"Rice", "Wheat"},
	})
	require.NoError(t, err)
	bundle.Encoders = other
	foreign, err := EncodeBundle(bundle)
	require.NoError(t, err)
	blobs[ports.ArtifactEncoders] = foreign[ports.ArtifactEncoders]

	_, err = DecodeBundle(blobs)
	assert.ErrorIs(t, err, core.ErrArtifactMismatch)
}

func TestDecodeRejectsCorruptBlob(t *testing.T) {
	bundle, err := testkit.SampleBundle()
	require.NoError(t, err)
	blobs, err := EncodeBundle(bundle)
	require.NoError(t, err)

	blobs[ports.ArtifactEncoders] = []byte("not gob")
	_, err = DecodeBundle(blobs)
	assert.ErrorIs(t, err, core.ErrArtifactMismatch)

	runID, err := RunIDOf(blobs[ports.ArtifactModel])
	require.NoError(t, err)
	assert.Equal(t, bundle.RunID.String(), runID)
}

func TestValidateBundle(t *testing.T) {
	assert.Error(t, ValidateBundle(nil))

	bundle, err := testkit.SampleBundle()
	require.NoError(t, err)
	require.NoError(t, ValidateBundle(bundle))

	bundle.Champion.FeatureOrder = []string{crop.FieldArea}
	assert.Error(t, ValidateBundle(bundle), "encoded fields must be model features")

	bundle, err = testkit.SampleBundle()
	require.NoError(t, err)
	bundle.Champion.Name = "Unknown"
	assert.Error(t, ValidateBundle(bundle))
}
