package errors

import (
	stderrors "errors"
	"fmt"
	"math"
	"testing"

	"cropyield/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestKindMapsTaxonomy(t *testing.T) {
	cases := []struct {
		err  error
		kind string
		code string
	}{
		{core.NewUnknownCategoryError("region", "Atlantis"), "UnknownCategoryError", CodeUnknownCategory},
		{core.NewSchemaMismatchError("crop", "missing"), "SchemaMismatchError", CodeSchemaMismatch},
		{core.NewInvalidInputError("area", 0, "must be greater than zero"), "InvalidInputError", CodeInvalidInput},
		{core.NewMissingArtifactsError("best_model"), "ArtifactMismatchError", CodeArtifactMismatch},
		{&core.ArtifactUnavailableError{Cause: core.NewMissingArtifactsError("best_model")}, "ArtifactUnavailableError", CodeArtifactUnavailable},
		{fmt.Errorf("%w: nothing left", core.ErrEmptyDataset), "EmptyDatasetError", CodeEmptyDataset},
		{core.ErrNoChampion, "TrainingFailedError", CodeTrainingFailed},
		{core.NewMalformedDatasetError(3, "Area", "bad"), "MalformedDatasetError", CodeMalformedDataset},
		{stderrors.New("boom"), "InternalError", CodeInternalError},
		{Unauthorized("no token"), "Unauthorized", CodeUnauthorized},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, Kind(tc.err), tc.err.Error())
		assert.Equal(t, tc.code, GetCode(tc.err), tc.err.Error())
	}
}

func TestWrapKeepsDomainCode(t *testing.T) {
	err := Wrap(core.NewUnknownCategoryError("crop", "Kale"), "prediction refused")
	assert.Equal(t, CodeUnknownCategory, GetCode(err))
	assert.Equal(t, "UnknownCategoryError", Kind(err))
	assert.True(t, stderrors.Is(err, core.ErrUnknownCategory))
	assert.Nil(t, Wrap(nil, "x"))
}

func TestWithCodeOverrides(t *testing.T) {
	err := WithCode(CodeConfigInvalid, stderrors.New("bad port"))
	assert.Equal(t, CodeConfigInvalid, GetCode(err))
	assert.True(t, IsAppError(err))
}

func TestDescribeCarriesContext(t *testing.T) {
	d := Describe(core.NewUnknownCategoryError("region", "Atlantis"))
	assert.Equal(t, "region", d.Field)
	assert.Equal(t, "Atlantis", d.Value)

	d = Describe(core.NewInvalidInputError("rainfall", -5, "must be greater than zero"))
	assert.Equal(t, "rainfall", d.Field)
	assert.Equal(t, -5.0, d.Value)

	d = Describe(core.NewInvalidInputError("area", math.Inf(1), "must be a finite number"))
	assert.Equal(t, "+Inf", d.Value)

	d = Describe(&core.ArtifactUnavailableError{Cause: core.NewMissingArtifactsError("model_performance")})
	assert.Equal(t, "ArtifactUnavailableError", d.Kind)
	assert.Equal(t, []string{"model_performance"}, d.Artifact)
}
