package encoding

import (
	"testing"

	"cropyield/domain/core"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleColumns() map[string][]string {
	return map[string][]string{
		"region": {"B", "A", "C", "A"},
		"season": {"Rabi", "Kharif"},
		"crop":   {"Wheat", "Rice", "Rice"},
	}
}

func TestFitRegistryKeepsFieldsIndependent(t *testing.T) {
	reg, err := FitRegistry(sampleColumns())
	require.NoError(t, err)
	require.NoError(t, reg.Validate())

	assert.Equal(t, []string{"crop", "region", "season"}, reg.Fields())

	code, err := reg.Encode("region", "C")
	require.NoError(t, err)
	assert.Equal(t, 2, code)

	code, err = reg.Encode("season", "Rabi")
	require.NoError(t, err)
	assert.Equal(t, 1, code)

	// a value legal for one field is not legal for another
	_, err = reg.Encode("crop", "Kharif")
	assert.ErrorIs(t, err, core.ErrUnknownCategory)
}

func TestRegistryUnknownField(t *testing.T) {
	reg, err := FitRegistry(sampleColumns())
	require.NoError(t, err)

	_, err = reg.Encode("soil", "loam")
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)

	_, err = reg.KnownValues("soil")
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)
}

func TestRegistryFingerprintIsStable(t *testing.T) {
	a, err := FitRegistry(sampleColumns())
	require.NoError(t, err)
	b, err := FitRegistry(sampleColumns())
	require.NoError(t, err)

	if diff := cmp.Diff(a.Domains(), b.Domains()); diff != "" {
		t.Fatalf("domains differ (-a +b):\n%s", diff)
	}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	cols := sampleColumns()
	cols["crop"] = append(cols["crop"], "Maize")
	c, err := FitRegistry(cols)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	e1, err := Fit("crop", []string{"Rice"})
	require.NoError(t, err)
	e2, err := Fit("crop", []string{"Wheat"})
	require.NoError(t, err)

	_, err = NewRegistry(e1, e2)
	assert.Error(t, err)
}

func TestValidateCatchesCorruptEntries(t *testing.T) {
	reg := &Registry{Encoders: map[string]*Encoder{
		"crop": {Field: "crop", Values: []string{"Rice", "Rice"}},
	}}
	assert.Error(t, reg.Validate())

	reg = &Registry{Encoders: map[string]*Encoder{
		"crop": {Field: "region", Values: []string{"A"}},
	}}
	assert.Error(t, reg.Validate())

	assert.Error(t, (&Registry{}).Validate())
}
