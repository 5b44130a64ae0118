package crop

import (
	"fmt"
	"math"
	"strings"
)

// Field names used throughout the pipeline.
const (
	FieldRegion     = "region"
	FieldSeason     = "season"
	FieldCrop       = "crop"
	FieldArea       = "area"
	FieldFertilizer = "fertilizer"
	FieldPesticide  = "pesticide"
	FieldRainfall   = "rainfall"
	FieldYield      = "yield"

	// ExtraProduction is a derived total present in source datasets; never a feature.
	ExtraProduction = "production"
)

// FieldKind classifies a schema field
type FieldKind string

const (
	KindCategorical FieldKind = "categorical"
	KindContinuous  FieldKind = "continuous"
)

// Field is one named input column
type Field struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
}

// Schema declares the feature order emitted by the preparer and the target column.
type Schema struct {
	Features []Field `json:"features"`
	Target   string  `json:"target"`
}

// DefaultSchema returns the crop-yield feature layout.
func DefaultSchema() Schema {
	return Schema{
		Features: []Field{
			{Name: FieldRegion, Kind: KindCategorical},
			{Name: FieldSeason, Kind: KindCategorical},
			{Name: FieldCrop, Kind: KindCategorical},
			{Name: FieldArea, Kind: KindContinuous},
			{Name: FieldFertilizer, Kind: KindContinuous},
			{Name: FieldPesticide, Kind: KindContinuous},
			{Name: FieldRainfall, Kind: KindContinuous},
		},
		Target: FieldYield,
	}
}

// FeatureOrder returns the declared feature names in order.
func (s Schema) FeatureOrder() []string {
	names := make([]string, len(s.Features))
	for i, f := range s.Features {
		names[i] = f.Name
	}
	return names
}

// Categorical returns the categorical field names in declared order.
func (s Schema) Categorical() []string {
	return s.namesOfKind(KindCategorical)
}

// Continuous returns the continuous field names in declared order.
func (s Schema) Continuous() []string {
	return s.namesOfKind(KindContinuous)
}

func (s Schema) namesOfKind(kind FieldKind) []string {
	var names []string
	for _, f := range s.Features {
		if f.Kind == kind {
			names = append(names, f.Name)
		}
	}
	return names
}

// Validate checks that field names are non-empty and unique.
func (s Schema) Validate() error {
	if len(s.Features) == 0 {
		return fmt.Errorf("schema has no features")
	}
	if strings.TrimSpace(s.Target) == "" {
		return fmt.Errorf("schema has no target")
	}
	seen := make(map[string]bool, len(s.Features)+1)
	seen[s.Target] = true
	for _, f := range s.Features {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("schema field with empty name")
		}
		if f.Kind != KindCategorical && f.Kind != KindContinuous {
			return fmt.Errorf("schema field %s has unknown kind %q", f.Name, f.Kind)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema field %s declared twice", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// RawRecord is one observation as read from a dataset. A categorical value
// that is absent or blank is missing; a numeric key that is absent is missing.
type RawRecord struct {
	Categorical map[string]string
	Numeric     map[string]float64
	// Extras holds non-feature columns verbatim (e.g. Crop_Year, Production).
	Extras map[string]string
}

// NewRawRecord returns a record with initialized maps.
func NewRawRecord() RawRecord {
	return RawRecord{
		Categorical: make(map[string]string),
		Numeric:     make(map[string]float64),
		Extras:      make(map[string]string),
	}
}

// CategoricalValue returns the trimmed value, and false when missing.
func (r RawRecord) CategoricalValue(field string) (string, bool) {
	v, ok := r.Categorical[field]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// NumericValue returns the value, and false when missing or NaN.
func (r RawRecord) NumericValue(field string) (float64, bool) {
	v, ok := r.Numeric[field]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ExtraMissing reports whether an extra column exists on the record but is blank.
func (r RawRecord) ExtraMissing(column string) bool {
	v, ok := r.Extras[column]
	return ok && strings.TrimSpace(v) == ""
}

// InferenceInput is one raw input to score: categorical strings and
// continuous floats keyed by field name, in any order.
type InferenceInput struct {
	Categorical map[string]string  `json:"categorical"`
	Numeric     map[string]float64 `json:"numeric"`
}

// Trimmed returns a copy with surrounding whitespace removed from every
// categorical value, matching how training cells are read.
func (in InferenceInput) Trimmed() InferenceInput {
	out := InferenceInput{
		Categorical: make(map[string]string, len(in.Categorical)),
		Numeric:     make(map[string]float64, len(in.Numeric)),
	}
	for k, v := range in.Categorical {
		out.Categorical[k] = strings.TrimSpace(v)
	}
	for k, v := range in.Numeric {
		out.Numeric[k] = v
	}
	return out
}

// NewInferenceInput builds an input from the crop-yield fields.
func NewInferenceInput(region, season, cropName string, area, fertilizer, pesticide, rainfall float64) InferenceInput {
	return InferenceInput{
		Categorical: map[string]string{
			FieldRegion: region,
			FieldSeason: season,
			FieldCrop:   cropName,
		},
		Numeric: map[string]float64{
			FieldArea:       area,
			FieldFertilizer: fertilizer,
			FieldPesticide:  pesticide,
			FieldRainfall:   rainfall,
		},
	}
}
