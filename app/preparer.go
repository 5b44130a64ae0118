package app

import (
	"fmt"
	"math"
	"sort"

	"cropyield/domain/core"
	"cropyield/domain/crop"
	"cropyield/domain/encoding"
	"cropyield/internal"

	"github.com/montanaflynn/stats"
)

// PreparerConfig declares the layout and drop rules of a training dataset.
type PreparerConfig struct {
	Schema crop.Schema
	// Required numeric fields; a record missing any of them is dropped.
	// The schema target is always required.
	Required []string
	// RequiredExtras are non-feature columns that drop a record when present but blank.
	RequiredExtras []string
}

// DefaultPreparerConfig drops rows without yield, area, fertilizer or production.
func DefaultPreparerConfig() PreparerConfig {
	return PreparerConfig{
		Schema:         crop.DefaultSchema(),
		Required:       []string{crop.FieldArea, crop.FieldFertilizer},
		RequiredExtras: []string{crop.ExtraProduction},
	}
}

// PreparedDataset is the numeric matrix a training run fits on.
type PreparedDataset struct {
	Rows         [][]float64
	Targets      []float64
	Encoders     *encoding.Registry
	FeatureOrder []string

	Dropped int
	Imputed map[string]int
	Means   map[string]float64
	Modes   map[string]string
}

// Len returns the number of prepared rows.
func (d *PreparedDataset) Len() int { return len(d.Rows) }

// Column copies out the values of one feature, in row order.
func (d *PreparedDataset) Column(name string) ([]float64, bool) {
	idx := -1
	for i, f := range d.FeatureOrder {
		if f == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	values := make([]float64, len(d.Rows))
	for i, row := range d.Rows {
		values[i] = row[idx]
	}
	return values, true
}

// Preparer turns raw records into feature rows. It runs once per training
// run and never against an inference input.
type Preparer struct {
	cfg    PreparerConfig
	logger *internal.Logger
}

// NewPreparer creates a preparer; the schema must be valid.
func NewPreparer(cfg PreparerConfig) (*Preparer, error) {
	if err := cfg.Schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preparer schema: %w", err)
	}
	return &Preparer{cfg: cfg, logger: internal.DefaultLogger.With("Preparer")}, nil
}

// Prepare applies, in order: drop, impute, fit encoders, emit rows.
func (p *Preparer) Prepare(records []crop.RawRecord) (*PreparedDataset, error) {
	schema := p.cfg.Schema
	kept := p.dropIncomplete(records)
	dropped := len(records) - len(kept)
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %d of %d records dropped during cleaning",
			core.ErrEmptyDataset, dropped, len(records))
	}

	ds := &PreparedDataset{
		FeatureOrder: schema.FeatureOrder(),
		Dropped:      dropped,
		Imputed:      make(map[string]int),
		Means:        make(map[string]float64),
		Modes:        make(map[string]string),
	}

	for _, field := range schema.Continuous() {
		mean, err := columnMean(kept, field)
		if err != nil {
			return nil, err
		}
		ds.Means[field] = mean
	}
	for _, field := range schema.Categorical() {
		mode, err := columnMode(kept, field)
		if err != nil {
			return nil, err
		}
		ds.Modes[field] = mode
	}

	columns := make(map[string][]string, len(ds.Modes))
	for _, field := range schema.Categorical() {
		values := make([]string, len(kept))
		for i, rec := range kept {
			v, ok := rec.CategoricalValue(field)
			if !ok {
				v = ds.Modes[field]
				ds.Imputed[field]++
			}
			values[i] = v
		}
		columns[field] = values
	}

	registry, err := encoding.FitRegistry(columns)
	if err != nil {
		return nil, err
	}
	ds.Encoders = registry

	ds.Rows = make([][]float64, len(kept))
	ds.Targets = make([]float64, len(kept))
	for i, rec := range kept {
		row := make([]float64, len(schema.Features))
		for j, f := range schema.Features {
			switch f.Kind {
			case crop.KindCategorical:
				code, err := registry.Encode(f.Name, columns[f.Name][i])
				if err != nil {
					return nil, err
				}
				row[j] = float64(code)
			case crop.KindContinuous:
				v, ok := finiteValue(rec, f.Name)
				if !ok {
					v = ds.Means[f.Name]
					ds.Imputed[f.Name]++
				}
				row[j] = v
			}
		}
		ds.Rows[i] = row
		ds.Targets[i], _ = finiteValue(rec, schema.Target)
	}

	p.logger.Info("prepared %d rows (%d dropped) with feature order %v", len(ds.Rows), dropped, ds.FeatureOrder)
	p.logger.Debug("imputation means=%v modes=%v counts=%v", ds.Means, ds.Modes, ds.Imputed)
	return ds, nil
}

func (p *Preparer) dropIncomplete(records []crop.RawRecord) []crop.RawRecord {
	required := append([]string{p.cfg.Schema.Target}, p.cfg.Required...)
	kept := make([]crop.RawRecord, 0, len(records))
next:
	for _, rec := range records {
		for _, field := range required {
			if _, ok := finiteValue(rec, field); !ok {
				continue next
			}
		}
		for _, column := range p.cfg.RequiredExtras {
			if rec.ExtraMissing(column) {
				continue next
			}
		}
		kept = append(kept, rec)
	}
	return kept
}

// finiteValue treats NaN and infinities as missing.
func finiteValue(rec crop.RawRecord, field string) (float64, bool) {
	v, ok := rec.NumericValue(field)
	if !ok || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func columnMean(records []crop.RawRecord, field string) (float64, error) {
	values := make([]float64, 0, len(records))
	for _, rec := range records {
		if v, ok := finiteValue(rec, field); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: field %s has no observed values", core.ErrEmptyDataset, field)
	}
	return stats.Mean(values)
}

// columnMode returns the most frequent value; ties go to the smallest.
func columnMode(records []crop.RawRecord, field string) (string, error) {
	counts := make(map[string]int)
	for _, rec := range records {
		if v, ok := rec.CategoricalValue(field); ok {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return "", fmt.Errorf("%w: field %s has no observed values", core.ErrEmptyDataset, field)
	}
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Strings(values)
	mode := values[0]
	for _, v := range values[1:] {
		if counts[v] > counts[mode] {
			mode = v
		}
	}
	return mode, nil
}
