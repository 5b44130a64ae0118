// Package profiling summarises the numeric columns of a prepared dataset.
package profiling

import (
	"context"

	"cropyield/app"
	"cropyield/domain/crop"
)

// DatasetProfile holds one profile per continuous feature plus the target.
type DatasetProfile struct {
	Rows    int             `json:"rows"`
	Dropped int             `json:"dropped"`
	Imputed map[string]int  `json:"imputed"`
	Columns []ColumnProfile `json:"columns"`
}

// Column returns the profile for name.
func (p *DatasetProfile) Column(name string) (ColumnProfile, bool) {
	for _, c := range p.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnProfile{}, false
}

// DataProfiler profiles the continuous columns named by a schema.
type DataProfiler struct {
	schema crop.Schema
}

// NewDataProfiler creates a profiler for schema.
func NewDataProfiler(schema crop.Schema) *DataProfiler {
	return &DataProfiler{schema: schema}
}

// ProfileDataset profiles each continuous feature in declared order, then
// the target. Categorical codes are not profiled.
func (dp *DataProfiler) ProfileDataset(ctx context.Context, ds *app.PreparedDataset) (*DatasetProfile, error) {
	profile := &DatasetProfile{
		Rows:    ds.Len(),
		Dropped: ds.Dropped,
		Imputed: ds.Imputed,
	}

	for _, name := range dp.schema.Continuous() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values, ok := ds.Column(name)
		if !ok {
			continue
		}
		column, err := AnalyzeColumn(name, values)
		if err != nil {
			return nil, err
		}
		profile.Columns = append(profile.Columns, column)
	}

	target, err := AnalyzeColumn(dp.schema.Target, ds.Targets)
	if err != nil {
		return nil, err
	}
	profile.Columns = append(profile.Columns, target)
	return profile, nil
}
