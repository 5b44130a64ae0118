package testkit

import (
	"fmt"
	"time"

	"cropyield/adapters/regression"
	"cropyield/domain/core"
	"cropyield/domain/crop"
	"cropyield/domain/encoding"
	"cropyield/domain/model"
	"cropyield/ports"
)

// SampleBundle builds a small, complete artifact set: a registry over two
// values per categorical field and a linear champion fit on every
// combination of them.
func SampleBundle() (*ports.ArtifactBundle, error) {
	registry, err := encoding.FitRegistry(map[string][]string{
		crop.FieldRegion: {"A", "B"},
		crop.FieldSeason: {"Kharif", "Rabi"},
		crop.FieldCrop:   {"Rice", "Wheat"},
	})
	if err != nil {
		return nil, err
	}

	var X [][]float64
	var y []float64
	for r := 0; r < 2; r++ {
		for s := 0; s < 2; s++ {
			for c := 0; c < 2; c++ {
				for k := 1; k <= 3; k++ {
					area := float64(100 * k)
					fert := float64(50*k + 10*r)
					pest := float64(k + s)
					rain := float64(800 + 100*k + 50*c)
					X = append(X, []float64{float64(r), float64(s), float64(c), area, fert, pest, rain})
					y = append(y, 1+0.5*float64(r)+0.3*float64(s)+0.8*float64(c)+0.001*area+0.0005*rain)
				}
			}
		}
	}

	lin := regression.NewLinearRegression()
	if err := lin.Fit(X, y); err != nil {
		return nil, fmt.Errorf("sample champion: %w", err)
	}

	var table model.PerformanceTable
	records := []model.PerformanceRecord{
		{ModelName: regression.NameLinear, RSquared: model.Float(0.99), RMSE: model.Float(0.01)},
		{ModelName: regression.NameForest, RSquared: model.Float(0.95), RMSE: model.Float(0.05)},
		{ModelName: regression.NameBoosting, RSquared: model.Float(0.97), RMSE: model.Float(0.03)},
		{ModelName: regression.NameSVR, Warning: "training failed: example"},
	}
	for _, rec := range records {
		if err := table.Add(rec); err != nil {
			return nil, err
		}
	}

	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &ports.ArtifactBundle{
		RunID:    core.NewRunID(),
		Encoders: registry,
		Champion: &model.Champion{
			Name:         regression.NameLinear,
			FeatureOrder: crop.DefaultSchema().FeatureOrder(),
			Model:        lin,
			Score:        records[0],
			TrainedAt:    created,
			TrainRows:    len(X),
		},
		Performance: table,
		CreatedAt:   created,
	}, nil
}
