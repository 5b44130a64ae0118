package testkit

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"cropyield/domain/crop"
)

// CropGeneratorConfig configures the synthetic crop dataset generator
type CropGeneratorConfig struct {
	RowCount  int      `json:"row_count"`
	Regions   []string `json:"regions"`
	Seasons   []string `json:"seasons"`
	Crops     []string `json:"crops"`
	StartYear int      `json:"start_year"`
	Years     int      `json:"years"`
	// MissingRate is the chance that any single feature cell is left blank.
	MissingRate float64 `json:"missing_rate"`
	// NoiseStdDev is the relative spread of the yield noise term.
	NoiseStdDev float64 `json:"noise_std_dev"`
	Seed        int64   `json:"seed"`
}

// DefaultCropConfig returns sensible defaults for crop data generation
func DefaultCropConfig() CropGeneratorConfig {
	return CropGeneratorConfig{
		RowCount:    400,
		Regions:     []string{"Assam", "Bihar", "Karnataka", "Punjab", "Kerala"},
		Seasons:     []string{"Kharif", "Rabi", "Whole Year"},
		Crops:       []string{"Rice", "Wheat", "Maize", "Cotton(lint)"},
		StartYear:   1997,
		Years:       24,
		MissingRate: 0,
		NoiseStdDev: 0.05,
		Seed:        42,
	}
}

// CropRow is one generated observation, including the non-feature columns
// real exports carry.
type CropRow struct {
	Crop       string
	Year       int
	Season     string
	Region     string
	Area       float64
	Production float64
	Rainfall   float64
	Fertilizer float64
	Pesticide  float64
	Yield      float64
	// Blank lists feature columns left empty in this row.
	Blank map[string]bool
}

// CropDataGenerator generates crop observations whose yield depends on
// every feature, so that trained models have signal to find.
type CropDataGenerator struct {
	config CropGeneratorConfig
	rng    *rand.Rand
}

// NewCropDataGenerator creates a new crop data generator
func NewCropDataGenerator(config CropGeneratorConfig) *CropDataGenerator {
	return &CropDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GenerateRows produces RowCount rows.
func (g *CropDataGenerator) GenerateRows() ([]CropRow, error) {
	c := g.config
	if c.RowCount <= 0 {
		return nil, fmt.Errorf("row count must be positive")
	}
	if len(c.Regions) == 0 || len(c.Seasons) == 0 || len(c.Crops) == 0 {
		return nil, fmt.Errorf("regions, seasons and crops must be non-empty")
	}
	years := c.Years
	if years <= 0 {
		years = 1
	}

	rows := make([]CropRow, 0, c.RowCount)
	for i := 0; i < c.RowCount; i++ {
		// cycle categories first so every value appears in small datasets
		ri := i % len(c.Regions)
		si := (i / len(c.Regions)) % len(c.Seasons)
		ci := (i / (len(c.Regions) * len(c.Seasons))) % len(c.Crops)
		if i >= len(c.Regions)*len(c.Seasons)*len(c.Crops) {
			ri, si, ci = g.rng.Intn(len(c.Regions)), g.rng.Intn(len(c.Seasons)), g.rng.Intn(len(c.Crops))
		}

		area := 50 + g.rng.Float64()*5000
		rainfall := 300 + g.rng.Float64()*2500
		fertilizer := area * (80 + g.rng.Float64()*120)
		pesticide := area * (0.1 + g.rng.Float64()*0.5)

		base := 0.8 + 0.6*float64(ci)
		seasonFactor := 1 + 0.15*float64(si)
		regionFactor := 0.9 + 0.05*float64(ri)
		yield := base * seasonFactor * regionFactor *
			(1 + 0.0002*(rainfall-1200)) *
			(1 + 0.002*(fertilizer/area-140))
		yield *= 1 + g.rng.NormFloat64()*c.NoiseStdDev
		yield = math.Max(yield, 0.01)

		row := CropRow{
			Crop:       c.Crops[ci],
			Year:       c.StartYear + g.rng.Intn(years),
			Season:     c.Seasons[si],
			Region:     c.Regions[ri],
			Area:       round(area, 2),
			Rainfall:   round(rainfall, 1),
			Fertilizer: round(fertilizer, 2),
			Pesticide:  round(pesticide, 2),
			Yield:      round(yield, 4),
		}
		row.Production = round(row.Yield*row.Area, 2)

		if c.MissingRate > 0 {
			row.Blank = make(map[string]bool)
			for _, f := range crop.DefaultSchema().FeatureOrder() {
				if g.rng.Float64() < c.MissingRate {
					row.Blank[f] = true
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GenerateRecords produces rows as typed records, as the dataset reader would.
func (g *CropDataGenerator) GenerateRecords() ([]crop.RawRecord, error) {
	rows, err := g.GenerateRows()
	if err != nil {
		return nil, err
	}
	records := make([]crop.RawRecord, len(rows))
	for i, row := range rows {
		rec := crop.NewRawRecord()
		setCat := func(field, v string) {
			if !row.Blank[field] {
				rec.Categorical[field] = v
			}
		}
		setNum := func(field string, v float64) {
			if !row.Blank[field] {
				rec.Numeric[field] = v
			}
		}
		setCat(crop.FieldRegion, row.Region)
		setCat(crop.FieldSeason, row.Season)
		setCat(crop.FieldCrop, row.Crop)
		setNum(crop.FieldArea, row.Area)
		setNum(crop.FieldFertilizer, row.Fertilizer)
		setNum(crop.FieldPesticide, row.Pesticide)
		setNum(crop.FieldRainfall, row.Rainfall)
		rec.Numeric[crop.FieldYield] = row.Yield
		rec.Extras["crop_year"] = strconv.Itoa(row.Year)
		rec.Extras[crop.ExtraProduction] = formatFloat(row.Production)
		records[i] = rec
	}
	return records, nil
}

// CSVHeader is the column layout of published crop-yield exports.
var CSVHeader = []string{"Crop", "Crop_Year", "Season", "State", "Area", "Production", "Annual_Rainfall", "Fertilizer", "Pesticide", "Yield"}

// WriteCSV writes rows in the published export layout.
func WriteCSV(path string, rows []CropRow) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(CSVHeader); err != nil {
		return err
	}
	for _, row := range rows {
		cell := func(field, v string) string {
			if row.Blank[field] {
				return ""
			}
			return v
		}
		record := []string{
			cell(crop.FieldCrop, row.Crop),
			strconv.Itoa(row.Year),
			cell(crop.FieldSeason, row.Season),
			cell(crop.FieldRegion, row.Region),
			cell(crop.FieldArea, formatFloat(row.Area)),
			formatFloat(row.Production),
			cell(crop.FieldRainfall, formatFloat(row.Rainfall)),
			cell(crop.FieldFertilizer, formatFloat(row.Fertilizer)),
			cell(crop.FieldPesticide, formatFloat(row.Pesticide)),
			formatFloat(row.Yield),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return file.Sync()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
