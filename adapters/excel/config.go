package excel

import (
	"strings"

	"cropyield/domain/crop"
)

// ReaderConfig holds configuration for the crop dataset source
type ReaderConfig struct {
	FilePath string `json:"file_path"`
	// Sheet is the worksheet read from .xlsx files.
	Sheet string `json:"sheet"`
	// Aliases maps lower-cased source headers onto schema field names.
	Aliases map[string]string `json:"aliases"`
	Schema  crop.Schema       `json:"schema"`
}

// DefaultReaderConfig returns the header aliases used by the published crop datasets
func DefaultReaderConfig(filePath string) ReaderConfig {
	return ReaderConfig{
		FilePath: filePath,
		Sheet:    "Sheet1",
		Aliases: map[string]string{
			"state":           crop.FieldRegion,
			"region":          crop.FieldRegion,
			"season":          crop.FieldSeason,
			"crop":            crop.FieldCrop,
			"area":            crop.FieldArea,
			"fertilizer":      crop.FieldFertilizer,
			"pesticide":       crop.FieldPesticide,
			"annual_rainfall": crop.FieldRainfall,
			"rainfall":        crop.FieldRainfall,
			"yield":           crop.FieldYield,
		},
		Schema: crop.DefaultSchema(),
	}
}

// resolve maps a source header to a schema field, or "" when it is an extra column.
func (c ReaderConfig) resolve(header string) string {
	return c.Aliases[strings.ToLower(strings.TrimSpace(header))]
}
