package ports

import (
	"context"

	"cropyield/domain/crop"
)

// DatasetReader loads raw historical crop records from a tabular source.
type DatasetReader interface {
	// ReadRecords returns every data row in file order. Blank cells stay
	// absent so the preparer can apply its drop and impute rules.
	ReadRecords(ctx context.Context) ([]crop.RawRecord, error)

	// Source names the underlying file for logs and reports.
	Source() string
}
