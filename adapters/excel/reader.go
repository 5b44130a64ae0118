package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cropyield/domain/core"
	"cropyield/domain/crop"

	"github.com/xuri/excelize/v2"
)

// missingTokens are numeric cell spellings treated as absent.
var missingTokens = map[string]bool{"": true, "na": true, "nan": true, "null": true, "n/a": true}

// DataReader handles reading Excel and CSV crop datasets
type DataReader struct {
	cfg      ReaderConfig
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(cfg ReaderConfig) *DataReader {
	if cfg.Sheet == "" {
		cfg.Sheet = "Sheet1"
	}
	if len(cfg.Schema.Features) == 0 {
		cfg.Schema = crop.DefaultSchema()
	}
	if cfg.Aliases == nil {
		cfg.Aliases = DefaultReaderConfig(cfg.FilePath).Aliases
	}
	ext := strings.ToLower(filepath.Ext(cfg.FilePath))
	fileType := "csv"
	if ext == ".xlsx" || ext == ".xlsm" {
		fileType = "xlsx"
	}
	return &DataReader{cfg: cfg, fileType: fileType}
}

// Source returns the file path being read
func (r *DataReader) Source() string {
	return r.cfg.FilePath
}

// ReadRecords reads the dataset and types every row against the schema.
func (r *DataReader) ReadRecords(ctx context.Context) ([]crop.RawRecord, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}

	bindings, err := r.bindColumns(data.Headers)
	if err != nil {
		return nil, err
	}

	continuous := make(map[string]bool)
	for _, f := range r.cfg.Schema.Continuous() {
		continuous[f] = true
	}
	continuous[r.cfg.Schema.Target] = true

	records := make([]crop.RawRecord, 0, len(data.Rows))
	for i, row := range data.Rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec := crop.NewRawRecord()
		for _, b := range bindings {
			cell := strings.TrimSpace(row[b.header])
			switch {
			case b.field == "":
				rec.Extras[strings.ToLower(b.header)] = cell
			case continuous[b.field]:
				if missingTokens[strings.ToLower(cell)] {
					continue
				}
				v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
				if err != nil {
					// +2: one for the header, one for 1-based rows
					return nil, core.NewMalformedDatasetError(i+2, b.header, fmt.Sprintf("%q is not a number", cell))
				}
				rec.Numeric[b.field] = v
			default:
				if cell != "" {
					rec.Categorical[b.field] = cell
				}
			}
		}
		records = append(records, rec)
	}

	log.Printf("[DataReader] %d records typed from %s", len(records), r.cfg.FilePath)
	return records, nil
}

// bindColumns maps every header to a schema field or marks it extra, and
// fails when a required column is absent.
func (r *DataReader) bindColumns(headers []string) ([]columnBinding, error) {
	bindings := make([]columnBinding, 0, len(headers))
	bound := make(map[string]string)
	for _, h := range headers {
		if h == "" {
			continue
		}
		field := r.cfg.resolve(h)
		if field != "" {
			if prev, dup := bound[field]; dup {
				log.Printf("[DataReader] column %q also maps to %s (already bound to %q), keeping it as extra", h, field, prev)
				field = ""
			} else {
				bound[field] = h
			}
		}
		bindings = append(bindings, columnBinding{header: h, field: field})
	}

	required := append(r.cfg.Schema.FeatureOrder(), r.cfg.Schema.Target)
	for _, f := range required {
		if _, ok := bound[f]; !ok {
			return nil, core.NewSchemaMismatchError(f, "column missing from dataset header")
		}
	}
	return bindings, nil
}

// ReadData reads Excel or CSV files into untyped rows
func (r *DataReader) ReadData() (*ExcelData, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.cfg.FilePath)

	if _, err := os.Stat(r.cfg.FilePath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrDatasetNotFound, r.cfg.FilePath)
		}
		return nil, fmt.Errorf("failed to stat dataset: %w", err)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads the configured sheet into untyped rows
func (r *DataReader) readExcelData() (*ExcelData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", core.ErrMalformedDataset, err)
	}
	defer f.Close()
	log.Printf("[DataReader] Excel file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	readStart := time.Now()
	rows, err := f.GetRows(r.cfg.Sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %s: %v", core.ErrMalformedDataset, r.cfg.Sheet, err)
	}
	log.Printf("[DataReader] %s read in %.2fms (%d rows)", r.cfg.Sheet, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

// readCSVData reads CSV data into untyped rows
func (r *DataReader) readCSVData() (*ExcelData, error) {
	file, err := os.Open(r.cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV file: %v", core.ErrMalformedDataset, err)
	}
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

// processRows converts raw string rows into ExcelData format
func (r *DataReader) processRows(rows [][]string) (*ExcelData, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file has no header row", core.ErrMalformedDataset)
	}

	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		// strip a UTF-8 BOM left by spreadsheet exports
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	log.Printf("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &ExcelData{
		Headers: headers,
		Rows:    dataRows,
	}, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
