package excel

// RawRowData represents a row of raw sheet data as header -> cell text
type RawRowData map[string]string

// ExcelData represents the complete tabular dataset before typing
type ExcelData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// columnBinding ties a source header to the schema field it feeds.
type columnBinding struct {
	header string
	field  string // empty for extra columns
}
