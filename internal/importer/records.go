package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Leolion08/ctom-sub000/internal/field"
)

// Rows is a parsed upload: a header of field names and one value map per
// data row, keyed by those names.
type Rows struct {
	Headers []string
	Records []map[string]string
}

// SupportedImportExtensions lists the upload formats customer imports accept.
var SupportedImportExtensions = map[string]bool{
	".xlsx": true,
	".csv":  true,
}

// ParseRecords dispatches on the upload's extension.
func ParseRecords(filename string, data []byte) (*Rows, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return ParseXLSX(data)
	case ".csv":
		return ParseCSV(data)
	default:
		return nil, fmt.Errorf("unsupported import format: %s", filepath.Ext(filename))
	}
}

// ParseXLSX reads the first sheet of a workbook. The first row is the
// header and must hold valid field names.
func ParseXLSX(data []byte) (*Rows, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return fromRows(rows)
}

// ParseCSV reads comma-separated records. The first row is the header and
// must hold valid field names.
func ParseCSV(data []byte) (*Rows, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return fromRows(records)
}

func fromRows(rows [][]string) (*Rows, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("upload has no header row")
	}
	headers := make([]string, 0, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		if !field.ValidName(h) {
			return nil, fmt.Errorf("header column %d: %q is not a valid field name", i+1, h)
		}
		headers = append(headers, h)
	}

	out := &Rows{Headers: headers}
	for _, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		rec := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
			} else {
				rec[h] = ""
			}
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
