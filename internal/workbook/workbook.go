// Package workbook decodes uploaded spreadsheet files into named sheets of
// header-keyed rows.
//
// Supported inputs are Office Open XML workbooks (.xlsx, .xlsm), legacy
// BIFF workbooks (.xls) and delimited text (.csv). The format is chosen by
// magic bytes first and by file extension second. Every cell value is
// returned as text; cells formatted as dates are rendered as dd-mm-yyyy.
package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// DateLayout is the textual form of every date cell.
const DateLayout = "02-01-2006"

var (
	// ErrUnsupportedFormat is returned when the bytes are neither a workbook nor CSV.
	ErrUnsupportedFormat = errors.New("unsupported workbook format")

	// ErrEmptyFile is returned for zero-length input.
	ErrEmptyFile = errors.New("empty file")
)

// Format identifies a workbook container.
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatXLS     Format = "xls"
	FormatCSV     Format = "csv"
	FormatUnknown Format = ""
)

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Row maps a header name to the cell value in that column.
type Row map[string]string

// Sheet is one decoded worksheet. Columns holds the header names in sheet
// order; every Row has exactly these keys.
type Sheet struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Empty reports whether the sheet has no data rows.
func (s Sheet) Empty() bool { return len(s.Rows) == 0 }

// SheetError reports a failure to read one sheet.
type SheetError struct {
	Sheet string
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("read sheet %q: %v", e.Sheet, e.Err)
}

func (e *SheetError) Unwrap() error { return e.Err }

// Parse decodes data into sheets in workbook order. fileName is only used to
// pick the format when the content has no recognizable signature and to name
// the single sheet of a CSV file.
func Parse(fileName string, data []byte) ([]Sheet, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	switch DetectFormat(fileName, data) {
	case FormatXLSX:
		return readXLSX(data)
	case FormatXLS:
		return readXLS(data)
	case FormatCSV:
		sheet, err := readCSV(sheetNameFromFile(fileName), data)
		if err != nil {
			return nil, err
		}
		return []Sheet{sheet}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
	}
}

// DetectFormat chooses a decoder from the content signature or the extension.
func DetectFormat(fileName string, data []byte) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, ole2Magic):
		return FormatXLS
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	case ".csv", ".txt":
		return FormatCSV
	default:
		return FormatUnknown
	}
}

func sheetNameFromFile(fileName string) string {
	base := filepath.Base(fileName)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "Sheet1"
	}
	return name
}

// buildSheet turns a grid of cell text into a Sheet. The first non-blank
// record is the header; blank records are dropped; short records are padded.
func buildSheet(name string, records [][]string) Sheet {
	sheet := Sheet{Name: name}

	start := 0
	for start < len(records) && isBlank(records[start]) {
		start++
	}
	if start == len(records) {
		return sheet
	}

	width := 0
	for _, rec := range records[start:] {
		if len(rec) > width {
			width = len(rec)
		}
	}
	sheet.Columns = headerNames(records[start], width)

	for _, rec := range records[start+1:] {
		if isBlank(rec) {
			continue
		}
		row := make(Row, width)
		for i, col := range sheet.Columns {
			var v string
			if i < len(rec) {
				v = strings.TrimSpace(rec[i])
			}
			row[col] = v
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet
}

// headerNames trims header cells, names blank ones "Column N" and makes
// repeated names unique with a numeric suffix.
func headerNames(header []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		var h string
		if i < len(header) {
			h = strings.TrimSpace(header[i])
		}
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		key := strings.ToLower(h)
		if n := seen[key]; n > 0 {
			seen[key] = n + 1
			h = fmt.Sprintf("%s %d", h, n+1)
			key = strings.ToLower(h)
		}
		seen[key]++
		names[i] = h
	}
	return names
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
