package core

// schema.go infers column types for a sheet that has no declared schema.
//
// Only the first data row is sampled. Later rows are not reconciled against
// it; a value that does not fit the inferred type fails the ingestion when
// the row is converted.

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheetdb/internal/workbook"
)

// numericRegex matches integers, decimals and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// datePattern matches dd-mm-yyyy and dd/mm/yyyy. Such values stay TEXT.
var datePattern = regexp.MustCompile(`^\d{2}[-/]\d{2}[-/]\d{4}$`)

// InferType returns the column type for a single sample value.
func InferType(value string) ColumnType {
	v := strings.TrimSpace(value)
	switch {
	case numericRegex.MatchString(v):
		if _, ok := parseInteger(v); ok {
			return TypeInteger
		}
		return TypeFloat
	case datePattern.MatchString(v):
		return TypeText
	default:
		return TypeText
	}
}

// InferSchema derives the table schema of a sheet from its first data row.
// Column names pass through NormalizeIdent and keep header order.
func InferSchema(sheet workbook.Sheet) (Schema, error) {
	cols, err := normalizeColumns(sheet.Name, sheet.Columns)
	if err != nil {
		return nil, err
	}

	var sample workbook.Row
	if len(sheet.Rows) > 0 {
		sample = sheet.Rows[0]
	}

	schema := make(Schema, len(cols))
	for i, header := range sheet.Columns {
		schema[i] = Column{Name: cols[i], Type: InferType(sample[header])}
	}
	return schema, nil
}

// parseInteger parses integral numerals, including forms like "1e3" and
// "42.0", that fit in an int64.
func parseInteger(v string) (int64, bool) {
	if n, err := strconv.ParseInt(strings.TrimPrefix(v, "+"), 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// convertValue converts cell text to the Go value stored for a column type.
// Empty text is NULL.
func convertValue(t ColumnType, raw string) (any, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, true
	}
	switch t {
	case TypeInteger:
		if !numericRegex.MatchString(v) {
			return nil, false
		}
		n, ok := parseInteger(v)
		if !ok {
			return nil, false
		}
		return n, true
	case TypeFloat:
		if !numericRegex.MatchString(v) {
			return nil, false
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	default:
		return v, true
	}
}
