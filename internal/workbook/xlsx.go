package workbook

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// builtinDateFormats are the built-in number format ids that render a date
// (possibly with a time part). Pure time formats are not included.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true,
	32: true, 33: true, 34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true,
	55: true, 56: true, 57: true, 58: true,
}

// isoDateLayouts are tried for cells stored with the ISO 8601 date type.
var isoDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func readXLSX(data []byte) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	styles := &dateStyles{f: f, cache: make(map[int]bool)}

	names := f.GetSheetList()
	sheets := make([]Sheet, 0, len(names))
	for _, name := range names {
		records, err := readXLSXSheet(f, name, styles, date1904)
		if err != nil {
			return nil, &SheetError{Sheet: name, Err: err}
		}
		sheets = append(sheets, buildSheet(name, records))
	}
	return sheets, nil
}

// readXLSXSheet returns the formatted cell text of a sheet, with cells whose
// number format is a date re-rendered as DateLayout.
func readXLSXSheet(f *excelize.File, name string, styles *dateStyles, date1904 bool) ([][]string, error) {
	formatted, err := f.GetRows(name)
	if err != nil {
		return nil, err
	}
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	for r, row := range formatted {
		if r >= len(raw) {
			break
		}
		for c, text := range row {
			if c >= len(raw[r]) {
				break
			}
			value := raw[r][c]
			// Formatting leaves non-date cells untouched or only changes
			// their number rendering; dates always differ from the serial.
			if value == "" || value == text {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			styleID, err := f.GetCellStyle(name, axis)
			if err != nil {
				return nil, err
			}
			if !styles.isDate(styleID) {
				continue
			}
			if d, ok := cellDate(value, date1904); ok {
				row[c] = d.Format(DateLayout)
			}
		}
	}

	return formatted, nil
}

// cellDate converts a raw cell value (a serial number, or ISO text for
// cells of the date type) to a time.
func cellDate(value string, date1904 bool) (time.Time, bool) {
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dateStyles memoizes whether a style id carries a date number format.
type dateStyles struct {
	f     *excelize.File
	cache map[int]bool
}

func (d *dateStyles) isDate(styleID int) bool {
	if v, ok := d.cache[styleID]; ok {
		return v
	}

	style, err := d.f.GetStyle(styleID)
	isDate := false
	if err == nil && style != nil {
		switch {
		case style.CustomNumFmt != nil:
			isDate = isDateFormatCode(*style.CustomNumFmt)
		default:
			isDate = builtinDateFormats[style.NumFmt]
		}
	}

	d.cache[styleID] = isDate
	return isDate
}

// isDateFormatCode reports whether a custom number format renders a calendar
// date. Quoted literals, bracketed sections and escaped characters are
// ignored; a day or year token marks a date, month/minute alone does not.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, r := range code {
		switch {
		case escaped:
			escaped = false
		case inQuote:
			if r == '"' {
				inQuote = false
			}
		case inBracket:
			if r == ']' {
				inBracket = false
			}
		case r == '\\' || r == '_' || r == '*':
			escaped = true
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.ToLower(b.String())
	if strings.Contains(cleaned, "general") {
		return false
	}
	return strings.ContainsAny(cleaned, "dy")
}
