package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	xls "github.com/extrame/xls"
)

// xlsScanColumns bounds the width scan of a legacy sheet. Row.LastCol is not
// reliable for files written by some exporters, so cells are scanned instead.
const xlsScanColumns = 256

// xlsDateLayouts are the renderings extrame/xls produces for date cells.
var xlsDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006.01.02 15:04:05",
	"2006-01-02",
	"2006.01.02",
}

// readXLS decodes a legacy workbook. extrame/xls indexes into the OLE2
// directory and BIFF records without bounds checks, so a corrupt file panics
// rather than failing; the panic is returned as an error.
func readXLS(data []byte) (sheets []Sheet, err error) {
	defer func() {
		if r := recover(); r != nil {
			sheets, err = nil, fmt.Errorf("open xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb == nil {
		return nil, errors.New("open xls: no workbook")
	}

	sheets = make([]Sheet, 0, wb.NumSheets())
	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		sheets = append(sheets, buildSheet(ws.Name, readXLSSheet(ws)))
	}
	return sheets, nil
}

func readXLSSheet(ws *xls.WorkSheet) [][]string {
	width := 0
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			continue
		}
		for j := xlsScanColumns - 1; j >= width; j-- {
			if strings.TrimSpace(row.Col(j)) != "" {
				width = j + 1
				break
			}
		}
	}

	records := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		rec := make([]string, width)
		if row := ws.Row(i); row != nil {
			for j := 0; j < width; j++ {
				rec[j] = normalizeXLSCell(row.Col(j))
			}
		}
		records = append(records, rec)
	}
	return records
}

// normalizeXLSCell renders date cells as DateLayout and leaves everything else.
func normalizeXLSCell(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len("2006-01-02") {
		return v
	}
	for _, layout := range xlsDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(DateLayout)
		}
	}
	return v
}
