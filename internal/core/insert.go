package core

// insert.go writes sheet rows with content-hash deduplication.
//
// Each row is converted to its column types and hashed over the typed values
// in column order. The hash column is UNIQUE, so an identical row already in
// the table turns the INSERT into a no-op via ON CONFLICT DO NOTHING.

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheetdb/internal/storage"
	"github.com/JonMunkholm/sheetdb/internal/workbook"
)

// rowInserter holds the prepared INSERT statement text for one table.
type rowInserter struct {
	sheet  string
	table  string
	schema Schema
	query  string

	// source maps schema position to the sheet header supplying the value.
	source []string
}

// newRowInserter binds a sheet's headers to a table schema. The normalized
// headers must be exactly the schema's columns.
func newRowInserter(d storage.Dialect, sheet workbook.Sheet, table string, schema Schema) (*rowInserter, error) {
	cols, err := normalizeColumns(sheet.Name, sheet.Columns)
	if err != nil {
		return nil, err
	}

	byIdent := make(map[string]string, len(cols))
	for i, c := range cols {
		byIdent[c] = sheet.Columns[i]
	}

	source := make([]string, len(schema))
	var missing []string
	for i, c := range schema {
		h, ok := byIdent[c.Name]
		if !ok {
			missing = append(missing, c.Name)
			continue
		}
		source[i] = h
		delete(byIdent, c.Name)
	}
	if len(missing) > 0 || len(byIdent) > 0 {
		extra := make([]string, 0, len(byIdent))
		for c := range byIdent {
			extra = append(extra, c)
		}
		return nil, validationf(CodeColumnMismatch, "sheet %q: columns do not match table %q: missing %v, unexpected %v",
			sheet.Name, table, missing, extra)
	}

	names := make([]string, 0, len(schema)+1)
	marks := make([]string, 0, len(schema)+1)
	names = append(names, storage.QuoteIdent(rowHashColumn))
	marks = append(marks, d.Placeholder(1))
	for i, c := range schema {
		names = append(names, storage.QuoteIdent(c.Name))
		marks = append(marks, d.Placeholder(i+2))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		storage.QuoteIdent(table),
		strings.Join(names, ", "),
		strings.Join(marks, ", "),
		storage.QuoteIdent(rowHashColumn),
	)

	return &rowInserter{
		sheet:  sheet.Name,
		table:  table,
		schema: schema,
		query:  query,
		source: source,
	}, nil
}

// values converts a row to typed column values. rowNum is 1-based and only
// used in error messages.
func (ri *rowInserter) values(rowNum int, row workbook.Row) ([]any, error) {
	if len(row) != len(ri.source) {
		return nil, validationf(CodeColumnMismatch, "sheet %q row %d: columns do not match table %q: got %d fields, want %d",
			ri.sheet, rowNum, ri.table, len(row), len(ri.source))
	}

	vals := make([]any, len(ri.schema))
	for i, c := range ri.schema {
		raw, ok := row[ri.source[i]]
		if !ok {
			return nil, validationf(CodeColumnMismatch, "sheet %q row %d: columns do not match table %q: missing field %q",
				ri.sheet, rowNum, ri.table, ri.source[i])
		}
		v, ok := convertValue(c.Type, raw)
		if !ok {
			return nil, validationf(CodeTypeMismatch, "sheet %q row %d column %q: value %q does not match column type %s",
				ri.sheet, rowNum, ri.source[i], raw, c.Type)
		}
		vals[i] = v
	}
	return vals, nil
}

// insertRowIfAbsent inserts one row unless an identical row exists. It
// reports whether a row was written.
func (ri *rowInserter) insertRowIfAbsent(ctx context.Context, tx storage.DBTX, rowNum int, row workbook.Row) (bool, error) {
	vals, err := ri.values(rowNum, row)
	if err != nil {
		return false, err
	}

	args := make([]any, 0, len(vals)+1)
	args = append(args, rowHash(vals))
	args = append(args, vals...)

	res, err := tx.ExecContext(ctx, ri.query, args...)
	if err != nil {
		return false, storageErr("insert into "+ri.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("insert into "+ri.table, err)
	}
	return n > 0, nil
}

// rowHash returns the hex sha256 of the canonical encoding of typed values.
// Each value is tagged with its kind and length-prefixed, so NULL, "" and
// adjacent values can never collide.
func rowHash(vals []any) string {
	h := sha256.New()
	for _, v := range vals {
		switch x := v.(type) {
		case nil:
			h.Write([]byte{'N'})
		case int64:
			writeField(h, 'I', strconv.FormatInt(x, 10))
		case float64:
			writeField(h, 'F', strconv.FormatFloat(x, 'g', -1, 64))
		case string:
			writeField(h, 'T', x)
		default:
			writeField(h, 'T', fmt.Sprint(x))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, tag byte, s string) {
	h.Write([]byte{tag})
	h.Write([]byte(strconv.Itoa(len(s))))
	h.Write([]byte{':'})
	h.Write([]byte(s))
}

// registerSheet adds a catalog entry unless (projectID, name) is already
// registered. It returns the entry's id either way.
func registerSheet(ctx context.Context, tx storage.DBTX, d storage.Dialect, projectID int64, name, table string) (int64, bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		rebind(d, `SELECT sheet_id FROM sheets WHERE project_id = ? AND sheet_name = ?`),
		projectID, name,
	).Scan(&id)
	switch {
	case err == nil:
		return id, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, false, storageErr("lookup sheet", err)
	}

	err = tx.QueryRowContext(ctx,
		rebind(d, `INSERT INTO sheets (sheet_name, project_id, table_name) VALUES (?, ?, ?) RETURNING sheet_id`),
		name, projectID, table,
	).Scan(&id)
	if err != nil {
		return 0, false, storageErr("register sheet", err)
	}
	return id, true, nil
}
