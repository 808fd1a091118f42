package core

// tables.go manages the lifecycle of the per-sheet tables.
//
// Every ensured table is recorded in the sheet_tables registry together with
// its column list. The registry is consulted before any DDL, so a table's
// columns never change once created. Purging a project drops the registered
// tables and any stray physical table carrying the project's name prefix.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/sheetdb/internal/storage"
)

// rebind rewrites '?' markers to the dialect's placeholders.
func rebind(d storage.Dialect, query string) string {
	if d.Placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lookupTable returns the registered schema of a table, or ok=false.
func lookupTable(ctx context.Context, db storage.DBTX, d storage.Dialect, table string) (Schema, bool, error) {
	var raw string
	err := db.QueryRowContext(ctx,
		rebind(d, `SELECT columns FROM sheet_tables WHERE table_name = ?`), table,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageErr("lookup table", err)
	}

	var schema Schema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return nil, false, storageErr("decode table columns", fmt.Errorf("%s: %w", table, err))
	}
	return schema, true, nil
}

// ensureTable returns the schema of table, creating the table from infer()
// when it is not registered yet. created reports whether DDL was issued.
func ensureTable(ctx context.Context, tx storage.DBTX, d storage.Dialect, projectID int64, table string, infer func() (Schema, error)) (schema Schema, created bool, err error) {
	schema, ok, err := lookupTable(ctx, tx, d, table)
	if err != nil || ok {
		return schema, false, err
	}

	schema, err = infer()
	if err != nil {
		return nil, false, err
	}

	if _, err := tx.ExecContext(ctx, createTableSQL(d, table, schema)); err != nil {
		return nil, false, storageErr("create table "+table, err)
	}

	cols, err := json.Marshal(schema)
	if err != nil {
		return nil, false, fmt.Errorf("encode table columns: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		rebind(d, `INSERT INTO sheet_tables (table_name, project_id, columns) VALUES (?, ?, ?)`),
		table, projectID, string(cols),
	); err != nil {
		return nil, false, storageErr("register table "+table, err)
	}

	return schema, true, nil
}

func createTableSQL(d storage.Dialect, table string, schema Schema) string {
	defs := make([]string, 0, len(schema)+2)
	defs = append(defs,
		storage.QuoteIdent(rowIDColumn)+" "+d.SurrogateKey(),
		storage.QuoteIdent(rowHashColumn)+" TEXT NOT NULL UNIQUE",
	)
	for _, c := range schema {
		defs = append(defs, storage.QuoteIdent(c.Name)+" "+d.ColumnType(string(c.Type)))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		storage.QuoteIdent(table), strings.Join(defs, ", "))
}

// purgeProject removes every sheet entry and table of a project. It returns
// the dropped table names in sorted order.
func purgeProject(ctx context.Context, tx storage.DBTX, d storage.Dialect, projectID int64) ([]string, error) {
	if _, err := tx.ExecContext(ctx,
		rebind(d, `DELETE FROM sheets WHERE project_id = ?`), projectID,
	); err != nil {
		return nil, storageErr("delete sheets", err)
	}

	registered, err := queryNames(ctx, tx,
		rebind(d, `SELECT table_name FROM sheet_tables WHERE project_id = ?`), projectID)
	if err != nil {
		return nil, storageErr("list registered tables", err)
	}

	physical, err := queryNames(ctx, tx, d.ListTablesQuery())
	if err != nil {
		return nil, storageErr("list tables", err)
	}

	prefix := tablePrefix(projectID)
	existing := make(map[string]bool, len(physical))
	drop := make(map[string]bool, len(registered))
	for _, name := range physical {
		existing[name] = true
		if strings.HasPrefix(name, prefix) {
			drop[name] = true
		}
	}
	for _, name := range registered {
		if existing[name] {
			drop[name] = true
		}
	}

	dropped := make([]string, 0, len(drop))
	for name := range drop {
		dropped = append(dropped, name)
	}
	sort.Strings(dropped)

	for _, name := range dropped {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+storage.QuoteIdent(name)); err != nil {
			return nil, storageErr("drop table "+name, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		rebind(d, `DELETE FROM sheet_tables WHERE project_id = ?`), projectID,
	); err != nil {
		return nil, storageErr("delete table registry", err)
	}

	return dropped, nil
}

// queryNames collects a single text column. Rows are closed before return
// so the caller can keep using the same transaction.
func queryNames(ctx context.Context, db storage.DBTX, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
