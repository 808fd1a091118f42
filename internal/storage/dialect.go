package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// DBTX is the interface for database operations.
// Satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Column kinds understood by every dialect.
const (
	KindInteger = "INTEGER"
	KindFloat   = "FLOAT"
	KindText    = "TEXT"
)

// Dialect hides the SQL differences between the supported backends.
type Dialect interface {
	// Name is the driver name, also used as the goose dialect.
	Name() string

	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string

	// SurrogateKey returns the column type clause for an auto-generated integer key.
	SurrogateKey() string

	// ColumnType maps a column kind to the backend's SQL type.
	ColumnType(kind string) string

	// ListTablesQuery returns a query yielding one table name per row.
	ListTablesQuery() string

	// LockProject takes a transaction-scoped lock on the project id.
	LockProject(ctx context.Context, tx DBTX, projectID int64) error

	// IsUniqueViolation reports whether err is a unique constraint failure.
	IsUniqueViolation(err error) bool
}

// QuoteIdent double-quotes an identifier. Callers must still validate names;
// quoting only guards the statement structure.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Postgres is the PostgreSQL dialect (pgx stdlib driver).
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Postgres) SurrogateKey() string { return "BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY" }

func (Postgres) ColumnType(kind string) string {
	switch kind {
	case KindInteger:
		return "BIGINT"
	case KindFloat:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

func (Postgres) ListTablesQuery() string {
	return `SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = current_schema()`
}

// LockProject serialises ingestions of one project across processes.
// The lock is released when the transaction ends.
func (Postgres) LockProject(ctx context.Context, tx DBTX, projectID int64) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, projectID)
	return err
}

func (Postgres) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// SQLite is the embedded SQLite dialect (mattn/go-sqlite3).
type SQLite struct{}

func (SQLite) Name() string { return "sqlite3" }

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) SurrogateKey() string { return "INTEGER PRIMARY KEY AUTOINCREMENT" }

func (SQLite) ColumnType(kind string) string {
	switch kind {
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (SQLite) ListTablesQuery() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`
}

// LockProject is a no-op: the write pool holds a single connection and
// transactions start with BEGIN IMMEDIATE, so writers are already serialised.
func (SQLite) LockProject(context.Context, DBTX, int64) error { return nil }

func (SQLite) IsUniqueViolation(err error) bool {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	return sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// DialectFor returns the dialect registered under a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	case "sqlite3", "sqlite":
		return SQLite{}, nil
	default:
		return nil, errors.New("unsupported database driver: " + driver)
	}
}
