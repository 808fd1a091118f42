package storage

import (
	"embed"
	"fmt"
	"path"

	"github.com/pressly/goose/v3"
)

// embedMigrations contains the catalog migrations, one directory per dialect.
//
//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var embedMigrations embed.FS

// RunMigrations executes all pending goose migrations for the catalog tables.
func RunMigrations(db *DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect(db.dialect.Name()); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if err := goose.Up(db.write, path.Join("migrations", db.dialect.Name())); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

// MigrationVersion reports the current catalog schema version.
func MigrationVersion(db *DB) (int64, error) {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect(db.dialect.Name()); err != nil {
		return 0, fmt.Errorf("goose set dialect: %w", err)
	}

	v, err := goose.GetDBVersion(db.write)
	if err != nil {
		return 0, fmt.Errorf("goose version: %w", err)
	}
	return v, nil
}
