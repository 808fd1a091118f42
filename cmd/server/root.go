package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetdb/internal/config"
	"github.com/JonMunkholm/sheetdb/internal/core"
	"github.com/JonMunkholm/sheetdb/internal/logging"
	"github.com/JonMunkholm/sheetdb/internal/storage"
)

// execute runs the command line and returns the process exit code.
func execute(args []string, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", errorText(err))
		return 1
	}
	return 0
}

// errorText renders err for the terminal. Catalogued errors get their
// message, code and action; anything else (flags, configuration, file
// access) is printed as is.
func errorText(err error) string {
	if core.IsUserFacing(err) {
		return core.FormatUserError(err)
	}
	return err.Error()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sheetdb",
		Short:         "Spreadsheet ingestion service",
		Long:          "Stores every sheet of an uploaded workbook as a typed table under a project.",
		SilenceUsage:  true,
		SilenceErrors: true,
		// With no subcommand the server runs, as the plain binary always did.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newProjectCmd(),
		newIngestCmd(),
	)
	return root
}

// app holds what every command needs: configuration, the open database
// and the service on top of it.
type app struct {
	cfg     *config.Config
	db      *storage.DB
	service *core.Service
	logs    io.Closer
}

// openApp loads configuration, sets up logging and opens the database.
// Migrations run when migrate is set or DB_AUTO_MIGRATE is enabled.
func openApp(ctx context.Context, migrate bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logs := logging.Setup(cfg.Logging)

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		logs.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	slog.Debug("database opened", "driver", db.Dialect().Name())

	if migrate || cfg.Database.AutoMigrate {
		if err := storage.RunMigrations(db); err != nil {
			db.Close()
			logs.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &app{
		cfg:     cfg,
		db:      db,
		service: core.NewService(db, cfg.Upload),
		logs:    logs,
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Warn("close database", "error", err)
	}
	_ = a.logs.Close()
}

// printJSON writes v indented to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
