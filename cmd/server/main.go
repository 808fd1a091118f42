// Command sheetdb serves the spreadsheet ingestion API and offers the same
// catalog and ingestion operations on the command line.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	os.Exit(execute(os.Args[1:], os.Stderr))
}
