// Package core provides the business logic for spreadsheet ingestion.
//
// This package holds all domain logic independent of any transport. It is
// used by the web handlers and by the command line tool alike.
//
// # Architecture
//
// The package is organized around a few concepts:
//
//   - Projects: namespaces created explicitly with [Service.CreateProject].
//   - Sheets: catalog entries linking a workbook sheet to a physical table.
//   - Sheet tables: one table per (project, sheet name), named
//     p<projectId>_<sheet name>, with columns inferred from the data.
//   - Table registry: the sheet_tables catalog records the columns of every
//     table created, so a table's schema never changes after creation.
//
// # Ingestion
//
// [Service.Ingest] replaces the sheets of a project with those of a workbook:
//
//  1. The upload is validated and admitted by the [UploadLimiter]
//  2. The workbook is decoded into sheets by the workbook package
//  3. The project lock is taken and a write transaction begins
//  4. Every sheet entry and table of the project is purged
//  5. For each non-empty sheet the table is ensured, rows are inserted with
//     content-hash deduplication and the sheet is registered
//  6. The transaction commits
//
// Any failure rolls the whole ingestion back.
//
// # Type Inference
//
// Column types come from the first data row only:
//
//   - INTEGER: numeric, integral and within int64
//   - FLOAT: any other numeric value
//   - TEXT: everything else, dd-mm-yyyy dates and empty cells included
//
// # Identifiers
//
// Sheet and column names become SQL identifiers through [NormalizeIdent]:
// lower-cased, whitespace runs replaced by an underscore and checked against
// an allow-list. Identifiers are always quoted in statements; values are
// always bound as parameters.
//
// # Error Handling
//
// Errors are typed ([ValidationError], [NotFoundError], [ParseError],
// [StorageError]) and mapped to HTTP status codes by [StatusCode] and to
// user-facing messages with support codes by [MapError].
package core
