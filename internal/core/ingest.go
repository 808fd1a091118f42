package core

// ingest.go replaces a project's sheets with the contents of a workbook.
//
// The flow is RECEIVED -> VALIDATED -> PARSED -> PURGED, then per sheet
// SCHEMA_ENSURED -> ROWS_INSERTED, and finally COMPLETE. Purge and all
// inserts run in one transaction that also holds the project lock, so a
// failure at any phase leaves the previous upload untouched and two uploads
// of the same project never interleave.

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetdb/internal/logging"
	"github.com/JonMunkholm/sheetdb/internal/workbook"
)

// Ingest parses a workbook and stores every non-empty sheet under the
// project, replacing whatever the project held before.
func (s *Service) Ingest(ctx context.Context, projectID int64, fileName string, data []byte) (result *IngestResult, err error) {
	start := time.Now()
	ingestID := uuid.New().String()
	log := logging.WithFields(ctx,
		"ingest_id", ingestID,
		"project_id", projectID,
		"file", fileName,
	)

	phase := PhaseReceived
	log.Info("ingest phase", "phase", phase, "bytes", len(data))
	advance := func(p IngestPhase, args ...any) {
		phase = p
		log.Info("ingest phase", append([]any{"phase", p}, args...)...)
	}

	defer func() {
		if err != nil {
			log.Error("ingest failed",
				"phase", phase,
				"error", err,
				"duration", time.Since(start),
			)
		}
	}()

	if err := s.validateUpload(projectID, data); err != nil {
		return nil, err
	}
	advance(PhaseValidated)

	if !s.limiter.TryAcquire() {
		log.Info("waiting for upload slot", "active", s.limiter.ActiveCount())
		if err := s.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	sheets, err := workbook.Parse(fileName, data)
	if err != nil {
		return nil, parseErr(err)
	}
	advance(PhaseParsed, "sheets", len(sheets))

	release, err := s.locks.Lock(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer release()

	result = &IngestResult{
		IngestID:  ingestID,
		ProjectID: projectID,
		FileName:  fileName,
		Sheets:    []SheetResult{},
	}

	if err := s.inTx(ctx, func(tx *sql.Tx) error {
		d := s.db.Dialect()

		if err := d.LockProject(ctx, tx, projectID); err != nil {
			return storageErr("lock project", err)
		}

		dropped, err := purgeProject(ctx, tx, d, projectID)
		if err != nil {
			return err
		}
		advance(PhasePurged, "dropped_tables", len(dropped))

		for _, sheet := range sheets {
			if sheet.Empty() {
				log.Debug("skipping empty sheet", "sheet", sheet.Name)
				result.Skipped = append(result.Skipped, sheet.Name)
				continue
			}

			sr, err := s.ingestSheet(ctx, tx, projectID, sheet, advance)
			if err != nil {
				return err
			}
			result.Sheets = append(result.Sheets, sr)
			result.InsertedSheetCount++
		}
		return nil
	}); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	advance(PhaseComplete,
		"inserted_sheets", result.InsertedSheetCount,
		"skipped_sheets", len(result.Skipped),
		"duration", result.Duration,
	)
	return result, nil
}

// ingestSheet ensures the sheet's table, inserts its rows and registers it.
func (s *Service) ingestSheet(ctx context.Context, tx *sql.Tx, projectID int64, sheet workbook.Sheet, advance func(IngestPhase, ...any)) (SheetResult, error) {
	d := s.db.Dialect()

	table, err := TableName(projectID, sheet.Name)
	if err != nil {
		return SheetResult{}, err
	}

	schema, created, err := ensureTable(ctx, tx, d, projectID, table, func() (Schema, error) {
		return InferSchema(sheet)
	})
	if err != nil {
		return SheetResult{}, err
	}
	advance(PhaseSchemaEnsured, "sheet", sheet.Name, "table", table, "created", created, "columns", len(schema))

	ins, err := newRowInserter(d, sheet, table, schema)
	if err != nil {
		return SheetResult{}, err
	}

	sr := SheetResult{Name: sheet.Name, Table: table, Rows: len(sheet.Rows)}
	for i, row := range sheet.Rows {
		if err := ctx.Err(); err != nil {
			return SheetResult{}, err
		}
		inserted, err := ins.insertRowIfAbsent(ctx, tx, i+1, row)
		if err != nil {
			return SheetResult{}, err
		}
		if inserted {
			sr.Inserted++
		} else {
			sr.Duplicates++
		}
	}

	if _, _, err := registerSheet(ctx, tx, d, projectID, sheet.Name, table); err != nil {
		return SheetResult{}, err
	}
	advance(PhaseRowsInserted, "sheet", sheet.Name, "inserted", sr.Inserted, "duplicates", sr.Duplicates)

	return sr, nil
}

func (s *Service) validateUpload(projectID int64, data []byte) error {
	switch {
	case projectID <= 0:
		return validationf(CodeMissingID, "project id is required")
	case data == nil:
		return validationf(CodeNoFile, "no file provided")
	case len(data) == 0:
		return validationf(CodeEmptyFile, "empty file: the uploaded file has no content")
	case s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize:
		return validationf(CodeFileTooLarge, "file too large: %d bytes exceeds the %d byte limit", len(data), s.maxFileSize)
	}
	return nil
}

// inTx runs fn in a write transaction, committing on success and rolling
// back on error or panic.
func (s *Service) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.Writer().BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Warn("rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// parseErr wraps workbook errors, keeping the failing sheet name.
func parseErr(err error) error {
	var se *workbook.SheetError
	if errors.As(err, &se) {
		return &ParseError{Sheet: se.Sheet, Err: se.Err}
	}
	return &ParseError{Err: err}
}
