package core

import (
	"time"

	"github.com/JonMunkholm/sheetdb/internal/storage"
)

// Project is a namespace for the sheets of one workbook upload.
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"project_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Sheet is a catalog entry linking a workbook sheet to its table.
type Sheet struct {
	ID        int64     `json:"sheet_id"`
	Name      string    `json:"sheet_name"`
	ProjectID int64     `json:"project_id"`
	TableName string    `json:"table_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Row is one stored sheet row keyed by column name. Values are int64,
// float64, string or nil.
type Row map[string]any

// ColumnType is an inferred column type.
type ColumnType string

const (
	TypeInteger ColumnType = storage.KindInteger
	TypeFloat   ColumnType = storage.KindFloat
	TypeText    ColumnType = storage.KindText
)

// Column is one declared column of a sheet table.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Schema is the ordered column list of a sheet table.
type Schema []Column

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// IngestPhase is a step of the ingestion state machine.
type IngestPhase string

const (
	PhaseReceived      IngestPhase = "RECEIVED"
	PhaseValidated     IngestPhase = "VALIDATED"
	PhaseParsed        IngestPhase = "PARSED"
	PhasePurged        IngestPhase = "PURGED"
	PhaseSchemaEnsured IngestPhase = "SCHEMA_ENSURED"
	PhaseRowsInserted  IngestPhase = "ROWS_INSERTED"
	PhaseComplete      IngestPhase = "COMPLETE"
	PhaseFailed        IngestPhase = "FAILED"
)

// SheetResult summarises the ingestion of one sheet.
type SheetResult struct {
	Name       string `json:"sheet_name"`
	Table      string `json:"table_name"`
	Rows       int    `json:"rows"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
}

// IngestResult contains the final result of an ingestion.
type IngestResult struct {
	IngestID           string        `json:"ingest_id"`
	ProjectID          int64         `json:"project_id"`
	FileName           string        `json:"file_name"`
	InsertedSheetCount int           `json:"inserted_sheet_count"`
	Skipped            []string      `json:"skipped_sheets,omitempty"`
	Sheets             []SheetResult `json:"sheets"`
	Duration           time.Duration `json:"duration_ns"`
}
