package core

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxIdentLength is the longest identifier accepted, in bytes. It matches
// PostgreSQL's NAMEDATALEN-1 so names are never silently truncated.
const MaxIdentLength = 63

// identPattern is the allow-list for generated identifiers: a letter or digit
// followed by letters, digits and underscores. A leading underscore is kept
// free for the internal columns.
var identPattern = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N}_]*$`)

const (
	rowIDColumn   = "_row_id"
	rowHashColumn = "_row_hash"
)

// NormalizeIdent turns a user-supplied sheet or column name into a SQL
// identifier: lower-cased, runs of whitespace replaced by one underscore.
// Names that still contain anything outside the allow-list are rejected.
func NormalizeIdent(name string) (string, error) {
	ident := strings.Join(strings.Fields(strings.ToLower(name)), "_")
	switch {
	case ident == "":
		return "", validationf(CodeInvalidName, "invalid name %q: name is empty", name)
	case len(ident) > MaxIdentLength:
		return "", validationf(CodeInvalidName, "invalid name %q: longer than %d bytes", name, MaxIdentLength)
	case !identPattern.MatchString(ident):
		return "", validationf(CodeInvalidName, "invalid name %q: only letters, digits, spaces and underscores are allowed", name)
	}
	return ident, nil
}

// tablePrefix is the name prefix shared by every table of a project.
func tablePrefix(projectID int64) string {
	return fmt.Sprintf("p%d_", projectID)
}

// TableName returns the physical table name for a sheet of a project.
func TableName(projectID int64, sheetName string) (string, error) {
	ident, err := NormalizeIdent(sheetName)
	if err != nil {
		return "", err
	}
	table := tablePrefix(projectID) + ident
	if len(table) > MaxIdentLength {
		return "", validationf(CodeInvalidName, "invalid name %q: table name %q is longer than %d bytes", sheetName, table, MaxIdentLength)
	}
	return table, nil
}

// normalizeColumns applies NormalizeIdent to every header and rejects
// headers that collapse to the same identifier.
func normalizeColumns(sheet string, headers []string) ([]string, error) {
	cols := make([]string, len(headers))
	seen := make(map[string]string, len(headers))
	for i, h := range headers {
		ident, err := NormalizeIdent(h)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		if prev, ok := seen[ident]; ok {
			return nil, validationf(CodeInvalidName, "sheet %q: invalid name %q: same column as %q", sheet, h, prev)
		}
		seen[ident] = h
		cols[i] = ident
	}
	return cols, nil
}
