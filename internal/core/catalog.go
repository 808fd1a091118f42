package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetdb/internal/storage"
)

// CreateProject registers a new project. The name is trimmed; empty or
// already used names are rejected with a ValidationError.
func (s *Service) CreateProject(ctx context.Context, name string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, validationf(CodeProjectName, "project name is required")
	}

	d := s.db.Dialect()
	w := s.db.Writer()

	var exists int
	err := w.QueryRowContext(ctx,
		rebind(d, `SELECT 1 FROM projects WHERE project_name = ?`), name,
	).Scan(&exists)
	switch {
	case err == nil:
		return Project{}, validationf(CodeProjectName, "project name %q already exists", name)
	case !errors.Is(err, sql.ErrNoRows):
		return Project{}, storageErr("lookup project", err)
	}

	var id int64
	err = w.QueryRowContext(ctx,
		rebind(d, `INSERT INTO projects (project_name) VALUES (?) RETURNING id`), name,
	).Scan(&id)
	if err != nil {
		if d.IsUniqueViolation(err) {
			return Project{}, validationf(CodeProjectName, "project name %q already exists", name)
		}
		return Project{}, storageErr("create project", err)
	}

	p, err := getProject(ctx, w, d, id)
	if err != nil {
		return Project{}, err
	}

	s.logger(ctx).Info("project created", "project_id", p.ID, "project_name", p.Name)
	return p, nil
}

// GetProject returns one project or a NotFoundError.
func (s *Service) GetProject(ctx context.Context, id int64) (Project, error) {
	if id <= 0 {
		return Project{}, validationf(CodeMissingID, "project id is required")
	}
	return getProject(ctx, s.db.Reader(), s.db.Dialect(), id)
}

func getProject(ctx context.Context, db storage.DBTX, d storage.Dialect, id int64) (Project, error) {
	var p Project
	err := db.QueryRowContext(ctx,
		rebind(d, `SELECT id, project_name, created_at FROM projects WHERE id = ?`), id,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, notFoundf(CodeProjectNotFound, "project not found: id %d", id)
	}
	if err != nil {
		return Project{}, storageErr("get project", err)
	}
	return p, nil
}

// ListProjects returns every project ordered by id.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.Reader().QueryContext(ctx,
		`SELECT id, project_name, created_at FROM projects ORDER BY id`)
	if err != nil {
		return nil, storageErr("list projects", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, storageErr("scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list projects", err)
	}
	return projects, nil
}

const sheetColumns = `sheet_id, sheet_name, project_id, table_name, created_at`

// ListSheets returns every registered sheet across all projects.
func (s *Service) ListSheets(ctx context.Context) ([]Sheet, error) {
	return s.querySheets(ctx, `SELECT `+sheetColumns+` FROM sheets ORDER BY sheet_id`)
}

// ListSheetsByProject returns the sheets of one project in upload order.
// An unknown project yields an empty list.
func (s *Service) ListSheetsByProject(ctx context.Context, projectID int64) ([]Sheet, error) {
	if projectID <= 0 {
		return nil, validationf(CodeMissingID, "project id is required")
	}
	return s.querySheets(ctx,
		rebind(s.db.Dialect(), `SELECT `+sheetColumns+` FROM sheets WHERE project_id = ? ORDER BY sheet_id`),
		projectID)
}

func (s *Service) querySheets(ctx context.Context, query string, args ...any) ([]Sheet, error) {
	rows, err := s.db.Reader().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list sheets", err)
	}
	defer rows.Close()

	sheets := []Sheet{}
	for rows.Next() {
		var sh Sheet
		if err := rows.Scan(&sh.ID, &sh.Name, &sh.ProjectID, &sh.TableName, &sh.CreatedAt); err != nil {
			return nil, storageErr("scan sheet", err)
		}
		sheets = append(sheets, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list sheets", err)
	}
	return sheets, nil
}

// GetSheet returns one sheet catalog entry or a NotFoundError.
func (s *Service) GetSheet(ctx context.Context, sheetID int64) (Sheet, error) {
	if sheetID <= 0 {
		return Sheet{}, validationf(CodeMissingID, "sheet id is required")
	}

	var sh Sheet
	err := s.db.Reader().QueryRowContext(ctx,
		rebind(s.db.Dialect(), `SELECT `+sheetColumns+` FROM sheets WHERE sheet_id = ?`), sheetID,
	).Scan(&sh.ID, &sh.Name, &sh.ProjectID, &sh.TableName, &sh.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Sheet{}, notFoundf(CodeSheetNotFound, "sheet not found: id %d", sheetID)
	}
	if err != nil {
		return Sheet{}, storageErr("get sheet", err)
	}
	return sh, nil
}

// GetSheetRows returns the stored rows of a sheet in insertion order. Only
// the declared columns are selected; the internal key and hash columns are
// never part of a row.
func (s *Service) GetSheetRows(ctx context.Context, sheetID int64) ([]Row, error) {
	sh, err := s.GetSheet(ctx, sheetID)
	if err != nil {
		return nil, err
	}

	d := s.db.Dialect()
	r := s.db.Reader()

	schema, ok, err := lookupTable(ctx, r, d, sh.TableName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFoundf(CodeSheetNotFound, "sheet not found: table %q of sheet %d is not registered", sh.TableName, sheetID)
	}

	names := schema.Names()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = storage.QuoteIdent(n)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoted, ", "),
		storage.QuoteIdent(sh.TableName),
		storage.QuoteIdent(rowIDColumn),
	)

	rows, err := r.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("read sheet "+sh.TableName, err)
	}
	defer rows.Close()

	result := []Row{}
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, storageErr("scan sheet row", err)
		}

		row := make(Row, len(names))
		for i, n := range names {
			row[n] = normalizeScanned(vals[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read sheet "+sh.TableName, err)
	}
	return result, nil
}

// normalizeScanned maps driver values onto the Row value set.
func normalizeScanned(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return x
	}
}
