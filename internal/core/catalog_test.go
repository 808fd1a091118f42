package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "  Acme  ")
	require.NoError(t, err)
	assert.Positive(t, p.ID)
	assert.Equal(t, "Acme", p.Name)
	assert.False(t, p.CreatedAt.IsZero())

	var ve *ValidationError

	_, err = svc.CreateProject(ctx, "   ")
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "project name")

	_, err = svc.CreateProject(ctx, "Acme")
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "already exists")

	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1, "duplicate project must not be created")
	assert.Equal(t, p.ID, projects[0].ID)
}

func TestProjects_NameIsUniqueInSchema(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	mustProject(t, svc, "Acme")

	// Bypass the pre-check to hit the constraint directly.
	_, err := db.Writer().ExecContext(ctx, `INSERT INTO projects (project_name) VALUES ('Acme')`)
	require.Error(t, err)
	assert.True(t, db.Dialect().IsUniqueViolation(err))
}

func TestGetProject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc, "Acme")

	got, err := svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)

	_, err = svc.GetProject(ctx, p.ID+1)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestListSheets(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := mustProject(t, svc, "A")
	b := mustProject(t, svc, "B")

	_, err := svc.Ingest(ctx, a.ID, "a.xlsx", xlsxFile(t, ordersAndCities...))
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, b.ID, "b.csv", []byte("x\n1\n"))
	require.NoError(t, err)

	all, err := svc.ListSheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Orders", "Cities", "b"}, sheetNames(all))

	onlyB, err := svc.ListSheetsByProject(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, b.ID, onlyB[0].ProjectID)

	none, err := svc.ListSheetsByProject(ctx, b.ID+10)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestGetSheetRows(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc, "Acme")

	_, err := svc.Ingest(ctx, p.ID, "book.xlsx", xlsxFile(t, ordersAndCities...))
	require.NoError(t, err)

	sheets, err := svc.ListSheetsByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	rows, err := svc.GetSheetRows(ctx, sheets[0].ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, Row{
		"order_id": int64(42),
		"price":    3.14,
		"shipped":  "31-12-2024",
		"note":     "first",
	}, rows[0])
	assert.Equal(t, Row{
		"order_id": int64(43),
		"price":    2.5,
		"shipped":  "01-01-2025",
		"note":     nil,
	}, rows[1])

	for _, row := range rows {
		assert.NotContains(t, row, rowIDColumn)
		assert.NotContains(t, row, rowHashColumn)
	}
}

func TestGetSheetRows_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var nf *NotFoundError
	_, err := svc.GetSheetRows(ctx, 999)
	assert.ErrorAs(t, err, &nf)

	var ve *ValidationError
	_, err = svc.GetSheetRows(ctx, 0)
	assert.ErrorAs(t, err, &ve)
}

func TestPurgeProject_RegistryAndPrefix(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc, "Acme")
	d := db.Dialect()

	_, err := svc.Ingest(ctx, p.ID, "a.csv", []byte("x\n1\n"))
	require.NoError(t, err)

	// A stray table with the project prefix but no registry entry.
	_, err = db.Writer().ExecContext(ctx, `CREATE TABLE "`+tablePrefix(p.ID)+`stray" (x TEXT)`)
	require.NoError(t, err)

	tx, err := db.Writer().BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	dropped, err := purgeProject(ctx, tx, d, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{tablePrefix(p.ID) + "a", tablePrefix(p.ID) + "stray"}, dropped)
	require.NoError(t, tx.Commit())

	var n int
	require.NoError(t, db.Reader().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sheet_tables WHERE project_id = ?`, p.ID).Scan(&n))
	assert.Zero(t, n)
}

func TestEnsureTable_Idempotent(t *testing.T) {
	_, db := newTestService(t)
	ctx := context.Background()
	d := db.Dialect()

	_, err := db.Writer().ExecContext(ctx, `INSERT INTO projects (project_name) VALUES ('p')`)
	require.NoError(t, err)

	calls := 0
	infer := func() (Schema, error) {
		calls++
		return Schema{{Name: "a", Type: TypeInteger}}, nil
	}

	tx, err := db.Writer().BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	s1, created, err := ensureTable(ctx, tx, d, 1, "p1_t", infer)
	require.NoError(t, err)
	assert.True(t, created)

	s2, created, err := ensureTable(ctx, tx, d, 1, "p1_t", func() (Schema, error) {
		t.Fatal("infer must not run for a registered table")
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, s1, s2)
	assert.Equal(t, 1, calls)
}

func TestRegisterSheet_ExistingEntryIsReused(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	d := db.Dialect()

	p, err := svc.CreateProject(ctx, "Acme")
	require.NoError(t, err)

	tx, err := db.Writer().BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	id1, created, err := registerSheet(ctx, tx, d, p.ID, "Orders", "p1_orders")
	require.NoError(t, err)
	assert.True(t, created)

	id2, created, err := registerSheet(ctx, tx, d, p.ID, "Orders", "p1_orders")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)

	require.NoError(t, tx.Commit())

	sheets, err := svc.ListSheetsByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, id1, sheets[0].ID)
	assert.Equal(t, "Orders", sheets[0].Name)
}
