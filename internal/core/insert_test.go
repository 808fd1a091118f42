package core

import (
	"testing"

	"github.com/JonMunkholm/sheetdb/internal/storage"
	"github.com/JonMunkholm/sheetdb/internal/workbook"
)

func TestRowHash(t *testing.T) {
	base := rowHash([]any{int64(1), "a", nil})

	tests := []struct {
		name string
		vals []any
		same bool
	}{
		{"identical", []any{int64(1), "a", nil}, true},
		{"null differs from empty", []any{int64(1), "a", ""}, false},
		{"type is part of the hash", []any{"1", "a", nil}, false},
		{"shifted boundary", []any{int64(1), "", "a"}, false},
		{"different value", []any{int64(2), "a", nil}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rowHash(tt.vals) == base; got != tt.same {
				t.Errorf("rowHash equality = %v, want %v", got, tt.same)
			}
		})
	}

	if len(base) != 64 {
		t.Errorf("rowHash length = %d, want 64 hex chars", len(base))
	}
}

func TestNewRowInserter(t *testing.T) {
	schema := Schema{{Name: "name", Type: TypeText}, {Name: "qty", Type: TypeInteger}}
	sheet := workbook.Sheet{Name: "S", Columns: []string{"Qty", "Name"}}

	ins, err := newRowInserter(storage.Postgres{}, sheet, "p1_s", schema)
	if err != nil {
		t.Fatal(err)
	}

	want := `INSERT INTO "p1_s" ("_row_hash", "name", "qty") VALUES ($1, $2, $3) ON CONFLICT ("_row_hash") DO NOTHING`
	if ins.query != want {
		t.Errorf("query =\n%s\nwant\n%s", ins.query, want)
	}

	vals, err := ins.values(1, workbook.Row{"Qty": "7", "Name": "bolt"})
	if err != nil {
		t.Fatal(err)
	}
	if vals[0] != "bolt" || vals[1] != int64(7) {
		t.Errorf("values = %#v", vals)
	}

	if _, err := ins.values(2, workbook.Row{"Qty": "7"}); err == nil {
		t.Error("values should reject a row with a missing field")
	}
	if _, err := ins.values(3, workbook.Row{"Qty": "7", "Name": "x", "Extra": "y"}); err == nil {
		t.Error("values should reject a row with an extra field")
	}
}

func TestNewRowInserter_ColumnMismatch(t *testing.T) {
	schema := Schema{{Name: "a", Type: TypeText}}
	sheet := workbook.Sheet{Name: "S", Columns: []string{"A", "B"}}

	_, err := newRowInserter(storage.SQLite{}, sheet, "p1_s", schema)
	if err == nil {
		t.Fatal("expected a column mismatch error")
	}
	if StatusCode(err) != 400 {
		t.Errorf("StatusCode = %d, want 400", StatusCode(err))
	}
}

func TestRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE x = ? AND y = ?`
	if got := rebind(storage.SQLite{}, q); got != q {
		t.Errorf("sqlite rebind changed query: %s", got)
	}
	if got := rebind(storage.Postgres{}, q); got != `SELECT a FROM t WHERE x = $1 AND y = $2` {
		t.Errorf("postgres rebind = %s", got)
	}
}

func TestCreateTableSQL(t *testing.T) {
	got := createTableSQL(storage.Postgres{}, "p3_orders", Schema{
		{Name: "id", Type: TypeInteger},
		{Name: "price", Type: TypeFloat},
		{Name: "city", Type: TypeText},
	})
	want := `CREATE TABLE IF NOT EXISTS "p3_orders" ("_row_id" BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY, "_row_hash" TEXT NOT NULL UNIQUE, "id" BIGINT, "price" DOUBLE PRECISION, "city" TEXT)`
	if got != want {
		t.Errorf("createTableSQL =\n%s\nwant\n%s", got, want)
	}
}
