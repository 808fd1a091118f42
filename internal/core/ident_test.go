package core

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeIdent(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Name", "name", false},
		{"  Unit   Price ", "unit_price", false},
		{"Column 2", "column_2", false},
		{"tab\tand\nnewline", "tab_and_newline", false},
		{"Größe", "größe", false},
		{"2024", "2024", false},
		{"already_snake", "already_snake", false},
		{"", "", true},
		{"   ", "", true},
		{`a"; DROP TABLE x; --`, "", true},
		{"semi;colon", "", true},
		{"quote\"d", "", true},
		{"_hidden", "", true},
		{"Amount ($)", "", true},
		{strings.Repeat("a", MaxIdentLength), strings.Repeat("a", MaxIdentLength), false},
		{strings.Repeat("a", MaxIdentLength+1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeIdent(tt.in)
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("NormalizeIdent(%q) error = %v, want ValidationError", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeIdent(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeIdent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTableName(t *testing.T) {
	got, err := TableName(12, "Q1 Sales")
	if err != nil {
		t.Fatal(err)
	}
	if got != "p12_q1_sales" {
		t.Errorf("TableName() = %q, want p12_q1_sales", got)
	}

	if _, err := TableName(12, strings.Repeat("x", 60)); err == nil {
		t.Error("TableName() should reject names that exceed the limit with the prefix")
	}
}

func TestTablePrefixDoesNotOverlap(t *testing.T) {
	if strings.HasPrefix("p12_sheet", tablePrefix(1)) {
		t.Error("prefix of project 1 matches a table of project 12")
	}
}

func TestNormalizeColumns(t *testing.T) {
	cols, err := normalizeColumns("S", []string{"First Name", "Age"})
	if err != nil {
		t.Fatal(err)
	}
	if cols[0] != "first_name" || cols[1] != "age" {
		t.Errorf("normalizeColumns() = %v", cols)
	}

	_, err = normalizeColumns("S", []string{"First Name", "first  name"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("duplicate columns error = %v, want ValidationError", err)
	}
}
