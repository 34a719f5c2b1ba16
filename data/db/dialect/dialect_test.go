package dialect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind_Postgres(t *testing.T) {
	d := New("postgres")
	q := "SELECT * FROM t WHERE a = ? AND b IN (?, ?)"
	got := d.Rebind(q)
	want := "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)"
	if got != want {
		t.Fatalf("Rebind mismatch\nwant: %s\ngot:  %s", want, got)
	}
}

func TestRebind_NoChangeForMySQLSQLite(t *testing.T) {
	tests := []struct {
		name string
		d    Dialect
	}{
		{"mysql", New("mysql")},
		{"sqlite", New("sqlite")},
		{"unknown", New("unknown")},
	}

	orig := "DELETE FROM t WHERE id = ? AND name = ?"
	for _, tt := range tests {
		if got := tt.d.Rebind(orig); got != orig {
			t.Fatalf("%s: expected no change, got %s", tt.name, got)
		}
	}
}

func TestNew_Aliases(t *testing.T) {
	assert.Equal(t, NamePostgres, New("pgx").Name())
	assert.Equal(t, NamePostgres, New(" PostgreSQL ").Name())
	assert.Equal(t, NameSQLite, New("sqlite3").Name())
	assert.Equal(t, NameMySQL, New("MySQL").Name())
	assert.Equal(t, NameUnknown, New("oracle").Name())
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		dialect string
		in      string
		want    string
	}{
		{"mysql", "items", "`items`"},
		{"mysql", "lists_tags.list_id", "`lists_tags`.`list_id`"},
		{"sqlite", "tags.*", `"tags".*`},
		{"postgres", "public.items", `"public"."items"`},
		{"unknown", "items.name", "items.name"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.dialect).QuoteIdentifier(tt.in))
		})
	}
}

func TestTruncateStatements(t *testing.T) {
	mysql := New("mysql").TruncateStatements("items")
	require.Len(t, mysql, 1)
	assert.Equal(t, "TRUNCATE TABLE `items`", mysql[0].SQL)

	pg := New("pgx").TruncateStatements("items")
	require.Len(t, pg, 1)
	assert.Equal(t, `TRUNCATE TABLE "items" RESTART IDENTITY`, pg[0].SQL)

	lite := New("sqlite").TruncateStatements("items")
	require.Len(t, lite, 2)
	assert.Equal(t, `DELETE FROM "items"`, lite[0].SQL)
	assert.False(t, lite[0].IgnoreError)
	assert.Equal(t, []any{"items"}, lite[1].Args)
	assert.True(t, lite[1].IgnoreError)
}

func TestCapabilities(t *testing.T) {
	assert.True(t, New("postgres").SupportsReturning())
	assert.False(t, New("sqlite").SupportsReturning())
	assert.False(t, New("mysql").SupportsReturning())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, New("sqlite").IsUniqueViolation(errors.New("UNIQUE constraint failed: tags.name")))
	assert.True(t, New("mysql").IsUniqueViolation(errors.New("Error 1062: Duplicate entry 'wish' for key 'name'")))
	assert.True(t, New("postgres").IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "tags_name_key"`)))
	assert.False(t, New("sqlite").IsUniqueViolation(errors.New("no such column: flower")))
	assert.False(t, New("sqlite").IsUniqueViolation(nil))
}
