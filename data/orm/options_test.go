package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quote(s string) string { return `"` + s + `"` }

func TestCond_Condition(t *testing.T) {
	tests := []struct {
		name     string
		cond     Cond
		wantExpr string
		wantArgs []any
	}{
		{"empty", Cond{}, "", nil},
		{"single", Cond{"id": 51}, `"id" = ?`, []any{51}},
		{"sorted", Cond{"name": "an item", "list_id": 51}, `"list_id" = ? AND "name" = ?`, []any{51, "an item"}},
		{"null", Cond{"list_id": nil}, `"list_id" IS NULL`, nil},
		{"in", Cond{"id": []int{41, 42}}, `"id" IN (?, ?)`, []any{41, 42}},
		{"empty in", Cond{"id": []string{}}, "1 = 0", nil},
		{"bytes are scalar", Cond{"name": []byte("x")}, `"name" = ?`, []any{[]byte("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.cond.Condition(quote)
			require.NoError(t, err)
			assert.Equal(t, tt.wantExpr, c.Expr)
			assert.Equal(t, tt.wantArgs, c.Args)
		})
	}
}

func TestCond_RejectsUnsafeColumn(t *testing.T) {
	_, err := Cond{"id; DROP TABLE items": 1}.Condition(quote)
	assert.ErrorIs(t, err, ErrUnsafeIdentifier)
}

func TestQueryOptions_CloneIsIndependent(t *testing.T) {
	base := CollectQueryOptions(WithWhere("a = ?", 1), WithOrderBy("id", false))
	clone := base.Clone()
	WithWhere("b = ?", 2)(&clone)
	WithLimit(5)(&clone)

	assert.Len(t, base.Where, 1)
	assert.Len(t, clone.Where, 2)
	assert.Zero(t, base.Limit)
	assert.Equal(t, 5, clone.Limit)
}

func TestModelMeta_HasField(t *testing.T) {
	open := &ModelMeta{PrimaryKey: "id"}
	assert.True(t, open.HasField("anything"))

	m := &ModelMeta{PrimaryKey: "id", Fields: []FieldMeta{{Column: "name"}}}
	assert.True(t, m.HasField("id"))
	assert.True(t, m.HasField("name"))
	assert.False(t, m.HasField("flower"))
}
