package sql

import (
	"testing"

	core "datastorm/data/db"

	"github.com/stretchr/testify/assert"
)

// namedDB 只提供方言名，Build 不会触达真实连接
type namedDB struct {
	core.IDatabase
	name string
}

func (d namedDB) GetDialectName() string { return d.name }

func newSql(name string) ISql {
	return New(namedDB{name: name})
}

func TestSelectBuilder_JoinWhereOrder(t *testing.T) {
	s := newSql("sqlite")
	q, args := s.Select(`"tags".*`).
		From(`"tags"`).
		Join(`INNER JOIN "lists_tags" ON "lists_tags"."tag_id" = "tags"."id"`).
		Where(`"lists_tags"."list_id" = ?`, 51).
		OrderBy(`"tags"."name"`).
		Limit(2).
		Offset(1).
		Build()

	assert.Equal(t, `SELECT "tags".* FROM "tags" INNER JOIN "lists_tags" ON "lists_tags"."tag_id" = "tags"."id" WHERE "lists_tags"."list_id" = ? ORDER BY "tags"."name" LIMIT ? OFFSET ?`, q)
	assert.Equal(t, []any{51, 2, 1}, args)
}

func TestSelectBuilder_JoinArgsPrecedeWhereArgs(t *testing.T) {
	q, args := newSql("sqlite").Select("*").From("items").
		Where("items.name = ?", "an item").
		Join("INNER JOIN lists ON lists.id = items.list_id AND lists.name = ?", "a list").
		Build()
	assert.Equal(t, "SELECT * FROM items INNER JOIN lists ON lists.id = items.list_id AND lists.name = ? WHERE items.name = ?", q)
	assert.Equal(t, []any{"a list", "an item"}, args)
}

func TestSelectBuilder_BuildTwiceIsStable(t *testing.T) {
	b := newSql("sqlite").Select().From("items").Where("id = ?", 1).Limit(1)
	q1, a1 := b.Build()
	q2, a2 := b.Build()
	assert.Equal(t, q1, q2)
	assert.Equal(t, a1, a2)
	assert.Equal(t, "SELECT * FROM items WHERE id = ? LIMIT ?", q1)
}

func TestSelectBuilder_WhereClausesAreAnded(t *testing.T) {
	q, args := newSql("sqlite").Select("id").From("items").
		Where("list_id = ?", 51).
		Where("name = ?", "an item").
		OrderBy("id").
		Offset(5).
		Build()
	assert.Equal(t, "SELECT id FROM items WHERE list_id = ? AND name = ? ORDER BY id OFFSET ?", q)
	assert.Equal(t, []any{51, "an item", 5}, args)
}

func TestInsertBuilder(t *testing.T) {
	q, args := newSql("sqlite").InsertInto("items").
		Columns("name", "list_id").
		Values("an item", 51).
		Build()
	assert.Equal(t, `INSERT INTO "items" ("name", "list_id") VALUES (?, ?)`, q)
	assert.Equal(t, []any{"an item", 51}, args)
}

func TestInsertBuilder_Returning(t *testing.T) {
	q, _ := newSql("pgx").InsertInto("items").Columns("name").Values("x").Returning("id").Build()
	assert.Equal(t, `INSERT INTO "items" ("name") VALUES (?) RETURNING "id"`, q)

	// 不支持 RETURNING 的方言忽略该子句
	q, _ = newSql("mysql").InsertInto("items").Columns("name").Values("x").Returning("id").Build()
	assert.Equal(t, "INSERT INTO `items` (`name`) VALUES (?)", q)
}

func TestInsertBuilder_PanicsOnBadInput(t *testing.T) {
	s := newSql("sqlite")
	assert.Panics(t, func() { s.InsertInto("items").Values(1).Build() })
	assert.Panics(t, func() { s.InsertInto("items").Columns("name").Build() })
	assert.Panics(t, func() { s.InsertInto("items; drop").Columns("name").Values(1).Build() })
	assert.Panics(t, func() { s.InsertInto("items").Columns("a", "b").Values(1).Build() })
}

func TestUpdateBuilder_SetMapIsSorted(t *testing.T) {
	q, args := newSql("sqlite").Update("items").
		SetMap(map[string]any{"name": "renamed", "list_id": 12}).
		Where(`"id" = ?`, 42).
		Build()
	assert.Equal(t, `UPDATE "items" SET "list_id" = ?, "name" = ? WHERE "id" = ?`, q)
	assert.Equal(t, []any{12, "renamed", 42}, args)
}

func TestUpdateBuilder_RequiresSet(t *testing.T) {
	assert.Panics(t, func() { newSql("sqlite").Update("items").Build() })
}

func TestDeleteBuilder(t *testing.T) {
	q, args := newSql("sqlite").DeleteFrom("items").Where("id = ?", 42).Build()
	assert.Equal(t, `DELETE FROM "items" WHERE id = ?`, q)
	assert.Equal(t, []any{42}, args)

	q, args = newSql("mysql").DeleteFrom("items").Build()
	assert.Equal(t, "DELETE FROM `items`", q)
	assert.Empty(t, args)
}

func TestIsSafeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"items", true},
		{"lists_tags.list_id", true},
		{"_private", true},
		{"", false},
		{"1abc", false},
		{"items;", false},
		{"a b", false},
		{"items.", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSafeIdentifier(tt.in), tt.in)
	}
}
