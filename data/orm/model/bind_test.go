package model

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Audit struct {
	CreatedBy string `db:"created_by"`
}

type Actor struct {
	ID        int64  `gorm:"column:id;primaryKey"`
	FirstName string `json:"first_name"`
	LastName  string
	Age       *int
	Nickname  string `db:"-"`
	internal  string
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Name":       "name",
		"FirstName":  "first_name",
		"ID":         "id",
		"UserID":     "user_id",
		"HTTPServer": "http_server",
	}
	for in, want := range tests {
		assert.Equal(t, want, toSnakeCase(in), in)
	}
}

func TestStructMeta_Columns(t *testing.T) {
	type withEmbedded struct {
		Audit
		Title string
	}
	var cols []string
	for _, f := range structMetaFor(reflect.TypeOf(withEmbedded{})).fields {
		cols = append(cols, f.Column)
	}
	assert.Equal(t, []string{"created_by", "title"}, cols)

	cols = nil
	for _, f := range structMetaFor(reflect.TypeOf(Actor{})).fields {
		cols = append(cols, f.Column)
	}
	assert.Equal(t, []string{"id", "first_name", "last_name", "age"}, cols)
}

func TestModel_NewFromStructAndBind(t *testing.T) {
	ctx := context.Background()
	s := newSchema(t)
	actors := s.reg.Define("actor", WithFields("first_name", "last_name", "age"))

	age := 36
	inst, err := actors.NewFromStruct(&Actor{FirstName: "Ada", LastName: "Lovelace", Age: &age, Nickname: "A", internal: "x"})
	require.NoError(t, err)
	_, hasID := inst.Attributes()["id"]
	assert.False(t, hasID, "zero primary key is left to the database")

	res, err := inst.Save(ctx)
	require.NoError(t, err)
	require.True(t, res.Created)

	found, err := actors.Find(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, found)

	var got Actor
	require.NoError(t, found.Bind(&got))
	assert.Equal(t, res.ID, got.ID)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Equal(t, "Lovelace", got.LastName)
	require.NotNil(t, got.Age)
	assert.Equal(t, 36, *got.Age)
	assert.Empty(t, got.Nickname)

	nameless, err := actors.New(map[string]any{"first_name": "Grace", "age": nil})
	require.NoError(t, err)
	got = Actor{Age: &age, LastName: "kept"}
	require.NoError(t, nameless.Bind(&got))
	assert.Nil(t, got.Age)
	assert.Equal(t, "kept", got.LastName, "absent columns keep their value")
}

func TestInstance_BindRejectsNonPointer(t *testing.T) {
	s := newSchema(t)
	inst, err := s.list.New(map[string]any{"name": "x"})
	require.NoError(t, err)

	assert.Error(t, inst.Bind(Actor{}))
	assert.Error(t, inst.Bind((*Actor)(nil)))

	var n int
	assert.Error(t, inst.Bind(&n))

	_, err = s.list.NewFromStruct(42)
	assert.Error(t, err)
}

func TestInstance_BindConversionError(t *testing.T) {
	s := newSchema(t)
	inst, err := s.list.New(map[string]any{"id": "not-a-number"})
	require.NoError(t, err)

	var got Actor
	err = inst.Bind(&got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind id")
}
