package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "datastorm/data/db"
	"datastorm/data/db/basic"
	"datastorm/data/orm"
	sharederrors "datastorm/errors"
	"datastorm/internal/testutil"
)

// seedFile 在临时目录写入带种子数据的 sqlite 文件
func seedFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "cli.db")

	db, err := basic.New(core.DBConfig{Driver: "sqlite", Database: path, MaxOpenConns: 1})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, db.ExecScript(ctx, testutil.Schema...))
	require.NoError(t, db.ExecScript(ctx, testutil.Fixtures...))
	require.NoError(t, db.Close())
	return path
}

func run(t *testing.T, path string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--database", path, "--log-level", "warn"}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCount(t *testing.T) {
	path := seedFile(t)

	out, _, err := run(t, path, "count", "items")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, _, err = run(t, path, "count", "items", "--where", "list_id=51")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, _, err = run(t, path, "count", "items", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"count": 2}`, out)
}

func TestAll(t *testing.T) {
	path := seedFile(t)

	out, _, err := run(t, path, "all", "items", "--order", "id", "-o", "json")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, float64(41), rows[0]["id"])
	assert.Equal(t, "another item", rows[0]["name"])

	out, _, err = run(t, path, "all", "items", "--order", "name", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "an item")
	assert.NotContains(t, out, "another item")
	assert.Contains(t, out, "(1 rows)")

	out, _, err = run(t, path, "all", "items", "--where", "list_id=null")
	require.NoError(t, err)
	assert.Contains(t, out, "(0 rows)")
}

func TestAll_RejectsBadInput(t *testing.T) {
	path := seedFile(t)

	_, _, err := run(t, path, "all", "items;")
	assert.True(t, sharederrors.IsValidation(err))

	_, _, err = run(t, path, "all", "items", "--where", "name")
	assert.True(t, sharederrors.IsValidation(err))

	_, _, err = run(t, path, "all", "items", "--limit", "-1")
	assert.True(t, sharederrors.IsValidation(err))

	_, _, err = run(t, path, "all", "items", "-o", "xml")
	assert.True(t, sharederrors.IsValidation(err))
}

func TestFirst(t *testing.T) {
	path := seedFile(t)

	out, _, err := run(t, path, "first", "lists", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: a list")

	out, _, err = run(t, path, "first", "items", "--where", "name=missing")
	require.NoError(t, err)
	assert.Equal(t, "(0 rows)\n", out)
}

func TestExecAndTruncate(t *testing.T) {
	path := seedFile(t)

	out, _, err := run(t, path, "exec", "items", "UPDATE items SET name = ? WHERE id = ?", "renamed", "42")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, _, err = run(t, path, "first", "items", "--where", "id=42", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "renamed"`)

	_, _, err = run(t, path, "truncate", "items")
	assert.True(t, sharederrors.IsValidation(err), "truncate requires confirmation")

	out, _, err = run(t, path, "truncate", "items", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "truncated items\n", out)

	out, _, err = run(t, path, "count", "items")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}

func TestDatabaseErrorsCarryOperation(t *testing.T) {
	path := seedFile(t)

	_, _, err := run(t, path, "exec", "items", "UPDATE flowers SET name = ?", "x")
	require.Error(t, err)
	assert.True(t, sharederrors.IsErrorCode(err, sharederrors.ErrCodeDatabase))
	var app sharederrors.IError
	require.ErrorAs(t, err, &app)
	assert.Equal(t, "exec items", app.Details()["operation"])

	_, _, err = run(t, path, "count", "flowers")
	assert.True(t, sharederrors.IsErrorCode(err, sharederrors.ErrCodeDatabase))

	_, _, err = run(t, path, "exec", "items;", "DELETE FROM items")
	assert.True(t, sharederrors.IsValidation(err))

	out, _, err := run(t, path, "count", "items")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestInsertPublishesEvent(t *testing.T) {
	path := seedFile(t)

	out, events, err := run(t, path, "insert", "lists", "name=groceries", "--events", "memory", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "groceries"`)
	assert.Contains(t, events, "event list.created lists id=52")

	_, _, err = run(t, path, "insert", "lists", "name=groceries", "--unique", "name")
	require.Error(t, err)
	assert.True(t, sharederrors.IsValidation(err))
	assert.Contains(t, err.Error(), "name is already taken")
}

func TestUpdateAndDestroy(t *testing.T) {
	path := seedFile(t)

	out, events, err := run(t, path, "update", "items", "42", "name=renamed", "--events", "memory", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "renamed"`)
	assert.Contains(t, events, "event item.updated items id=42")

	_, _, err = run(t, path, "update", "items", "999", "name=x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, orm.ErrNotFound))
	assert.True(t, sharederrors.IsNotFound(sharederrors.Normalize(err)))

	out, events, err = run(t, path, "destroy", "items", "41", "--events", "sync")
	require.NoError(t, err)
	assert.Equal(t, "destroyed items 41\n", out)
	assert.Contains(t, events, "event item.destroyed items id=41")

	out, _, err = run(t, path, "count", "items")
	require.NoError(t, err)
	assert.Equal(t, "1\n", strings.TrimLeft(out, " "))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, int64(42), parseValue("42"))
	assert.Nil(t, parseValue("NULL"))
	assert.Equal(t, "08a", parseValue("08a"))
	assert.Equal(t, "", parseValue(""))
}
