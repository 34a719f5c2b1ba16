// Package testutil 提供包测试共用的数据库夹具。
package testutil

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	core "datastorm/data/db"
	"datastorm/data/db/basic"
	_ "datastorm/data/db/drivers"
)

// Schema 夹具表结构。
//
// lists/items/tags/actors 使用 INTEGER PRIMARY KEY（不带 AUTOINCREMENT），清空表后 rowid 从 1 重新分配；
// notes 使用 AUTOINCREMENT，计数器保存在 sqlite_sequence 中，清空表时必须一并清理。
var Schema = []string{
	`CREATE TABLE lists (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
	`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL, list_id INTEGER)`,
	`CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
	`CREATE TABLE lists_tags (list_id INTEGER NOT NULL, tag_id INTEGER NOT NULL)`,
	`CREATE TABLE actors (id INTEGER PRIMARY KEY, first_name TEXT, last_name TEXT, age INTEGER)`,
	`CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, body TEXT NOT NULL)`,
}

// Fixtures 种子数据：list 51 拥有 item 42，关联 tag supplies 与 fun。
var Fixtures = []string{
	`INSERT INTO lists (id, name) VALUES (51, 'a list')`,
	`INSERT INTO items (id, name, list_id) VALUES (41, 'another item', 12)`,
	`INSERT INTO items (id, name, list_id) VALUES (42, 'an item', 51)`,
	`INSERT INTO tags (id, name) VALUES (1, 'supplies')`,
	`INSERT INTO tags (id, name) VALUES (2, 'fun')`,
	`INSERT INTO tags (id, name) VALUES (4, 'wish')`,
	`INSERT INTO lists_tags (list_id, tag_id) VALUES (51, 1)`,
	`INSERT INTO lists_tags (list_id, tag_id) VALUES (51, 2)`,
}

// OpenSQLite 打开建好表结构的内存库（不含种子数据）。
//
// :memory: 每个连接都是独立的库，因此连接池固定为 1 个连接。
func OpenSQLite(t testing.TB) *basic.DB {
	t.Helper()
	db, err := basic.New(core.DBConfig{
		Driver:       "sqlite",
		Database:     ":memory:",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.ExecScript(context.Background(), Schema...))
	return db
}

// OpenSeeded 打开已写入种子数据的内存库。
func OpenSeeded(t testing.TB) *basic.DB {
	t.Helper()
	db := OpenSQLite(t)
	require.NoError(t, db.ExecScript(context.Background(), Fixtures...))
	return db
}

// OpenMock 返回按原文精确匹配 SQL 的 sqlmock 网关，方言为 sqlite。
// 测试结束时自动校验所有期望均已满足。
func OpenMock(t testing.TB) (*basic.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})
	return basic.Wrap(sqlDB, "sqlite"), mock
}
