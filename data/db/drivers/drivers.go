// Package drivers 通过空导入注册 datastorm 网关可打开的 database/sql 驱动。
//
//   - "sqlite"：modernc.org/sqlite（纯 Go，默认驱动，测试与命令行使用）
//   - "pgx"：github.com/jackc/pgx/v5/stdlib（Postgres）
//   - "mysql"：github.com/go-sql-driver/mysql
//
// 使用方式：
//
//	import _ "datastorm/data/db/drivers"
package drivers

import (
	"database/sql"
	"slices"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported 列出本包保证已注册的驱动名。
var Supported = []string{"sqlite", "pgx", "mysql"}

// Registered 判断驱动是否已在 database/sql 中注册。
func Registered(name string) bool {
	return slices.Contains(sql.Drivers(), name)
}
