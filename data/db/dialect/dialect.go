package dialect

import (
	"strconv"
	"strings"

	core "datastorm/data/db"
)

// Name 标准化的数据库方言名称
type Name string

const (
	NameMySQL    Name = "mysql"
	NameSQLite   Name = "sqlite"
	NamePostgres Name = "postgres"
	NameUnknown  Name = ""
)

// Dialect 表示当前数据库的方言能力
//
// 只抽象 datastorm 实际用到的能力：
//   - 标识符引用与占位符重绑定
//   - INSERT ... RETURNING（取回自增主键）
//   - TRUNCATE（含自增计数器重置）
//   - 唯一键冲突错误识别
type Dialect struct {
	name Name
}

// Statement 方言生成的单条语句。
//
// IgnoreError 为 true 时表示该语句属于“尽力而为”，执行失败可忽略
// （例如 SQLite 在没有 AUTOINCREMENT 表时不存在 sqlite_sequence）。
type Statement struct {
	SQL         string
	Args        []any
	IgnoreError bool
}

// New 根据字符串构造方言（大小写不敏感）
func New(name string) Dialect {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql":
		return Dialect{name: NameMySQL}
	case "sqlite", "sqlite3":
		return Dialect{name: NameSQLite}
	case "postgres", "postgresql", "pgx":
		return Dialect{name: NamePostgres}
	default:
		return Dialect{name: NameUnknown}
	}
}

// FromDatabase 从 IDatabase 实例推断方言
//
// 需要 IDatabase 可选实现 IDialectNameProvider 接口；否则返回 Unknown。
func FromDatabase(db core.IDatabase) Dialect {
	if db == nil {
		return Dialect{name: NameUnknown}
	}
	if p, ok := db.(core.IDialectNameProvider); ok {
		return New(p.GetDialectName())
	}
	return Dialect{name: NameUnknown}
}

// Name 返回标准化方言名
func (d Dialect) Name() Name {
	return d.name
}

// QuoteIdentifier 根据方言对标识符进行转义（如表名/列名）。
//
// 约定：
//   - 支持 schema.table、table.column 等带点形式，会对每一段分别加引号；
//   - 通配段 "*" 保持原样，因此 tags.* 会变成 "tags".*；
//   - MySQL 使用反引号 `name`，Postgres/SQLite 使用双引号 "name"；
//   - Unknown 方言返回原始字符串，不做修改。
//   - 该方法不负责校验标识符语法，仅负责按方言加引号。
func (d Dialect) QuoteIdentifier(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "" || p == "*" {
			continue
		}
		switch d.name {
		case NameMySQL:
			parts[i] = "`" + p + "`"
		case NameSQLite, NamePostgres:
			parts[i] = `"` + p + `"`
		default:
			// 未知方言：保持原样
		}
	}
	return strings.Join(parts, ".")
}

// Rebind 将通用占位符 ? 转换为方言特定形式。
//
// 目前仅对 Postgres 做替换，将 ? 依次替换为 $1、$2...；
// 其他方言保持原样。
//
// 限制：使用简单的字符扫描，不解析 SQL 语法，字符串字面量中的 ? 也会被替换。
// 需要字面量时请使用参数化方式：WHERE name = ? 并传入 'what?'。
func (d Dialect) Rebind(query string) string {
	if query == "" {
		return query
	}
	switch d.name {
	case NamePostgres:
		var sb strings.Builder
		sb.Grow(len(query) + 4)
		argIndex := 1
		for i := 0; i < len(query); i++ {
			ch := query[i]
			if ch == '?' {
				sb.WriteByte('$')
				sb.WriteString(strconv.Itoa(argIndex))
				argIndex++
			} else {
				sb.WriteByte(ch)
			}
		}
		return sb.String()
	default:
		return query
	}
}

// SupportsReturning 当前方言是否需要/支持通过 INSERT ... RETURNING 取回主键。
//
// Postgres 驱动不实现 LastInsertId，因此必须使用 RETURNING。
func (d Dialect) SupportsReturning() bool {
	return d.name == NamePostgres
}

// TruncateStatements 返回清空整表并重置自增计数器所需的语句序列。
//
//   - MySQL：TRUNCATE TABLE t（自增计数器随之重置）
//   - Postgres：TRUNCATE TABLE t RESTART IDENTITY
//   - SQLite：DELETE FROM t，并尽力清理 sqlite_sequence 中的计数
//   - Unknown：DELETE FROM t
func (d Dialect) TruncateStatements(table string) []Statement {
	quoted := d.QuoteIdentifier(table)
	switch d.name {
	case NameMySQL:
		return []Statement{{SQL: "TRUNCATE TABLE " + quoted}}
	case NamePostgres:
		return []Statement{{SQL: "TRUNCATE TABLE " + quoted + " RESTART IDENTITY"}}
	case NameSQLite:
		return []Statement{
			{SQL: "DELETE FROM " + quoted},
			{SQL: "DELETE FROM sqlite_sequence WHERE name = ?", Args: []any{table}, IgnoreError: true},
		}
	default:
		return []Statement{{SQL: "DELETE FROM " + quoted}}
	}
}

// IsUniqueViolation 判断错误是否为唯一键/主键冲突
//
// 使用错误消息的关键字匹配，覆盖常见数据库的典型错误格式：
//   - MySQL: "Duplicate entry", "duplicate key" (Error 1062, 1586)
//   - SQLite: "UNIQUE constraint failed" (SQLITE_CONSTRAINT_UNIQUE)
//   - Postgres: "duplicate key value", "unique constraint" (Error 23505)
//
// 依赖错误消息文本，可能受数据库版本、语言设置影响。
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch d.name {
	case NameMySQL:
		return strings.Contains(msg, "duplicate entry") ||
			strings.Contains(msg, "duplicate key")
	case NameSQLite:
		return strings.Contains(msg, "unique constraint failed")
	case NamePostgres:
		return strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "unique constraint")
	default:
		// 对未知方言做宽松匹配，尽量不误判但宁可返回 false
		return strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "unique constraint")
	}
}
