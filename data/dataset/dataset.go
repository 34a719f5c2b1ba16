// Package dataset 提供绑定单表的查询构建与执行对象。
//
// Dataset 是值语义的：Where/Join/Order/Limit 等构建方法总是返回新的 Dataset，
// 原对象保持不变，因此同一个基础数据集可以安全地派生出互不相关的查询链。
package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	core "datastorm/data/db"
	"datastorm/data/db/dialect"
	dbsql "datastorm/data/db/sql"
	"datastorm/data/orm"
	"datastorm/logging"
)

// Record 未映射的原始行：列名 -> 值（[]byte 已转换为 string）
type Record map[string]any

// RowFunc 将原始行映射为领域值
type RowFunc[T any] func(Record) (T, error)

// Column 查询结果的列元信息
type Column struct {
	Name         string
	DatabaseType string
	Nullable     bool
	// NullableKnown 为 false 表示驱动未提供可空信息
	NullableKnown bool
}

// Option 配置 Dataset
type Option func(*settings)

type settings struct {
	primaryKey string
	logger     logging.Logger
}

// WithPrimaryKey 指定主键列（默认 id），Insert 在需要 RETURNING 的方言上使用它
func WithPrimaryKey(column string) Option {
	return func(s *settings) {
		if column != "" {
			s.primaryKey = column
		}
	}
}

// WithoutPrimaryKey 用于没有主键列的表（例如多对多中间表），Insert 不取回主键
func WithoutPrimaryKey() Option {
	return func(s *settings) { s.primaryKey = "" }
}

// WithLogger 指定日志器（默认使用全局 Logger）
func WithLogger(logger logging.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// Dataset 表级查询对象
type Dataset[T any] struct {
	db      core.IDatabase
	sql     dbsql.ISql
	dialect dialect.Dialect

	table      string
	primaryKey string
	logger     logging.Logger

	opts  orm.QueryOptions
	rowFn RowFunc[T]
	// err 记录构建阶段的错误（例如非法列名），在执行时返回
	err error
}

// New 创建绑定 table 的数据集，行映射为 Record
func New(db core.IDatabase, table string, opts ...Option) *Dataset[Record] {
	s := settings{primaryKey: "id"}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	d := &Dataset[Record]{
		db:         db,
		sql:        dbsql.New(db),
		dialect:    dialect.FromDatabase(db),
		table:      table,
		primaryKey: s.primaryKey,
		logger:     s.logger,
		rowFn:      func(r Record) (Record, error) { return r, nil },
	}
	if !dbsql.IsSafeIdentifier(table) {
		d.err = fmt.Errorf("%w: table %q", orm.ErrUnsafeIdentifier, table)
	}
	if s.primaryKey != "" && !dbsql.IsSafeIdentifier(s.primaryKey) {
		d.err = fmt.Errorf("%w: primary key %q", orm.ErrUnsafeIdentifier, s.primaryKey)
	}
	return d
}

// Map 返回使用 fn 作为行映射函数的新数据集（元素类型可变）
func Map[T, U any](d *Dataset[T], fn RowFunc[U]) *Dataset[U] {
	return &Dataset[U]{
		db:         d.db,
		sql:        d.sql,
		dialect:    d.dialect,
		table:      d.table,
		primaryKey: d.primaryKey,
		logger:     d.logger,
		opts:       d.opts.Clone(),
		rowFn:      fn,
		err:        d.err,
	}
}

// SetRowFunc 返回替换了行映射函数的新数据集
func (d *Dataset[T]) SetRowFunc(fn RowFunc[T]) *Dataset[T] {
	c := d.clone()
	if fn != nil {
		c.rowFn = fn
	}
	return c
}

func (d *Dataset[T]) clone() *Dataset[T] {
	c := *d
	c.opts = d.opts.Clone()
	return &c
}

func (d *Dataset[T]) fail(err error) *Dataset[T] {
	c := d.clone()
	if c.err == nil {
		c.err = err
	}
	return c
}

// Table 表名
func (d *Dataset[T]) Table() string { return d.table }

// PrimaryKey 主键列
func (d *Dataset[T]) PrimaryKey() string { return d.primaryKey }

// DB 底层网关
func (d *Dataset[T]) DB() core.IDatabase { return d.db }

// Dialect 当前方言
func (d *Dataset[T]) Dialect() dialect.Dialect { return d.dialect }

// Options 返回当前查询状态的副本
func (d *Dataset[T]) Options() orm.QueryOptions { return d.opts.Clone() }

func (d *Dataset[T]) log() logging.Logger {
	if d.logger != nil {
		return d.logger
	}
	return logging.GetLogger()
}

// column 将未限定的列名限定到本表并按方言加引号
func (d *Dataset[T]) column(name string) string {
	if name == "*" || strings.Contains(name, ".") {
		return d.dialect.QuoteIdentifier(name)
	}
	return d.dialect.QuoteIdentifier(d.table + "." + name)
}

// Where 追加相等条件（AND 关系），未限定的列名归属本表
func (d *Dataset[T]) Where(cond orm.Cond) *Dataset[T] {
	c, err := cond.Condition(d.column)
	if err != nil {
		return d.fail(err)
	}
	next := d.clone()
	orm.WithWhere(c.Expr, c.Args...)(&next.opts)
	return next
}

// WhereExpr 追加原始条件片段，调用方负责片段的安全性
func (d *Dataset[T]) WhereExpr(expr string, args ...any) *Dataset[T] {
	next := d.clone()
	orm.WithWhere(expr, args...)(&next.opts)
	return next
}

// Join 追加原始 JOIN 片段；带 JOIN 的数据集只读
func (d *Dataset[T]) Join(expr string, args ...any) *Dataset[T] {
	next := d.clone()
	orm.WithJoin(expr, args...)(&next.opts)
	return next
}

// Select 限定返回列（支持 * 与 table.*），默认返回本表全部列
func (d *Dataset[T]) Select(columns ...string) *Dataset[T] {
	for _, col := range columns {
		name := strings.TrimSuffix(col, ".*")
		if col != "*" && !dbsql.IsSafeIdentifier(name) {
			return d.fail(fmt.Errorf("%w: column %q", orm.ErrUnsafeIdentifier, col))
		}
	}
	next := d.clone()
	orm.WithSelect(columns...)(&next.opts)
	return next
}

// Order 追加升序排序
func (d *Dataset[T]) Order(column string) *Dataset[T] {
	return d.order(column, false)
}

// OrderDesc 追加降序排序
func (d *Dataset[T]) OrderDesc(column string) *Dataset[T] {
	return d.order(column, true)
}

func (d *Dataset[T]) order(column string, desc bool) *Dataset[T] {
	if !dbsql.IsSafeIdentifier(column) {
		return d.fail(fmt.Errorf("%w: order column %q", orm.ErrUnsafeIdentifier, column))
	}
	next := d.clone()
	orm.WithOrderBy(column, desc)(&next.opts)
	return next
}

// Limit 限制返回行数
func (d *Dataset[T]) Limit(n int) *Dataset[T] {
	next := d.clone()
	next.opts.Limit = 0
	orm.WithLimit(n)(&next.opts)
	return next
}

// Offset 跳过前 n 行
func (d *Dataset[T]) Offset(n int) *Dataset[T] {
	next := d.clone()
	next.opts.Offset = 0
	orm.WithOffset(n)(&next.opts)
	return next
}

func (d *Dataset[T]) selectBuilder(columns ...string) dbsql.ISelectBuilder {
	if len(columns) == 0 {
		if len(d.opts.Select) > 0 {
			for _, col := range d.opts.Select {
				columns = append(columns, d.column(col))
			}
		} else if len(d.opts.Joins) > 0 {
			columns = []string{d.column(d.table + ".*")}
		} else {
			columns = []string{"*"}
		}
	}
	b := d.sql.Select(columns...).From(d.dialect.QuoteIdentifier(d.table))
	for _, j := range d.opts.Joins {
		b = b.Join(j.Expr, j.Args...)
	}
	for _, w := range d.opts.Where {
		b = b.Where(w.Expr, w.Args...)
	}
	return b
}

func (d *Dataset[T]) orderBy() string {
	parts := make([]string, 0, len(d.opts.OrderBy))
	for _, o := range d.opts.OrderBy {
		expr := d.column(o.Column)
		if o.Desc {
			expr += " DESC"
		}
		parts = append(parts, expr)
	}
	return strings.Join(parts, ", ")
}

func (d *Dataset[T]) queryRows(ctx context.Context, q string, args []any) (core.IRows, error) {
	d.log().Debug(ctx, "dataset query", logging.Table(d.table), logging.SQL(q), logging.Int("args", len(args)))
	return d.db.Query(ctx, q, args...)
}

func (d *Dataset[T]) exec(ctx context.Context, q string, args []any) (sql.Result, error) {
	d.log().Debug(ctx, "dataset exec", logging.Table(d.table), logging.SQL(q), logging.Int("args", len(args)))
	return d.db.Exec(ctx, q, args...)
}

// All 返回全部匹配行（经过行映射函数）
func (d *Dataset[T]) All(ctx context.Context) ([]T, error) {
	rows, _, err := d.AllWithColumns(ctx)
	return rows, err
}

// AllWithColumns 返回全部匹配行以及列元信息；失败时不返回部分结果
func (d *Dataset[T]) AllWithColumns(ctx context.Context) ([]T, []Column, error) {
	if d.err != nil {
		return nil, nil, d.err
	}
	b := d.selectBuilder().OrderBy(d.orderBy()).Limit(d.opts.Limit).Offset(d.opts.Offset)
	q, args := b.Build()

	rows, err := d.queryRows(ctx, q, args)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := columnsOf(rows)
	if err != nil {
		return nil, nil, err
	}

	var out []T
	for rows.Next() {
		rec, err := scanRecord(rows, columns)
		if err != nil {
			return nil, nil, err
		}
		v, err := d.rowFn(rec)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return out, columns, nil
}

// First 返回第一行；没有匹配行时返回零值与 nil 错误
func (d *Dataset[T]) First(ctx context.Context) (T, error) {
	var zero T
	rows, err := d.Limit(1).All(ctx)
	if err != nil || len(rows) == 0 {
		return zero, err
	}
	return rows[0], nil
}

// Count 返回匹配行数（SELECT COUNT(*)，不读取整行）
func (d *Dataset[T]) Count(ctx context.Context) (int64, error) {
	if d.err != nil {
		return 0, d.err
	}
	q, args := d.selectBuilder("COUNT(*)").Build()
	d.log().Debug(ctx, "dataset count", logging.Table(d.table), logging.SQL(q), logging.Int("args", len(args)))

	var n int64
	if err := d.db.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func sortedColumns(attrs map[string]any) ([]string, error) {
	cols := make([]string, 0, len(attrs))
	for k := range attrs {
		if !dbsql.IsSafeIdentifier(k) || strings.Contains(k, ".") {
			return nil, fmt.Errorf("%w: column %q", orm.ErrUnsafeIdentifier, k)
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols, nil
}

// Insert 插入单行并返回生成的主键。
//
// 支持 RETURNING 的方言（Postgres）通过 RETURNING 取回主键，其余方言使用 LastInsertId。
// 数据库错误原样返回，此时不返回主键。
func (d *Dataset[T]) Insert(ctx context.Context, attrs map[string]any) (any, error) {
	if d.err != nil {
		return nil, d.err
	}
	if len(attrs) == 0 {
		return nil, orm.ErrEmptyAttributes
	}
	cols, err := sortedColumns(attrs)
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = attrs[c]
	}

	b := d.sql.InsertInto(d.table).Columns(cols...).Values(vals...)
	if d.primaryKey == "" {
		q, args := b.Build()
		_, err := d.exec(ctx, q, args)
		return nil, err
	}
	if d.dialect.SupportsReturning() {
		b = b.Returning(d.primaryKey)
		q, args := b.Build()
		d.log().Debug(ctx, "dataset insert", logging.Table(d.table), logging.SQL(q), logging.Int("args", len(args)))
		var id any
		if err := d.db.QueryRow(ctx, q, args...).Scan(&id); err != nil {
			return nil, err
		}
		return normalizeValue(id), nil
	}

	q, args := b.Build()
	res, err := d.exec(ctx, q, args)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return id, nil
}

// Update 更新全部匹配行，返回受影响行数
func (d *Dataset[T]) Update(ctx context.Context, attrs map[string]any) (int64, error) {
	if d.err != nil {
		return 0, d.err
	}
	if len(d.opts.Joins) > 0 {
		return 0, fmt.Errorf("%w: update on joined dataset %s", orm.ErrUnsupported, d.table)
	}
	if len(attrs) == 0 {
		return 0, orm.ErrEmptyAttributes
	}
	cols, err := sortedColumns(attrs)
	if err != nil {
		return 0, err
	}

	b := d.sql.Update(d.table)
	for _, c := range cols {
		b = b.Set(c, attrs[c])
	}
	for _, w := range d.opts.Where {
		b = b.Where(w.Expr, w.Args...)
	}
	q, args := b.Build()
	res, err := d.exec(ctx, q, args)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete 删除全部匹配行，返回受影响行数
func (d *Dataset[T]) Delete(ctx context.Context) (int64, error) {
	if d.err != nil {
		return 0, d.err
	}
	if len(d.opts.Joins) > 0 {
		return 0, fmt.Errorf("%w: delete on joined dataset %s", orm.ErrUnsupported, d.table)
	}
	b := d.sql.DeleteFrom(d.table)
	for _, w := range d.opts.Where {
		b = b.Where(w.Expr, w.Args...)
	}
	q, args := b.Build()
	res, err := d.exec(ctx, q, args)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Truncate 清空整表并重置自增计数器（忽略过滤条件）
func (d *Dataset[T]) Truncate(ctx context.Context) error {
	if d.err != nil {
		return d.err
	}
	if len(d.opts.Joins) > 0 {
		return fmt.Errorf("%w: truncate on joined dataset %s", orm.ErrUnsupported, d.table)
	}
	for _, stmt := range d.dialect.TruncateStatements(d.table) {
		if _, err := d.exec(ctx, stmt.SQL, stmt.Args); err != nil {
			if stmt.IgnoreError {
				d.log().Debug(ctx, "dataset truncate step skipped", logging.Table(d.table), logging.Error(err))
				continue
			}
			return err
		}
	}
	return nil
}

// Execute 原样执行语句，不应用过滤条件，也不做任何转义
func (d *Dataset[T]) Execute(ctx context.Context, stmt string, args ...any) (sql.Result, error) {
	return d.exec(ctx, stmt, args)
}

func columnsOf(rows core.IRows) ([]Column, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	columns := make([]Column, len(names))
	for i, n := range names {
		columns[i] = Column{Name: n}
	}
	// 部分驱动不提供列类型，此时只返回列名
	types, err := rows.ColumnTypes()
	if err != nil || len(types) != len(names) {
		return columns, nil
	}
	for i, ct := range types {
		columns[i].DatabaseType = ct.DatabaseTypeName()
		columns[i].Nullable, columns[i].NullableKnown = ct.Nullable()
	}
	return columns, nil
}

func scanRecord(rows core.IRows, columns []Column) (Record, error) {
	vals := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	rec := make(Record, len(columns))
	for i, c := range columns {
		rec[c.Name] = normalizeValue(vals[i])
	}
	return rec, nil
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
