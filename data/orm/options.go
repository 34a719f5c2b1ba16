package orm

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	dbsql "datastorm/data/db/sql"
)

// Condition 表示基础查询条件，Expr 使用占位符 ?，Args 对应参数列表。
type Condition struct {
	Expr string
	Args []any
}

// Cond 相等条件集合：列名 -> 值。
//
//   - nil 值生成 IS NULL；
//   - 切片（[]byte 除外）生成 IN (...)，空切片生成恒假条件；
//   - 其余值生成 = ?。
//
// 列名可带表名前缀（lists_tags.list_id），多个列之间为 AND 关系。
type Cond map[string]any

// Condition 将 Cond 转为带占位符的 Condition，列名按字典序排列以保证语句稳定。
// quote 为方言的标识符引用函数。
func (c Cond) Condition(quote func(string) string) (Condition, error) {
	if len(c) == 0 {
		return Condition{}, nil
	}
	keys := make([]string, 0, len(c))
	for k := range c {
		if !dbsql.IsSafeIdentifier(k) {
			return Condition{}, fmt.Errorf("%w: %q", ErrUnsafeIdentifier, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	var args []any
	for _, k := range keys {
		col := quote(k)
		v := c[k]
		if v == nil {
			parts = append(parts, col+" IS NULL")
			continue
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			if rv.Len() == 0 {
				parts = append(parts, "1 = 0")
				continue
			}
			ph := make([]string, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				ph[i] = "?"
				args = append(args, rv.Index(i).Interface())
			}
			parts = append(parts, col+" IN ("+strings.Join(ph, ", ")+")")
			continue
		}
		parts = append(parts, col+" = ?")
		args = append(args, v)
	}
	return Condition{Expr: strings.Join(parts, " AND "), Args: args}, nil
}

// OrderBy 表示排序字段。
type OrderBy struct {
	Column string
	Desc   bool
}

// Join 表示查询关联。
type Join struct {
	Expr string
	Args []any
}

// QueryOptions 描述数据集的查询状态。
type QueryOptions struct {
	Where   []Condition
	Joins   []Join
	OrderBy []OrderBy
	Limit   int
	Offset  int
	Select  []string
}

// Clone 深拷贝切片字段，派生出的数据集互不影响。
func (o QueryOptions) Clone() QueryOptions {
	return QueryOptions{
		Where:   append([]Condition(nil), o.Where...),
		Joins:   append([]Join(nil), o.Joins...),
		OrderBy: append([]OrderBy(nil), o.OrderBy...),
		Limit:   o.Limit,
		Offset:  o.Offset,
		Select:  append([]string(nil), o.Select...),
	}
}

// QueryOption 用于配置 QueryOptions。
type QueryOption func(*QueryOptions)

// WithWhere 追加查询条件。
func WithWhere(expr string, args ...any) QueryOption {
	return func(opts *QueryOptions) {
		if expr == "" {
			return
		}
		opts.Where = append(opts.Where, Condition{Expr: expr, Args: args})
	}
}

// WithJoin 追加 JOIN 片段。
func WithJoin(expr string, args ...any) QueryOption {
	return func(opts *QueryOptions) {
		if expr == "" {
			return
		}
		opts.Joins = append(opts.Joins, Join{Expr: expr, Args: args})
	}
}

// WithOrderBy 追加排序。
func WithOrderBy(column string, desc bool) QueryOption {
	return func(opts *QueryOptions) {
		if column == "" {
			return
		}
		opts.OrderBy = append(opts.OrderBy, OrderBy{Column: column, Desc: desc})
	}
}

// WithLimit 设置查询条数上限。
func WithLimit(limit int) QueryOption {
	return func(opts *QueryOptions) {
		if limit > 0 {
			opts.Limit = limit
		}
	}
}

// WithOffset 设置查询偏移。
func WithOffset(offset int) QueryOption {
	return func(opts *QueryOptions) {
		if offset > 0 {
			opts.Offset = offset
		}
	}
}

// WithSelect 指定返回列。
func WithSelect(columns ...string) QueryOption {
	return func(opts *QueryOptions) {
		if len(columns) == 0 {
			return
		}
		opts.Select = append(opts.Select, columns...)
	}
}

// CollectQueryOptions 聚合 QueryOption。
func CollectQueryOptions(options ...QueryOption) QueryOptions {
	var opts QueryOptions
	for _, opt := range options {
		if opt != nil {
			opt(&opts)
		}
	}
	return opts
}
