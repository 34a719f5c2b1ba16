package model

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/spf13/cast"
)

// 结构体与实例属性之间的映射。
//
// 列名解析顺序：gorm:"column:x" > db:"x" > json:"x" > 字段名的蛇形形式；
// db:"-" 或 json:"-" 的字段被忽略，内嵌结构体会被展开。

type fieldInfo struct {
	Column     string
	Index      []int
	PrimaryKey bool
}

type structMeta struct {
	fields []fieldInfo
}

var structCache sync.Map // reflect.Type -> *structMeta

func structMetaFor(t reflect.Type) *structMeta {
	if sm, ok := structCache.Load(t); ok {
		return sm.(*structMeta)
	}
	sm := buildStructMeta(t)
	actual, _ := structCache.LoadOrStore(t, sm)
	return actual.(*structMeta)
}

func buildStructMeta(t reflect.Type) *structMeta {
	sm := &structMeta{}
	var walk func(reflect.Type, []int)
	walk = func(cur reflect.Type, prefix []int) {
		for i := 0; i < cur.NumField(); i++ {
			f := cur.Field(i)
			if f.PkgPath != "" {
				continue
			}
			index := append(append([]int(nil), prefix...), i)

			if f.Anonymous && f.Type.Kind() == reflect.Struct && !isTimeType(f.Type) {
				walk(f.Type, index)
				continue
			}
			if !isScalarDBField(f.Type) {
				continue
			}

			col, pk, skip := parseColumnTag(f)
			if skip {
				continue
			}
			if col == "" {
				col = toSnakeCase(f.Name)
			}
			sm.fields = append(sm.fields, fieldInfo{Column: col, Index: index, PrimaryKey: pk})
		}
	}
	walk(t, nil)
	return sm
}

func isScalarDBField(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if isTimeType(t) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func isTimeType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() == "time" && t.Name() == "Time"
}

func parseColumnTag(f reflect.StructField) (column string, primaryKey, skip bool) {
	if gormTag := f.Tag.Get("gorm"); gormTag != "" {
		for _, part := range strings.Split(gormTag, ";") {
			part = strings.TrimSpace(part)
			switch {
			case part == "-":
				return "", false, true
			case strings.HasPrefix(part, "column:"):
				column = strings.TrimPrefix(part, "column:")
			case strings.EqualFold(part, "primaryKey"), strings.EqualFold(part, "primary_key"):
				primaryKey = true
			}
		}
	}
	if column == "" {
		if dbTag := f.Tag.Get("db"); dbTag != "" {
			column = strings.Split(dbTag, ",")[0]
		} else if jsonTag := f.Tag.Get("json"); jsonTag != "" {
			column = strings.Split(jsonTag, ",")[0]
		}
	}
	if column == "-" {
		return "", false, true
	}
	return column, primaryKey, false
}

func toSnakeCase(s string) string {
	var sb strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			// ID -> id，UserID -> user_id
			if i > 0 && (runes[i-1] < 'A' || runes[i-1] > 'Z' ||
				(i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z')) {
				sb.WriteByte('_')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func structValue(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("model: nil %T", v)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("model: %T is not a struct", v)
	}
	return rv, nil
}

// NewFromStruct 由结构体字段构造新实例；值为零的主键字段不写入，交由数据库生成
func (m *Model) NewFromStruct(src any) (*Instance, error) {
	rv, err := structValue(src)
	if err != nil {
		return nil, err
	}
	attrs := make(map[string]any)
	for _, f := range structMetaFor(rv.Type()).fields {
		fv := rv.FieldByIndex(f.Index)
		if (f.PrimaryKey || f.Column == m.primaryKey) && fv.IsZero() {
			continue
		}
		if fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				attrs[f.Column] = nil
				continue
			}
			fv = fv.Elem()
		}
		attrs[f.Column] = fv.Interface()
	}
	return m.New(attrs)
}

// Bind 将实例当前值写入 dest（指向结构体的指针），实例中不存在的列保持原值
func (i *Instance) Bind(dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("model: Bind requires a non-nil pointer, got %T", dest)
	}
	sv, err := structValue(dest)
	if err != nil {
		return err
	}
	for _, f := range structMetaFor(sv.Type()).fields {
		v, ok := i.values[f.Column]
		if !ok {
			continue
		}
		if err := assign(sv.FieldByIndex(f.Index), v); err != nil {
			return fmt.Errorf("model: bind %s: %w", f.Column, err)
		}
	}
	return nil
}

func assign(field reflect.Value, v any) error {
	if v == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if field.Kind() == reflect.Ptr {
		ptr := reflect.New(field.Type().Elem())
		if err := assign(ptr.Elem(), v); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	if isTimeType(field.Type()) {
		t, err := cast.ToTimeE(v)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(t))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(v)
		if err != nil {
			return err
		}
		field.SetString(s)
	case reflect.Bool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(v)
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := cast.ToFloat64E(v)
		if err != nil {
			return err
		}
		field.SetFloat(n)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}
