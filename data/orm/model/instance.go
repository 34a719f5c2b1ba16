package model

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"datastorm/data/dataset"
	"datastorm/data/orm"
	apperrors "datastorm/errors"
	"datastorm/logging"
)

// SaveResult 保存结果
type SaveResult struct {
	// ID 实例主键（插入时为生成或调用方指定的主键）
	ID any
	// RowsAffected 更新影响的行数；插入时为 0
	RowsAffected int64
	// Created 本次保存是否执行了插入
	Created bool
}

// Instance 模型实例：当前值、快照、new 标记与错误集合。
//
// 实例不是并发安全的，同一实例应只由一个调用方持有；
// 例外是 Errors() 与 Ran()，它们会被并发执行的校验器读写。
type Instance struct {
	model    *Model
	values   map[string]any
	snapshot map[string]any
	isNew    bool
	errors   *Errors

	ranMu sync.Mutex
	ran   map[string]bool
}

func newLoaded(m *Model, rec dataset.Record) *Instance {
	values := make(map[string]any, len(rec))
	for k, v := range rec {
		values[k] = v
	}
	return &Instance{
		model:    m,
		values:   values,
		snapshot: copyValues(values),
		errors:   newErrors(),
		ran:      make(map[string]bool),
	}
}

func copyValues(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Model 所属模型
func (i *Instance) Model() *Model { return i.model }

// TableName 所属表名
func (i *Instance) TableName() string { return i.model.table }

// IsNew 是否尚未成功插入
func (i *Instance) IsNew() bool { return i.isNew }

// Errors 最近一次校验的错误集合
func (i *Instance) Errors() *Errors { return i.errors }

// Get 返回字段当前值
func (i *Instance) Get(field string) any { return i.values[field] }

// String 以字符串形式返回字段值（nil 为空串）
func (i *Instance) String(field string) string { return cast.ToString(i.values[field]) }

// Int64 以 int64 形式返回字段值，无法转换时为 0
func (i *Instance) Int64(field string) int64 { return cast.ToInt64(i.values[field]) }

// ID 当前主键值
func (i *Instance) ID() any { return i.values[i.model.primaryKey] }

// PersistedID 快照中的主键值，即数据库中该行当前的主键；新实例为 nil
func (i *Instance) PersistedID() any { return i.snapshot[i.model.primaryKey] }

// Set 修改字段当前值（不影响快照）；模型声明了字段时拒绝未知字段
func (i *Instance) Set(field string, value any) error {
	if !i.model.hasField(field) {
		return fmt.Errorf("%w: %s.%s", orm.ErrUnknownField, i.model.name, field)
	}
	if b, ok := value.([]byte); ok {
		value = string(b)
	}
	i.values[field] = value
	return nil
}

// Attributes 返回当前值的副本
func (i *Instance) Attributes() map[string]any { return copyValues(i.values) }

// IsDirty 字段当前值是否与快照不同
func (i *Instance) IsDirty(field string) bool {
	old, ok := i.snapshot[field]
	if !ok {
		_, set := i.values[field]
		return set
	}
	return !valuesEqual(i.values[field], old)
}

// Changes 返回脏字段名（排序）
func (i *Instance) Changes() []string {
	var fields []string
	for f := range i.values {
		if i.IsDirty(f) {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)
	return fields
}

// Modified 是否存在与快照不同的字段（纯比较，无 I/O）
func (i *Instance) Modified() bool {
	for f := range i.values {
		if i.IsDirty(f) {
			return true
		}
	}
	return false
}

// Ran 字段的校验器是否在最近一次校验中执行过
func (i *Instance) Ran(field string) bool {
	i.ranMu.Lock()
	defer i.ranMu.Unlock()
	return i.ran[field]
}

func (i *Instance) markRan(field string) {
	i.ranMu.Lock()
	defer i.ranMu.Unlock()
	i.ran[field] = true
}

func (i *Instance) resetRan() {
	i.ranMu.Lock()
	defer i.ranMu.Unlock()
	i.ran = make(map[string]bool)
}

func (i *Instance) log() logging.Logger {
	return i.model.registry.log().WithFields(logging.Table(i.model.table))
}

// Save 校验并写入实例。
//
//   - 校验失败返回 ValidationError（errors.IsValidation），不写数据库；
//   - 新实例插入全部当前值，采用生成的主键（调用方已指定主键时保留指定值）；
//     没有任何属性时返回 orm.ErrEmptyAttributes，实例保持为新；
//   - 已存在的实例只更新脏字段，按快照中的主键定位行；
//   - 已存在且没有脏字段时不发出任何语句，RowsAffected 为 0，也不执行 AfterUpdate。
func (i *Instance) Save(ctx context.Context) (SaveResult, error) {
	if err := i.model.runHooks(ctx, BeforeSave, i); err != nil {
		return SaveResult{}, err
	}
	ok, err := i.Validate(ctx)
	if err != nil {
		return SaveResult{}, err
	}
	if !ok {
		return SaveResult{}, apperrors.NewValidationFailed(i.errors.Fields())
	}
	if i.isNew {
		return i.insert(ctx)
	}
	return i.update(ctx)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func (i *Instance) insert(ctx context.Context) (SaveResult, error) {
	pk := i.model.primaryKey
	if i.model.uuidKeys && isBlank(i.values[pk]) {
		key, err := uuid.NewV7()
		if err != nil {
			return SaveResult{}, err
		}
		i.values[pk] = key.String()
	}

	attrs := copyValues(i.values)
	if isBlank(attrs[pk]) {
		delete(attrs, pk)
	}

	id, err := i.model.RawDataset().Insert(ctx, attrs)
	if err != nil {
		return SaveResult{}, err
	}
	if isBlank(i.values[pk]) {
		i.values[pk] = id
	}
	i.isNew = false
	i.snapshot = copyValues(i.values)
	i.log().Debug(ctx, "instance created", logging.Any("id", i.ID()))

	res := SaveResult{ID: i.ID(), Created: true}
	if err := i.model.runHooks(ctx, AfterCreate, i); err != nil {
		return res, err
	}
	return res, nil
}

func (i *Instance) update(ctx context.Context) (SaveResult, error) {
	changes := i.Changes()
	if len(changes) == 0 {
		return SaveResult{ID: i.ID()}, nil
	}
	attrs := make(map[string]any, len(changes))
	for _, f := range changes {
		attrs[f] = i.values[f]
	}

	n, err := i.model.RawDataset().
		Where(orm.Cond{i.model.primaryKey: i.PersistedID()}).
		Update(ctx, attrs)
	if err != nil {
		return SaveResult{}, err
	}
	i.snapshot = copyValues(i.values)
	i.log().Debug(ctx, "instance updated", logging.Any("id", i.ID()), logging.Any("fields", changes))

	res := SaveResult{ID: i.ID(), RowsAffected: n}
	if err := i.model.runHooks(ctx, AfterUpdate, i); err != nil {
		return res, err
	}
	return res, nil
}

// Delete 按快照主键删除对应行并返回实例本身；未保存过的实例返回 orm.ErrNotPersisted
func (i *Instance) Delete(ctx context.Context) (*Instance, error) {
	if i.isNew {
		return nil, fmt.Errorf("%w: %s", orm.ErrNotPersisted, i.model.name)
	}
	if _, err := i.model.RawDataset().Where(orm.Cond{i.model.primaryKey: i.PersistedID()}).Delete(ctx); err != nil {
		return nil, err
	}
	i.log().Debug(ctx, "instance deleted", logging.Any("id", i.PersistedID()))
	return i, nil
}

// Destroy 依次执行 BeforeDestroy 步骤、Delete、AfterDestroy 步骤
func (i *Instance) Destroy(ctx context.Context) (*Instance, error) {
	if err := i.model.runHooks(ctx, BeforeDestroy, i); err != nil {
		return nil, err
	}
	if _, err := i.Delete(ctx); err != nil {
		return nil, err
	}
	if err := i.model.runHooks(ctx, AfterDestroy, i); err != nil {
		return i, err
	}
	return i, nil
}

// valuesEqual 比较字段值：整数按数值比较（int 42 等于 int64 42），
// 数值与浮点按 float64 比较，time.Time 使用 Equal
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ai, ok := asInt(a); ok {
		if bi, ok := asInt(b); ok {
			return ai == bi
		}
	}
	if isNumber(a) && isNumber(b) {
		return cast.ToFloat64(a) == cast.ToFloat64(b)
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
	}
	return reflect.DeepEqual(a, b)
}

func asInt(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	default:
		return 0, false
	}
}

func isNumber(v any) bool {
	if _, ok := asInt(v); ok {
		return true
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Float32 || k == reflect.Float64
}
