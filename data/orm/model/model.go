package model

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"datastorm/data/dataset"
	"datastorm/data/orm"
)

// Model 一张表的模式：表名、主键、声明字段、关联、校验器与生命周期步骤
type Model struct {
	registry *Registry

	name       string
	display    string
	table      string
	primaryKey string
	fields     []orm.FieldMeta
	uuidKeys   bool

	mu           sync.RWMutex
	associations []orm.AssociationMeta
	validators   map[string][]ValidatorFunc
	hooks        map[Hook][]HookFunc
}

// Option 配置 Model
type Option func(*Model)

// WithTable 覆盖默认表名（默认为模型名的复数）
func WithTable(table string) Option {
	return func(m *Model) {
		if table != "" {
			m.table = table
		}
	}
}

// WithPrimaryKey 覆盖默认主键列 id
func WithPrimaryKey(column string) Option {
	return func(m *Model) {
		if column != "" {
			m.primaryKey = column
		}
	}
}

// WithFields 声明列集合；声明后给未知字段赋值会返回 orm.ErrUnknownField。
// 不声明时模型不限制列，由数据库拒绝未知列。
func WithFields(columns ...string) Option {
	return func(m *Model) {
		for _, c := range columns {
			m.fields = append(m.fields, orm.FieldMeta{Name: c, Column: c})
		}
	}
}

// WithUUIDKeys 新实例保存时若主键为空，生成 UUIDv7 字符串主键
func WithUUIDKeys() Option {
	return func(m *Model) { m.uuidKeys = true }
}

// Name 模型名（list）
func (m *Model) Name() string { return m.name }

// DisplayName 展示名（List）
func (m *Model) DisplayName() string { return m.display }

// Table 表名（lists）
func (m *Model) Table() string { return m.table }

// PrimaryKey 主键列
func (m *Model) PrimaryKey() string { return m.primaryKey }

// Registry 所属注册表
func (m *Model) Registry() *Registry { return m.registry }

// Meta 返回模型元信息快照
func (m *Model) Meta() orm.ModelMeta {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return orm.ModelMeta{
		Name:         m.name,
		Table:        m.table,
		PrimaryKey:   m.primaryKey,
		Fields:       append([]orm.FieldMeta(nil), m.fields...),
		Associations: append([]orm.AssociationMeta(nil), m.associations...),
	}
}

func (m *Model) hasField(column string) bool {
	meta := orm.ModelMeta{PrimaryKey: m.primaryKey, Fields: m.fields}
	return meta.HasField(column)
}

// RawDataset 返回本表的原始记录数据集
func (m *Model) RawDataset() *dataset.Dataset[dataset.Record] {
	return dataset.New(m.registry.db, m.table,
		dataset.WithPrimaryKey(m.primaryKey),
		dataset.WithLogger(m.registry.logger),
	)
}

// Dataset 返回行映射为本模型实例的数据集
func (m *Model) Dataset() *dataset.Dataset[*Instance] {
	return dataset.Map(m.RawDataset(), m.load)
}

func (m *Model) load(rec dataset.Record) (*Instance, error) {
	return newLoaded(m, rec), nil
}

// Find 按主键查找；不存在时返回 (nil, nil)
func (m *Model) Find(ctx context.Context, id any) (*Instance, error) {
	return m.Dataset().Where(orm.Cond{m.primaryKey: id}).First(ctx)
}

// All 返回全部实例
func (m *Model) All(ctx context.Context) ([]*Instance, error) {
	return m.Dataset().All(ctx)
}

// First 返回第一条实例；表为空时返回 (nil, nil)
func (m *Model) First(ctx context.Context) (*Instance, error) {
	return m.Dataset().First(ctx)
}

// Count 返回行数
func (m *Model) Count(ctx context.Context) (int64, error) {
	return m.Dataset().Count(ctx)
}

// Where 返回按条件过滤的实例数据集
func (m *Model) Where(cond orm.Cond) *dataset.Dataset[*Instance] {
	return m.Dataset().Where(cond)
}

// New 用调用方提供的属性构造新实例（尚未保存）
func (m *Model) New(attrs map[string]any) (*Instance, error) {
	inst := &Instance{
		model:    m,
		values:   make(map[string]any, len(attrs)),
		snapshot: make(map[string]any),
		isNew:    true,
		errors:   newErrors(),
		ran:      make(map[string]bool),
	}
	for k, v := range attrs {
		if err := inst.Set(k, v); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// Create 构造新实例并立即保存
func (m *Model) Create(ctx context.Context, attrs map[string]any) (*Instance, SaveResult, error) {
	inst, err := m.New(attrs)
	if err != nil {
		return nil, SaveResult{}, err
	}
	res, err := inst.Save(ctx)
	return inst, res, err
}

// Truncate 清空表并重置自增计数器
func (m *Model) Truncate(ctx context.Context) error {
	return m.RawDataset().Truncate(ctx)
}

// Execute 原样执行语句
func (m *Model) Execute(ctx context.Context, stmt string, args ...any) (sql.Result, error) {
	return m.RawDataset().Execute(ctx, stmt, args...)
}

func (m *Model) String() string {
	return fmt.Sprintf("%s(%s)", m.display, m.table)
}
