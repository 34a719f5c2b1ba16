// Package model 在 dataset 之上提供有状态的模型实例：
// 字段脏检查、保存/创建/删除生命周期、关联解析与并发字段校验。
//
// 每张表对应一个 *Model，统一注册在 *Registry 上；
// 实例只持有指向所属 Model 的指针，校验器、钩子、关联等元信息由全部实例共享。
package model

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	core "datastorm/data/db"
	"datastorm/data/orm"
	"datastorm/logging"
)

// Registry 模型注册表，通常在启动时构建一次
type Registry struct {
	db     core.IDatabase
	logger logging.Logger

	mu     sync.RWMutex
	models map[string]*Model
}

// RegistryOption 配置 Registry
type RegistryOption func(*Registry)

// WithLogger 指定模型与数据集使用的日志器（默认使用全局 Logger）
func WithLogger(logger logging.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry 创建绑定网关的注册表
func NewRegistry(db core.IDatabase, opts ...RegistryOption) *Registry {
	r := &Registry{
		db:     db,
		models: make(map[string]*Model),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// DB 返回注册表绑定的网关
func (r *Registry) DB() core.IDatabase { return r.db }

func (r *Registry) log() logging.Logger {
	if r.logger != nil {
		return r.logger
	}
	return logging.GetLogger()
}

// Define 定义（或重新定义）模型。name 使用单数蛇形命名，例如 list、line_item。
func (r *Registry) Define(name string, opts ...Option) *Model {
	name = strings.ToLower(strings.TrimSpace(name))
	m := &Model{
		registry:   r,
		name:       name,
		display:    orm.DisplayName(name),
		table:      orm.TableName(name),
		primaryKey: "id",
		validators: make(map[string][]ValidatorFunc),
		hooks:      make(map[Hook][]HookFunc),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	r.mu.Lock()
	r.models[name] = m
	r.mu.Unlock()
	return m
}

// Lookup 按模型名查找；也接受复数形式（items -> item）
func (r *Registry) Lookup(name string) (*Model, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.models[key]; ok {
		return m, nil
	}
	if m, ok := r.models[orm.Singular(key)]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", orm.ErrUnknownModel, name)
}

// Models 返回已注册的模型名（排序）
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for n := range r.models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
