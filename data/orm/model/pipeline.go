package model

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ValidatorFunc 字段校验器。
//
// 发现问题时调用 inst.Errors().Add(field, msg) 并返回 nil；
// 返回非 nil 错误表示校验本身失败（例如唯一性查询出错），Save 会中止并返回该错误。
// 同一字段的校验器按注册顺序串行执行，不同字段的校验器并发执行，
// 因此校验器只应读取实例，不应修改字段值。
type ValidatorFunc func(ctx context.Context, inst *Instance, field string, value any) error

// Validate 为字段追加校验器（按注册顺序执行）
func (m *Model) Validate(field string, fns ...ValidatorFunc) *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			m.validators[field] = append(m.validators[field], fn)
		}
	}
	return m
}

// Validators 返回字段已注册的校验器数量
func (m *Model) Validators(field string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.validators[field])
}

func (m *Model) validatorSnapshot() (fields []string, byField map[string][]ValidatorFunc) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byField = make(map[string][]ValidatorFunc, len(m.validators))
	for f, fns := range m.validators {
		if len(fns) == 0 {
			continue
		}
		fields = append(fields, f)
		byField[f] = append([]ValidatorFunc(nil), fns...)
	}
	sort.Strings(fields)
	return fields, byField
}

// Validate 执行校验流水线，返回是否没有任何字段错误。
//
// 选择规则：字段至少有一个校验器，并且（实例为新实例，或该字段是脏字段）。
// 每次执行前清空上一次的错误与执行标记；流水线等待所有被选中的校验器返回后才结束。
func (i *Instance) Validate(ctx context.Context) (bool, error) {
	i.errors.Clear()
	i.resetRan()

	fields, byField := i.model.validatorSnapshot()
	g, gctx := errgroup.WithContext(ctx)
	for _, field := range fields {
		if !i.isNew && !i.IsDirty(field) {
			continue
		}
		fns := byField[field]
		value := i.values[field]
		g.Go(func() error {
			i.markRan(field)
			for _, fn := range fns {
				if err := fn(gctx, i, field, value); err != nil {
					return fmt.Errorf("validate %s.%s: %w", i.model.name, field, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	return i.errors.Empty(), nil
}
