package model

import (
	"context"
	"fmt"
)

// Hook 生命周期挂载点
type Hook string

const (
	BeforeSave    Hook = "before_save"
	AfterCreate   Hook = "after_create"
	AfterUpdate   Hook = "after_update"
	BeforeDestroy Hook = "before_destroy"
	AfterDestroy  Hook = "after_destroy"
)

// HookFunc 生命周期步骤。返回错误会中止后续步骤，并作为操作结果返回。
type HookFunc func(ctx context.Context, inst *Instance) error

// On 按注册顺序追加生命周期步骤
func (m *Model) On(hook Hook, fn HookFunc) *Model {
	if fn == nil {
		return m
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[hook] = append(m.hooks[hook], fn)
	return m
}

func (m *Model) runHooks(ctx context.Context, hook Hook, inst *Instance) error {
	m.mu.RLock()
	steps := append([]HookFunc(nil), m.hooks[hook]...)
	m.mu.RUnlock()

	for i, step := range steps {
		if err := step(ctx, inst); err != nil {
			return fmt.Errorf("%s %s step %d: %w", m.name, hook, i, err)
		}
	}
	return nil
}
