// Package lifecycle 把模型的 after_create / after_update / after_destroy 步骤
// 桥接到消息传输：每次成功写入后发布一条 RecordEvent。
package lifecycle

import (
	"context"

	"datastorm/data/orm/model"
	sharederrors "datastorm/errors"
	"datastorm/logging"
	"datastorm/messaging"
)

type options struct {
	logger   logging.Logger
	metadata map[string]any
	actions  map[string]bool
	strict   bool
}

// Option 配置 Attach
type Option func(*options)

// WithLogger 指定发布失败时使用的日志器
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetadata 为每条事件附加元数据
func WithMetadata(key string, value any) Option {
	return func(o *options) { o.metadata[key] = value }
}

// WithActions 只发布指定动作（默认全部）
func WithActions(actions ...string) Option {
	return func(o *options) {
		o.actions = make(map[string]bool, len(actions))
		for _, a := range actions {
			o.actions[a] = true
		}
	}
}

// WithStrict 发布失败时把 PUBLISH_ERROR 返回给 Save/Destroy 的调用方。
// 此时数据已经写入，调用方不应据此重试写入。
func WithStrict() Option {
	return func(o *options) { o.strict = true }
}

var hookActions = []struct {
	hook   model.Hook
	action string
}{
	{model.AfterCreate, messaging.ActionCreated},
	{model.AfterUpdate, messaging.ActionUpdated},
	{model.AfterDestroy, messaging.ActionDestroyed},
}

// Attach 在模型上注册事件发布步骤。
//
// 发布失败记录 warn 日志；默认不影响 Save/Destroy 的结果，见 WithStrict。
func Attach(m *model.Model, transport messaging.Transport, opts ...Option) {
	o := &options{
		logger:   logging.GetLogger().WithFields(logging.String("component", "lifecycle")),
		metadata: make(map[string]any),
	}
	for _, opt := range opts {
		opt(o)
	}
	for _, ha := range hookActions {
		if o.actions != nil && !o.actions[ha.action] {
			continue
		}
		m.On(ha.hook, publisher(transport, o, ha.action))
	}
}

func publisher(transport messaging.Transport, o *options, action string) model.HookFunc {
	return func(ctx context.Context, inst *model.Instance) error {
		msg := NewEvent(inst, action)
		for k, v := range o.metadata {
			msg.SetMetadata(k, v)
		}
		err := sharederrors.WrapWithLog(ctx, o.logger, transport.Publish(ctx, msg),
			sharederrors.ErrCodePublish, "publish lifecycle event failed",
			logging.String("type", msg.Type),
			logging.Table(inst.TableName()))
		if err != nil && o.strict {
			return err
		}
		return nil
	}
}

// NewEvent 由实例当前状态构造事件消息
func NewEvent(inst *model.Instance, action string) *messaging.Message {
	m := inst.Model()
	return messaging.NewMessage(messaging.EventType(m.Name(), action), messaging.RecordEvent{
		Model:      m.Name(),
		Table:      m.Table(),
		Action:     action,
		ID:         inst.PersistedID(),
		Attributes: inst.Attributes(),
	})
}
