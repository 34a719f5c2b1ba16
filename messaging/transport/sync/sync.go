// Package sync 同步消息传输：Publish 在调用方的 goroutine 中依次执行处理器。
//
// 处理器错误会汇总后返回给发布者；lifecycle 只记录这些错误，不影响写入结果。
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"datastorm/messaging"
)

// SyncTransport 同步传输
type SyncTransport struct {
	handlers messaging.Registry
	mutex    sync.RWMutex
	running  bool
}

// NewSyncTransport 创建同步传输
func NewSyncTransport() *SyncTransport {
	return &SyncTransport{handlers: make(messaging.Registry)}
}

// Publish 调用精确匹配与 "*" 处理器；没有处理器不是错误
func (t *SyncTransport) Publish(ctx context.Context, message messaging.IMessage) error {
	t.mutex.RLock()
	if !t.running {
		t.mutex.RUnlock()
		return fmt.Errorf("sync transport is not running")
	}
	handlers := t.handlers.Snapshot()
	t.mutex.RUnlock()

	if errs := messaging.Dispatch(ctx, handlers, message); len(errs) > 0 {
		return fmt.Errorf("message %s handled with %d errors: %w", message.GetType(), len(errs), errors.Join(errs...))
	}
	return nil
}

// PublishAll 依次发布，遇到第一个失败即返回
func (t *SyncTransport) PublishAll(ctx context.Context, messages []messaging.IMessage) error {
	for _, message := range messages {
		if err := t.Publish(ctx, message); err != nil {
			return fmt.Errorf("failed to publish message %s: %w", message.GetID(), err)
		}
	}
	return nil
}

func (t *SyncTransport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.handlers.Add(messageType, handler)
	return nil
}

func (t *SyncTransport) Unsubscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.handlers.Remove(messageType, handler)
}

func (t *SyncTransport) Start(context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.running {
		return fmt.Errorf("sync transport is already running")
	}
	t.running = true
	return nil
}

func (t *SyncTransport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.running {
		return fmt.Errorf("sync transport is not running")
	}
	t.running = false
	return nil
}

func (t *SyncTransport) Stats() messaging.TransportStats {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.handlers.Stats(t.running)
}
