package messaging

import (
	"context"
	"fmt"
	"sort"
)

// Transport 消息传输接口
type Transport interface {
	Publish(ctx context.Context, message IMessage) error
	PublishAll(ctx context.Context, messages []IMessage) error
	Subscribe(messageType string, handler IMessageHandler) error
	Unsubscribe(messageType string, handler IMessageHandler) error
	Start(ctx context.Context) error
	Close() error
	Stats() TransportStats
}

// TransportStats 传输层统计信息
type TransportStats struct {
	Running      bool     `json:"running"`
	HandlerCount int      `json:"handler_count"`
	MessageTypes []string `json:"message_types"`
	QueueSize    int      `json:"queue_size,omitempty"`
	QueueDepth   int      `json:"queue_depth,omitempty"`
	WorkerCount  int      `json:"worker_count,omitempty"`
}

// Registry 处理器表，供各传输实现复用订阅管理；调用方负责加锁
type Registry map[string][]IMessageHandler

// Add 追加处理器
func (r Registry) Add(messageType string, handler IMessageHandler) {
	r[messageType] = append(r[messageType], handler)
}

// Remove 移除处理器；不存在时返回错误
func (r Registry) Remove(messageType string, handler IMessageHandler) error {
	handlers := r[messageType]
	for i, h := range handlers {
		if h == handler {
			r[messageType] = append(handlers[:i:i], handlers[i+1:]...)
			if len(r[messageType]) == 0 {
				delete(r, messageType)
			}
			return nil
		}
	}
	return fmt.Errorf("handler not found for message type %s", messageType)
}

// Snapshot 拷贝处理器表，释放锁后仍可安全遍历
func (r Registry) Snapshot() map[string][]IMessageHandler {
	out := make(map[string][]IMessageHandler, len(r))
	for mt, hs := range r {
		out[mt] = append([]IMessageHandler(nil), hs...)
	}
	return out
}

// Stats 统计处理器数量与消息类型（排序）
func (r Registry) Stats(running bool) TransportStats {
	stats := TransportStats{Running: running, MessageTypes: make([]string, 0, len(r))}
	for mt, hs := range r {
		stats.HandlerCount += len(hs)
		stats.MessageTypes = append(stats.MessageTypes, mt)
	}
	sort.Strings(stats.MessageTypes)
	return stats
}
