// Package memory 提供基于内存队列的消息传输实现，适用于单进程、命令行与测试场景
package memory

import (
	"context"
	"fmt"
	"sync"

	"datastorm/logging"
	"datastorm/messaging"
)

// MemoryTransport 内存消息传输：有界队列 + Worker 池异步分发。
//
// 队列满时 Publish 立即返回错误而不是阻塞；Close 会等待队列中剩余消息分发完毕。
type MemoryTransport struct {
	handlers    messaging.Registry
	queue       chan messaging.IMessage
	queueSize   int
	workerCount int
	logger      logging.Logger

	running bool
	mutex   sync.RWMutex
	wg      sync.WaitGroup
}

// NewMemoryTransport 创建内存传输实例（queueSize<=0 时为 1000，workerCount<=0 时为 4）
func NewMemoryTransport(queueSize, workerCount int) *MemoryTransport {
	if queueSize <= 0 {
		queueSize = 1000
	}
	if workerCount <= 0 {
		workerCount = 4
	}
	return &MemoryTransport{
		handlers:    make(messaging.Registry),
		queue:       make(chan messaging.IMessage, queueSize),
		queueSize:   queueSize,
		workerCount: workerCount,
		logger:      logging.GetLogger().WithFields(logging.String("component", "transport.memory")),
	}
}

// WithLogger 替换日志器
func (t *MemoryTransport) WithLogger(logger logging.Logger) *MemoryTransport {
	if logger != nil {
		t.logger = logger
	}
	return t
}

// Publish 把消息放入队列
func (t *MemoryTransport) Publish(ctx context.Context, message messaging.IMessage) error {
	return t.PublishAll(ctx, []messaging.IMessage{message})
}

// PublishAll 依次入队，遇到第一个失败即返回
func (t *MemoryTransport) PublishAll(ctx context.Context, messages []messaging.IMessage) error {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	if !t.running {
		return fmt.Errorf("memory transport is not running")
	}
	for _, message := range messages {
		select {
		case t.queue <- message:
		case <-ctx.Done():
			return ctx.Err()
		default:
			return fmt.Errorf("message queue is full")
		}
	}
	return nil
}

// Subscribe 订阅消息处理器，messageType 为 "*" 时接收全部消息
func (t *MemoryTransport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.handlers.Add(messageType, handler)
	return nil
}

// Unsubscribe 取消订阅
func (t *MemoryTransport) Unsubscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.handlers.Remove(messageType, handler)
}

// Start 启动 Worker 池
func (t *MemoryTransport) Start(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.running {
		return fmt.Errorf("memory transport is already running")
	}
	if t.queue == nil {
		t.queue = make(chan messaging.IMessage, t.queueSize)
	}
	t.running = true
	for i := 0; i < t.workerCount; i++ {
		t.wg.Add(1)
		go t.worker(ctx, t.queue)
	}
	return nil
}

// Close 停止接收新消息，等待队列排空后返回；之后可以再次 Start
func (t *MemoryTransport) Close() error {
	t.mutex.Lock()
	if !t.running {
		t.mutex.Unlock()
		return fmt.Errorf("memory transport is not running")
	}
	t.running = false
	queue := t.queue
	t.queue = nil
	t.mutex.Unlock()

	// 关闭队列后 worker 读完缓冲中的消息自然退出
	close(queue)
	t.wg.Wait()
	return nil
}

// Stats 获取统计信息
func (t *MemoryTransport) Stats() messaging.TransportStats {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	stats := t.handlers.Stats(t.running)
	stats.QueueSize = t.queueSize
	stats.QueueDepth = len(t.queue)
	stats.WorkerCount = t.workerCount
	return stats
}

func (t *MemoryTransport) worker(ctx context.Context, queue <-chan messaging.IMessage) {
	defer t.wg.Done()
	for message := range queue {
		t.dispatch(ctx, message)
	}
}

// dispatch 处理器错误不会传播给发布者，只记录日志
func (t *MemoryTransport) dispatch(ctx context.Context, message messaging.IMessage) {
	t.mutex.RLock()
	handlers := t.handlers.Snapshot()
	t.mutex.RUnlock()

	for _, err := range messaging.Dispatch(ctx, handlers, message) {
		t.logger.Warn(ctx, "message handler failed",
			logging.String("message_type", message.GetType()),
			logging.String("message_id", message.GetID()),
			logging.Error(err))
	}
}
