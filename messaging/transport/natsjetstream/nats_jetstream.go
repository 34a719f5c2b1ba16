// Package natsjetstream 基于 NATS JetStream 的消息传输。
//
// 每种消息类型对应一个主题（SubjectPrefix + 类型，例如 datastorm.list.created），
// 所有主题落在同一个 Stream 上；订阅使用持久化 queue 消费者并手动 ack。
package natsjetstream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"datastorm/logging"
	"datastorm/messaging"
)

// ErrNotRunning 传输未启动
var ErrNotRunning = errors.New("nats transport not running")

// Config configures the JetStream transport.
type Config struct {
	URL           string
	Stream        string
	SubjectPrefix string
	DurablePrefix string
	AckWait       time.Duration
	MaxAckPending int
	Logger        logging.Logger
	Conn          *nats.Conn

	// 流参数
	Retention string // limits|interest|workqueue（默认 limits：生命周期事件可被多个消费者重放）
	MaxBytes  int64
	Replicas  int
}

func (c *Config) applyDefaults() {
	if c.Stream == "" {
		c.Stream = "DATASTORM"
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "datastorm."
	}
	if c.DurablePrefix == "" {
		c.DurablePrefix = "datastorm-"
	}
	if c.AckWait <= 0 {
		c.AckWait = 30 * time.Second
	}
	if c.MaxAckPending <= 0 {
		c.MaxAckPending = 1024
	}
	if c.Logger == nil {
		c.Logger = logging.GetLogger().WithFields(logging.String("component", "transport.nats"))
	}
}

// Transport implements messaging.Transport on top of NATS JetStream.
type Transport struct {
	cfg      Config
	logger   logging.Logger
	conn     *nats.Conn
	js       nats.JetStreamContext
	ownsConn bool

	handlers messaging.Registry
	subs     map[string]*nats.Subscription

	mu      sync.RWMutex
	running bool
}

// NewTransport builds a JetStream transport.
func NewTransport(cfg Config) *Transport {
	cfg.applyDefaults()
	return &Transport{
		cfg:      cfg,
		logger:   cfg.Logger,
		handlers: make(messaging.Registry),
		subs:     make(map[string]*nats.Subscription),
	}
}

func (t *Transport) Publish(ctx context.Context, message messaging.IMessage) error {
	t.mu.RLock()
	js := t.js
	running := t.running
	t.mu.RUnlock()
	if !running || js == nil {
		return ErrNotRunning
	}
	data, err := messaging.Marshal(message)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(t.subjectName(message.GetType()))
	msg.Data = data
	// JetStream 按 Nats-Msg-Id 去重
	msg.Header.Set(nats.MsgIdHdr, message.GetID())
	_, err = js.PublishMsg(msg, nats.Context(ctx))
	return err
}

func (t *Transport) PublishAll(ctx context.Context, messages []messaging.IMessage) error {
	for _, msg := range messages {
		if err := t.Publish(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers.Add(messageType, handler)
	if t.running {
		return t.subscribeLocked(messageType)
	}
	return nil
}

func (t *Transport) Unsubscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.handlers.Remove(messageType, handler); err != nil {
		return err
	}
	if len(t.handlers[messageType]) == 0 {
		if sub, ok := t.subs[messageType]; ok {
			_ = sub.Drain()
			delete(t.subs, messageType)
		}
	}
	return nil
}

func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return errors.New("nats transport already running")
	}
	if err := t.ensureConnection(); err != nil {
		return err
	}
	if err := t.ensureStream(); err != nil {
		return err
	}
	for mt := range t.handlers {
		if err := t.subscribeLocked(mt); err != nil {
			return err
		}
	}
	t.running = true
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	for mt, sub := range t.subs {
		_ = sub.Drain()
		delete(t.subs, mt)
	}
	if t.ownsConn && t.conn != nil {
		t.conn.Close()
	}
	t.conn = nil
	t.js = nil
	return nil
}

func (t *Transport) Stats() messaging.TransportStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.handlers.Stats(t.running)
}

func (t *Transport) ensureConnection() error {
	if t.conn != nil && t.js != nil {
		return nil
	}
	if t.cfg.Conn != nil {
		t.conn = t.cfg.Conn
	} else {
		url := t.cfg.URL
		if url == "" {
			url = nats.DefaultURL
		}
		conn, err := nats.Connect(url, nats.Name("datastorm"))
		if err != nil {
			return err
		}
		t.conn = conn
		t.ownsConn = true
	}
	js, err := t.conn.JetStream()
	if err != nil {
		return err
	}
	t.js = js
	return nil
}

func (t *Transport) ensureStream() error {
	_, err := t.js.StreamInfo(t.cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = t.js.AddStream(t.streamConfig())
	return err
}

func (t *Transport) streamConfig() *nats.StreamConfig {
	retention := nats.LimitsPolicy
	switch strings.ToLower(t.cfg.Retention) {
	case "workqueue":
		retention = nats.WorkQueuePolicy
	case "interest":
		retention = nats.InterestPolicy
	}
	sc := &nats.StreamConfig{
		Name:      t.cfg.Stream,
		Subjects:  []string{t.cfg.SubjectPrefix + ">"},
		Retention: retention,
	}
	if t.cfg.MaxBytes > 0 {
		sc.MaxBytes = t.cfg.MaxBytes
	}
	if t.cfg.Replicas > 0 {
		sc.Replicas = t.cfg.Replicas
	}
	return sc
}

// durableName 持久化消费者名不能包含 "." 等字符
func (t *Transport) durableName(messageType string) string {
	r := strings.NewReplacer(".", "_", "*", "all", ">", "all")
	return t.cfg.DurablePrefix + r.Replace(messageType)
}

func (t *Transport) subscribeLocked(messageType string) error {
	if _, exists := t.subs[messageType]; exists {
		return nil
	}
	durable := t.durableName(messageType)
	sub, err := t.js.QueueSubscribe(t.subjectName(messageType), durable, t.handleMessage(messageType),
		nats.ManualAck(),
		nats.Durable(durable),
		nats.AckWait(t.cfg.AckWait),
		nats.MaxAckPending(t.cfg.MaxAckPending))
	if err != nil {
		return err
	}
	t.subs[messageType] = sub
	return nil
}

func (t *Transport) decode(msg *nats.Msg) (*messaging.Message, error) {
	decoded, err := messaging.Unmarshal(msg.Data)
	if err != nil {
		return nil, err
	}
	if decoded.Type == "" {
		decoded.Type = strings.TrimPrefix(msg.Subject, t.cfg.SubjectPrefix)
	}
	return decoded, nil
}

// handleMessage 每个订阅只分发给注册在该 key 下的处理器，
// 同一条消息同时命中精确订阅与 "*" 订阅时不会重复投递
func (t *Transport) handleMessage(key string) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx := context.Background()
		decoded, err := t.decode(msg)
		if err != nil {
			t.logger.Warn(ctx, "decode nats message failed", logging.String("subject", msg.Subject), logging.Error(err))
			_ = msg.Term()
			return
		}
		t.dispatch(ctx, key, decoded)
		if err := msg.Ack(); err != nil {
			t.logger.Warn(ctx, "nats ack failed", logging.Error(err))
		}
	}
}

func (t *Transport) dispatch(ctx context.Context, key string, message messaging.IMessage) {
	t.mu.RLock()
	handlers := append([]messaging.IMessageHandler(nil), t.handlers[key]...)
	t.mu.RUnlock()
	for _, h := range handlers {
		if err := h.Handle(ctx, message); err != nil {
			t.logger.Warn(ctx, "message handler failed",
				logging.String("message_type", message.GetType()),
				logging.String("handler", h.Type()),
				logging.Error(err))
		}
	}
}

// subjectName "*" 订阅映射为 ">"，匹配前缀下的全部主题
func (t *Transport) subjectName(messageType string) string {
	if messageType == "*" {
		return t.cfg.SubjectPrefix + ">"
	}
	return t.cfg.SubjectPrefix + messageType
}
