// Package redisstreams 基于 Redis Streams 消费组的消息传输。
//
// 每种消息类型写入一个 Stream（StreamPrefix + 类型，例如 datastorm:list.created），
// 条目字段为 id、type、timestamp 与 body（messaging.Marshal 的 JSON 信封）。
package redisstreams

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"datastorm/logging"
	"datastorm/messaging"
)

// client captures the subset of go-redis commands we rely on (for easier testing).
type client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	Close() error
}

// Config describes how the Redis Streams transport should connect/behave.
type Config struct {
	Client       redis.UniversalClient
	Addr         string
	Username     string
	Password     string
	DB           int
	StreamPrefix string
	GroupName    string
	ConsumerName string
	BlockTimeout time.Duration
	ReadCount    int64
	// MaxLen 近似裁剪 Stream 长度，0 表示不裁剪
	MaxLen int64
	Logger logging.Logger

	MinReadBackoff time.Duration // 读取错误最小退避，默认 100ms
	MaxReadBackoff time.Duration // 读取错误最大退避，默认 5s
}

func (c *Config) applyDefaults() {
	if c.StreamPrefix == "" {
		c.StreamPrefix = "datastorm:"
	}
	if c.GroupName == "" {
		c.GroupName = "datastorm"
	}
	if c.ConsumerName == "" {
		c.ConsumerName = "consumer-" + uuid.NewString()
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = 5 * time.Second
	}
	if c.ReadCount <= 0 {
		c.ReadCount = 10
	}
	if c.MinReadBackoff <= 0 {
		c.MinReadBackoff = 100 * time.Millisecond
	}
	if c.MaxReadBackoff <= 0 {
		c.MaxReadBackoff = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = logging.GetLogger().WithFields(logging.String("component", "transport.redisstreams"))
	}
}

// Transport is a messaging.Transport backed by Redis Streams consumer groups.
type Transport struct {
	cfg       Config
	client    client
	ownClient bool
	logger    logging.Logger

	handlers messaging.Registry
	readers  map[string]bool

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTransport constructs a Redis Streams transport.
func NewTransport(cfg Config) (*Transport, error) {
	cfg.applyDefaults()

	var cl client
	var own bool
	if cfg.Client != nil {
		cl = cfg.Client
	} else {
		if cfg.Addr == "" {
			return nil, errors.New("redis client not configured")
		}
		cl = redis.NewClient(&redis.Options{Addr: cfg.Addr, Username: cfg.Username, Password: cfg.Password, DB: cfg.DB})
		own = true
	}
	return newTransport(cfg, cl, own), nil
}

func newTransport(cfg Config, cl client, own bool) *Transport {
	return &Transport{
		cfg:       cfg,
		client:    cl,
		ownClient: own,
		logger:    cfg.Logger,
		handlers:  make(messaging.Registry),
		readers:   make(map[string]bool),
	}
}

// Publish writes a single message into the appropriate Stream.
func (t *Transport) Publish(ctx context.Context, message messaging.IMessage) error {
	values, err := encodeMessage(message)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{Stream: t.streamName(message.GetType()), Values: values}
	if t.cfg.MaxLen > 0 {
		args.MaxLen = t.cfg.MaxLen
		args.Approx = true
	}
	return t.client.XAdd(ctx, args).Err()
}

// PublishAll writes messages sequentially. Redis Streams does not support multi append.
func (t *Transport) PublishAll(ctx context.Context, messages []messaging.IMessage) error {
	for _, msg := range messages {
		if err := t.Publish(ctx, msg); err != nil {
			return fmt.Errorf("publish %s: %w", msg.GetID(), err)
		}
	}
	return nil
}

// Subscribe registers a handler for a given message type. "*" is not supported:
// Redis Streams has no cross-stream wildcard read.
func (t *Transport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	if messageType == "*" || messageType == "" {
		return fmt.Errorf("redis streams transport requires an explicit message type, got %q", messageType)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers.Add(messageType, handler)
	if t.running {
		t.startReaderLocked(messageType)
	}
	return nil
}

// Unsubscribe removes the handler for a message type.
func (t *Transport) Unsubscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handlers.Remove(messageType, handler)
}

// Start begins background consumers per message type.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return fmt.Errorf("redis streams transport already running")
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.readers = make(map[string]bool)
	for mt := range t.handlers {
		t.startReaderLocked(mt)
	}
	t.running = true
	return nil
}

// Close stops consumers and closes the redis client when the transport created it.
func (t *Transport) Close() error {
	t.mu.Lock()
	running := t.running
	t.running = false
	cancel := t.cancel
	t.mu.Unlock()

	if running && cancel != nil {
		cancel()
		t.wg.Wait()
	}
	if t.ownClient {
		return t.client.Close()
	}
	return nil
}

// Stats returns basic handler/stream information.
func (t *Transport) Stats() messaging.TransportStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.handlers.Stats(t.running)
}

func (t *Transport) startReaderLocked(messageType string) {
	if t.readers[messageType] {
		return
	}
	t.readers[messageType] = true
	t.wg.Add(1)
	go t.readLoop(t.ctx, messageType)
}

func (t *Transport) readLoop(ctx context.Context, messageType string) {
	defer t.wg.Done()
	stream := t.streamName(messageType)
	if err := t.ensureGroup(ctx, stream); err != nil {
		t.logger.Warn(ctx, "ensure group failed", logging.String("stream", stream), logging.Error(err))
	}
	args := &redis.XReadGroupArgs{
		Group:    t.cfg.GroupName,
		Consumer: t.cfg.ConsumerName,
		Streams:  []string{stream, ">"},
		Count:    t.cfg.ReadCount,
		Block:    t.cfg.BlockTimeout,
	}
	backoff := t.cfg.MinReadBackoff
	for ctx.Err() == nil {
		res, err := t.client.XReadGroup(ctx, args).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			t.logger.Warn(ctx, "xreadgroup failed", logging.Duration("backoff", backoff), logging.Error(err))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff = min(backoff*2, t.cfg.MaxReadBackoff)
			continue
		}
		backoff = t.cfg.MinReadBackoff
		for _, s := range res {
			for _, entry := range s.Messages {
				t.consume(ctx, messageType, s.Stream, entry)
			}
		}
	}
}

// consume 解码失败的条目同样 ack，避免反复投递
func (t *Transport) consume(ctx context.Context, messageType, stream string, entry redis.XMessage) {
	msg, err := decodeMessage(entry)
	if err != nil {
		t.logger.Warn(ctx, "decode redis stream entry failed", logging.String("entry", entry.ID), logging.Error(err))
	} else {
		t.dispatch(ctx, messageType, msg)
	}
	if err := t.client.XAck(ctx, stream, t.cfg.GroupName, entry.ID).Err(); err != nil {
		t.logger.Warn(ctx, "xack failed", logging.Error(err))
	}
}

func (t *Transport) ensureGroup(ctx context.Context, stream string) error {
	err := t.client.XGroupCreateMkStream(ctx, stream, t.cfg.GroupName, "0").Err()
	if err == nil || strings.Contains(strings.ToUpper(err.Error()), "BUSYGROUP") {
		return nil
	}
	return err
}

func (t *Transport) dispatch(ctx context.Context, messageType string, message messaging.IMessage) {
	t.mu.RLock()
	handlers := append([]messaging.IMessageHandler(nil), t.handlers[messageType]...)
	t.mu.RUnlock()
	for _, h := range handlers {
		if err := h.Handle(ctx, message); err != nil {
			t.logger.Warn(ctx, "message handler failed",
				logging.String("message_type", messageType),
				logging.String("handler", h.Type()),
				logging.Error(err))
		}
	}
}

func (t *Transport) streamName(messageType string) string {
	return t.cfg.StreamPrefix + messageType
}

func encodeMessage(msg messaging.IMessage) (map[string]any, error) {
	body, err := messaging.Marshal(msg)
	if err != nil {
		return nil, err
	}
	ts := msg.GetTimestamp()
	if ts.IsZero() {
		ts = time.Now()
	}
	return map[string]any{
		"id":        msg.GetID(),
		"type":      msg.GetType(),
		"timestamp": strconv.FormatInt(ts.UnixNano(), 10),
		"body":      string(body),
	}, nil
}

// decodeMessage 信封缺少 id/type 时回退到条目字段
func decodeMessage(entry redis.XMessage) (*messaging.Message, error) {
	body, _ := entry.Values["body"].(string)
	if body == "" {
		return nil, fmt.Errorf("redis stream entry %s has no body", entry.ID)
	}
	msg, err := messaging.Unmarshal([]byte(body))
	if err != nil {
		return nil, err
	}
	if msg.ID == "" {
		if id, _ := entry.Values["id"].(string); id != "" {
			msg.ID = id
		} else {
			msg.ID = entry.ID
		}
	}
	if msg.Type == "" {
		msg.Type, _ = entry.Values["type"].(string)
	}
	return msg, nil
}
