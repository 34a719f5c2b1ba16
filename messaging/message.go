// Package messaging 定义记录生命周期事件的消息模型与传输抽象。
//
// 模型实例创建、更新、删除之后，lifecycle 包把事件封装为 Message，
// 通过 Transport（内存、NATS JetStream、Redis Streams）发布给订阅方。
package messaging

import (
	"time"

	"github.com/google/uuid"
)

// 生命周期动作
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionDestroyed = "destroyed"
)

// IMessage 消息接口
type IMessage interface {
	GetID() string
	// GetType 消息类型，生命周期事件形如 list.created
	GetType() string
	GetTimestamp() time.Time
	GetPayload() any
	GetMetadata() map[string]any
}

// Message 消息基础实现
type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   any            `json:"payload"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (m *Message) GetID() string           { return m.ID }
func (m *Message) GetType() string         { return m.Type }
func (m *Message) GetTimestamp() time.Time { return m.Timestamp }
func (m *Message) GetPayload() any         { return m.Payload }

// GetMetadata 获取元数据（惰性初始化）
func (m *Message) GetMetadata() map[string]any {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	return m.Metadata
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key string, value any) {
	m.GetMetadata()[key] = value
}

// NewMessage 创建新消息，ID 为 UUIDv7（按时间有序）
func NewMessage(messageType string, payload any) *Message {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Message{
		ID:        id.String(),
		Type:      messageType,
		Timestamp: time.Now(),
		Payload:   payload,
		Metadata:  make(map[string]any),
	}
}

// RecordEvent 生命周期事件的消息体
type RecordEvent struct {
	Model      string         `json:"model"`
	Table      string         `json:"table"`
	Action     string         `json:"action"`
	ID         any            `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// EventType 组合事件消息类型：list + created -> list.created
func EventType(model, action string) string {
	return model + "." + action
}
