package messaging

import (
	"encoding/json"
	"time"
)

// envelope 线上格式：时间戳为 UnixNano，payload 保持原始 JSON
type envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  map[string]any  `json:"metadata"`
}

// Marshal 把消息编码为 JSON 信封
func Marshal(msg IMessage) ([]byte, error) {
	payload, err := json.Marshal(msg.GetPayload())
	if err != nil {
		return nil, err
	}
	metadata := msg.GetMetadata()
	if metadata == nil {
		metadata = make(map[string]any)
	}
	ts := msg.GetTimestamp()
	if ts.IsZero() {
		ts = time.Now()
	}
	return json.Marshal(envelope{
		ID:        msg.GetID(),
		Type:      msg.GetType(),
		Timestamp: ts.UnixNano(),
		Payload:   payload,
		Metadata:  metadata,
	})
}

// Unmarshal 解码 JSON 信封；payload 解码为通用结构（数字为 float64）
func Unmarshal(data []byte) (*Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	var payload any
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, err
		}
	}
	if env.Metadata == nil {
		env.Metadata = make(map[string]any)
	}
	return &Message{
		ID:        env.ID,
		Type:      env.Type,
		Timestamp: time.Unix(0, env.Timestamp),
		Payload:   payload,
		Metadata:  env.Metadata,
	}, nil
}

// DecodePayload 把通用 payload 转为具体类型（经由 JSON）
func DecodePayload(msg IMessage, dest any) error {
	raw, err := json.Marshal(msg.GetPayload())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
