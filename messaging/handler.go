package messaging

import (
	"context"
)

// IMessageHandler 消息处理器接口
type IMessageHandler interface {
	// Handle 处理消息
	Handle(ctx context.Context, message IMessage) error

	// Type 返回处理器类型（用于日志和调试）
	Type() string
}

// HandlerFunc 函数形式的处理器
type HandlerFunc func(ctx context.Context, message IMessage) error

type funcHandler struct {
	name string
	fn   HandlerFunc
}

func (h *funcHandler) Handle(ctx context.Context, message IMessage) error { return h.fn(ctx, message) }
func (h *funcHandler) Type() string                                       { return h.name }

// NewHandler 把函数包装为具名处理器。返回指针，可用于 Unsubscribe。
func NewHandler(name string, fn HandlerFunc) IMessageHandler {
	return &funcHandler{name: name, fn: fn}
}

// Dispatch 依次调用精确匹配与通配符（"*"）处理器，返回各处理器的错误
func Dispatch(ctx context.Context, handlers map[string][]IMessageHandler, message IMessage) []error {
	exact := handlers[message.GetType()]
	wildcard := handlers["*"]
	var errs []error
	for _, list := range [][]IMessageHandler{exact, wildcard} {
		for _, h := range list {
			if err := h.Handle(ctx, message); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}
