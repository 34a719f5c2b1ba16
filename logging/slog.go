package logging

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// SlogLogger 将 Logger 接口适配到 log/slog
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger 包装已有的 *slog.Logger
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

// NewSlogJSON 创建输出 JSON 的 slog 日志器
func NewSlogJSON(w io.Writer, level Level) *SlogLogger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel(level)})
	return &SlogLogger{l: slog.New(h)}
}

// NewSlogText 创建输出 key=value 文本的 slog 日志器
func NewSlogText(w io.Writer, level Level) *SlogLogger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel(level)})
	return &SlogLogger{l: slog.New(h)}
}

func slogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func toAttrs(fields []Field) []any {
	attrs := make([]any, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			attrs = append(attrs, slog.String(f.Key, v.Error()))
		case time.Duration:
			attrs = append(attrs, slog.Duration(f.Key, v))
		default:
			attrs = append(attrs, slog.Any(f.Key, v))
		}
	}
	return attrs
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	s.l.DebugContext(ctx, msg, toAttrs(fields)...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	s.l.InfoContext(ctx, msg, toAttrs(fields)...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	s.l.WarnContext(ctx, msg, toAttrs(fields)...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	s.l.ErrorContext(ctx, msg, toAttrs(fields)...)
}

func (s *SlogLogger) WithFields(fields ...Field) Logger {
	return &SlogLogger{l: s.l.With(toAttrs(fields)...)}
}
