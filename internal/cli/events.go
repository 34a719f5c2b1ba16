package cli

import (
	"context"
	"fmt"
	"io"

	"datastorm/config"
	"datastorm/data/orm/model"
	"datastorm/logging"
	"datastorm/messaging"
	"datastorm/messaging/lifecycle"
	"datastorm/messaging/transport/memory"
	"datastorm/messaging/transport/natsjetstream"
	"datastorm/messaging/transport/redisstreams"
	synctransport "datastorm/messaging/transport/sync"
)

// openTransport 按配置创建并启动事件传输；未配置时返回 nil。
// sync 与 memory 传输在进程内把事件打印到 w。
func openTransport(ctx context.Context, cfg config.EventsConfig, logger logging.Logger, w io.Writer) (messaging.Transport, error) {
	var t messaging.Transport
	switch cfg.Transport {
	case "", config.EventsNone:
		return nil, nil
	case config.EventsSync:
		st := synctransport.NewSyncTransport()
		if err := st.Subscribe("*", messaging.NewHandler("print", printEvent(w))); err != nil {
			return nil, err
		}
		t = st
	case config.EventsMemory:
		mt := memory.NewMemoryTransport(0, 1).WithLogger(logger)
		if err := mt.Subscribe("*", messaging.NewHandler("print", printEvent(w))); err != nil {
			return nil, err
		}
		t = mt
	case config.EventsNATS:
		t = natsjetstream.NewTransport(natsjetstream.Config{
			URL:           cfg.URL,
			SubjectPrefix: cfg.Prefix,
			Logger:        logger,
		})
	case config.EventsRedis:
		rt, err := redisstreams.NewTransport(redisstreams.Config{
			Addr:         cfg.URL,
			StreamPrefix: cfg.Prefix,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		t = rt
	default:
		return nil, fmt.Errorf("unknown events transport %q", cfg.Transport)
	}
	if err := t.Start(ctx); err != nil {
		return nil, fmt.Errorf("start %s transport: %w", cfg.Transport, err)
	}
	return t, nil
}

func printEvent(w io.Writer) messaging.HandlerFunc {
	return func(_ context.Context, msg messaging.IMessage) error {
		var ev messaging.RecordEvent
		if err := messaging.DecodePayload(msg, &ev); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "event %s %s id=%v\n", msg.GetType(), ev.Table, ev.ID)
		return err
	}
}

// withEvents 为模型挂载事件发布，返回的函数关闭传输（memory 传输会先分发完队列）
func (a *app) withEvents(ctx context.Context, m *model.Model, w io.Writer) (func(), error) {
	t, err := openTransport(ctx, a.cfg.Events, a.logger, w)
	if err != nil || t == nil {
		return func() {}, err
	}
	lifecycle.Attach(m, t, lifecycle.WithLogger(a.logger), lifecycle.WithMetadata("source", "cli"))
	return func() {
		if err := t.Close(); err != nil {
			a.logger.Warn(ctx, "close events transport failed", logging.Error(err))
		}
	}, nil
}
