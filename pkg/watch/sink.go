package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Sink receives every report the watcher produces.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// LogSink 把报告写进日志
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Publish(_ context.Context, ev Event) error {
	fields := []zap.Field{
		zap.String("target", ev.Label),
		zap.Uint64("slot", ev.Slot),
		zap.Int32("current", ev.CurrentIndex),
		zap.Int32("lower", ev.Lower),
		zap.Int32("upper", ev.Upper),
		zap.String("status", string(ev.Status)),
		zap.Uint64("amount0", ev.Amount0),
		zap.Uint64("amount1", ev.Amount1),
	}
	switch {
	case ev.Filled:
		s.log.Warn("position filled on the other side", fields...)
	case ev.Crossed:
		s.log.Warn("price crossed range boundary", fields...)
	default:
		s.log.Info("position update", fields...)
	}
	return nil
}

const defaultPublishTimeout = 2 * time.Second

// NATSSink 以 JSON 发布到 <subject>.<label>
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

func NewNATSSink(url, subject string, log *zap.Logger) (*NATSSink, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name("clmmctl-watch"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

func (s *NATSSink) Subject(label string) string {
	return s.subject + "." + label
}

func (s *NATSSink) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.conn.Publish(s.Subject(ev.Label), payload); err != nil {
		return fmt.Errorf("publish %s: %w", s.Subject(ev.Label), err)
	}
	ctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", s.Subject(ev.Label), err)
	}
	return nil
}

func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
