package database

import (
	"context"
	"fmt"
	"time"

	"github.com/everpan/formrel/pkg/event"
	"go.uber.org/zap"
	"xorm.io/xorm"
)

const DefaultPollInterval = time.Second

type DBEventBus struct {
	engine   *xorm.Engine
	handlers *event.Handlers
	interval time.Duration
	retry    event.Retry
	logger   *zap.Logger
}

// NewDBEventBus creates a new database event bus
func NewDBEventBus(engine *xorm.Engine, interval time.Duration, logger *zap.Logger) (*DBEventBus, error) {
	// 确保事件表存在
	if err := engine.Sync2(new(event.Event)); err != nil {
		return nil, fmt.Errorf("failed to sync database schema: %w", err)
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBEventBus{
		engine:   engine,
		handlers: event.NewHandlers(),
		interval: interval,
		retry:    event.DefaultRetry,
		logger:   logger,
	}, nil
}

func (d *DBEventBus) Publish(ctx context.Context, topic string, evt *event.Event) error {
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	evt.Topic = topic
	_, err := d.engine.Context(ctx).Insert(evt)
	return err
}

func (d *DBEventBus) Subscribe(ctx context.Context, topic string, handler event.Handler) error {
	d.handlers.Add(topic, handler)
	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.poll(ctx, topic)
			}
		}
	}()
	return nil
}

// poll 处理 topic 下未处理的事件，只有所有 handler 都成功时才标记为已处理
func (d *DBEventBus) poll(ctx context.Context, topic string) {
	var evs []*event.Event
	err := d.engine.Context(ctx).Where("topic = ? AND processed = ?", topic, false).Asc("id").Find(&evs)
	if err != nil {
		d.logger.Warn("poll events", zap.String("topic", topic), zap.Error(err))
		return
	}
	for _, evt := range evs {
		if err = d.handlers.Dispatch(topic, evt, d.retry, d.logger); err != nil {
			continue
		}
		evt.Processed = true
		if _, err = d.engine.Context(ctx).ID(evt.ID).Cols("processed").Update(evt); err != nil {
			d.logger.Warn("mark event processed", zap.Uint64("id", evt.ID), zap.Error(err))
		}
	}
}

func (d *DBEventBus) Unsubscribe(topic string) error {
	d.handlers.Remove(topic)
	return nil
}

// Close 引擎由租户缓存管理，这里不关闭
func (d *DBEventBus) Close() error {
	return nil
}
