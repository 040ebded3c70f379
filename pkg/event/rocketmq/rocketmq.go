package rocketmq

import (
	"context"
	"sync"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/everpan/formrel/pkg/event"
	"go.uber.org/zap"
)

// Producer rocketmq.Producer 中用到的部分
type Producer interface {
	SendSync(ctx context.Context, msgs ...*primitive.Message) (*primitive.SendResult, error)
	Shutdown() error
}

// PushConsumer rocketmq.PushConsumer 中用到的部分
type PushConsumer interface {
	Start() error
	Shutdown() error
	Subscribe(topic string, selector consumer.MessageSelector,
		f func(context.Context, ...*primitive.MessageExt) (consumer.ConsumeResult, error)) error
	Unsubscribe(topic string) error
}

type RocketMQEventBus struct {
	producer Producer
	consumer PushConsumer
	handlers *event.Handlers
	retry    event.Retry
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
}

type RocketMQConfig struct {
	NameServers []string
	Group       string
}

// NewRocketMQEventBus creates a new RocketMQ event bus
func NewRocketMQEventBus(config RocketMQConfig, logger *zap.Logger) (*RocketMQEventBus, error) {
	p, err := rocketmq.NewProducer(
		producer.WithNameServer(config.NameServers),
		producer.WithGroupName(config.Group),
		producer.WithRetry(2),
	)
	if err != nil {
		return nil, err
	}
	if err = p.Start(); err != nil {
		return nil, err
	}
	c, err := rocketmq.NewPushConsumer(
		consumer.WithNameServer(config.NameServers),
		consumer.WithGroupName(config.Group),
	)
	if err != nil {
		_ = p.Shutdown()
		return nil, err
	}
	return NewWithClients(p, c, logger), nil
}

func NewWithClients(p Producer, c PushConsumer, logger *zap.Logger) *RocketMQEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RocketMQEventBus{
		producer: p,
		consumer: c,
		handlers: event.NewHandlers(),
		retry:    event.DefaultRetry,
		logger:   logger,
	}
}

func (r *RocketMQEventBus) Publish(ctx context.Context, topic string, evt *event.Event) error {
	evt.Topic = topic
	data, err := event.Encode(evt)
	if err != nil {
		return err
	}
	msg := primitive.NewMessage(topic, data)
	msg.WithTag(evt.Type)
	_, err = r.producer.SendSync(ctx, msg)
	return err
}

func (r *RocketMQEventBus) Subscribe(ctx context.Context, topic string, handler event.Handler) error {
	r.handlers.Add(topic, handler)
	selector := consumer.MessageSelector{
		Type:       consumer.TAG,
		Expression: "*",
	}
	if err := r.consumer.Subscribe(topic, selector, r.consume(topic)); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if err := r.consumer.Start(); err != nil {
		return err
	}
	r.started = true
	return nil
}

// consume 无法解析的消息直接丢弃；处理失败时整批稍后重投
func (r *RocketMQEventBus) consume(topic string) func(context.Context, ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	return func(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
		for _, msg := range msgs {
			evt, err := event.Decode(msg.Body)
			if err != nil {
				r.logger.Warn("drop rocketmq message", zap.String("topic", topic),
					zap.String("msgId", msg.MsgId), zap.Error(err))
				continue
			}
			if err = r.handlers.Dispatch(topic, evt, r.retry, r.logger); err != nil {
				return consumer.ConsumeRetryLater, err
			}
		}
		return consumer.ConsumeSuccess, nil
	}
}

func (r *RocketMQEventBus) Unsubscribe(topic string) error {
	r.handlers.Remove(topic)
	return r.consumer.Unsubscribe(topic)
}

func (r *RocketMQEventBus) Close() error {
	if err := r.producer.Shutdown(); err != nil {
		return err
	}
	return r.consumer.Shutdown()
}
