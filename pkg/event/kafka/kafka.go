package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/everpan/formrel/pkg/event"
	"go.uber.org/zap"
)

type KafkaEventBus struct {
	producer sarama.SyncProducer
	consumer sarama.Consumer
	handlers *event.Handlers
	retry    event.Retry
	logger   *zap.Logger
}

// NewKafkaEventBus creates a new Kafka event bus
func NewKafkaEventBus(brokers []string, logger *zap.Logger) (*KafkaEventBus, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Consumer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	consumer, err := sarama.NewConsumer(brokers, config)
	if err != nil {
		_ = producer.Close()
		return nil, err
	}
	return NewWithClients(producer, consumer, logger), nil
}

// NewWithClients 使用已创建的 producer/consumer
func NewWithClients(producer sarama.SyncProducer, consumer sarama.Consumer, logger *zap.Logger) *KafkaEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaEventBus{
		producer: producer,
		consumer: consumer,
		handlers: event.NewHandlers(),
		retry:    event.DefaultRetry,
		logger:   logger,
	}
}

func (k *KafkaEventBus) Publish(ctx context.Context, topic string, evt *event.Event) error {
	evt.Topic = topic
	data, err := event.Encode(evt)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(evt.Type),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err = k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (k *KafkaEventBus) Subscribe(ctx context.Context, topic string, handler event.Handler) error {
	k.handlers.Add(topic, handler)

	pc, err := k.consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to create partition consumer: %w", err)
	}
	go func() {
		defer pc.Close()
		for {
			select {
			case msg, ok := <-pc.Messages():
				if !ok {
					return
				}
				k.handle(topic, msg)
			case err, ok := <-pc.Errors():
				if !ok {
					return
				}
				k.logger.Warn("kafka consume", zap.String("topic", topic), zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (k *KafkaEventBus) handle(topic string, msg *sarama.ConsumerMessage) {
	evt, err := event.Decode(msg.Value)
	if err != nil {
		k.logger.Warn("drop kafka message", zap.String("topic", topic),
			zap.Int64("offset", msg.Offset), zap.Error(err))
		return
	}
	_ = k.handlers.Dispatch(topic, evt, k.retry, k.logger)
}

func (k *KafkaEventBus) Unsubscribe(topic string) error {
	k.handlers.Remove(topic)
	return nil
}

func (k *KafkaEventBus) Close() error {
	var errs []error
	if err := k.producer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}
	if err := k.consumer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close kafka event bus: %v", errs)
	}
	return nil
}
