package event

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/sonyflake"
	"go.uber.org/zap"
)

// ErrRetry indicates that the event handling should be retried
var ErrRetry = errors.New("retry event handling")

const (
	// TopicConfig 配置相关事件
	TopicConfig = "formrel.config"
	// TopicRelation 关系字段提交相关事件
	TopicRelation = "formrel.relation"

	TypeConfigChanged = "config.changed"
	TypeRelationSaved = "relation.saved"
)

// Event represents a generic event in the system
type Event struct {
	ID        uint64         `json:"id" xorm:"pk 'id'"`
	Type      string         `json:"type" xorm:"varchar(255) notnull index"`
	Source    string         `json:"source" xorm:"varchar(255) notnull index"`
	Topic     string         `json:"topic" xorm:"varchar(255) notnull index"`
	Data      map[string]any `json:"data" xorm:"json text"`
	Timestamp time.Time      `json:"timestamp" xorm:"notnull index"`
	Processed bool           `json:"processed" xorm:"bool"`
}

func (e *Event) TableName() string {
	return "formrel_event"
}

var (
	flake     *sonyflake.Sonyflake
	flakeOnce sync.Once
)

func machineID() (uint16, error) {
	host, err := os.Hostname()
	if err != nil {
		return 0, err
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	return uint16(h.Sum32()), nil
}

// NextID 生成事件 ID
func NextID() (uint64, error) {
	flakeOnce.Do(func() {
		t, _ := time.Parse("2006-01-02", "2024-01-01")
		flake = sonyflake.NewSonyflake(sonyflake.Settings{StartTime: t, MachineID: machineID})
	})
	if flake == nil {
		return 0, fmt.Errorf("sonyflake not initialized")
	}
	return flake.NextID()
}

// NewEvent 创建带 ID 和时间戳的事件
func NewEvent(typ, source string, data map[string]any) (*Event, error) {
	id, err := NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate event id: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return &Event{
		ID:        id,
		Type:      typ,
		Source:    source,
		Data:      data,
		Timestamp: time.Now(),
	}, nil
}

// Validate checks if the event is valid
func (e *Event) Validate() error {
	if e.ID == 0 {
		return fmt.Errorf("event ID cannot be zero")
	}
	if e.Type == "" {
		return fmt.Errorf("event Type cannot be empty")
	}
	if e.Source == "" {
		return fmt.Errorf("event Source cannot be empty")
	}
	if e.Data == nil {
		return fmt.Errorf("event Data cannot be nil")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event Timestamp cannot be zero")
	}
	return nil
}

// Encode 校验后序列化
func Encode(e *Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// Decode 反序列化并校验
func Decode(data []byte) (*Event, error) {
	e := &Event{}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return e, nil
}

type Handler func(*Event) error

// Publisher defines the interface for publishing events
type Publisher interface {
	// Publish publishes an event to the specified topic
	Publish(ctx context.Context, topic string, event *Event) error
	// Close closes the publisher
	Close() error
}

// Subscriber defines the interface for subscribing to events
type Subscriber interface {
	// Subscribe subscribes to events from the specified topic
	Subscribe(ctx context.Context, topic string, handler Handler) error
	// Unsubscribe removes the subscription for the specified topic
	Unsubscribe(topic string) error
	// Close closes the subscriber
	Close() error
}

// EventBus represents the main event bus that manages publishers and subscribers
type EventBus interface {
	Publisher
	Subscriber
}

// Handlers 按 topic 保存订阅的处理函数
type Handlers struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewHandlers() *Handlers {
	return &Handlers{handlers: make(map[string][]Handler)}
}

func (h *Handlers) Add(topic string, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[topic] = append(h.handlers[topic], handler)
}

func (h *Handlers) Remove(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.handlers, topic)
}

func (h *Handlers) Get(topic string) []Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handlers[topic]
}

// Retry 重试参数，处理函数返回 ErrRetry 时按 Backoff * 次数 等待后重试
type Retry struct {
	Max     int
	Backoff time.Duration
}

var DefaultRetry = Retry{Max: 3, Backoff: time.Second}

// Dispatch 依次调用 topic 的全部处理函数，失败的错误合并返回
func (h *Handlers) Dispatch(topic string, evt *Event, retry Retry, logger *zap.Logger) error {
	var errs []error
	for _, handler := range h.Get(topic) {
		if err := retry.call(handler, evt); err != nil {
			if logger != nil {
				logger.Warn("handle event", zap.String("topic", topic),
					zap.Uint64("id", evt.ID), zap.Error(err))
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r Retry) call(handler Handler, evt *Event) error {
	for i := 0; ; i++ {
		err := handler(evt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrRetry) || i >= r.Max {
			return err
		}
		time.Sleep(time.Duration(i+1) * r.Backoff)
	}
}
