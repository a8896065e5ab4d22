// Package contracts holds the generic interfaces the rest of streamrpc is
// built against. Components depend on these, never on a specific broker or
// logging library directly.
package contracts

import (
	"context"
	"time"
)

// Broker is the generic interface for a partitioned, ordered message log.
// Shipped implementations are Kafka (contrib/broker/kafka) and an
// in-memory fake for tests (contrib/broker/memory); StreamHandler,
// RequestSender, Producer and Consumer are all written against this
// interface so a different log could be swapped in.
type Broker interface {
	Publish(ctx context.Context, topic string, msg *BrokerMessage) error
	PublishBatch(ctx context.Context, topic string, msgs []*BrokerMessage) error

	Subscribe(ctx context.Context, topic string, handler MessageHandlerFunc) error
	SubscribeMultiple(ctx context.Context, topics []string, handler MessageHandlerFunc) error
	Unsubscribe(topic string) error

	// ConsumeGroup consumes topics as part of a named consumer group, the
	// mechanism backpressure and load-balancing is built on.
	ConsumeGroup(ctx context.Context, group string, topics []string, handler MessageHandlerFunc) error
	LeaveGroup(group string) error

	Ack(ctx context.Context, msg *BrokerMessage) error
	Nack(ctx context.Context, msg *BrokerMessage, requeue bool) error

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	IsConnected() bool

	Name() string
}

// BrokerMessage is the broker-agnostic envelope of bytes a Broker moves.
// envelope.Envelope is encoded into/decoded out of its Body.
type BrokerMessage struct {
	ID    string
	Topic string

	Key     []byte
	Body    []byte
	Headers map[string]string

	Partition int
	Offset    int64
	Timestamp time.Time

	Redelivered bool
	RetryCount  int

	// Raw is the underlying broker library message, for drivers that need
	// to round-trip it (e.g. to mark offsets on a consumer group session).
	Raw any
}

// MessageHandlerFunc processes one message pulled off a subscription.
type MessageHandlerFunc func(ctx context.Context, msg *BrokerMessage) error

// BrokerConfig is the base set of settings shared by every broker driver.
type BrokerConfig struct {
	Name    string
	Brokers []string

	Username string
	Password string
	UseTLS   bool
	CertFile string
	KeyFile  string
	CAFile   string

	ConsumerGroup     string
	AutoAck           bool
	MaxRetries        int
	RetryBackoff      time.Duration
	ProcessingTimeout time.Duration

	BatchSize       int
	BatchTimeout    time.Duration
	Compression     string
	RequiredAcks    string
	MaxMessageBytes int

	// Options carries driver-specific pass-through settings (compression
	// codec, batch size, retry backoff, ...) that streamrpc does not
	// re-specify — see spec.md §1.
	Options map[string]any
}

// KafkaBrokerConfig extends BrokerConfig with Kafka-specific settings.
type KafkaBrokerConfig struct {
	BrokerConfig

	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	RebalanceStrategy string
	OffsetReset       string
}

// Publisher is a narrowed view of Broker for components that only publish.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *BrokerMessage) error
	PublishBatch(ctx context.Context, topic string, msgs []*BrokerMessage) error
}

// ConsumerBroker is a narrowed view of Broker for components that only consume.
type ConsumerBroker interface {
	ConsumeGroup(ctx context.Context, group string, topics []string, handler MessageHandlerFunc) error
	LeaveGroup(group string) error
}

// NewBrokerMessage creates a message with sane defaults.
func NewBrokerMessage(topic string, body []byte) *BrokerMessage {
	return &BrokerMessage{
		Topic:     topic,
		Body:      body,
		Headers:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// NewBrokerMessageWithKey creates a keyed message (for partition routing).
func NewBrokerMessageWithKey(topic string, key, body []byte) *BrokerMessage {
	msg := NewBrokerMessage(topic, body)
	msg.Key = key
	return msg
}

// SetHeader is a fluent setter.
func (m *BrokerMessage) SetHeader(key, value string) *BrokerMessage {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
	return m
}

// GetHeader returns a header value, or "" if unset.
func (m *BrokerMessage) GetHeader(key string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[key]
}
