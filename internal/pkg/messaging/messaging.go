// Package messaging is a broker-agnostic publish/consume layer with NATS, NSQ,
// Kafka, Google Cloud Pub/Sub and in-process drivers.
//
// Consumers ack a message when the handler returns nil and nack (or leave it
// uncommitted) when it returns an error. Handler panics are recovered and
// treated as errors.
package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrUnsupported is returned for features a driver cannot provide.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrTopicRequired is returned when the destination or source is empty.
	ErrTopicRequired = errors.New("messaging: topic is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrGroupRequired is returned by drivers that need a consumer group.
	ErrGroupRequired = errors.New("messaging: consumer group is required")
)

// Messaging publishes and consumes messages.
type Messaging interface {
	io.Closer
	Publisher
	Consumer
}

// Publisher sends messages to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error)
}

// Consumer blocks delivering messages from topic to handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one message.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a message to publish.
type OutgoingMessage struct {
	Body []byte
	// Key is the Kafka partition key; ignored by other drivers.
	Key     []byte
	Headers []Header
}

// Header is a message header.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult carries what the broker reports back.
type PublishResult struct {
	MessageID string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
}

// Message is a received message.
type Message interface {
	Body() []byte
	Key() []byte
	Headers() []Header
	// Header returns the first value stored under key, or nil.
	Header(key string) []byte
	ID() string
	Topic() string
	Timestamp() time.Time
}

type message struct {
	id        string
	topic     string
	body      []byte
	key       []byte
	headers   []Header
	timestamp time.Time
}

func (m *message) Body() []byte         { return m.body }
func (m *message) Key() []byte          { return m.key }
func (m *message) Headers() []Header    { return m.headers }
func (m *message) ID() string           { return m.id }
func (m *message) Topic() string        { return m.topic }
func (m *message) Timestamp() time.Time { return m.timestamp }

func (m *message) Header(key string) []byte {
	for _, h := range m.headers {
		if h.Key == key {
			return h.Value
		}
	}
	return nil
}

func validateConsume(ctx context.Context, topic string, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	return nil
}
