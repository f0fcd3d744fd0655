package messaging

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const memoryQueueSize = 256

// Memory is an in-process broker. Each consumer group on a topic receives
// every message once; members of a group share the work. Messages published
// to a topic with no consumers are dropped.
type Memory struct {
	mu     sync.RWMutex
	topics map[string]map[string]chan *message
	closed bool
	seq    atomic.Int64
}

// NewMemory returns an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{topics: make(map[string]map[string]chan *message)}
}

// Publish enqueues msg for every group subscribed to topic.
func (m *Memory) Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if topic == "" {
		return PublishResult{}, ErrTopicRequired
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return PublishResult{}, io.ErrClosedPipe
	}

	now := time.Now()
	id := strconv.FormatInt(m.seq.Add(1), 10)
	groups := m.topics[topic]
	if len(groups) == 0 {
		slog.DebugContext(ctx, "memory messaging: no consumers, message dropped", "topic", topic)
	}

	for group, queue := range groups {
		delivered := &message{
			id:        id,
			topic:     topic,
			body:      append([]byte(nil), msg.Body...),
			key:       msg.Key,
			headers:   append([]Header(nil), msg.Headers...),
			timestamp: now,
		}
		select {
		case queue <- delivered:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		default:
			slog.WarnContext(ctx, "memory messaging: queue full, message dropped", "topic", topic, "group", group)
		}
	}

	return PublishResult{MessageID: id, Topic: topic, Timestamp: now}, nil
}

// Consume delivers messages until ctx is done or the broker is closed.
func (m *Memory) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	queue, err := m.queue(topic, co.group)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-queue:
					if !ok {
						return
					}
					if err := callHandler(ctx, DriverMemory, handler, msg); err != nil {
						slog.WarnContext(ctx, "memory messaging: handler failed", "topic", topic, "id", msg.id, "error", err)
					}
				}
			}
		})
	}
	wg.Wait()

	return ctx.Err()
}

func (m *Memory) queue(topic, group string) (chan *message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, io.ErrClosedPipe
	}

	groups, ok := m.topics[topic]
	if !ok {
		groups = make(map[string]chan *message)
		m.topics[topic] = groups
	}

	queue, ok := groups[group]
	if !ok {
		queue = make(chan *message, memoryQueueSize)
		groups[group] = queue
	}
	return queue, nil
}

// Close stops all consumers.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for _, groups := range m.topics {
		for _, queue := range groups {
			close(queue)
		}
	}
	return nil
}
