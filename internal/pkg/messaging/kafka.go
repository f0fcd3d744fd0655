package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrKafkaBrokersRequired is returned when no brokers are configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka driver.
type KafkaConfig struct {
	Brokers []string
	Dialer  *kafka.Dialer
}

// Kafka is a kafka-go driver. Offsets are committed only after the handler
// succeeds. With concurrency above one a later commit can cover an earlier
// failed message, so handlers that need redelivery should run with one worker.
type Kafka struct {
	cfg KafkaConfig

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafka validates cfg; connections are made lazily.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}
	return &Kafka{cfg: cfg, writers: make(map[string]*kafka.Writer)}, nil
}

// Close flushes and closes all writers.
func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var err error
	for topic, w := range k.writers {
		err = errors.Join(err, w.Close())
		delete(k.writers, topic)
	}
	return err
}

func (k *Kafka) writer(topic string) *kafka.Writer {
	k.mu.Lock()
	defer k.mu.Unlock()

	if w, ok := k.writers[topic]; ok {
		return w
	}

	transport := kafka.DefaultTransport
	if k.cfg.Dialer != nil {
		transport = &kafka.Transport{Dial: k.cfg.Dialer.DialFunc, TLS: k.cfg.Dialer.TLS, SASL: k.cfg.Dialer.SASLMechanism}
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(k.cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Transport:    transport,
	}
	k.writers[topic] = w
	return w
}

// Publish writes msg to topic, partitioned by Key.
func (k *Kafka) Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if topic == "" {
		return PublishResult{}, ErrTopicRequired
	}

	km := kafka.Message{Key: msg.Key, Value: msg.Body, Time: time.Now()}
	for _, h := range msg.Headers {
		if h.Key != "" {
			km.Headers = append(km.Headers, kafka.Header{Key: h.Key, Value: h.Value})
		}
	}

	if err := k.writer(topic).WriteMessages(ctx, km); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: kafka publish: %w", err)
	}
	return PublishResult{Topic: topic, Timestamp: km.Time}, nil
}

// Consume reads topic as a member of the WithGroup consumer group.
func (k *Kafka) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrGroupRequired
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.cfg.Brokers,
		GroupID:  co.group,
		Topic:    topic,
		MaxBytes: 10e6,
		Dialer:   k.cfg.Dialer,
	})

	sema := make(chan struct{}, co.concurrency)
	var wg sync.WaitGroup

	var fetchErr error
	for {
		km, err := reader.FetchMessage(ctx)
		if err != nil {
			fetchErr = err
			break
		}

		sema <- struct{}{}
		wg.Go(func() {
			defer func() { <-sema }()

			msg := &message{
				id:        km.Topic + "/" + strconv.Itoa(km.Partition) + "/" + strconv.FormatInt(km.Offset, 10),
				topic:     km.Topic,
				body:      km.Value,
				key:       km.Key,
				timestamp: km.Time,
			}
			for _, h := range km.Headers {
				msg.headers = append(msg.headers, Header{Key: h.Key, Value: h.Value})
			}

			if err := callHandler(ctx, DriverKafka, handler, msg); err != nil {
				slog.WarnContext(ctx, "kafka messaging: handler failed", "id", msg.id, "error", err)
				return
			}
			if err := reader.CommitMessages(ctx, km); err != nil {
				slog.WarnContext(ctx, "kafka messaging: commit failed", "id", msg.id, "error", err)
			}
		})
	}

	wg.Wait()
	closeErr := reader.Close()

	if errors.Is(fetchErr, context.Canceled) || errors.Is(fetchErr, context.DeadlineExceeded) {
		return errors.Join(fetchErr, closeErr)
	}
	return errors.Join(fmt.Errorf("messaging: kafka consume: %w", fetchErr), closeErr)
}
