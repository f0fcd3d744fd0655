package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

var (
	// ErrPubSubProjectIDRequired is returned when neither a client nor a project id is given.
	ErrPubSubProjectIDRequired = errors.New("messaging: pubsub project id is required")
	// ErrPubSubClosed is returned after Close.
	ErrPubSubClosed = errors.New("messaging: pubsub client is closed")
)

// PubSubConfig configures the Google Cloud Pub/Sub driver. The client honours
// PUBSUB_EMULATOR_HOST, so local runs need no credentials.
type PubSubConfig struct {
	ProjectID string
	// Client is used as is when set; ProjectID and ClientOptions are ignored.
	Client        *pubsub.Client
	ClientOptions []option.ClientOption
}

// PubSub publishes to topics and consumes from subscriptions. Headers travel
// as message attributes and Key becomes the ordering key. The consumer group
// names the subscription, which must already exist on the topic.
type PubSub struct {
	client *pubsub.Client

	mu         sync.Mutex
	closed     bool
	publishers map[string]*pubsub.Publisher
}

func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if cfg.Client != nil {
		return &PubSub{client: cfg.Client, publishers: make(map[string]*pubsub.Publisher)}, nil
	}
	if cfg.ProjectID == "" {
		return nil, ErrPubSubProjectIDRequired
	}

	c, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("messaging: pubsub new client: %w", err)
	}
	return &PubSub{client: c, publishers: make(map[string]*pubsub.Publisher)}, nil
}

// Close flushes pending publishes and closes the client.
func (p *PubSub) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	pubs := make([]*pubsub.Publisher, 0, len(p.publishers))
	for _, pub := range p.publishers {
		pubs = append(pubs, pub)
	}
	p.publishers = nil
	p.mu.Unlock()

	for _, pub := range pubs {
		pub.Stop()
	}
	return p.client.Close()
}

func (p *PubSub) publisher(topic string) (*pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPubSubClosed
	}
	if pub, ok := p.publishers[topic]; ok {
		return pub, nil
	}

	pub := p.client.Publisher(topic)
	pub.EnableMessageOrdering = true
	p.publishers[topic] = pub
	return pub, nil
}

// Publish sends msg to topic and waits for the server id.
func (p *PubSub) Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if topic == "" {
		return PublishResult{}, ErrTopicRequired
	}

	pub, err := p.publisher(topic)
	if err != nil {
		return PublishResult{}, err
	}

	pm := &pubsub.Message{Data: msg.Body, OrderingKey: string(msg.Key)}
	if len(msg.Headers) > 0 {
		pm.Attributes = make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			if h.Key != "" {
				pm.Attributes[h.Key] = string(h.Value)
			}
		}
	}

	id, err := pub.Publish(ctx, pm).Get(ctx)
	if err != nil {
		if pm.OrderingKey != "" {
			pub.ResumePublish(pm.OrderingKey)
		}
		return PublishResult{}, fmt.Errorf("messaging: pubsub publish: %w", err)
	}
	return PublishResult{MessageID: id, Topic: topic}, nil
}

// Consume receives from the subscription named by the WithGroup option until
// ctx is done. A nil handler result acks; an error nacks for redelivery.
func (p *PubSub) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrGroupRequired
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPubSubClosed
	}

	sub := p.client.Subscriber(co.group)
	sub.ReceiveSettings.NumGoroutines = co.concurrency
	sub.ReceiveSettings.MaxOutstandingMessages = co.maxInFlight

	err := sub.Receive(ctx, func(ctx context.Context, pm *pubsub.Message) {
		msg := &message{
			id:        pm.ID,
			topic:     topic,
			body:      pm.Data,
			key:       []byte(pm.OrderingKey),
			timestamp: pm.PublishTime,
		}
		for k, v := range pm.Attributes {
			msg.headers = append(msg.headers, Header{Key: k, Value: []byte(v)})
		}

		if err := callHandler(ctx, DriverGooglePubSub, handler, msg); err != nil {
			slog.WarnContext(ctx, "pubsub messaging: handler failed", "id", pm.ID, "error", err)
			pm.Nack()
			return
		}
		pm.Ack()
	})
	if err != nil {
		return fmt.Errorf("messaging: pubsub receive: %w", err)
	}
	return ctx.Err()
}
