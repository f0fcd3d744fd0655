package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryPublishConsume(t *testing.T) {
	// Arrange
	broker := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Message, 1)
	done := make(chan error, 1)
	ready := make(chan struct{})
	go func() {
		close(ready)
		done <- broker.Consume(ctx, "otp.delivery", func(_ context.Context, msg Message) error {
			got <- msg
			return nil
		}, WithGroup("otp"))
	}()
	<-ready
	waitForGroup(t, broker, "otp.delivery")

	// Act
	_, err := broker.Publish(ctx, "otp.delivery", OutgoingMessage{
		Body:    []byte(`{"id":1}`),
		Headers: []Header{{Key: "cID", Value: []byte("cid-1")}},
	})

	// Assert
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	select {
	case msg := <-got:
		if string(msg.Body()) != `{"id":1}` || string(msg.Header("cID")) != "cid-1" {
			t.Fatalf("message = %s / %s", msg.Body(), msg.Header("cID"))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("message not delivered")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Consume() error = %v, want context.Canceled", err)
	}
}

func TestMemoryEachGroupReceivesOnce(t *testing.T) {
	// Arrange
	broker := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	counts := map[string]int{}
	var wg sync.WaitGroup
	wg.Add(2)
	for _, group := range []string{"a", "b"} {
		go func() {
			_ = broker.Consume(ctx, "t", func(context.Context, Message) error {
				mu.Lock()
				counts[group]++
				mu.Unlock()
				wg.Done()
				return nil
			}, WithGroup(group), WithConcurrency(2))
		}()
	}
	waitForGroups(t, broker, "t", 2)

	// Act
	if _, err := broker.Publish(ctx, "t", OutgoingMessage{Body: []byte("x")}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	wg.Wait()

	// Assert
	mu.Lock()
	defer mu.Unlock()
	if counts["a"] != 1 || counts["b"] != 1 {
		t.Fatalf("counts = %v, want one per group", counts)
	}
}

func TestMemoryHandlerPanicDoesNotStopConsumer(t *testing.T) {
	// Arrange
	broker := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 2)
	go func() {
		_ = broker.Consume(ctx, "t", func(context.Context, Message) error {
			calls <- struct{}{}
			panic("boom")
		})
	}()
	waitForGroup(t, broker, "t")

	// Act
	for range 2 {
		if _, err := broker.Publish(ctx, "t", OutgoingMessage{Body: []byte("x")}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	// Assert
	for i := range 2 {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("call %d not delivered", i+1)
		}
	}
}

func TestMemoryPublishAfterClose(t *testing.T) {
	// Arrange
	broker := NewMemory()
	if err := broker.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Act
	_, err := broker.Publish(context.Background(), "t", OutgoingMessage{})

	// Assert
	if err == nil {
		t.Fatalf("Publish() after Close error = nil")
	}
}

func TestConsumeValidation(t *testing.T) {
	broker := NewMemory()
	if err := broker.Consume(context.Background(), "", func(context.Context, Message) error { return nil }); !errors.Is(err, ErrTopicRequired) {
		t.Fatalf("Consume() error = %v, want ErrTopicRequired", err)
	}
	if err := broker.Consume(context.Background(), "t", nil); !errors.Is(err, ErrHandlerRequired) {
		t.Fatalf("Consume() error = %v, want ErrHandlerRequired", err)
	}
}

func TestNewFromDriver(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		wantErr error
	}{
		{name: "empty selects memory", driver: ""},
		{name: "memory", driver: " Memory "},
		{name: "nats without url", driver: DriverNATS, wantErr: ErrNATSURLRequired},
		{name: "kafka without brokers", driver: DriverKafka, wantErr: ErrKafkaBrokersRequired},
		{name: "pubsub without project", driver: DriverGooglePubSub, wantErr: ErrPubSubProjectIDRequired},
		{name: "unknown", driver: "rabbit", wantErr: ErrUnknownDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			m, err := NewFromDriver(context.Background(), tt.driver, FactoryOptions{})

			// Assert
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewFromDriver(%q) error = %v, want %v", tt.driver, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFromDriver(%q) error = %v", tt.driver, err)
			}
			if _, ok := m.(*Memory); !ok {
				t.Fatalf("NewFromDriver(%q) = %T, want *Memory", tt.driver, m)
			}
		})
	}
}

func waitForGroup(t *testing.T, broker *Memory, topic string) {
	t.Helper()
	waitForGroups(t, broker, topic, 1)
}

func waitForGroups(t *testing.T, broker *Memory, topic string, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		broker.mu.RLock()
		got := len(broker.topics[topic])
		broker.mu.RUnlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("consumer groups on %q did not register", topic)
}
