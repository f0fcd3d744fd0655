package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"cloud.google.com/go/pubsub/v2/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const pubsubProject = "gs-test"

func newFakePubSub(t *testing.T, topic, subscription string) *PubSub {
	t.Helper()

	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(ctx, pubsubProject,
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient() error = %v", err)
	}

	topicName := "projects/" + pubsubProject + "/topics/" + topic
	if _, err := client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: topicName}); err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}
	if _, err := client.SubscriptionAdminClient.CreateSubscription(ctx, &pubsubpb.Subscription{
		Name:  "projects/" + pubsubProject + "/subscriptions/" + subscription,
		Topic: topicName,
	}); err != nil {
		t.Fatalf("CreateSubscription() error = %v", err)
	}

	p, err := NewPubSub(ctx, PubSubConfig{Client: client})
	if err != nil {
		t.Fatalf("NewPubSub() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	return p
}

func TestPubSubPublishConsume(t *testing.T) {
	// Arrange
	broker := newFakePubSub(t, "otp_delivery_requested", "otp_delivery_requested_otp")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- broker.Consume(ctx, "otp_delivery_requested", func(_ context.Context, msg Message) error {
			got <- msg
			return nil
		}, WithGroup("otp_delivery_requested_otp"), WithConcurrency(2))
	}()

	// Act
	res, err := broker.Publish(ctx, "otp_delivery_requested", OutgoingMessage{
		Body:    []byte(`{"transaction_id":"7"}`),
		Key:     []byte("7"),
		Headers: []Header{{Key: "cID", Value: []byte("cid-7")}},
	})

	// Assert
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if res.MessageID == "" || res.Topic != "otp_delivery_requested" {
		t.Fatalf("Publish() result = %+v", res)
	}
	select {
	case msg := <-got:
		if string(msg.Body()) != `{"transaction_id":"7"}` || string(msg.Header("cID")) != "cid-7" {
			t.Fatalf("message = %s / %s", msg.Body(), msg.Header("cID"))
		}
		if string(msg.Key()) != "7" || msg.Topic() != "otp_delivery_requested" {
			t.Fatalf("key = %s topic = %s", msg.Key(), msg.Topic())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("message not delivered")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Consume() error = %v, want context.Canceled", err)
	}
}

func TestPubSubConsumeRequiresGroup(t *testing.T) {
	broker := newFakePubSub(t, "t", "s")

	err := broker.Consume(context.Background(), "t", func(context.Context, Message) error { return nil })
	if !errors.Is(err, ErrGroupRequired) {
		t.Fatalf("Consume() error = %v, want ErrGroupRequired", err)
	}
}

func TestPubSubClosed(t *testing.T) {
	broker := newFakePubSub(t, "t", "s")
	if err := broker.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := broker.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("x")}); !errors.Is(err, ErrPubSubClosed) {
		t.Fatalf("Publish() error = %v, want ErrPubSubClosed", err)
	}
	if err := broker.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
