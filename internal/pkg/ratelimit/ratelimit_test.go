package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate redis: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisAllowWithinWindow(t *testing.T) {
	// Arrange
	client := newRedisClient(t)
	limiter := NewRedis(client, 3, time.Minute, "otp")
	ctx := context.Background()

	// Act
	var got []bool
	for range 4 {
		ok, err := limiter.Allow(ctx, "generate:LOGIN:a@b.co")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		got = append(got, ok)
	}

	// Assert
	want := []bool{true, true, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hit %d allowed = %v, want %v", i+1, got[i], want[i])
		}
	}

	ttl, err := client.PTTL(ctx, "otp:generate:LOGIN:a@b.co").Result()
	if err != nil {
		t.Fatalf("PTTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v, want within window", ttl)
	}
}

func TestRedisDisabledSkipsRedis(t *testing.T) {
	// Arrange
	limiter := NewRedis(nil, 0, time.Minute, "otp")

	// Act
	ok, err := limiter.Allow(context.Background(), "k")

	// Assert
	if err != nil || !ok {
		t.Fatalf("Allow() = %v, %v; want true, nil", ok, err)
	}
}

func TestUnlimited(t *testing.T) {
	ok, err := Unlimited{}.Allow(context.Background(), "k")
	if err != nil || !ok {
		t.Fatalf("Allow() = %v, %v; want true, nil", ok, err)
	}
}
