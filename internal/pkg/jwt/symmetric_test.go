package jwt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/K-Santhoshkumar/GS/internal/pkg/clock"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func newTestSigner(t *testing.T, clk *clock.Frozen) *Symmetric {
	t.Helper()

	s, err := NewHS512(Config{
		Secret:    []byte(strings.Repeat("s", 64)),
		Issuer:    "otp-service",
		Audiences: []string{"otp-operators"},
		TTL:       15 * time.Minute,
		Clock:     clk,
		UUID:      fixedID("jti-1"),
	})
	if err != nil {
		t.Fatalf("NewHS512() error = %v", err)
	}
	return s
}

func TestGenerateVerifyRoundTrip(t *testing.T) {
	// Arrange
	clk := clock.NewFrozen(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	s := newTestSigner(t, clk)

	// Act
	token, err := s.Generate("ops-1", "operator")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	claims, err := s.Verify(token)

	// Assert
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != "ops-1" || claims.Role != "operator" || claims.ID != "jti-1" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestVerifyExpired(t *testing.T) {
	// Arrange
	clk := clock.NewFrozen(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	s := newTestSigner(t, clk)
	token, err := s.Generate("ops-1", "operator")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// Act
	clk.Advance(16 * time.Minute)
	_, err = s.Verify(token)

	// Assert
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestNewHS512ShortKey(t *testing.T) {
	if _, err := NewHS512(Config{Secret: []byte("short")}); !errors.Is(err, ErrSigningKeyTooShort) {
		t.Fatalf("NewHS512() error = %v, want ErrSigningKeyTooShort", err)
	}
}

func TestAuthContext(t *testing.T) {
	// Arrange
	ctx := context.Background()

	// Act
	empty := GetAuth(ctx)
	got := GetAuth(SetAuth(ctx, Claims{Role: "auditor"}))

	// Assert
	if empty != nil {
		t.Fatalf("GetAuth(empty) = %+v, want nil", empty)
	}
	if got == nil || got.Role != "auditor" {
		t.Fatalf("GetAuth() = %+v", got)
	}
}
