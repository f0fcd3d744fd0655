package debugsink

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
)

func TestSinkRecord(t *testing.T) {
	// Arrange
	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "dev", "LATEST_OTP.txt")
	s := New(&out, path)
	userID := int64(3)
	tx := &entity.Transaction{
		Phone:     "+15550001111",
		UserID:    &userID,
		Purpose:   entity.PurposeSignup,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	// Act
	s.Record(context.Background(), tx, "483920")

	// Assert
	if !strings.Contains(out.String(), "!!! OTP CODE: 483920") || !strings.Contains(out.String(), "RECIPIENT: +15550001111") {
		t.Fatalf("console banner = %q", out.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := "OTP: 483920\nEmail: N/A\nPhone: +15550001111\nType: SIGNUP\nTime: 2026-01-02 03:04:05\n"
	if string(data) != want {
		t.Fatalf("file = %q, want %q", data, want)
	}
	if !s.Enabled() || (Noop{}).Enabled() {
		t.Fatalf("Enabled() mismatch")
	}
}

func TestRecipientOf(t *testing.T) {
	id := int64(9)
	if got := recipientOf(&entity.Transaction{UserID: &id}); got != "User #9" {
		t.Fatalf("recipientOf(user) = %q", got)
	}
	if got := recipientOf(&entity.Transaction{}); got != "Unknown" {
		t.Fatalf("recipientOf(empty) = %q", got)
	}
}
