package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	raw  string
}

func newCapturingSMTP(t *testing.T, from string) (*SMTP, *capturedMail) {
	t.Helper()

	s, err := NewSMTP(SMTPConfig{Host: "localhost", Port: 1025, From: from})
	if err != nil {
		t.Fatalf("NewSMTP() error = %v", err)
	}

	got := &capturedMail{}
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		got.addr, got.from, got.to, got.raw = addr, from, to, string(msg)
		return nil
	}
	s.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return s, got
}

func TestSMTPSendMultipart(t *testing.T) {
	// Arrange
	s, got := newCapturingSMTP(t, "noreply@example.com")

	// Act
	err := s.Send(context.Background(), Message{
		To:       []string{"user@example.com"},
		Bcc:      []string{"audit@example.com"},
		Subject:  "Your Login Authentication OTP Code",
		TextBody: "code 123456",
		HTMLBody: "<b>123456</b>",
	})

	// Assert
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.addr != "localhost:1025" || got.from != "noreply@example.com" {
		t.Fatalf("addr/from = %s/%s", got.addr, got.from)
	}
	if len(got.to) != 2 {
		t.Fatalf("recipients = %v, want to+bcc", got.to)
	}
	if strings.Contains(got.raw, "audit@example.com") {
		t.Fatalf("bcc leaked into headers")
	}
	for _, want := range []string{"multipart/alternative", "text/plain", "text/html", "Subject: Your Login"} {
		if !strings.Contains(got.raw, want) {
			t.Fatalf("raw message missing %q:\n%s", want, got.raw)
		}
	}
}

func TestSMTPSendErrors(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		msg     Message
		wantErr error
	}{
		{name: "no recipients", from: "a@b.c", msg: Message{Subject: "x"}, wantErr: ErrSMTPNoRecipients},
		{name: "no sender", msg: Message{To: []string{"u@b.c"}}, wantErr: ErrSMTPNoSender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s, _ := newCapturingSMTP(t, tt.from)

			// Act
			err := s.Send(context.Background(), tt.msg)

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Send() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewSMTPRequiresHost(t *testing.T) {
	if _, err := NewSMTP(SMTPConfig{}); !errors.Is(err, ErrSMTPHostPortRequired) {
		t.Fatalf("NewSMTP() error = %v", err)
	}
}
