// Package mail sends email through a provider-agnostic Mail interface.
package mail

import (
	"context"
	"io"
	"log/slog"
)

// Message is an email payload.
type Message struct {
	// From overrides the sender configured on the provider.
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Recipients returns To, Cc and Bcc combined.
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	return append(out, m.Bcc...)
}

// Mail abstracts an email provider.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}

// Discard accepts every message and logs only its envelope. It is wired when
// no SMTP host is configured.
type Discard struct{}

func (Discard) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "mail discarded, no smtp configured", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (Discard) Close() error { return nil }
