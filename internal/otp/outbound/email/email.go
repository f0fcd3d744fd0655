package email

import (
	"context"
	"log/slog"
	"time"

	"github.com/K-Santhoshkumar/GS/internal/pkg/instrument"
	"github.com/K-Santhoshkumar/GS/internal/pkg/mail"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Config bounds retries of a single message.
type Config struct {
	Attempts int           // total tries, at least 1
	BaseWait time.Duration // first backoff, doubled per retry
	MaxWait  time.Duration
}

type Mail struct {
	client mail.Mail
	ins    instrument.Instrumentation
	cfg    Config
}

func New(client mail.Mail, ins instrument.Instrumentation, cfg Config) *Mail {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.BaseWait <= 0 {
		cfg.BaseWait = 200 * time.Millisecond
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 2 * time.Second
	}
	return &Mail{client: client, ins: ins, cfg: cfg}
}

func (m *Mail) Send(ctx context.Context, msg mail.Message) error {
	ctx, span := m.ins.Tracer("otp.outbound.email").Start(ctx, "Send")
	defer span.End()

	b := retry.NewExponential(m.cfg.BaseWait)
	b = retry.WithCappedDuration(m.cfg.MaxWait, b)
	b = retry.WithMaxRetries(uint64(m.cfg.Attempts-1), b)

	tries := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		tries++
		if err := m.client.Send(ctx, msg); err != nil {
			slog.WarnContext(ctx, "failed to send otp email, will retry", "try", tries, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})

	span.SetAttributes(attribute.Int("email.tries", tries))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
