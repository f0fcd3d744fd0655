// Package sms sends OTP text messages through Twilio, or simulates delivery
// when no provider is configured.
package sms

import (
	"context"
	"log/slog"
	"strings"

	"github.com/K-Santhoshkumar/GS/internal/pkg/instrument"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.opentelemetry.io/otel/codes"
)

// TwilioConfig holds the REST credentials and the sending number.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type Twilio struct {
	api  messageCreator
	from string
	ins  instrument.Instrumentation
}

func NewTwilio(cfg TwilioConfig, ins instrument.Instrumentation) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Twilio{api: client.Api, from: cfg.From, ins: ins}
}

// Send never logs the message body; it carries the code.
func (t *Twilio) Send(ctx context.Context, phone, message string) bool {
	ctx, span := t.ins.Tracer("otp.outbound.sms").Start(ctx, "TwilioSend")
	defer span.End()

	if strings.TrimSpace(phone) == "" {
		return false
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(phone)
	params.SetBody(message)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "failed to send otp sms via twilio", "phone", maskPhone(phone), "error", err)
		return false
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.InfoContext(ctx, "otp sms sent", "phone", maskPhone(phone), "sid", sid)

	return true
}

// Simulated reports success without contacting a provider.
type Simulated struct{}

func (Simulated) Send(ctx context.Context, phone, _ string) bool {
	if strings.TrimSpace(phone) == "" {
		return false
	}
	slog.InfoContext(ctx, "otp sms simulated, no provider configured", "phone", maskPhone(phone))
	return true
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
