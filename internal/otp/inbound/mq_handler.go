package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/K-Santhoshkumar/GS/internal/otp/usecase"
	"github.com/K-Santhoshkumar/GS/internal/pkg/instrument"
	"github.com/K-Santhoshkumar/GS/internal/pkg/messaging"
	"github.com/K-Santhoshkumar/GS/internal/pkg/uid"
	"github.com/K-Santhoshkumar/GS/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   ucConsumer
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers []messaging.Header) context.Context {
	for i := range headers {
		if headers[i].Key == keyOfCorrelationID && len(headers[i].Value) > 0 {
			return instrument.SetCorrelationID(ctx, string(headers[i].Value))
		}
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) DeliveryRequested(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("otp.inbound.mq").Start(ctx, "DeliveryRequested")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: otp delivery requested", "msg_body", string(body))

	var payload event.OTPDeliveryRequestedMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of otp delivery requested", "msg_body", string(body), "error", err)
		return nil
	}

	if payload.TransactionID <= 0 {
		slog.WarnContext(ctx, "otp delivery requested without transaction id", "msg_body", string(body))
		return nil
	}

	if err := h.uc.ConsumeDeliveryRequested(ctx, usecase.DeliveryRequestedEvent{
		TransactionID: payload.TransactionID,
		Attempt:       payload.Attempt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume otp delivery requested", "msg_body", string(body), "error", err)
		return err
	}

	return nil
}
