package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/K-Santhoshkumar/GS/internal/otp/usecase"
	"github.com/K-Santhoshkumar/GS/internal/pkg/instrument"
	"github.com/K-Santhoshkumar/GS/internal/pkg/messaging"
	"github.com/K-Santhoshkumar/GS/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishDeliveryRequested(ctx context.Context, msg usecase.DeliveryRequestedEvent) error {
	ctx, span := m.ins.Tracer("otp.outbound.mq").Start(ctx, "PublishDeliveryRequested")
	defer span.End()

	body, err := json.Marshal(event.OTPDeliveryRequestedMessage{
		TransactionID: msg.TransactionID,
		Attempt:       msg.Attempt,
	})
	if err != nil {
		return failSpan(span, err)
	}

	return m.publish(ctx, span, event.OTPDeliveryRequestedDestination, strconv.FormatInt(msg.TransactionID, 10), body)
}

func (m *Messaging) PublishLifecycle(ctx context.Context, msg usecase.LifecycleEvent) error {
	ctx, span := m.ins.Tracer("otp.outbound.mq").Start(ctx, "PublishLifecycle")
	defer span.End()

	body, err := json.Marshal(event.OTPLifecycleMessage{
		Type:           msg.Type,
		TransactionID:  msg.TransactionID,
		Purpose:        msg.Purpose.String(),
		Status:         statusName(msg),
		DeliveryMethod: methodName(msg),
		Reason:         msg.Reason,
		Count:          msg.Count,
		OccurredAt:     msg.OccurredAt,
	})
	if err != nil {
		return failSpan(span, err)
	}

	key := msg.Purpose.String()
	if msg.TransactionID != 0 {
		key = strconv.FormatInt(msg.TransactionID, 10)
	}
	return m.publish(ctx, span, event.OTPLifecycleDestination, key, body)
}

func (m *Messaging) publish(ctx context.Context, span trace.Span, topic, key string, body []byte) error {
	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, topic, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(key),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		return failSpan(span, err)
	}
	return nil
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func statusName(msg usecase.LifecycleEvent) string {
	if msg.Status == 0 {
		return ""
	}
	return msg.Status.String()
}

func methodName(msg usecase.LifecycleEvent) string {
	if msg.DeliveryMethod == 0 {
		return ""
	}
	return msg.DeliveryMethod.String()
}
