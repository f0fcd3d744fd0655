package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/K-Santhoshkumar/GS/internal/pkg/config"
	"github.com/K-Santhoshkumar/GS/internal/pkg/goroutine"
	"github.com/K-Santhoshkumar/GS/internal/pkg/instrument"
	"github.com/K-Santhoshkumar/GS/internal/pkg/messaging"
	"github.com/K-Santhoshkumar/GS/internal/pkg/uid"
	"github.com/K-Santhoshkumar/GS/internal/shared/event"
)

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc ucConsumer,
	ins instrument.Instrumentation,
) {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.otp.consumer_names")

	var consumers = []struct {
		name    string
		topic   string // destination where publisher sent message
		group   string // queue group, channel or consumer group depending on driver
		handler messaging.Handler
	}{
		{
			name:    event.OTPDeliveryRequestedConsumerOTP,
			topic:   event.OTPDeliveryRequestedDestination,
			group:   event.OTPDeliveryRequestedConsumerOTP,
			handler: mqHandler.DeliveryRequested,
		},
	}

	for _, consumer := range consumers {
		if !slices.Contains(enableConsumerNames, consumer.name) {
			continue
		}

		routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", consumer.name)
			return messenger.Consume(pCtx,
				consumer.topic,
				consumer.handler,
				messaging.WithGroup(consumer.group),
				messaging.WithConcurrency(cfg.GetInt("modules.otp.consumer_concurrency")),
				messaging.WithMaxInFlight(10),
			)
		})
	}
}
