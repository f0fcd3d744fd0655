package inbound

import (
	"context"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/K-Santhoshkumar/GS/internal/otp/usecase"
)

type ucConsumer interface {
	ConsumeDeliveryRequested(ctx context.Context, in usecase.DeliveryRequestedEvent) error
}

type uc interface {
	ucConsumer

	Generate(ctx context.Context, in usecase.GenerateInput) (*usecase.GenerateOutput, error)
	Verify(ctx context.Context, in usecase.VerifyInput) bool
	InvalidateRequest(ctx context.Context, in usecase.InvalidateRequestInput) (int64, error)
	DeliverByID(ctx context.Context, in usecase.DeliverByIDInput) (*usecase.DeliverByIDOutput, error)
	ListRecent(ctx context.Context, in usecase.ListRecentInput) ([]entity.Transaction, error)
}
