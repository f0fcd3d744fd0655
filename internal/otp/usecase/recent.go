package usecase

import (
	"context"
	"log/slog"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/K-Santhoshkumar/GS/internal/pkg/goerror"
)

type ListRecentInput struct {
	Limit int `validate:"gte=0,lte=500"`
}

// ListRecent returns the newest transactions first for housekeeping views.
func (s *Usecase) ListRecent(ctx context.Context, in ListRecentInput) ([]entity.Transaction, error) {
	ctx, span := s.startSpan(ctx, "ListRecent")
	defer span.End()

	if _, err := s.authenticatedAndAuthorized(ctx, PermObjTransactions, PermActRead); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	limit := in.Limit
	if limit == 0 {
		limit = s.settings.RecentLimit
	}

	items, err := s.repoDB.ListRecent(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list recent otp transactions", "limit", limit, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}
