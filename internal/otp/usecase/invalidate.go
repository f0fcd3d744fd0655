package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/K-Santhoshkumar/GS/internal/pkg/goerror"
	"github.com/K-Santhoshkumar/GS/internal/shared/event"
)

type InvalidateInput struct {
	Purpose entity.Purpose
	Filter  entity.RecipientFilter
}

// InvalidateExisting moves every live transaction for the purpose and
// recipient to INVALIDATED and returns how many changed. Failures are
// logged and reported as zero.
func (s *Usecase) InvalidateExisting(ctx context.Context, in InvalidateInput) int64 {
	ctx, span := s.startSpan(ctx, "InvalidateExisting")
	defer span.End()

	if in.Filter.IsEmpty() {
		slog.WarnContext(ctx, "otp invalidation skipped, no recipient filter", "purpose", in.Purpose)
		return 0
	}

	n, err := s.repoDB.InvalidateExisting(ctx, in.Purpose, in.Filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo invalidate otp transactions", "purpose", in.Purpose, "error", err)
		return 0
	}

	slog.InfoContext(ctx, "otp transactions invalidated", "purpose", in.Purpose, "count", n)
	if n > 0 {
		s.counters.invalidated.Add(ctx, n)
		s.emit(ctx, LifecycleEvent{
			Type:    event.OTPLifecycleInvalidated,
			Purpose: in.Purpose,
			Count:   n,
		})
	}

	return n
}

type InvalidateRequestInput struct {
	Purpose entity.Purpose
	Email   string `validate:"omitempty,email"`
	Phone   string `validate:"omitempty,phone"`
	UserID  *int64 `validate:"omitempty,gt=0"`
}

// InvalidateRequest is the operator facing variant of InvalidateExisting.
func (s *Usecase) InvalidateRequest(ctx context.Context, in InvalidateRequestInput) (int64, error) {
	ctx, span := s.startSpan(ctx, "InvalidateRequest")
	defer span.End()

	if _, err := s.authenticatedAndAuthorized(ctx, PermObjTransactions, PermActInvalidate); err != nil {
		return 0, err
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)

	if err := s.validator.Validate(in); err != nil {
		return 0, goerror.NewInvalidInput(err)
	}

	if !in.Purpose.IsValid() {
		return 0, goerror.NewInvalidInput(errInvalidPurpose, "purpose", "purpose is not supported")
	}

	filter := entity.RecipientFilter{Email: in.Email, Phone: in.Phone, UserID: in.UserID}
	if filter.IsEmpty() {
		return 0, goerror.NewInvalidInput(entity.ErrRecipientRequired, "recipient", "email, phone or user_id is required")
	}

	return s.InvalidateExisting(ctx, InvalidateInput{Purpose: in.Purpose, Filter: filter}), nil
}
