package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/K-Santhoshkumar/GS/internal/shared/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type VerifyInput struct {
	Code    string `validate:"omitempty,numeric_code,max=10"`
	Purpose entity.Purpose
	Email   string `validate:"omitempty,email"`
	Phone   string `validate:"omitempty,phone"`
	UserID  *int64 `validate:"omitempty,gt=0"`
	// KeepOnSuccess leaves a verified record in VERIFIED instead of
	// invalidating it straight away.
	KeepOnSuccess bool
}

// Verify reports whether in.Code is the live code for the purpose and
// recipient. Every rejection is a plain false; the reason is only logged.
func (s *Usecase) Verify(ctx context.Context, in VerifyInput) bool {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	in.Code = strings.TrimSpace(in.Code)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)

	if in.Code == "" {
		s.rejected(ctx, in.Purpose, 0, "empty_code")
		return false
	}

	if err := s.validator.Validate(in); err != nil || !in.Purpose.IsValid() {
		slog.WarnContext(ctx, "otp verification input rejected", "purpose", in.Purpose, "error", err)
		s.rejected(ctx, in.Purpose, 0, "invalid_input")
		return false
	}

	res, err := s.repoDB.Verify(ctx, entity.VerifyAttempt{
		Code:                in.Code,
		Purpose:             in.Purpose,
		Filter:              entity.RecipientFilter{Email: in.Email, Phone: in.Phone, UserID: in.UserID},
		MaxAttempts:         s.settings.MaxAttempts,
		InvalidateOnSuccess: !in.KeepOnSuccess,
		Now:                 s.clock.Now(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo verify otp", "purpose", in.Purpose, "error", err)
		s.rejected(ctx, in.Purpose, 0, "store_error")
		return false
	}

	if !res.OK() {
		slog.WarnContext(ctx, "otp verification rejected", "purpose", in.Purpose, "transaction_id", res.TransactionID, "reason", res.Outcome, "attempts", res.Attempts)
		s.rejected(ctx, in.Purpose, res.TransactionID, string(res.Outcome))
		return false
	}

	slog.InfoContext(ctx, "otp verified", "purpose", in.Purpose, "transaction_id", res.TransactionID, "status", res.Status)
	s.counters.verified.Add(ctx, 1, metric.WithAttributes(attribute.String("purpose", in.Purpose.String())))
	s.emit(ctx, LifecycleEvent{
		Type:          event.OTPLifecycleVerified,
		TransactionID: res.TransactionID,
		Purpose:       in.Purpose,
		Status:        res.Status,
	})

	return true
}

func (s *Usecase) rejected(ctx context.Context, purpose entity.Purpose, txID int64, reason string) {
	s.counters.verifyRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	s.emit(ctx, LifecycleEvent{
		Type:          event.OTPLifecycleRejected,
		TransactionID: txID,
		Purpose:       purpose,
		Reason:        reason,
	})
}
