package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/K-Santhoshkumar/GS/internal/pkg/goerror"
	"github.com/K-Santhoshkumar/GS/internal/pkg/idempotency"
	"github.com/K-Santhoshkumar/GS/internal/shared/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Deliver sends tx.Code on every channel of tx.DeliveryMethod. It reports
// whether at least one channel succeeded; failures are only logged.
func (s *Usecase) Deliver(ctx context.Context, tx *entity.Transaction) bool {
	ctx, span := s.startSpan(ctx, "Deliver")
	defer span.End()

	if !tx.Status.IsLive() {
		slog.WarnContext(ctx, "otp transaction is not deliverable", "transaction_id", tx.ID, "status", tx.Status)
		return false
	}

	emailSent := false
	if tx.DeliveryMethod.UsesEmail() {
		emailSent = s.deliverEmail(ctx, tx)
	}

	smsSent := false
	if tx.DeliveryMethod.UsesSMS() {
		smsSent = s.deliverSMS(ctx, tx)
	}

	if !emailSent && !smsSent {
		slog.WarnContext(ctx, "otp delivery failed on every channel", "transaction_id", tx.ID, "delivery_method", tx.DeliveryMethod)
		s.counters.deliveryFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("method", tx.DeliveryMethod.String())))
		return false
	}

	now := s.clock.Now()
	ok, err := s.repoDB.MarkDelivered(ctx, tx.ID, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo mark otp delivered", "transaction_id", tx.ID, "error", err)
		return false
	}
	if !ok {
		slog.WarnContext(ctx, "otp transaction left live state during delivery", "transaction_id", tx.ID)
		return false
	}

	tx.Status = entity.StatusDelivered
	if tx.SentAt == nil {
		tx.SentAt = &now
	}

	slog.InfoContext(ctx, "otp delivered", "transaction_id", tx.ID, "email", emailSent, "sms", smsSent)
	s.counters.delivered.Add(ctx, 1, metric.WithAttributes(attribute.String("method", tx.DeliveryMethod.String())))
	s.emit(ctx, LifecycleEvent{
		Type:           event.OTPLifecycleDelivered,
		TransactionID:  tx.ID,
		Purpose:        tx.Purpose,
		Status:         tx.Status,
		DeliveryMethod: tx.DeliveryMethod,
		OccurredAt:     now,
	})

	return true
}

func (s *Usecase) deliverEmail(ctx context.Context, tx *entity.Transaction) bool {
	if tx.Email == "" {
		slog.WarnContext(ctx, "otp email delivery skipped, no email address", "transaction_id", tx.ID)
		return false
	}

	msg, err := s.buildEmail(tx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render otp email", "transaction_id", tx.ID, "error", err)
		return false
	}

	if err := s.repoMail.Send(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to send otp email", "transaction_id", tx.ID, "error", err)
		return false
	}

	return true
}

func (s *Usecase) deliverSMS(ctx context.Context, tx *entity.Transaction) bool {
	if tx.Phone == "" {
		slog.WarnContext(ctx, "otp sms delivery skipped, no phone number", "transaction_id", tx.ID)
		return false
	}

	body, err := s.buildSMS(tx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render otp sms", "transaction_id", tx.ID, "error", err)
		return false
	}

	return s.repoSMS.Send(ctx, tx.Phone, body)
}

type DeliverByIDInput struct {
	ID    int64 `validate:"required,gt=0"`
	Async bool
}

type DeliverByIDOutput struct {
	Queued    bool
	Delivered bool
}

// DeliverByID resends an existing live transaction on behalf of an operator.
func (s *Usecase) DeliverByID(ctx context.Context, in DeliverByIDInput) (*DeliverByIDOutput, error) {
	ctx, span := s.startSpan(ctx, "DeliverByID")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, PermObjTransactions, PermActDeliver)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	tx, err := s.getLiveTransaction(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if in.Async {
		if err := s.repoMessaging.PublishDeliveryRequested(ctx, DeliveryRequestedEvent{
			TransactionID: tx.ID,
			Attempt:       s.clock.Now().UnixMilli(),
		}); err != nil {
			slog.ErrorContext(ctx, "failed to publish otp delivery request", "transaction_id", tx.ID, "error", err)
			return nil, goerror.NewServer(err)
		}

		slog.InfoContext(ctx, "otp delivery queued", "transaction_id", tx.ID, "operator", clm.Subject)
		return &DeliverByIDOutput{Queued: true}, nil
	}

	slog.InfoContext(ctx, "otp delivery requested by operator", "transaction_id", tx.ID, "operator", clm.Subject)
	return &DeliverByIDOutput{Delivered: s.Deliver(ctx, tx)}, nil
}

// ConsumeDeliveryRequested handles a queued resend. Redeliveries of the same
// request are dropped by the idempotency guard.
func (s *Usecase) ConsumeDeliveryRequested(ctx context.Context, in DeliveryRequestedEvent) error {
	ctx, span := s.startSpan(ctx, "ConsumeDeliveryRequested")
	defer span.End()

	key := "otp:deliver:" + strconv.FormatInt(in.TransactionID, 10) + ":" + strconv.FormatInt(in.Attempt, 10)
	err := s.idemp.Exec(ctx, key, func(ctx context.Context) error {
		tx, err := s.repoDB.GetTransaction(ctx, in.TransactionID)
		if errors.Is(err, goerror.ErrNotFound) {
			slog.WarnContext(ctx, "otp transaction to deliver not found", "transaction_id", in.TransactionID)
			return nil
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo get otp transaction", "transaction_id", in.TransactionID, "error", err)
			return err
		}

		s.Deliver(ctx, tx)
		return nil
	})

	if errors.Is(err, idempotency.ErrAlreadyCompleted) || errors.Is(err, idempotency.ErrAlreadyInProgress) {
		slog.InfoContext(ctx, "duplicate otp delivery request skipped", "transaction_id", in.TransactionID, "reason", err.Error())
		return nil
	}

	return err
}

func (s *Usecase) getLiveTransaction(ctx context.Context, id int64) (*entity.Transaction, error) {
	tx, err := s.repoDB.GetTransaction(ctx, id)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("OTP transaction not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get otp transaction", "transaction_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !tx.Status.IsLive() {
		return nil, goerror.NewBusiness("OTP transaction is no longer active", goerror.CodeConflict)
	}

	now := s.clock.Now()
	if tx.IsExpired(now) {
		return nil, goerror.NewBusiness("OTP transaction has expired", goerror.CodeConflict)
	}

	return tx, nil
}
