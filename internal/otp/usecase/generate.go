package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/K-Santhoshkumar/GS/internal/pkg/goerror"
	"github.com/K-Santhoshkumar/GS/internal/pkg/valueobject"
	"github.com/K-Santhoshkumar/GS/internal/shared/event"
)

var errInvalidPurpose = errors.New("otp: unknown purpose")

type GenerateInput struct {
	Purpose            entity.Purpose
	Email              string `validate:"omitempty,email"`
	Phone              string `validate:"omitempty,phone"`
	UserID             *int64 `validate:"omitempty,gt=0"`
	Length             int    `validate:"gte=0,lte=10"`
	ExpiryMinutes      int    `validate:"gte=0,lte=1440"`
	IPAddress          string
	UserAgent          string
	AdditionalInfo     map[string]any
	SkipDelivery       bool
	InvalidateExisting bool
}

type GenerateOutput struct {
	Transaction *entity.Transaction
	Code        string
	Delivered   bool
}

func (s *Usecase) Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	ctx, span := s.startSpan(ctx, "Generate")
	defer span.End()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if !in.Purpose.IsValid() {
		return nil, goerror.NewInvalidInput(errInvalidPurpose, "purpose", "purpose is not supported")
	}

	// The user record is only consulted when no contact was given.
	email := in.Email
	if email == "" && in.Phone == "" && in.UserID != nil {
		userEmail, err := s.repoDB.GetUserEmail(ctx, *in.UserID)
		switch {
		case errors.Is(err, goerror.ErrNotFound):
			slog.WarnContext(ctx, "user has no email on record", "user_id", *in.UserID)
		case err != nil:
			slog.ErrorContext(ctx, "failed to repo get user email", "user_id", *in.UserID, "error", err)
			return nil, goerror.NewServer(err)
		default:
			email = userEmail
		}
	}

	if email == "" && in.Phone == "" && in.UserID == nil {
		return nil, goerror.NewInvalidInput(entity.ErrRecipientRequired, "recipient", "email, phone or user_id is required")
	}

	if err := s.allowGenerate(ctx, in.Purpose, email, in.Phone, in.UserID); err != nil {
		return nil, err
	}

	length := in.Length
	if length <= 0 {
		length = s.settings.CodeLength
	}
	expiry := in.ExpiryMinutes
	if expiry <= 0 {
		expiry = s.settings.ExpiryMinutes
	}

	filter := entity.RecipientFilter{Email: email, Phone: in.Phone, UserID: in.UserID}
	if in.InvalidateExisting {
		s.InvalidateExisting(ctx, InvalidateInput{Purpose: in.Purpose, Filter: filter})
	}

	code, err := generateCode(length)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	tx := &entity.Transaction{
		ID:             s.uid.Generate(),
		Code:           code,
		Email:          email,
		Phone:          in.Phone,
		UserID:         in.UserID,
		Purpose:        in.Purpose,
		Status:         entity.StatusCreated,
		DeliveryMethod: entity.DeliveryMethodFor(email, in.Phone),
		IPAddress:      in.IPAddress,
		UserAgent:      in.UserAgent,
		AdditionalInfo: valueobject.JSONMap(in.AdditionalInfo).Clone(),
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Duration(expiry) * time.Minute),
	}

	if err := s.repoDB.CreateTransaction(ctx, tx); err != nil {
		slog.ErrorContext(ctx, "failed to repo create otp transaction", "purpose", in.Purpose, "error", err)
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "otp generated", "transaction_id", tx.ID, "purpose", tx.Purpose, "delivery_method", tx.DeliveryMethod, "expires_at", tx.ExpiresAt)
	s.debugSink.Record(ctx, tx, code)
	s.counters.generated.Add(ctx, 1)
	s.emit(ctx, LifecycleEvent{
		Type:           event.OTPLifecycleGenerated,
		TransactionID:  tx.ID,
		Purpose:        tx.Purpose,
		Status:         tx.Status,
		DeliveryMethod: tx.DeliveryMethod,
		OccurredAt:     now,
	})

	out := &GenerateOutput{Transaction: tx, Code: code}
	if !in.SkipDelivery {
		out.Delivered = s.Deliver(ctx, tx)
	}

	return out, nil
}

// allowGenerate applies the per purpose and recipient limit. Limiter errors
// are logged and the request is let through.
func (s *Usecase) allowGenerate(ctx context.Context, purpose entity.Purpose, email, phone string, userID *int64) error {
	recipient := email
	if recipient == "" {
		recipient = phone
	}
	if recipient == "" && userID != nil {
		recipient = "user:" + strconv.FormatInt(*userID, 10)
	}

	key := "otp:generate:" + purpose.String() + ":" + recipient
	ok, err := s.limiter.Allow(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check otp rate limit", "purpose", purpose, "error", err)
		return nil
	}
	if !ok {
		slog.WarnContext(ctx, "otp generation rate limited", "purpose", purpose)
		return goerror.NewBusiness("Too many OTP requests, please try again later", goerror.CodeTooManyRequest)
	}

	return nil
}
