package db

import (
	"context"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/jackc/pgx/v5"
)

func (s *DB) CreateTransaction(ctx context.Context, tx *entity.Transaction) (err error) {
	ctx, span := s.startSpan(ctx, "CreateTransaction")
	defer func() { s.endSpan(span, err) }()

	info := map[string]any(tx.AdditionalInfo)
	if info == nil {
		info = map[string]any{}
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO otp_transactions (
			id, code, email, phone, user_id, purpose, status, delivery_method, attempts,
			ip_address, user_agent, additional_info, created_at, sent_at, verified_at, expires_at
		) VALUES (
			@id, @code, @email, @phone, @user_id, @purpose, @status, @delivery_method, @attempts,
			@ip_address, @user_agent, @additional_info, @created_at, @sent_at, @verified_at, @expires_at
		)`,
		pgx.NamedArgs{
			"id":              tx.ID,
			"code":            tx.Code,
			"email":           tx.Email,
			"phone":           tx.Phone,
			"user_id":         tx.UserID,
			"purpose":         int16(tx.Purpose),
			"status":          int16(tx.Status),
			"delivery_method": int16(tx.DeliveryMethod),
			"attempts":        int32(tx.Attempts),
			"ip_address":      tx.IPAddress,
			"user_agent":      tx.UserAgent,
			"additional_info": info,
			"created_at":      tx.CreatedAt,
			"sent_at":         tx.SentAt,
			"verified_at":     tx.VerifiedAt,
			"expires_at":      tx.ExpiresAt,
		},
	)

	return s.mapError(err)
}
