package db

import (
	"context"
	"time"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/jackc/pgx/v5"
)

// MarkDelivered moves a live transaction to DELIVERED. sent_at keeps its first value.
func (s *DB) MarkDelivered(ctx context.Context, id int64, sentAt time.Time) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "MarkDelivered")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE otp_transactions
		SET status = @delivered, sent_at = COALESCE(sent_at, @sent_at)
		WHERE id = @id AND status IN (@created, @delivered)`,
		pgx.NamedArgs{
			"id":        id,
			"sent_at":   sentAt,
			"created":   int16(entity.StatusCreated),
			"delivered": int16(entity.StatusDelivered),
		},
	)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() > 0, nil
}

func (s *DB) InvalidateExisting(ctx context.Context, purpose entity.Purpose, filter entity.RecipientFilter) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "InvalidateExisting")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE otp_transactions t
		SET status = @invalidated
		WHERE t.purpose = @purpose
			AND t.status IN (@created, @delivered)
			AND `+recipientFilterSQL,
		filterArgs(pgx.NamedArgs{
			"purpose":     int16(purpose),
			"created":     int16(entity.StatusCreated),
			"delivered":   int16(entity.StatusDelivered),
			"invalidated": int16(entity.StatusInvalidated),
		}, filter),
	)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}
