package db

import (
	"context"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/jackc/pgx/v5"
)

func (s *DB) GetUserEmail(ctx context.Context, userID int64) (_ string, err error) {
	ctx, span := s.startSpan(ctx, "GetUserEmail")
	defer func() { s.endSpan(span, err) }()

	var email string
	err = s.conn.QueryRow(ctx, `SELECT email FROM otp_users WHERE id = @id`, pgx.NamedArgs{"id": userID}).Scan(&email)
	if err != nil {
		return "", s.mapError(err)
	}

	return email, nil
}

func (s *DB) GetTransaction(ctx context.Context, id int64) (_ *entity.Transaction, err error) {
	ctx, span := s.startSpan(ctx, "GetTransaction")
	defer func() { s.endSpan(span, err) }()

	var userEmail string
	row := s.conn.QueryRow(ctx, `
		SELECT `+transactionColumns+`, COALESCE(u.email, '')
		FROM otp_transactions t
		LEFT JOIN otp_users u ON u.id = t.user_id
		WHERE t.id = @id`,
		pgx.NamedArgs{"id": id},
	)

	tx, err := scanTransaction(row, &userEmail)
	if err != nil {
		return nil, s.mapError(err)
	}
	tx.UserEmail = userEmail

	return tx, nil
}

func (s *DB) ListRecent(ctx context.Context, limit int) (_ []entity.Transaction, err error) {
	ctx, span := s.startSpan(ctx, "ListRecent")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT `+transactionColumns+`, COALESCE(u.email, '')
		FROM otp_transactions t
		LEFT JOIN otp_users u ON u.id = t.user_id
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT @limit`,
		pgx.NamedArgs{"limit": limit},
	)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	items := make([]entity.Transaction, 0, limit)
	for rows.Next() {
		var userEmail string
		tx, err := scanTransaction(rows, &userEmail)
		if err != nil {
			return nil, s.mapError(err)
		}
		tx.UserEmail = userEmail
		items = append(items, *tx)
	}

	if err = rows.Err(); err != nil {
		return nil, s.mapError(err)
	}

	return items, nil
}
