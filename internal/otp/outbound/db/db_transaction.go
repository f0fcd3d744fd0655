package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/K-Santhoshkumar/GS/internal/pkg/goerror"
	"github.com/jackc/pgx/v5"
)

// Verify locks the best DELIVERED candidate, applies the attempt and writes
// the result back in one transaction, so concurrent callers serialize on the
// row and at most one of them can verify a code.
//
// The candidate is the most recent record with the submitted code. When
// recipient filters are given and no record carries that code, the most
// recent record for the recipient is charged with the failed attempt.
func (s *DB) Verify(ctx context.Context, in entity.VerifyAttempt) (_ entity.VerifyResult, err error) {
	ctx, span := s.startSpan(ctx, "Verify")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return entity.VerifyResult{}, err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback", "error", rErr)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM otp_transactions t
		WHERE t.purpose = @purpose
			AND t.status = @delivered
			AND `+recipientFilterSQL+`
			AND (t.code = @code OR @has_filter::boolean)
		ORDER BY (t.code = @code) DESC, t.created_at DESC, t.id DESC
		LIMIT 1
		FOR UPDATE`,
		filterArgs(pgx.NamedArgs{
			"purpose":    int16(in.Purpose),
			"delivered":  int16(entity.StatusDelivered),
			"code":       in.Code,
			"has_filter": !in.Filter.IsEmpty(),
		}, in.Filter),
	)

	cur, err := scanTransaction(row)
	if err != nil {
		if err = s.mapError(err); errors.Is(err, goerror.ErrNotFound) {
			return entity.VerifyResult{Outcome: entity.VerifyOutcomeNoMatch}, nil
		}
		return entity.VerifyResult{}, err
	}

	outcome := entity.ApplyVerifyAttempt(cur, in)

	if _, err = tx.Exec(ctx, `
		UPDATE otp_transactions
		SET status = @status, attempts = @attempts, verified_at = @verified_at
		WHERE id = @id`,
		pgx.NamedArgs{
			"id":          cur.ID,
			"status":      int16(cur.Status),
			"attempts":    int32(cur.Attempts),
			"verified_at": cur.VerifiedAt,
		},
	); err != nil {
		return entity.VerifyResult{}, s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return entity.VerifyResult{}, s.mapError(err)
	}

	return entity.VerifyResult{
		TransactionID: cur.ID,
		Status:        cur.Status,
		Attempts:      cur.Attempts,
		Outcome:       outcome,
	}, nil
}
