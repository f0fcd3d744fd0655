package db

import (
	"context"
	"errors"
	"time"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/K-Santhoshkumar/GS/internal/pkg/goerror"
	"github.com/K-Santhoshkumar/GS/internal/pkg/instrument"
	"github.com/K-Santhoshkumar/GS/internal/pkg/valueobject"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const transactionColumns = `t.id, t.code, t.email, t.phone, t.user_id, t.purpose, t.status,
	t.delivery_method, t.attempts, t.ip_address, t.user_agent, t.additional_info,
	t.created_at, t.sent_at, t.verified_at, t.expires_at`

// recipientFilterSQL narrows by every non-empty filter argument.
const recipientFilterSQL = `(@email::text = '' OR t.email = @email)
	AND (@phone::text = '' OR t.phone = @phone)
	AND (@user_id::bigint IS NULL OR t.user_id = @user_id)`

type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, ins: ins}
}

// - 23505 unique violation → goerror.ErrConflict
// - no rows → goerror.ErrNotFound
func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return goerror.ErrConflict
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func filterArgs(args pgx.NamedArgs, f entity.RecipientFilter) pgx.NamedArgs {
	args["email"] = f.Email
	args["phone"] = f.Phone
	args["user_id"] = f.UserID
	return args
}

// scanTransaction reads transactionColumns followed by any extra destinations.
func scanTransaction(row pgx.Row, extra ...any) (*entity.Transaction, error) {
	var (
		tx                              entity.Transaction
		purpose, status, deliveryMethod int16
		attempts                        int32
		info                            valueobject.JSONMap
		sentAt, verifiedAt              *time.Time
	)

	dest := []any{
		&tx.ID, &tx.Code, &tx.Email, &tx.Phone, &tx.UserID, &purpose, &status,
		&deliveryMethod, &attempts, &tx.IPAddress, &tx.UserAgent, &info,
		&tx.CreatedAt, &sentAt, &verifiedAt, &tx.ExpiresAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	tx.Purpose = entity.Purpose(purpose)
	tx.Status = entity.Status(status)
	tx.DeliveryMethod = entity.DeliveryMethod(deliveryMethod)
	tx.Attempts = int(attempts)
	tx.AdditionalInfo = info
	tx.SentAt = sentAt
	tx.VerifiedAt = verifiedAt

	return &tx, nil
}
