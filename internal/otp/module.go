package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/K-Santhoshkumar/GS/internal/otp/inbound"
	"github.com/K-Santhoshkumar/GS/internal/otp/outbound/db"
	"github.com/K-Santhoshkumar/GS/internal/otp/outbound/debugsink"
	"github.com/K-Santhoshkumar/GS/internal/otp/outbound/email"
	"github.com/K-Santhoshkumar/GS/internal/otp/outbound/memory"
	"github.com/K-Santhoshkumar/GS/internal/otp/outbound/mq"
	"github.com/K-Santhoshkumar/GS/internal/otp/outbound/sms"
	"github.com/K-Santhoshkumar/GS/internal/otp/usecase"
	"github.com/K-Santhoshkumar/GS/internal/pkg/clock"
	"github.com/K-Santhoshkumar/GS/internal/pkg/config"
	"github.com/K-Santhoshkumar/GS/internal/pkg/goroutine"
	"github.com/K-Santhoshkumar/GS/internal/pkg/idempotency"
	"github.com/K-Santhoshkumar/GS/internal/pkg/instrument"
	"github.com/K-Santhoshkumar/GS/internal/pkg/mail"
	"github.com/K-Santhoshkumar/GS/internal/pkg/messaging"
	"github.com/K-Santhoshkumar/GS/internal/pkg/ratelimit"
	"github.com/K-Santhoshkumar/GS/internal/pkg/router"
	"github.com/K-Santhoshkumar/GS/internal/pkg/uid"
	"github.com/K-Santhoshkumar/GS/internal/pkg/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

var (
	ErrUnknownStore     = errors.New("otp: unknown store")
	ErrDatabaseRequired = errors.New("otp: postgres store requires a database connection")
)

type Enforcer interface {
	Enforce(rvals ...any) (bool, error)
}

type Dependency struct {
	Ctx context.Context
	// DBConn is optional when modules.otp.store is memory.
	DBConn *pgxpool.Pool
	// CacheConn is optional; without it rate limiting is off.
	CacheConn   *redis.Client
	Messaging   messaging.Messaging        `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UID         uid.NumberID               `validate:"required"`
	UUID        uid.StringID               `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Goroutine   *goroutine.Manager         `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Mail        mail.Mail                  `validate:"required"`
	Idempotency idempotency.Idempotency    `validate:"required"`
	Enforcer    Enforcer                   `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	cfg := dep.Config
	repoMail := email.New(dep.Mail, dep.Instrument, email.Config{
		Attempts: cfg.GetInt("modules.otp.delivery.retry_attempts"),
		BaseWait: time.Duration(cfg.GetInt("modules.otp.delivery.retry_base_ms")) * time.Millisecond,
		MaxWait:  time.Duration(cfg.GetInt("modules.otp.delivery.retry_max_ms")) * time.Millisecond,
	})

	ucDep := usecase.Dependency{
		RepoMail:      repoMail,
		RepoSMS:       newSMS(cfg, dep.Instrument),
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		DebugSink:     newDebugSink(cfg),
		Limiter:       newLimiter(cfg, dep.CacheConn),
		Idempotency:   dep.Idempotency,
		Validator:     dep.Validator,
		UID:           dep.UID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Enforcer:      dep.Enforcer,
		Goroutine:     dep.Goroutine,
		Settings: usecase.Settings{
			CodeLength:    cfg.GetInt("modules.otp.code_length"),
			ExpiryMinutes: cfg.GetInt("modules.otp.expiry_minutes"),
			MaxAttempts:   cfg.GetInt("modules.otp.max_attempts"),
			RecentLimit:   cfg.GetInt("modules.otp.recent_limit"),
			CompanyName:   cfg.GetString("modules.otp.company_name"),
			MailFrom:      cfg.GetString("mail.from"),
		},
	}

	store := strings.ToLower(strings.TrimSpace(cfg.GetString("modules.otp.store")))
	switch {
	case store == StoreMemory, store == "" && dep.DBConn == nil:
		slog.Warn("otp module uses the in-memory store, transactions are lost on restart")
		ucDep.RepoDB = memory.New()
	case store == StorePostgres, store == "":
		if dep.DBConn == nil {
			return ErrDatabaseRequired
		}
		ucDep.RepoDB = db.NewDB(dep.DBConn, dep.Instrument)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownStore, store)
	}

	uc := usecase.New(ucDep)

	inbound.RegisterHTTPEndpoint(dep.Router, uc, cfg.GetBool("modules.otp.debug_sink.enabled"))
	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, cfg, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
	}

	return nil
}

func newSMS(cfg config.Config, ins instrument.Instrumentation) interface {
	Send(ctx context.Context, phone, message string) bool
} {
	twilioCfg := sms.TwilioConfig{
		AccountSID: cfg.GetString("sms.twilio.account_sid"),
		AuthToken:  cfg.GetString("sms.twilio.auth_token"),
		From:       cfg.GetString("sms.twilio.from"),
	}
	if !twilioCfg.Enabled() {
		slog.Warn("twilio is not configured, sms delivery is simulated")
		return sms.Simulated{}
	}
	return sms.NewTwilio(twilioCfg, ins)
}

// newDebugSink returns the plaintext code sink only when explicitly enabled.
func newDebugSink(cfg config.Config) interface {
	Record(ctx context.Context, tx *entity.Transaction, code string)
	Enabled() bool
} {
	if !cfg.GetBool("modules.otp.debug_sink.enabled") {
		return debugsink.Noop{}
	}
	slog.Warn("otp debug sink is enabled, codes are written in plaintext; never enable it in production")
	return debugsink.New(os.Stdout, cfg.GetString("modules.otp.debug_sink.path"))
}

func newLimiter(cfg config.Config, cache *redis.Client) ratelimit.Limiter {
	if !cfg.GetBool("modules.otp.rate_limit.enabled") {
		return ratelimit.Unlimited{}
	}
	if cache == nil {
		slog.Warn("otp rate limit is enabled but redis is not configured, limiting is disabled")
		return ratelimit.Unlimited{}
	}
	return ratelimit.NewRedis(cache,
		cfg.GetInt("modules.otp.rate_limit.limit"),
		cfg.GetSecond("modules.otp.rate_limit.window_seconds"),
		"otp:ratelimit",
	)
}
