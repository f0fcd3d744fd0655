package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/K-Santhoshkumar/GS/internal/pkg/clock"
	"github.com/K-Santhoshkumar/GS/internal/pkg/goerror"
	"github.com/K-Santhoshkumar/GS/internal/pkg/goroutine"
	"github.com/K-Santhoshkumar/GS/internal/pkg/idempotency"
	"github.com/K-Santhoshkumar/GS/internal/pkg/instrument"
	"github.com/K-Santhoshkumar/GS/internal/pkg/jwt"
	"github.com/K-Santhoshkumar/GS/internal/pkg/mail"
	"github.com/K-Santhoshkumar/GS/internal/pkg/ratelimit"
	"github.com/K-Santhoshkumar/GS/internal/pkg/uid"
	"github.com/K-Santhoshkumar/GS/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultCodeLength    = 6
	MaxCodeLength        = 10
	DefaultExpiryMinutes = 10
	DefaultMaxAttempts   = 3
	DefaultRecentLimit   = 50
)

// Authorization object and actions checked for operator endpoints.
const (
	PermObjTransactions = "otp.transactions"
	PermActRead         = "read"
	PermActDeliver      = "deliver"
	PermActInvalidate   = "invalidate"
)

type repoDB interface {
	GetUserEmail(ctx context.Context, userID int64) (string, error)
	CreateTransaction(ctx context.Context, tx *entity.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*entity.Transaction, error)
	MarkDelivered(ctx context.Context, id int64, sentAt time.Time) (bool, error)
	Verify(ctx context.Context, in entity.VerifyAttempt) (entity.VerifyResult, error)
	InvalidateExisting(ctx context.Context, purpose entity.Purpose, filter entity.RecipientFilter) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]entity.Transaction, error)
}

type repoMail interface {
	Send(ctx context.Context, msg mail.Message) error
}

type repoSMS interface {
	Send(ctx context.Context, phone, message string) bool
}

type repoMessaging interface {
	PublishDeliveryRequested(ctx context.Context, msg DeliveryRequestedEvent) error
	PublishLifecycle(ctx context.Context, msg LifecycleEvent) error
}

type debugSink interface {
	Record(ctx context.Context, tx *entity.Transaction, code string)
	Enabled() bool
}

type noopSink struct{}

func (noopSink) Record(context.Context, *entity.Transaction, string) {}

func (noopSink) Enabled() bool { return false }

type enforcer interface {
	Enforce(rvals ...any) (bool, error)
}

// Settings are the tunables of the engine. Zero values take the defaults.
type Settings struct {
	CodeLength    int
	ExpiryMinutes int
	MaxAttempts   int
	RecentLimit   int
	CompanyName   string
	MailFrom      string
}

func (st Settings) withDefaults() Settings {
	if st.CodeLength <= 0 || st.CodeLength > MaxCodeLength {
		st.CodeLength = DefaultCodeLength
	}
	if st.ExpiryMinutes <= 0 {
		st.ExpiryMinutes = DefaultExpiryMinutes
	}
	if st.MaxAttempts <= 0 {
		st.MaxAttempts = DefaultMaxAttempts
	}
	if st.RecentLimit <= 0 {
		st.RecentLimit = DefaultRecentLimit
	}
	if st.CompanyName == "" {
		st.CompanyName = "OTP Service"
	}
	return st
}

type counters struct {
	generated      metric.Int64Counter
	delivered      metric.Int64Counter
	deliveryFailed metric.Int64Counter
	verified       metric.Int64Counter
	verifyRejected metric.Int64Counter
	invalidated    metric.Int64Counter
}

type Usecase struct {
	repoDB        repoDB
	repoMail      repoMail
	repoSMS       repoSMS
	repoMessaging repoMessaging
	debugSink     debugSink
	limiter       ratelimit.Limiter
	idemp         idempotency.Idempotency
	validator     validator.Validator
	uid           uid.NumberID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	enforcer      enforcer
	goroutine     *goroutine.Manager
	settings      Settings
	counters      counters
}

type Dependency struct {
	RepoDB        repoDB
	RepoMail      repoMail
	RepoSMS       repoSMS
	RepoMessaging repoMessaging
	DebugSink     debugSink
	Limiter       ratelimit.Limiter
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	UID           uid.NumberID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Enforcer      enforcer
	Goroutine     *goroutine.Manager
	Settings      Settings
}

func New(dep Dependency) *Usecase {
	s := &Usecase{
		repoDB:        dep.RepoDB,
		repoMail:      dep.RepoMail,
		repoSMS:       dep.RepoSMS,
		repoMessaging: dep.RepoMessaging,
		debugSink:     dep.DebugSink,
		limiter:       dep.Limiter,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		uid:           dep.UID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		enforcer:      dep.Enforcer,
		goroutine:     dep.Goroutine,
		settings:      dep.Settings.withDefaults(),
	}

	if s.ins == nil {
		s.ins = instrument.NewNoop()
	}
	if s.limiter == nil {
		s.limiter = ratelimit.Unlimited{}
	}
	if s.idemp == nil {
		s.idemp = idempotency.Passthrough{}
	}
	if s.debugSink == nil {
		s.debugSink = noopSink{}
	}
	if s.clock == nil {
		s.clock = clock.New()
	}

	meter := s.ins.Meter("otp.usecase")
	s.counters = counters{
		generated:      newCounter(meter, "otp.generated", "Codes generated"),
		delivered:      newCounter(meter, "otp.delivered", "Codes delivered on at least one channel"),
		deliveryFailed: newCounter(meter, "otp.delivery_failed", "Deliveries where every channel failed"),
		verified:       newCounter(meter, "otp.verified", "Successful verifications"),
		verifyRejected: newCounter(meter, "otp.verify_rejected", "Rejected verifications by reason"),
		invalidated:    newCounter(meter, "otp.invalidated", "Transactions invalidated in bulk"),
	}

	return s
}

func newCounter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		slog.Error("failed to create otp counter", "name", name, "error", err)
		return metricnoop.Int64Counter{}
	}
	return c
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.usecase").Start(ctx, name)
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	if s.enforcer == nil {
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	ok, err := s.enforcer.Enforce(clm.Role, obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "subject", clm.Subject, "role", clm.Role, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ok {
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	return clm, nil
}

// emit publishes a lifecycle event off the request path.
func (s *Usecase) emit(ctx context.Context, ev LifecycleEvent) {
	if s.repoMessaging == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.clock.Now()
	}

	publish := func(ctx context.Context) error {
		if err := s.repoMessaging.PublishLifecycle(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "failed to publish otp lifecycle event", "type", ev.Type, "transaction_id", ev.TransactionID, "error", err)
		}
		return nil
	}

	bg := context.WithoutCancel(ctx)
	if !s.goroutine.Go(bg, publish) {
		//nolint:errcheck // logged inside
		publish(bg)
	}
}
