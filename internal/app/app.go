package app

import (
	"context"
	"net/http"

	"github.com/K-Santhoshkumar/GS/internal/pkg/clock"
	"github.com/K-Santhoshkumar/GS/internal/pkg/config"
	"github.com/K-Santhoshkumar/GS/internal/pkg/goroutine"
	"github.com/K-Santhoshkumar/GS/internal/pkg/idempotency"
	"github.com/K-Santhoshkumar/GS/internal/pkg/instrument"
	"github.com/K-Santhoshkumar/GS/internal/pkg/jwt"
	"github.com/K-Santhoshkumar/GS/internal/pkg/mail"
	"github.com/K-Santhoshkumar/GS/internal/pkg/messaging"
	"github.com/K-Santhoshkumar/GS/internal/pkg/router"
	"github.com/K-Santhoshkumar/GS/internal/pkg/uid"
	"github.com/K-Santhoshkumar/GS/internal/pkg/validator"
	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.JWT

	// resources (dbConn and cacheConn are nil when not configured)
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Idempotency
	mail      mail.Mail
	messaging messaging.Messaging
	casbin    *casbin.Enforcer

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initCache()
	app.initMail()
	app.initMessaging()
	app.initCasbin()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
