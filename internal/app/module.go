package app

import (
	"log/slog"
	"os"

	"github.com/K-Santhoshkumar/GS/internal/otp"
	"github.com/K-Santhoshkumar/GS/internal/otp/inbound"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.otp.enabled") {
		if err := otp.New(otp.Dependency{
			Ctx:         a.ctx,
			DBConn:      a.dbConn,
			CacheConn:   a.cacheConn,
			Messaging:   a.messaging,
			Config:      a.config,
			Instrument:  a.ins,
			UID:         a.uid,
			UUID:        a.uuid,
			Clock:       a.clock,
			Goroutine:   a.goroutine,
			Validator:   a.validator,
			Router:      a.router,
			Mail:        a.mail,
			Idempotency: a.idemp,
			Enforcer:    a.casbin,
		}); err != nil {
			slog.Error("failed to init module otp", "error", err)
			os.Exit(1)
		}
	}
}

// publicRoutes collects the routes every enabled module serves without a token.
func (a *App) publicRoutes() map[string][]string {
	if !a.config.GetBool("modules.otp.enabled") {
		return nil
	}
	return inbound.PublicRoutes
}
