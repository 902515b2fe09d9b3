package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/raven-rwho/rem-expenses/internal/auth"
	"github.com/raven-rwho/rem-expenses/internal/backend"
	"github.com/raven-rwho/rem-expenses/internal/cache"
	"github.com/raven-rwho/rem-expenses/internal/cli"
	"github.com/raven-rwho/rem-expenses/internal/currency"
	apphttp "github.com/raven-rwho/rem-expenses/internal/http"
	"github.com/raven-rwho/rem-expenses/internal/log"
	"github.com/raven-rwho/rem-expenses/internal/middleware/ratelimit"
	"github.com/raven-rwho/rem-expenses/internal/perdiem"
	"github.com/raven-rwho/rem-expenses/internal/rates"
	"github.com/raven-rwho/rem-expenses/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	table := cli.LoadRates(logger, cfg.RatesFile)
	loc := cli.LoadLocation(logger, cfg)
	calc := newCalculator(table, loc, logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)

	ctx := context.Background()
	be, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	rateCache := cache.NewLRUCache[currency.Quote](256, cfg.RateCacheTTL)
	converter := currency.NewClient(cfg.FrankfurterURL,
		currency.WithCache(rateCache),
		currency.WithLogger(logger.WithComponent(log.ComponentCurrency)))

	conversions := services.NewConversionService(be.Drafts, converter, logger.WithComponent(log.ComponentConversion))
	disp, err := factory.CreateDispatcher(ctx, backendCfg, conversions)
	if err != nil {
		logger.Error("Failed to initialize conversion dispatcher", "error", err)
		os.Exit(1)
	}
	conversions.SetDispatcher(disp.Dispatcher)

	gate, err := auth.NewGate(cfg.AppPassword,
		auth.WithSecureCookie(cfg.Production()),
		auth.WithLifetime(cfg.SessionTTL),
		auth.WithLogger(logger.WithComponent(log.ComponentAuth)))
	if err != nil {
		logger.Error("Failed to initialize authentication", "error", err)
		os.Exit(1)
	}
	if !gate.Configured() {
		logger.Warn("APP_PASSWORD is not set, logins will fail")
	}

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache))
	caches.Register("sessions", gate.Sessions())
	caches.Register("exchange_rates", rateCache)
	caches.StartCleanup(ctx, 5*time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Reports:     services.NewReportService(calc, be.Drafts, logger.WithComponent(log.ComponentReport)),
		Conversions: conversions,
		Drafts:      be.Drafts,
		Rates:       table,
		Sheets:      be.Reports,
		Archiver:    be.Archiver,
		Gate:        gate,
		LoginLimit: ratelimit.Config{
			Limit:  cfg.LoginRateLimit,
			Window: cfg.LoginRateWindow,
		},
		Logger: logger.WithComponent(log.ComponentHTTP),
	})
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		// drain queued conversions before the store closes
		if err := disp.Cleanup(ctx); err != nil {
			logger.Error("Conversion dispatcher shutdown error", "error", err)
		}
		if err := be.Cleanup(ctx); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting rem-expenses server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"dispatch", disp.Mode,
		"jurisdictions", table.Len())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

func newCalculator(table *rates.Table, loc *time.Location, logger *log.Logger) *perdiem.Calculator {
	return perdiem.New(table,
		perdiem.WithLocation(loc),
		perdiem.WithLogger(logger.WithComponent(log.ComponentPerDiem)))
}
