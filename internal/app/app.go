// Package app provides the top-level application lifecycle for the settlement
// service. It wires together all dependencies (stores, the ledger, Redis
// infrastructure, blob storage, services, and notifications), starts the HTTP
// server and WebSocket hub, and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/predictleague/settlement/internal/config"
	"github.com/predictleague/settlement/internal/report"
	"github.com/predictleague/settlement/internal/server"
	"github.com/predictleague/settlement/internal/server/handler"
	"github.com/predictleague/settlement/internal/server/ws"
	"github.com/predictleague/settlement/internal/service"
)

// shutdownTimeout bounds how long graceful shutdown may take once the run
// context is cancelled.
const shutdownTimeout = 15 * time.Second

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the HTTP
// server and the WebSocket hub, and blocks until the context is cancelled or
// the server fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("port", a.cfg.Server.Port),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Services.
	var archiver *report.Archiver
	if deps.BlobWriter != nil {
		archiver = report.NewArchiver(deps.BlobWriter, deps.StakeStore, deps.AuditStore)
	}

	marketSvc := service.NewMarketService(
		deps.MarketStore,
		deps.Ledger,
		deps.AuditStore,
		deps.SignalBus,
		deps.Notifier,
		archiver,
		service.MarketServiceConfig{
			FeeBps:          a.cfg.Settlement.FeeBps,
			TreasuryAccount: a.cfg.Settlement.TreasuryAccount,
		},
		a.logger,
	)
	stakeSvc := service.NewStakeService(deps.StakeStore, deps.Ledger, deps.AuditStore, deps.SignalBus, a.logger)
	payoutSvc := service.NewPayoutService(deps.MarketStore, deps.StakeStore, deps.Ledger, deps.AuditStore, deps.SignalBus, deps.Notifier, a.logger)
	jokerSvc := service.NewJokerService(deps.JokerStore, deps.Ledger, deps.AuditStore, deps.SignalBus, a.logger)
	scoringSvc := service.NewScoringService(
		deps.SeasonStore,
		deps.Ledger,
		deps.LockManager,
		deps.Leaderboard,
		deps.AuditStore,
		deps.SignalBus,
		deps.Notifier,
		a.logger,
	)
	accountSvc := service.NewAccountService(deps.AccountStore, deps.Ledger, deps.AuditStore, a.logger)

	// HTTP handlers.
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(a.logger),
		Markets:  handler.NewMarketHandler(marketSvc, a.logger),
		Stakes:   handler.NewStakeHandler(stakeSvc, a.logger),
		Payouts:  handler.NewPayoutHandler(payoutSvc, a.logger),
		Jokers:   handler.NewJokerHandler(jokerSvc, a.logger),
		Seasons:  handler.NewSeasonHandler(scoringSvc, a.logger),
		Episodes: handler.NewEpisodeHandler(scoringSvc, a.logger),
		Accounts: handler.NewAccountHandler(accountSvc, a.logger),
	}

	// WebSocket hub bridging the Redis signal bus.
	hub := ws.NewHub(deps.SignalBus, a.logger)
	hubCtx, cancelHub := context.WithCancel(ctx)
	a.closers = append(a.closers, cancelHub)
	go func() {
		if err := hub.Run(hubCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("ws hub exited", slog.String("error", err.Error()))
		}
	}()

	srv := server.NewServer(
		server.Config{
			Port:            a.cfg.Server.Port,
			CORSOrigins:     a.cfg.Server.CORSOrigins,
			RateLimit:       a.cfg.Server.RateLimit,
			RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
		},
		handlers,
		deps.Registry,
		deps.RateLimiter,
		hub,
		a.logger,
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-serverErr:
		return err
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
