// Package server exposes the settlement engine over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/predictleague/settlement/internal/auth"
	"github.com/predictleague/settlement/internal/domain"
	"github.com/predictleague/settlement/internal/server/handler"
	"github.com/predictleague/settlement/internal/server/middleware"
	"github.com/predictleague/settlement/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// RateLimit applies per-client request limits when a limiter is wired.
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Markets  *handler.MarketHandler
	Stakes   *handler.StakeHandler
	Payouts  *handler.PayoutHandler
	Jokers   *handler.JokerHandler
	Seasons  *handler.SeasonHandler
	Episodes *handler.EpisodeHandler
	Accounts *handler.AccountHandler
}

// Server is the HTTP + WebSocket API server for the settlement engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. registry and limiter may be nil to disable auth and
// rate limiting respectively.
func NewServer(cfg Config, handlers Handlers, registry *auth.Registry, limiter domain.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required beyond the shared middleware chain).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market lifecycle.
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Markets.ResolveMarket)

	// Stakes.
	mux.HandleFunc("POST /api/markets/{id}/stakes", handlers.Stakes.PlaceStake)
	mux.HandleFunc("GET /api/markets/{id}/stakes", handlers.Stakes.ListStakes)
	mux.HandleFunc("GET /api/users/{user}/stakes", handlers.Stakes.ListUserStakes)

	// Payouts.
	mux.HandleFunc("GET /api/markets/{id}/payout", handlers.Payouts.GetPayout)
	mux.HandleFunc("POST /api/markets/{id}/claim", handlers.Payouts.Claim)

	// Jokers.
	mux.HandleFunc("POST /api/jokers/grant", handlers.Jokers.GrantJokers)
	mux.HandleFunc("GET /api/jokers/{user}", handlers.Jokers.GetJokers)
	mux.HandleFunc("POST /api/markets/{id}/joker", handlers.Jokers.UseJoker)

	// Fixed-odds episode scoring and season standings.
	mux.HandleFunc("POST /api/episodes/{id}/settle", handlers.Episodes.SettleEpisode)
	mux.HandleFunc("GET /api/seasons/{season}/leaderboard", handlers.Seasons.GetLeaderboard)
	mux.HandleFunc("GET /api/seasons/{season}/users/{user}", handlers.Seasons.GetProfile)

	// Custody accounts.
	mux.HandleFunc("POST /api/accounts/{user}/deposit", handlers.Accounts.Deposit)
	mux.HandleFunc("GET /api/accounts/{user}", handlers.Accounts.GetAccount)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(registry)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateLimitWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
