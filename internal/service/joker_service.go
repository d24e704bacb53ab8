package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/predictleague/settlement/internal/auth"
	"github.com/predictleague/settlement/internal/domain"
)

// JokerService manages per-season joker grants and their use as stake
// insurance.
type JokerService struct {
	jokers domain.JokerStore
	ledger domain.Ledger
	audit  domain.AuditStore
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewJokerService creates a JokerService with all required dependencies.
func NewJokerService(
	jokers domain.JokerStore,
	ledger domain.Ledger,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *JokerService {
	return &JokerService{
		jokers: jokers,
		ledger: ledger,
		audit:  audit,
		bus:    bus,
		logger: logger,
	}
}

// Grant adds count jokers to a user's season allowance. Admin only.
func (s *JokerService) Grant(ctx context.Context, userID, season string, count int) (domain.JokerGrant, error) {
	if err := auth.Require(ctx, auth.RoleAdmin); err != nil {
		return domain.JokerGrant{}, err
	}
	if count <= 0 {
		return domain.JokerGrant{}, domain.ErrInvalidConfig
	}

	g, err := s.ledger.GrantJokers(ctx, userID, season, count)
	if err != nil {
		return domain.JokerGrant{}, fmt.Errorf("joker_service: grant %s/%s: %w", userID, season, err)
	}

	if auditErr := s.audit.Log(ctx, "jokers_granted", map[string]any{
		"user_id":   userID,
		"season":    season,
		"count":     count,
		"remaining": g.Remaining,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "joker_service: audit log failed",
			slog.String("user_id", userID),
			slog.String("error", auditErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "joker_service: jokers granted",
		slog.String("user_id", userID),
		slog.String("season", season),
		slog.Int("count", count),
		slog.Int("remaining", g.Remaining),
	)

	return g, nil
}

// Use attaches a joker to the caller's stake on an open market, consuming one
// from the season allowance. The joker is spent even when attached to a risk
// stake, where it cannot soften a loss.
func (s *JokerService) Use(ctx context.Context, marketID, userID, season string, now time.Time) (domain.Stake, error) {
	st, err := s.ledger.UseJoker(ctx, marketID, userID, season, now)
	if err != nil {
		return domain.Stake{}, fmt.Errorf("joker_service: use %s/%s: %w", marketID, userID, err)
	}

	evt, _ := json.Marshal(map[string]any{
		"event":     "joker_used",
		"market_id": marketID,
		"user_id":   userID,
		"season":    season,
	})
	if pubErr := s.bus.Publish(ctx, domain.ChannelStakes, evt); pubErr != nil {
		s.logger.WarnContext(ctx, "joker_service: publish event failed",
			slog.String("market_id", marketID),
			slog.String("user_id", userID),
			slog.String("error", pubErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "joker_used", map[string]any{
		"market_id": marketID,
		"user_id":   userID,
		"season":    season,
		"risk":      st.Risk,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "joker_service: audit log failed",
			slog.String("market_id", marketID),
			slog.String("user_id", userID),
			slog.String("error", auditErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "joker_service: joker used",
		slog.String("market_id", marketID),
		slog.String("user_id", userID),
		slog.String("season", season),
	)

	return st, nil
}

// Remaining reports how many jokers a user has left in a season.
func (s *JokerService) Remaining(ctx context.Context, userID, season string) (domain.JokerGrant, error) {
	g, err := s.jokers.Get(ctx, userID, season)
	if err != nil {
		return domain.JokerGrant{}, fmt.Errorf("joker_service: remaining %s/%s: %w", userID, season, err)
	}
	return g, nil
}
