package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/predictleague/settlement/internal/domain"
)

// StakeService handles stake placement and stake reads.
type StakeService struct {
	stakes domain.StakeStore
	ledger domain.Ledger
	audit  domain.AuditStore
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewStakeService creates a StakeService with all required dependencies.
func NewStakeService(
	stakes domain.StakeStore,
	ledger domain.Ledger,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *StakeService {
	return &StakeService{
		stakes: stakes,
		ledger: ledger,
		audit:  audit,
		bus:    bus,
		logger: logger,
	}
}

// Place records a stake on an open market. The user's custody account is
// debited by exactly amount; if tendered exceeds amount the difference is
// reported back as change rather than entering the pool. tendered == 0 means
// the caller tendered the exact amount.
func (s *StakeService) Place(ctx context.Context, marketID, userID string, option int, amount, tendered int64, risk bool, now time.Time) (domain.PlacedStake, error) {
	if amount <= 0 {
		return domain.PlacedStake{}, domain.ErrInvalidConfig
	}
	if tendered != 0 && tendered < amount {
		return domain.PlacedStake{}, domain.ErrInsufficientFunds
	}

	st, err := s.ledger.PlaceStake(ctx, marketID, userID, option, amount, risk, now)
	if err != nil {
		return domain.PlacedStake{}, fmt.Errorf("stake_service: place %s/%s: %w", marketID, userID, err)
	}

	placed := domain.PlacedStake{Stake: st}
	if tendered > amount {
		placed.Refunded = tendered - amount
	}

	evt, _ := json.Marshal(map[string]any{
		"event":     "stake_placed",
		"market_id": marketID,
		"user_id":   userID,
		"option":    option,
		"amount":    amount,
		"risk":      risk,
	})
	if pubErr := s.bus.Publish(ctx, domain.ChannelStakes, evt); pubErr != nil {
		s.logger.WarnContext(ctx, "stake_service: publish event failed",
			slog.String("market_id", marketID),
			slog.String("user_id", userID),
			slog.String("error", pubErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "stake_placed", map[string]any{
		"market_id": marketID,
		"user_id":   userID,
		"option":    option,
		"amount":    amount,
		"risk":      risk,
		"refunded":  placed.Refunded,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "stake_service: audit log failed",
			slog.String("market_id", marketID),
			slog.String("user_id", userID),
			slog.String("error", auditErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "stake_service: stake placed",
		slog.String("market_id", marketID),
		slog.String("user_id", userID),
		slog.Int("option", option),
		slog.Int64("amount", amount),
		slog.Bool("risk", risk),
	)

	return placed, nil
}

// Get retrieves the single stake a user holds on a market.
func (s *StakeService) Get(ctx context.Context, marketID, userID string) (domain.Stake, error) {
	st, err := s.stakes.Get(ctx, marketID, userID)
	if err != nil {
		return domain.Stake{}, fmt.Errorf("stake_service: get %s/%s: %w", marketID, userID, err)
	}
	return st, nil
}

// ListByMarket returns all stakes on a market.
func (s *StakeService) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Stake, error) {
	stakes, err := s.stakes.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("stake_service: list by market %q: %w", marketID, err)
	}
	return stakes, nil
}

// ListByUser returns a user's stakes across markets.
func (s *StakeService) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Stake, error) {
	stakes, err := s.stakes.ListByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("stake_service: list by user %q: %w", userID, err)
	}
	return stakes, nil
}
