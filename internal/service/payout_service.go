package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/predictleague/settlement/internal/domain"
	"github.com/predictleague/settlement/internal/notify"
	"github.com/predictleague/settlement/internal/settlement"
)

// PayoutService computes entitlements on resolved pools and processes claims.
type PayoutService struct {
	markets  domain.MarketStore
	stakes   domain.StakeStore
	ledger   domain.Ledger
	audit    domain.AuditStore
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewPayoutService creates a PayoutService with all required dependencies.
// notifier may be nil when notifications are disabled.
func NewPayoutService(
	markets domain.MarketStore,
	stakes domain.StakeStore,
	ledger domain.Ledger,
	audit domain.AuditStore,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *PayoutService {
	return &PayoutService{
		markets:  markets,
		stakes:   stakes,
		ledger:   ledger,
		audit:    audit,
		bus:      bus,
		notifier: notifier,
		logger:   logger,
	}
}

// Calculate returns the payout a user's stake is entitled to on a resolved
// market without claiming it. A user with no stake is entitled to zero.
func (s *PayoutService) Calculate(ctx context.Context, marketID, userID string) (int64, error) {
	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return 0, fmt.Errorf("payout_service: get market %q: %w", marketID, err)
	}
	if !m.Resolved || m.CorrectOption == nil {
		return 0, domain.ErrNotResolved
	}

	st, err := s.stakes.Get(ctx, marketID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("payout_service: get stake %s/%s: %w", marketID, userID, err)
	}

	pick := settlement.Pick{
		Correct:   st.Option == *m.CorrectOption,
		Risk:      st.Risk,
		JokerUsed: st.JokerUsed,
	}
	return settlement.PoolPayout(pick, st.Amount, m.NetPool, m.JokerReserve, m.CorrectWeight), nil
}

// Claim transfers a stake's payout from the pool to the user exactly once.
// The ledger's row lock serializes concurrent claims for the same stake, so
// one caller wins and the rest get domain.ErrAlreadyClaimed.
func (s *PayoutService) Claim(ctx context.Context, marketID, userID string, now time.Time) (int64, error) {
	payout, err := s.ledger.Claim(ctx, marketID, userID, now)
	if err != nil {
		return 0, fmt.Errorf("payout_service: claim %s/%s: %w", marketID, userID, err)
	}

	evt, _ := json.Marshal(map[string]any{
		"event":     notify.EventPayoutClaimed,
		"market_id": marketID,
		"user_id":   userID,
		"payout":    payout,
	})
	if pubErr := s.bus.Publish(ctx, domain.ChannelClaims, evt); pubErr != nil {
		s.logger.WarnContext(ctx, "payout_service: publish event failed",
			slog.String("market_id", marketID),
			slog.String("user_id", userID),
			slog.String("error", pubErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "payout_claimed", map[string]any{
		"market_id": marketID,
		"user_id":   userID,
		"payout":    payout,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "payout_service: audit log failed",
			slog.String("market_id", marketID),
			slog.String("user_id", userID),
			slog.String("error", auditErr.Error()),
		)
	}

	if s.notifier != nil && payout > 0 {
		if nErr := s.notifier.PayoutClaimed(ctx, marketID, userID, payout); nErr != nil {
			s.logger.WarnContext(ctx, "payout_service: notify failed",
				slog.String("market_id", marketID),
				slog.String("error", nErr.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "payout_service: payout claimed",
		slog.String("market_id", marketID),
		slog.String("user_id", userID),
		slog.Int64("payout", payout),
	)

	return payout, nil
}
