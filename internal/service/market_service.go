package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/predictleague/settlement/internal/auth"
	"github.com/predictleague/settlement/internal/domain"
	"github.com/predictleague/settlement/internal/notify"
	"github.com/predictleague/settlement/internal/report"
)

// MarketService handles market lifecycle: creation, reads, and the one-way
// resolution transition.
type MarketService struct {
	markets  domain.MarketStore
	ledger   domain.Ledger
	audit    domain.AuditStore
	bus      domain.SignalBus
	notifier *notify.Notifier
	archiver *report.Archiver
	feeBps   int64
	treasury string
	logger   *slog.Logger
}

// MarketServiceConfig carries the settlement parameters applied at resolution.
type MarketServiceConfig struct {
	FeeBps          int64
	TreasuryAccount string
}

// NewMarketService creates a MarketService with all required dependencies.
// notifier and archiver may be nil when those subsystems are disabled.
func NewMarketService(
	markets domain.MarketStore,
	ledger domain.Ledger,
	audit domain.AuditStore,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	archiver *report.Archiver,
	cfg MarketServiceConfig,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets:  markets,
		ledger:   ledger,
		audit:    audit,
		bus:      bus,
		notifier: notifier,
		archiver: archiver,
		feeBps:   cfg.FeeBps,
		treasury: cfg.TreasuryAccount,
		logger:   logger,
	}
}

// Create validates and persists a new market. The lock time must be in the
// future and the market needs at least two options to be decidable.
func (s *MarketService) Create(ctx context.Context, m domain.Market, now time.Time) (domain.Market, error) {
	if err := auth.Require(ctx, auth.RoleResolver); err != nil {
		return domain.Market{}, err
	}

	if m.ID == "" || m.Question == "" {
		return domain.Market{}, domain.ErrInvalidConfig
	}
	if m.Kind != domain.MarketKindPool && m.Kind != domain.MarketKindPoints {
		return domain.Market{}, domain.ErrInvalidConfig
	}
	if m.OptionCount < 2 {
		return domain.Market{}, domain.ErrInvalidConfig
	}
	if !m.LockTime.After(now) {
		return domain.Market{}, domain.ErrInvalidConfig
	}

	m.CreatedAt = now
	if err := s.markets.Create(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create %q: %w", m.ID, err)
	}

	evt, _ := json.Marshal(map[string]any{
		"event":     notify.EventMarketCreated,
		"market_id": m.ID,
		"kind":      string(m.Kind),
		"lock_time": m.LockTime.Format(time.RFC3339),
	})
	if pubErr := s.bus.Publish(ctx, domain.ChannelMarkets, evt); pubErr != nil {
		s.logger.WarnContext(ctx, "market_service: publish event failed",
			slog.String("market_id", m.ID),
			slog.String("error", pubErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "market_created", map[string]any{
		"market_id": m.ID,
		"kind":      string(m.Kind),
		"options":   m.OptionCount,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "market_service: audit log failed",
			slog.String("market_id", m.ID),
			slog.String("error", auditErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "market_service: market created",
		slog.String("market_id", m.ID),
		slog.String("kind", string(m.Kind)),
		slog.Int("options", m.OptionCount),
	)

	return m, nil
}

// Get retrieves a market by ID.
func (s *MarketService) Get(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get by id %q: %w", id, err)
	}
	return m, nil
}

// ListOpen returns unresolved markets.
func (s *MarketService) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.ListOpen(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list open: %w", err)
	}
	return markets, nil
}

// ListResolved returns resolved markets, most recent first.
func (s *MarketService) ListResolved(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.ListResolved(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list resolved: %w", err)
	}
	return markets, nil
}

// Resolve settles a market to its correct option. The ledger freezes the
// winning weight, skims the fee to the treasury, and marks the market
// resolved in one transaction. The settlement report is archived afterwards;
// archive failures are logged but do not undo the resolution.
func (s *MarketService) Resolve(ctx context.Context, marketID string, correctOption int, now time.Time) (domain.Market, error) {
	if err := auth.Require(ctx, auth.RoleResolver); err != nil {
		return domain.Market{}, err
	}

	m, err := s.ledger.ResolveMarket(ctx, marketID, correctOption, s.feeBps, s.treasury, now)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: resolve %q: %w", marketID, err)
	}

	evt, _ := json.Marshal(map[string]any{
		"event":          notify.EventMarketResolved,
		"market_id":      m.ID,
		"correct_option": correctOption,
		"net_pool":       m.NetPool,
		"fee_collected":  m.FeeCollected,
	})
	if pubErr := s.bus.Publish(ctx, domain.ChannelMarkets, evt); pubErr != nil {
		s.logger.WarnContext(ctx, "market_service: publish event failed",
			slog.String("market_id", m.ID),
			slog.String("error", pubErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "market_resolved", map[string]any{
		"market_id":      m.ID,
		"correct_option": correctOption,
		"total_staked":   m.TotalStaked,
		"fee_collected":  m.FeeCollected,
		"net_pool":       m.NetPool,
		"correct_weight": m.CorrectWeight,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "market_service: audit log failed",
			slog.String("market_id", m.ID),
			slog.String("error", auditErr.Error()),
		)
	}

	if s.notifier != nil {
		if nErr := s.notifier.MarketResolved(ctx, m.ID, correctOption, m.NetPool, m.FeeCollected); nErr != nil {
			s.logger.WarnContext(ctx, "market_service: notify failed",
				slog.String("market_id", m.ID),
				slog.String("error", nErr.Error()),
			)
		}
	}

	if s.archiver != nil {
		if path, aErr := s.archiver.Archive(ctx, m); aErr != nil {
			s.logger.WarnContext(ctx, "market_service: report archive failed",
				slog.String("market_id", m.ID),
				slog.String("error", aErr.Error()),
			)
		} else {
			s.logger.InfoContext(ctx, "market_service: report archived",
				slog.String("market_id", m.ID),
				slog.String("path", path),
			)
		}
	}

	s.logger.InfoContext(ctx, "market_service: market resolved",
		slog.String("market_id", m.ID),
		slog.Int("correct_option", correctOption),
		slog.Int64("net_pool", m.NetPool),
		slog.Int64("fee", m.FeeCollected),
	)

	return m, nil
}
