package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predictleague/settlement/internal/auth"
	"github.com/predictleague/settlement/internal/domain"
	"github.com/predictleague/settlement/internal/notify"
	"github.com/predictleague/settlement/internal/settlement"
)

// episodeLockTTL bounds how long an episode batch may hold its lock.
const episodeLockTTL = 2 * time.Minute

// maxEpisodeWorkers bounds concurrent per-user ledger transactions during a
// batch.
const maxEpisodeWorkers = 8

// ScoringService settles fixed-odds episodes and serves season standings.
type ScoringService struct {
	seasons     domain.SeasonStore
	ledger      domain.Ledger
	locks       domain.LockManager
	leaderboard domain.Leaderboard
	audit       domain.AuditStore
	bus         domain.SignalBus
	notifier    *notify.Notifier
	logger      *slog.Logger
}

// NewScoringService creates a ScoringService with all required dependencies.
// leaderboard and notifier may be nil when those subsystems are disabled.
func NewScoringService(
	seasons domain.SeasonStore,
	ledger domain.Ledger,
	locks domain.LockManager,
	leaderboard domain.Leaderboard,
	audit domain.AuditStore,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *ScoringService {
	return &ScoringService{
		seasons:     seasons,
		ledger:      ledger,
		locks:       locks,
		leaderboard: leaderboard,
		audit:       audit,
		bus:         bus,
		notifier:    notifier,
		logger:      logger,
	}
}

// UserResult is one user's outcome from an episode batch.
type UserResult struct {
	UserID     string              `json:"user_id"`
	PickPoints int64               `json:"pick_points"`
	Season     domain.SeasonPoints `json:"season"`
}

// SettleEpisode scores a batch of fixed-odds picks for one episode. Picks are
// grouped per user, each user's delta is applied as its own ledger
// transaction, and the season leaderboard is refreshed with the new totals.
// A distributed lock keyed on the episode ID prevents the same episode from
// being settled twice concurrently.
func (s *ScoringService) SettleEpisode(ctx context.Context, episodeID, season string, picks []domain.EpisodePick) ([]UserResult, error) {
	if err := auth.Require(ctx, auth.RoleResolver); err != nil {
		return nil, err
	}
	if episodeID == "" || season == "" || len(picks) == 0 {
		return nil, domain.ErrInvalidConfig
	}

	unlock, err := s.locks.Acquire(ctx, "episode:"+episodeID, episodeLockTTL)
	if err != nil {
		return nil, fmt.Errorf("scoring_service: lock episode %q: %w", episodeID, err)
	}
	defer unlock()

	// Fold each user's picks into a single delta.
	deltas := make(map[string]domain.EpisodeDelta)
	for _, p := range picks {
		d := deltas[p.UserID]
		res := settlement.PickPoints(p.Odds, settlement.Pick{
			Correct:   p.Correct,
			Risk:      p.Risk,
			JokerUsed: p.JokerUsed,
		})
		d.PickPoints += res.Points
		d.Total++
		if p.Correct {
			d.Correct++
			d.GotCorrect = true
		}
		deltas[p.UserID] = d
	}

	users := make([]string, 0, len(deltas))
	for u := range deltas {
		users = append(users, u)
	}
	sort.Strings(users)

	var mu sync.Mutex
	results := make([]UserResult, 0, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxEpisodeWorkers)
	for _, userID := range users {
		g.Go(func() error {
			delta := deltas[userID]
			sp, err := s.ledger.ApplyEpisode(gctx, userID, season, delta)
			if err != nil {
				return fmt.Errorf("scoring_service: apply episode for %q: %w", userID, err)
			}

			if s.leaderboard != nil {
				if lbErr := s.leaderboard.Record(gctx, season, userID, sp.Points); lbErr != nil {
					s.logger.WarnContext(gctx, "scoring_service: leaderboard record failed",
						slog.String("user_id", userID),
						slog.String("error", lbErr.Error()),
					)
				}
			}

			mu.Lock()
			results = append(results, UserResult{
				UserID:     userID,
				PickPoints: delta.PickPoints,
				Season:     sp,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].UserID < results[j].UserID })

	evt, _ := json.Marshal(map[string]any{
		"event":      notify.EventEpisodeSettled,
		"episode_id": episodeID,
		"season":     season,
		"users":      len(results),
	})
	if pubErr := s.bus.Publish(ctx, domain.ChannelEpisodes, evt); pubErr != nil {
		s.logger.WarnContext(ctx, "scoring_service: publish event failed",
			slog.String("episode_id", episodeID),
			slog.String("error", pubErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "episode_settled", map[string]any{
		"episode_id": episodeID,
		"season":     season,
		"users":      len(results),
		"picks":      len(picks),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "scoring_service: audit log failed",
			slog.String("episode_id", episodeID),
			slog.String("error", auditErr.Error()),
		)
	}

	if s.notifier != nil {
		if nErr := s.notifier.EpisodeSettled(ctx, episodeID, season, len(results)); nErr != nil {
			s.logger.WarnContext(ctx, "scoring_service: notify failed",
				slog.String("episode_id", episodeID),
				slog.String("error", nErr.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "scoring_service: episode settled",
		slog.String("episode_id", episodeID),
		slog.String("season", season),
		slog.Int("users", len(results)),
		slog.Int("picks", len(picks)),
	)

	return results, nil
}

// Leaderboard returns the season's top n users. The Redis projection is
// consulted first; when it is empty or unavailable the standings are read
// from the persistent store.
func (s *ScoringService) Leaderboard(ctx context.Context, season string, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		n = 10
	}

	if s.leaderboard != nil {
		entries, err := s.leaderboard.Top(ctx, season, n)
		if err != nil {
			s.logger.WarnContext(ctx, "scoring_service: leaderboard read failed",
				slog.String("season", season),
				slog.String("error", err.Error()),
			)
		} else if len(entries) > 0 {
			return entries, nil
		}
	}

	rows, err := s.seasons.ListBySeason(ctx, season, domain.ListOpts{Limit: n})
	if err != nil {
		return nil, fmt.Errorf("scoring_service: list season %q: %w", season, err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, sp := range rows {
		entries = append(entries, domain.LeaderboardEntry{
			UserID: sp.UserID,
			Points: sp.Points,
		})
	}
	return entries, nil
}

// Profile is a user's season standing with the derived win rate.
type Profile struct {
	domain.SeasonPoints
	WinRate float64 `json:"win_rate"`
}

// GetProfile returns a user's season aggregate plus win rate. Users with no
// scored picks get a zero profile.
func (s *ScoringService) GetProfile(ctx context.Context, userID, season string) (Profile, error) {
	sp, err := s.seasons.Get(ctx, userID, season)
	if err != nil {
		return Profile{}, fmt.Errorf("scoring_service: get profile %s/%s: %w", userID, season, err)
	}
	return Profile{
		SeasonPoints: sp,
		WinRate:      settlement.WinRate(sp.CorrectCount, sp.TotalCount),
	}, nil
}
