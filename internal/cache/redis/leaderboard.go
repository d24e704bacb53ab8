package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/predictleague/settlement/internal/domain"
)

// Leaderboard implements domain.Leaderboard using Redis sorted sets. It is a
// read-optimized projection of the season_points table; PostgreSQL remains
// the source of truth and the set is rebuilt by replaying Record calls.
type Leaderboard struct {
	rdb *redis.Client
}

// NewLeaderboard creates a Leaderboard backed by the given Client.
func NewLeaderboard(c *Client) *Leaderboard {
	return &Leaderboard{rdb: c.Raw()}
}

func leaderboardKey(season string) string {
	return "leaderboard:" + season
}

// Record sets a user's score for the season. The absolute points total is
// written, not a delta, so replays are idempotent.
func (lb *Leaderboard) Record(ctx context.Context, season, userID string, points int64) error {
	err := lb.rdb.ZAdd(ctx, leaderboardKey(season), redis.Z{
		Score:  float64(points),
		Member: userID,
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: leaderboard record %s/%s: %w", season, userID, err)
	}
	return nil
}

// Top returns the n highest-scoring users for the season, best first.
func (lb *Leaderboard) Top(ctx context.Context, season string, n int) ([]domain.LeaderboardEntry, error) {
	zs, err := lb.rdb.ZRevRangeWithScores(ctx, leaderboardKey(season), 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: leaderboard top %s: %w", season, err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		userID, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID: userID,
			Points: int64(z.Score),
		})
	}
	return entries, nil
}

// Compile-time interface check.
var _ domain.Leaderboard = (*Leaderboard)(nil)
