package domain

import (
	"context"
	"io"
	"time"
)

// LockManager provides distributed mutual exclusion, used to serialize
// episode settlement batches across instances.
type LockManager interface {
	// Acquire obtains the lock for key or returns ErrLockHeld. The returned
	// function releases the lock and is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// SignalBus publishes settlement events for downstream indexers and
// subscribers (the WebSocket hub, external consumers).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Leaderboard mirrors season point totals for fast ranked reads. Postgres
// remains the source of truth; the mirror is refreshed on every episode
// settlement.
type Leaderboard interface {
	Record(ctx context.Context, season, userID string, points int64) error
	Top(ctx context.Context, season string, n int) ([]LeaderboardEntry, error)
}

// RateLimiter limits request rates per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter stores settlement report objects.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
