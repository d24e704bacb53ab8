package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketStore persists market metadata and aggregates.
type MarketStore interface {
	Create(ctx context.Context, market Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	ListOpen(ctx context.Context, opts ListOpts) ([]Market, error)
	ListResolved(ctx context.Context, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// StakeStore reads stakes. All stake mutations go through the Ledger.
type StakeStore interface {
	Get(ctx context.Context, marketID, userID string) (Stake, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Stake, error)
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]Stake, error)
}

// JokerStore reads joker grants.
type JokerStore interface {
	Get(ctx context.Context, userID, season string) (JokerGrant, error)
}

// SeasonStore reads season scoring aggregates.
type SeasonStore interface {
	Get(ctx context.Context, userID, season string) (SeasonPoints, error)
	ListBySeason(ctx context.Context, season string, opts ListOpts) ([]SeasonPoints, error)
}

// AccountStore reads custody balances.
type AccountStore interface {
	Get(ctx context.Context, id string) (Account, error)
}

// Ledger executes every mutation of the settlement state. Each method runs as
// a single database transaction: either the full set of reads and writes
// commits, or none of it does. Concurrent calls touching the same market or
// stake serialize on row locks.
type Ledger interface {
	// PlaceStake debits the user's custody by amount, credits the market's
	// pool, records the stake, and bumps the per-option and total aggregates.
	PlaceStake(ctx context.Context, marketID, userID string, option int, amount int64, risk bool, now time.Time) (Stake, error)

	// ResolveMarket transitions the market to resolved, skims the fee to the
	// treasury account, and freezes the net pool and correct-option weight.
	ResolveMarket(ctx context.Context, marketID string, correctOption int, feeBps int64, treasury string, now time.Time) (Market, error)

	// UseJoker consumes one joker from the (user, season) grant and marks the
	// user's stake. The decrement is irreversible even when the stake is a
	// risk stake, where the joker has no payout effect.
	UseJoker(ctx context.Context, marketID, userID, season string, now time.Time) (Stake, error)

	// GrantJokers increments the (user, season) grant by count.
	GrantJokers(ctx context.Context, userID, season string, count int) (JokerGrant, error)

	// Claim transfers the user's computed payout from pool custody to user
	// custody exactly once and returns the amount. A zero payout is a legal
	// no-op transfer; the claimed flag is set either way.
	Claim(ctx context.Context, marketID, userID string, now time.Time) (int64, error)

	// ApplyEpisode applies one episode's scoring delta to the (user, season)
	// aggregate, including the streak transition, and returns the updated row.
	ApplyEpisode(ctx context.Context, userID, season string, delta EpisodeDelta) (SeasonPoints, error)

	// Deposit credits a user's custody account (administrative funding).
	Deposit(ctx context.Context, userID string, amount int64) (Account, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
