package domain

import "time"

// Stake is one user's position on a market: the chosen option, the staked
// amount, and the risk/joker/claimed flags. At most one stake exists per
// (market, user); stakes are frozen once the market locks.
type Stake struct {
	MarketID  string     `json:"market_id"`
	UserID    string     `json:"user_id"`
	Option    int        `json:"option"`
	Amount    int64      `json:"amount"` // integer cents
	Risk      bool       `json:"risk"`
	JokerUsed bool       `json:"joker_used"`
	Claimed   bool       `json:"claimed"`
	PlacedAt  time.Time  `json:"placed_at"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// PlacedStake is the result of placing a stake, including any excess value
// returned to the caller when more than the stake amount was tendered.
type PlacedStake struct {
	Stake    Stake `json:"stake"`
	Refunded int64 `json:"refunded"`
}
