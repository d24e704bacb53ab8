package domain

import "time"

// MarketKind selects the settlement strategy for a market. Pool markets
// redistribute staked value pari-mutuel style; points markets are stakeless
// and scored against a posted odds line.
type MarketKind string

const (
	MarketKindPool   MarketKind = "pool"
	MarketKindPoints MarketKind = "points"
)

// Market represents a single predictable event with a fixed option set and a
// lock time. A market is created open and becomes resolved exactly once;
// resolution is terminal.
type Market struct {
	ID          string     `json:"id"`
	Question    string     `json:"question"`
	Kind        MarketKind `json:"kind"`
	OptionCount int        `json:"option_count"`
	LockTime    time.Time  `json:"lock_time"`
	Resolved    bool       `json:"resolved"`

	// CorrectOption is set exactly once at resolution; nil while open.
	CorrectOption *int `json:"correct_option,omitempty"`

	// Monetary amounts are integer cents.
	TotalStaked  int64 `json:"total_staked"`
	FeeCollected int64 `json:"fee_collected"`
	NetPool      int64 `json:"net_pool"`

	// CorrectWeight is the risk-weighted sum of winning stakes, frozen at
	// resolution. Weights are doubled so the 1.5x risk multiplier stays
	// integral: a plain stake weighs amount*2, a risk stake amount*3.
	CorrectWeight int64 `json:"correct_weight"`

	// JokerReserve is the sum of jokered non-risk losing amounts, frozen at
	// resolution. It is earmarked for insurance refunds; winners split only
	// NetPool - JokerReserve.
	JokerReserve int64 `json:"joker_reserve"`

	// OptionTotals holds the per-option staked amounts, indexed by option.
	OptionTotals []int64 `json:"option_totals,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Locked reports whether the market no longer accepts stakes or joker use:
// once the lock time has passed, or once it has been resolved.
func (m Market) Locked(now time.Time) bool {
	return m.Resolved || !now.Before(m.LockTime)
}

// ValidOption reports whether option is within the market's option range.
func (m Market) ValidOption(option int) bool {
	return option >= 0 && option < m.OptionCount
}
