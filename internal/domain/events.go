package domain

// Signal bus channels for settlement events. Payloads are JSON objects with
// an "event" discriminator field.
const (
	ChannelMarkets  = "markets"  // market_created, market_resolved
	ChannelStakes   = "stakes"   // stake_placed, joker_used
	ChannelClaims   = "claims"   // payout_claimed
	ChannelEpisodes = "episodes" // episode_settled
)
