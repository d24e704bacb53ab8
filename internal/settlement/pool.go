package settlement

import "math/big"

// DefaultFeeBps is the platform fee in basis points (3%).
const DefaultFeeBps int64 = 300

// Fee returns the platform's cut of a pool, rounded down. Flooring keeps
// netPool + fee == totalStaked exact for every stake total.
func Fee(totalStaked, feeBps int64) int64 {
	if totalStaked <= 0 || feeBps <= 0 {
		return 0
	}
	return totalStaked * feeBps / 10_000
}

// FeeWithReserve returns the fee skim with insurance refunds kept funded.
// Jokered non-risk losses are refunded from pool custody, so the skim may
// take at most totalStaked - jokerReserve; when the nominal fee would cut
// into the reserve, the treasury takes the haircut, never the refunds.
func FeeWithReserve(totalStaked, feeBps, jokerReserve int64) int64 {
	fee := Fee(totalStaked, feeBps)
	if totalStaked-fee < jokerReserve {
		fee = totalStaked - jokerReserve
	}
	if fee < 0 {
		fee = 0
	}
	return fee
}

// PoolPayout computes a user's entitlement from a resolved pool market.
//
// amount is the user's staked amount, netPool the pool after the fee skim,
// jokerReserve the sum of jokered non-risk losing amounts frozen at
// resolution, and correctWeight the risk-weighted sum of all winning stakes
// in StakeWeight units. A jokered non-risk loss refunds the original amount
// out of the reserve; a winning pick splits the remainder
// (netPool - jokerReserve) proportionally, multiply-then-divide; everything
// else pays zero. Refund entitlements and winner entitlements together never
// exceed netPool.
func PoolPayout(p Pick, amount, netPool, jokerReserve, correctWeight int64) int64 {
	switch Judge(p) {
	case VerdictWon:
		distributable := netPool - jokerReserve
		if correctWeight <= 0 || distributable <= 0 {
			return 0
		}
		payout := mulDiv(distributable, StakeWeight(amount, p.Risk), correctWeight)
		// Safety cap: the weights of all winners sum to correctWeight, so a
		// single payout can never legitimately exceed the distributable pool.
		if payout > distributable {
			payout = distributable
		}
		return payout
	case VerdictSaved:
		return amount
	default:
		return 0
	}
}

// mulDiv returns a*b/den with the product taken at full precision, so large
// pools cannot overflow int64 mid-computation.
func mulDiv(a, b, den int64) int64 {
	var prod big.Int
	prod.Mul(big.NewInt(a), big.NewInt(b))
	prod.Quo(&prod, big.NewInt(den))
	return prod.Int64()
}
