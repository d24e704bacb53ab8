package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFee_FloorsAndConserves(t *testing.T) {
	// 500 * 3% = 15 exactly.
	assert.Equal(t, int64(15), Fee(500, 300))

	// Non-exact totals floor; netPool + fee always equals the total.
	for _, total := range []int64{1, 7, 33, 101, 499, 997, 123457} {
		fee := Fee(total, 300)
		assert.LessOrEqual(t, fee, total)
		assert.Equal(t, total, (total-fee)+fee)
	}

	assert.Equal(t, int64(0), Fee(0, 300))
	assert.Equal(t, int64(0), Fee(100, 0))
}

func TestFeeWithReserve(t *testing.T) {
	// Reserve leaves room for the nominal fee: no change.
	assert.Equal(t, int64(15), FeeWithReserve(500, 300, 300))

	// Every cent is owed back as insurance refunds: the treasury takes the
	// haircut, the refunds stay whole.
	assert.Equal(t, int64(0), FeeWithReserve(1000, 300, 1000))

	// Partial haircut: total 1000, nominal fee 30, but 980 is reserved.
	assert.Equal(t, int64(20), FeeWithReserve(1000, 300, 980))
}

func TestPoolPayout_SoleCorrectStakerTakesNetPool(t *testing.T) {
	// Stakes: 200 correct (no risk), 300 wrong. Total 500, fee 15, net 485.
	net := int64(500) - Fee(500, 300)
	assert.Equal(t, int64(485), net)

	weight := StakeWeight(200, false)
	got := PoolPayout(Pick{Correct: true}, 200, net, 0, weight)
	assert.Equal(t, int64(485), got)
}

func TestPoolPayout_RiskWeightedCapAtNetPool(t *testing.T) {
	// Stakes: 100 correct (risk), 100 wrong. Total 200, fee 6, net 194.
	net := int64(200) - Fee(200, 300)
	assert.Equal(t, int64(194), net)

	// Sole correct bettor: full net pool, capped exactly at netPool.
	weight := StakeWeight(100, true)
	got := PoolPayout(Pick{Correct: true, Risk: true}, 100, net, 0, weight)
	assert.Equal(t, int64(194), got)
}

func TestPoolPayout_ProportionalSplit(t *testing.T) {
	// Two winners on a 1000-cent pool with 3% fee: 970 to distribute.
	// Winner A staked 100 risk (weight 300), winner B 200 plain (weight 400).
	net := int64(1000) - Fee(1000, 300)
	correctWeight := StakeWeight(100, true) + StakeWeight(200, false)

	a := PoolPayout(Pick{Correct: true, Risk: true}, 100, net, 0, correctWeight)
	b := PoolPayout(Pick{Correct: true}, 200, net, 0, correctWeight)

	assert.Equal(t, int64(415), a) // 970 * 300 / 700, floored
	assert.Equal(t, int64(554), b) // 970 * 400 / 700, floored
	assert.LessOrEqual(t, a+b, net)
}

func TestPoolPayout_JokerRefundReservedFromPool(t *testing.T) {
	// Stakes: 200 correct, 300 wrong with a joker. Total 500, fee 15,
	// net 485. The 300 refund is reserved; the winner splits the remaining
	// 185. Total entitlements land exactly on the net pool, never above it.
	reserve := int64(300)
	net := int64(500) - FeeWithReserve(500, 300, reserve)
	assert.Equal(t, int64(485), net)

	winner := PoolPayout(Pick{Correct: true}, 200, net, reserve, StakeWeight(200, false))
	refund := PoolPayout(Pick{JokerUsed: true}, 300, net, reserve, StakeWeight(200, false))

	assert.Equal(t, int64(185), winner)
	assert.Equal(t, int64(300), refund)
	assert.LessOrEqual(t, winner+refund, net)
}

func TestPoolPayout_AllJokeredLosersStayFunded(t *testing.T) {
	// Nobody wins and every loser is insured: refunds consume the whole
	// pool, the fee is waived, and each refund is paid in full.
	reserve := int64(400) + 600
	net := int64(1000) - FeeWithReserve(1000, 300, reserve)
	assert.Equal(t, int64(1000), net)

	a := PoolPayout(Pick{JokerUsed: true}, 400, net, reserve, 0)
	b := PoolPayout(Pick{JokerUsed: true}, 600, net, reserve, 0)
	assert.Equal(t, int64(400), a)
	assert.Equal(t, int64(600), b)
	assert.LessOrEqual(t, a+b, net)
}

func TestPoolPayout_JokerRefundsNonRiskLoss(t *testing.T) {
	got := PoolPayout(Pick{Correct: false, JokerUsed: true}, 250, 10_000, 250, 500)
	assert.Equal(t, int64(250), got)
}

func TestPoolPayout_JokerExclusivityOnRiskLoss(t *testing.T) {
	got := PoolPayout(Pick{Correct: false, JokerUsed: true, Risk: true}, 250, 10_000, 0, 500)
	assert.Equal(t, int64(0), got)
}

func TestPoolPayout_PlainLossPaysZero(t *testing.T) {
	assert.Equal(t, int64(0), PoolPayout(Pick{}, 250, 10_000, 0, 500))
}

func TestPoolPayout_EmptyWinningSide(t *testing.T) {
	assert.Equal(t, int64(0), PoolPayout(Pick{Correct: true}, 250, 10_000, 0, 0))
}

func TestPoolPayout_LargePoolNoOverflow(t *testing.T) {
	// A pool large enough that netPool * weight overflows int64 if computed
	// naively: the big.Int path must stay exact.
	net := int64(5_000_000_000_00)    // $5B in cents
	amount := int64(2_000_000_000_00) // $2B stake
	correct := StakeWeight(amount, false) * 2

	got := PoolPayout(Pick{Correct: true}, amount, net, 0, correct)
	assert.Equal(t, net/2, got)
}

func TestStakeWeight(t *testing.T) {
	assert.Equal(t, int64(200), StakeWeight(100, false))
	assert.Equal(t, int64(300), StakeWeight(100, true))
	// Odd amounts stay exact under the doubled representation.
	assert.Equal(t, int64(303), StakeWeight(101, true))
}

func TestJudge(t *testing.T) {
	assert.Equal(t, VerdictWon, Judge(Pick{Correct: true}))
	assert.Equal(t, VerdictWon, Judge(Pick{Correct: true, Risk: true, JokerUsed: true}))
	assert.Equal(t, VerdictSaved, Judge(Pick{JokerUsed: true}))
	assert.Equal(t, VerdictLost, Judge(Pick{JokerUsed: true, Risk: true}))
	assert.Equal(t, VerdictLost, Judge(Pick{}))
}
