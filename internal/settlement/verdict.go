// Package settlement holds the pure reward arithmetic shared by the two
// settlement strategies: the pari-mutuel pool payout and the fixed-odds
// points score. Both apply the same risk and joker policy; the policy lives
// here once so the strategies cannot drift apart.
package settlement

// Pick captures the outcome-relevant facts of one settled prediction.
type Pick struct {
	Correct   bool
	Risk      bool
	JokerUsed bool
}

// Verdict classifies a settled pick under the shared risk/joker policy.
type Verdict int

const (
	// VerdictLost pays nothing.
	VerdictLost Verdict = iota
	// VerdictSaved is a losing pick protected by a joker: the original
	// amount (or flat base points) is returned, never a profit.
	VerdictSaved
	// VerdictWon pays the strategy's full reward.
	VerdictWon
)

// Judge applies the risk/joker policy to a pick. Joker protection never
// applies to a risk pick: risk trades insurance away for the 1.5x
// amplification, so a jokered risk loss is still a loss.
func Judge(p Pick) Verdict {
	if p.Correct {
		return VerdictWon
	}
	if p.JokerUsed && !p.Risk {
		return VerdictSaved
	}
	return VerdictLost
}

// RiskNumerator / RiskDenominator express the 1.5x risk multiplier as an
// exact ratio so integer amounts never lose precision.
const (
	RiskNumerator   = 3
	RiskDenominator = 2
)

// StakeWeight returns a stake's proportional-payout weight in doubled units:
// amount*2 for a plain stake, amount*3 for a risk stake. Doubling keeps the
// 1.5x multiplier integral. The resolution query in store/postgres computes
// the same formula in SQL; change both together.
func StakeWeight(amount int64, risk bool) int64 {
	if risk {
		return amount * RiskNumerator
	}
	return amount * RiskDenominator
}
