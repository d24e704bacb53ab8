package settlement

import "math"

const (
	// BasePoints is the flat point value of a correct pick before multipliers,
	// and the flat award of a joker save.
	BasePoints int64 = 100

	// StreakBonus is awarded per streak step beyond the first episode.
	StreakBonus int64 = 25
)

// PointsBreakdown reports how a pick's points were computed, for audit.
type PointsBreakdown struct {
	BasePoints     int64   `json:"base_points"`
	Multiplier     float64 `json:"multiplier"`      // odds-derived, always reported
	RiskMultiplier float64 `json:"risk_multiplier"` // 1.5 when applied, else 1
	JokerSave      bool    `json:"joker_save"`
}

// PointsResult is the outcome of scoring one fixed-odds pick.
type PointsResult struct {
	Points    int64           `json:"points"`
	Breakdown PointsBreakdown `json:"breakdown"`
}

// PickPoints scores a single fixed-odds pick. A correct pick earns
// BasePoints scaled by the odds multiplier and, for risk picks, by 1.5. A
// jokered non-risk loss earns BasePoints flat with no multiplier. Any other
// loss earns zero. The function is total: it never fails on any input.
func PickPoints(odds int, p Pick) PointsResult {
	mult := ConvertOddsToMultiplier(odds)
	breakdown := PointsBreakdown{
		BasePoints:     BasePoints,
		Multiplier:     mult,
		RiskMultiplier: 1,
	}

	switch Judge(p) {
	case VerdictWon:
		if p.Risk {
			breakdown.RiskMultiplier = 1.5
		}
		points := int64(math.Round(float64(BasePoints) * mult * breakdown.RiskMultiplier))
		return PointsResult{Points: points, Breakdown: breakdown}
	case VerdictSaved:
		breakdown.JokerSave = true
		return PointsResult{Points: BasePoints, Breakdown: breakdown}
	default:
		return PointsResult{Breakdown: breakdown}
	}
}

// Streak advances a user's episode streak. An episode with no correct pick
// hard-resets the streak and pays no bonus. Otherwise the streak grows by
// one; the bonus is StreakBonus per step beyond the first episode of the
// streak, scaling linearly.
func Streak(currentStreak int, gotCorrect bool) (newStreak int, bonusPoints int64) {
	if !gotCorrect {
		return 0, 0
	}
	newStreak = currentStreak + 1
	if newStreak >= 2 {
		bonusPoints = StreakBonus * int64(newStreak-1)
	}
	return newStreak, bonusPoints
}

// WinRate returns correct/total rounded to four decimal places, or 0 when no
// picks have been scored.
func WinRate(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*10_000) / 10_000
}
