package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickPoints_CorrectPicks(t *testing.T) {
	res := PickPoints(100, Pick{Correct: true})
	assert.Equal(t, int64(200), res.Points)
	assert.Equal(t, 2.0, res.Breakdown.Multiplier)
	assert.Equal(t, 1.0, res.Breakdown.RiskMultiplier)

	assert.Equal(t, int64(400), PickPoints(300, Pick{Correct: true}).Points)
	assert.Equal(t, int64(150), PickPoints(-200, Pick{Correct: true}).Points)
}

func TestPickPoints_RiskAmplifies(t *testing.T) {
	res := PickPoints(200, Pick{Correct: true, Risk: true})
	assert.Equal(t, int64(450), res.Points)
	assert.Equal(t, 1.5, res.Breakdown.RiskMultiplier)
}

func TestPickPoints_JokerSavesNonRiskLoss(t *testing.T) {
	res := PickPoints(300, Pick{Correct: false, JokerUsed: true})
	assert.Equal(t, int64(100), res.Points)
	assert.True(t, res.Breakdown.JokerSave)
	// The odds multiplier is reported but not applied.
	assert.Equal(t, 4.0, res.Breakdown.Multiplier)
}

func TestPickPoints_JokerUselessOnRiskLoss(t *testing.T) {
	res := PickPoints(300, Pick{Correct: false, JokerUsed: true, Risk: true})
	assert.Equal(t, int64(0), res.Points)
	assert.False(t, res.Breakdown.JokerSave)
}

func TestPickPoints_PlainLoss(t *testing.T) {
	assert.Equal(t, int64(0), PickPoints(150, Pick{}).Points)
}

func TestStreak_Advances(t *testing.T) {
	n, bonus := Streak(0, true)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(0), bonus)

	n, bonus = Streak(1, true)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(25), bonus)

	n, bonus = Streak(4, true)
	assert.Equal(t, 5, n)
	assert.Equal(t, int64(100), bonus)
}

func TestStreak_HardReset(t *testing.T) {
	n, bonus := Streak(5, false)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(0), bonus)
}

func TestWinRate(t *testing.T) {
	assert.Equal(t, 0.0, WinRate(0, 0))
	assert.Equal(t, 0.3, WinRate(3, 10))
	assert.Equal(t, 1.0, WinRate(10, 10))
	assert.Equal(t, 0.6667, WinRate(2, 3))
}
