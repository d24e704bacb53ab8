package settlement

import (
	"fmt"
	"math"
)

// FallbackMultiplier is used when the posted odds line is malformed (strictly
// between -99 and 99). Odds arrive from an external source and must not be
// able to corrupt scoring, so conversion degrades instead of erroring.
const FallbackMultiplier = 2.0

// ConvertOddsToMultiplier converts an American-style odds line to a decimal
// reward multiplier, rounded to two decimal places. The result is always
// >= 1.0.
func ConvertOddsToMultiplier(odds int) float64 {
	var m float64
	switch {
	case odds >= 100:
		m = float64(odds)/100 + 1
	case odds <= -100:
		m = 100/math.Abs(float64(odds)) + 1
	default:
		m = FallbackMultiplier
	}
	return math.Round(m*100) / 100
}

// FormatOdds renders an odds line with an explicit sign: "+150", "-110",
// "+0". Display only; never used in computation.
func FormatOdds(odds int) string {
	return fmt.Sprintf("%+d", odds)
}
