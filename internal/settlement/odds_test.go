package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertOddsToMultiplier_Favorites(t *testing.T) {
	assert.Equal(t, 1.91, ConvertOddsToMultiplier(-110))
	assert.Equal(t, 1.5, ConvertOddsToMultiplier(-200))
	assert.Equal(t, 1.25, ConvertOddsToMultiplier(-400))
}

func TestConvertOddsToMultiplier_Underdogs(t *testing.T) {
	assert.Equal(t, 2.0, ConvertOddsToMultiplier(100))
	assert.Equal(t, 2.5, ConvertOddsToMultiplier(150))
	assert.Equal(t, 4.0, ConvertOddsToMultiplier(300))
}

func TestConvertOddsToMultiplier_MalformedFallsBack(t *testing.T) {
	assert.Equal(t, 2.0, ConvertOddsToMultiplier(0))
	assert.Equal(t, 2.0, ConvertOddsToMultiplier(50))
	assert.Equal(t, 2.0, ConvertOddsToMultiplier(-99))
}

func TestConvertOddsToMultiplier_AlwaysAtLeastOne(t *testing.T) {
	for _, odds := range []int{-100000, -550, -101, -100, -1, 0, 1, 99, 100, 101, 550, 100000} {
		assert.GreaterOrEqual(t, ConvertOddsToMultiplier(odds), 1.0, "odds %d", odds)
	}
}

func TestFormatOdds(t *testing.T) {
	assert.Equal(t, "+150", FormatOdds(150))
	assert.Equal(t, "-110", FormatOdds(-110))
	assert.Equal(t, "+0", FormatOdds(0))
}
