package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollPoints(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		earned      int
		threshold   int
		wantRem     int
		wantCredits int
	}{
		{"no earnings", 5, 0, 12, 5, 0},
		{"stays below threshold", 0, 2, 12, 2, 0},
		{"wraps once", 10, 5, 12, 3, 1},
		{"exact threshold", 10, 2, 12, 0, 1},
		{"wraps twice", 3, 25, 12, 4, 2},
		{"custom threshold", 4, 7, 10, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roll := RollPoints(tt.current, tt.earned, tt.threshold)
			assert.Equal(t, tt.wantRem, roll.Remainder)
			assert.Equal(t, tt.wantCredits, roll.CreditsEarned)
		})
	}
}

// Twelve single-punch visits fill exactly one punch card.
func TestRollPointsScenario(t *testing.T) {
	points, credits, lifetime := 0, 0, 0
	for i := 0; i < 6; i++ {
		roll := RollPoints(points, 2, 12)
		points = roll.Remainder
		credits += roll.CreditsEarned
		lifetime += 2
	}
	assert.Equal(t, 0, points)
	assert.Equal(t, 1, credits)
	assert.Equal(t, 12, lifetime)
}

func TestRollPointsPanicsOnBadThreshold(t *testing.T) {
	assert.Panics(t, func() { RollPoints(0, 1, 0) })
}

func TestBuildTier(t *testing.T) {
	t.Run("credit ready", func(t *testing.T) {
		tier := BuildTier(3, 2, 12)
		assert.Equal(t, "Free coffee ready", tier.Current.Name)
		assert.Nil(t, tier.Next)
		assert.Equal(t, float64(100), tier.PercentToNext)
		assert.Equal(t, 0, tier.PointsUntilNext)
	})

	t.Run("collecting punches", func(t *testing.T) {
		tier := BuildTier(9, 0, 12)
		assert.Equal(t, "Coffee Club", tier.Current.Name)
		require.NotNil(t, tier.Next)
		assert.Equal(t, 12, tier.Next.Threshold)
		assert.Equal(t, 3, tier.PointsUntilNext)
		assert.InDelta(t, 75.0, tier.PercentToNext, 0.001)
	})
}
