package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"loyalty-points-system/models"
)

func TestTierForBoundaries(t *testing.T) {
	cases := []struct {
		lifetime int64
		want     models.Tier
	}{
		{0, models.TierBronze},
		{499, models.TierBronze},
		{500, models.TierSilver},
		{1999, models.TierSilver},
		{2000, models.TierGold},
		{4999, models.TierGold},
		{5000, models.TierPlatinum},
		{9999, models.TierPlatinum},
		{10000, models.TierDiamond},
		{1_000_000, models.TierDiamond},
	}
	for _, tc := range cases {
		standing := TierFor(tc.lifetime)
		assert.Equalf(t, tc.want, standing.Tier, "lifetime=%d", tc.lifetime)
	}
}

func TestTierForProgress(t *testing.T) {
	standing := TierFor(250)
	assert.Equal(t, models.TierBronze, standing.Tier)
	assert.InDelta(t, 50.0, standing.ProgressPercent, 0.001)
	assert.Equal(t, int64(250), standing.PointsToNextTier)

	// Top tier clamps at 100 with nothing left to earn toward.
	top := TierFor(50_000)
	assert.Equal(t, models.TierDiamond, top.Tier)
	assert.Equal(t, 100.0, top.ProgressPercent)
	assert.Equal(t, int64(0), top.PointsToNextTier)
}

func TestTierMultipliers(t *testing.T) {
	assert.Equal(t, 1.0, TierMultiplier(models.TierBronze))
	assert.Equal(t, 1.1, TierMultiplier(models.TierSilver))
	assert.Equal(t, 1.25, TierMultiplier(models.TierGold))
	assert.Equal(t, 1.5, TierMultiplier(models.TierPlatinum))
	assert.Equal(t, 2.0, TierMultiplier(models.TierDiamond))
	assert.Equal(t, 1.0, TierMultiplier(models.Tier("UNKNOWN")))
}

func TestTierRankOrdering(t *testing.T) {
	assert.Equal(t, 0, tierRank(models.TierBronze))
	assert.Equal(t, 4, tierRank(models.TierDiamond))
	assert.Greater(t, tierRank(models.TierGold), tierRank(models.TierSilver))
}
