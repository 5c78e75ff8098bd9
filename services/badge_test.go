package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-points-system/models"
)

func TestSeedDefaultBadgesIdempotent(t *testing.T) {
	db, _, badges, _, _, _ := setupEngine(t)

	// Seeding again must not duplicate rows.
	require.NoError(t, badges.SeedDefaultBadges())

	var count int64
	require.NoError(t, db.Model(&models.Badge{}).Count(&count).Error)
	assert.Equal(t, int64(len(models.DefaultBadges)), count)
}

func TestCheckAndAwardOnce(t *testing.T) {
	db, ledger, badges, _, _, _ := setupEngine(t)

	_, _, err := ledger.RecordOrderStats("user-b1", 2500)
	require.NoError(t, err)

	awarded, err := badges.CheckAndAward("user-b1", "FIRST_PURCHASE")
	require.NoError(t, err)
	require.NotNil(t, awarded)
	assert.Equal(t, "FIRST_PURCHASE", awarded.BadgeCode)

	// Second check: already held, quietly a no-op.
	again, err := badges.CheckAndAward("user-b1", "FIRST_PURCHASE")
	require.NoError(t, err)
	assert.Nil(t, again)

	var rows int64
	require.NoError(t, db.Model(&models.AccountBadge{}).
		Where("account_id = ? AND badge_code = ?", "user-b1", "FIRST_PURCHASE").
		Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	// Bonus paid exactly once, at the Bronze rate.
	assert.Equal(t, int64(100), mustBalance(t, ledger, "user-b1"))

	summary, err := ledger.GetSummary("user-b1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalBadges)

	var badge models.Badge
	require.NoError(t, db.Where("code = ?", "FIRST_PURCHASE").First(&badge).Error)
	assert.Equal(t, int64(1), badge.TotalAwarded)
}

func TestCheckAndAwardNotQualified(t *testing.T) {
	_, ledger, badges, _, _, _ := setupEngine(t)

	// Account exists but has no orders.
	_, err := ledger.Award("user-b2", 10, models.ActionPurchase, "ORDER", "o-1", "", nil)
	require.NoError(t, err)

	awarded, err := badges.CheckAndAward("user-b2", "PURCHASES_5")
	require.NoError(t, err)
	assert.Nil(t, awarded)

	// Unknown badge codes are not an error either.
	awarded, err = badges.CheckAndAward("user-b2", "NO_SUCH_BADGE")
	require.NoError(t, err)
	assert.Nil(t, awarded)
}

func TestConcurrentBadgeChecksAwardExactlyOnce(t *testing.T) {
	db, ledger, badges, _, _, _ := setupEngine(t)

	_, _, err := ledger.RecordOrderStats("user-b3", 5000)
	require.NoError(t, err)

	const checkers = 8
	var wg sync.WaitGroup
	errs := make(chan error, checkers)
	for i := 0; i < checkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := badges.CheckAndAward("user-b3", "FIRST_PURCHASE")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var rows int64
	require.NoError(t, db.Model(&models.AccountBadge{}).
		Where("account_id = ? AND badge_code = ?", "user-b3", "FIRST_PURCHASE").
		Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
	assert.Equal(t, int64(100), mustBalance(t, ledger, "user-b3"))
	require.NoError(t, ledger.VerifyAccount("user-b3"))
}

func TestThresholdSweepAwardsEveryCrossedBadge(t *testing.T) {
	_, ledger, badges, _, _, _ := setupEngine(t)

	// 10 orders at $20: crosses the 1, 5 and 10 purchase-count thresholds in
	// one sweep (bulk import case), but not the spend thresholds.
	for i := 0; i < 10; i++ {
		_, _, err := ledger.RecordOrderStats("user-b4", 2000)
		require.NoError(t, err)
	}

	awarded, err := badges.EvaluatePurchaseBadges("user-b4")
	require.NoError(t, err)

	codes := make(map[string]bool, len(awarded))
	for _, ab := range awarded {
		codes[ab.BadgeCode] = true
	}
	assert.True(t, codes["FIRST_PURCHASE"])
	assert.True(t, codes["PURCHASES_5"])
	assert.True(t, codes["PURCHASES_10"])
	assert.False(t, codes["PURCHASES_20"])
	assert.False(t, codes["SPENT_1K"]) // $200 total

	// Re-running the sweep awards nothing new.
	again, err := badges.EvaluatePurchaseBadges("user-b4")
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestTierUpgradeAwardsSkippedTierBadges(t *testing.T) {
	db, ledger, _, _, _, _ := setupEngine(t)

	// One bulk award jumps Bronze → Gold; both crossed tier badges land.
	_, err := ledger.Award("user-b5", 2500, models.ActionPurchase, "ORDER", "o-1", "", nil)
	require.NoError(t, err)

	var held []models.AccountBadge
	require.NoError(t, db.Where("account_id = ?", "user-b5").Find(&held).Error)
	codes := make(map[string]bool, len(held))
	for _, ab := range held {
		codes[ab.BadgeCode] = true
	}
	assert.True(t, codes["TIER_SILVER"])
	assert.True(t, codes["TIER_GOLD"])

	// Tier badge bonuses are paid at the post-upgrade Gold rate.
	// 2500 + floor(250*1.25) + floor(100*1.25) = 2937
	assert.Equal(t, int64(2937), mustBalance(t, ledger, "user-b5"))
	require.NoError(t, ledger.VerifyAccount("user-b5"))
}

func TestSpecialBadgeAwardCascadesWithinBound(t *testing.T) {
	db, ledger, badges, _, _, _ := setupEngine(t)

	// A special badge whose bonus alone vaults the account to Diamond. The
	// bonus triggers the tier badge cascade, which must settle within the
	// depth bound rather than recurse.
	require.NoError(t, badges.CreateBadge(&models.Badge{
		Code: "GRAND_PRIZE", Name: "Grand Prize", RequirementType: models.RequirementSpecial,
		PointsReward: 20000, IsActive: true,
	}))

	awarded, err := badges.CheckAndAward("user-b6", "GRAND_PRIZE")
	require.NoError(t, err)
	require.NotNil(t, awarded)

	var held []models.AccountBadge
	require.NoError(t, db.Where("account_id = ?", "user-b6").Find(&held).Error)
	codes := make(map[string]bool, len(held))
	for _, ab := range held {
		codes[ab.BadgeCode] = true
	}
	assert.True(t, codes["GRAND_PRIZE"])
	assert.True(t, codes["TIER_DIAMOND"])

	require.NoError(t, ledger.VerifyAccount("user-b6"))
}

func TestListAvailableHidesSecretBadges(t *testing.T) {
	_, _, badges, _, _, _ := setupEngine(t)

	visible, err := badges.ListAvailable(false)
	require.NoError(t, err)
	for _, b := range visible {
		assert.Falsef(t, b.IsSecret, "secret badge %s leaked into the public catalog", b.Code)
	}

	all, err := badges.ListAvailable(true)
	require.NoError(t, err)
	assert.Greater(t, len(all), len(visible))
}

func TestListAccountBadges(t *testing.T) {
	_, ledger, badges, _, _, _ := setupEngine(t)

	_, _, err := ledger.RecordOrderStats("user-b7", 1000)
	require.NoError(t, err)
	_, err = badges.CheckAndAward("user-b7", "FIRST_PURCHASE")
	require.NoError(t, err)

	views, err := badges.ListAccountBadges("user-b7")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "FIRST_PURCHASE", views[0].Code)
	assert.Equal(t, "First Purchase", views[0].Name)
	assert.False(t, views[0].EarnedAt.IsZero())

	empty, err := badges.ListAccountBadges("nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
