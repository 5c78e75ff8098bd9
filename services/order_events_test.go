package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-points-system/models"
)

func TestProcessFirstOrder(t *testing.T) {
	_, ledger, _, _, _, orders := setupEngine(t)

	result, err := orders.ProcessOrderCompleted("buyer-1", "order-1", 120_00, date(2026, time.January, 15))
	require.NoError(t, err)

	assert.Equal(t, int64(120), result.PurchasePoints) // $120 at Bronze
	assert.Equal(t, int64(200), result.FirstOrderBonus)
	assert.Equal(t, int64(0), result.StreakBonus) // streak 1, no bonus yet
	assert.Equal(t, 1, result.Streak.CurrentStreak)

	codes := make(map[string]bool, len(result.BadgesAwarded))
	for _, ab := range result.BadgesAwarded {
		codes[ab.BadgeCode] = true
	}
	assert.True(t, codes["FIRST_PURCHASE"])

	summary, err := ledger.GetSummary("buyer-1", 10)
	require.NoError(t, err)
	// 120 purchase + 200 first-order + 100 badge bonus
	assert.Equal(t, int64(420), summary.Balance)
	assert.Equal(t, int64(1), summary.TotalBadges)
	require.NoError(t, ledger.VerifyAccount("buyer-1"))
}

func TestProcessOrderRejectsSubDollarTotals(t *testing.T) {
	_, _, _, _, _, orders := setupEngine(t)

	_, err := orders.ProcessOrderCompleted("buyer-2", "order-1", 99, time.Now())
	require.Error(t, err)
}

func TestThirdConsecutiveMonthPaysStreakBonus(t *testing.T) {
	_, ledger, _, _, _, orders := setupEngine(t)

	_, err := orders.ProcessOrderCompleted("buyer-3", "order-1", 100_00, date(2026, time.January, 10))
	require.NoError(t, err)
	_, err = orders.ProcessOrderCompleted("buyer-3", "order-2", 100_00, date(2026, time.February, 10))
	require.NoError(t, err)

	result, err := orders.ProcessOrderCompleted("buyer-3", "order-3", 100_00, date(2026, time.March, 10))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Streak.CurrentStreak)
	assert.Equal(t, 1.1, result.Streak.Multiplier)
	// Streak bonus base is floor(100 * (1.1 - 1.0)) = 10; the account reached
	// Silver last month, so the ledger pays it out as floor(10 * 1.1) = 11.
	assert.Equal(t, int64(11), result.StreakBonus)

	codes := make(map[string]bool, len(result.BadgesAwarded))
	for _, ab := range result.BadgesAwarded {
		codes[ab.BadgeCode] = true
	}
	assert.True(t, codes["STREAK_3"])

	require.NoError(t, ledger.VerifyAccount("buyer-3"))
}

func TestSecondOrderSameMonthNoStreakBonus(t *testing.T) {
	_, _, _, _, _, orders := setupEngine(t)

	_, err := orders.ProcessOrderCompleted("buyer-4", "order-1", 100_00, date(2026, time.June, 2))
	require.NoError(t, err)
	result, err := orders.ProcessOrderCompleted("buyer-4", "order-2", 100_00, date(2026, time.June, 25))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Streak.CurrentStreak)
	assert.False(t, result.Streak.Incremented)
	assert.Equal(t, int64(0), result.StreakBonus)
	assert.Equal(t, int64(0), result.FirstOrderBonus)
}

func TestOrderAdvancesReferralPipeline(t *testing.T) {
	_, ledger, _, _, referrals, orders := setupEngine(t)

	ref, err := referrals.GetOrCreateCode("advocate-1")
	require.NoError(t, err)
	_, err = referrals.ProcessSignup(ref.Code, "buyer-5")
	require.NoError(t, err)

	result, err := orders.ProcessOrderCompleted("buyer-5", "order-1", 150_00, date(2026, time.April, 1))
	require.NoError(t, err)

	require.NotNil(t, result.ReferralProgress)
	assert.Equal(t, models.ReferralCompleted, result.ReferralProgress.Status)
	assert.Equal(t, int64(750), result.ReferralProgress.PayoutPoints)

	// Referrer: 200 signup + 500 first purchase (crossing into Silver, which
	// pays the TIER_SILVER bonus at floor(100*1.1)=110), then the completion
	// bonus at the Silver rate floor(250*1.1)=275, and the FIRST_REFERRAL
	// badge bonus floor(100*1.1)=110.
	assert.Equal(t, int64(1195), mustBalance(t, ledger, "advocate-1"))
	require.NoError(t, ledger.VerifyAccount("advocate-1"))
	require.NoError(t, ledger.VerifyAccount("buyer-5"))
}

func TestProcessReviewApproved(t *testing.T) {
	_, ledger, _, _, _, orders := setupEngine(t)

	result, err := orders.ProcessReviewApproved("reviewer-1", "review-1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(50), result.PointsAwarded)

	codes := make(map[string]bool, len(result.BadgesAwarded))
	for _, ab := range result.BadgesAwarded {
		codes[ab.BadgeCode] = true
	}
	assert.True(t, codes["FIRST_REVIEW"])

	// With photo pays the higher rate.
	withPhoto, err := orders.ProcessReviewApproved("reviewer-1", "review-2", true)
	require.NoError(t, err)
	assert.Equal(t, int64(75), withPhoto.PointsAwarded)

	summary, err := ledger.GetSummary("reviewer-1", 10)
	require.NoError(t, err)
	// 50 + 75 + 50 badge bonus
	assert.Equal(t, int64(175), summary.Balance)
	require.NoError(t, ledger.VerifyAccount("reviewer-1"))
}
