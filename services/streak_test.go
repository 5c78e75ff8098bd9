package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-points-system/models"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func recordPurchaseMonth(t *testing.T, streaks *StreakService, accountID string, at time.Time) *StreakResult {
	t.Helper()
	result, err := streaks.RecordMonthlyAction(accountID, models.StreakPurchaseMonthly, at)
	if err != nil {
		t.Fatalf("record monthly action at %s: %v", at.Format("2006-01"), err)
	}
	return result
}

func TestStreakConsecutiveMonths(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	streaks := NewStreakService(db, ledger)

	r := recordPurchaseMonth(t, streaks, "user-s1", date(2026, time.January, 5))
	assert.Equal(t, 1, r.CurrentStreak)
	assert.True(t, r.Incremented)
	assert.Equal(t, 1.0, r.Multiplier)

	r = recordPurchaseMonth(t, streaks, "user-s1", date(2026, time.February, 20))
	assert.Equal(t, 2, r.CurrentStreak)
	assert.Equal(t, 1.0, r.Multiplier)

	r = recordPurchaseMonth(t, streaks, "user-s1", date(2026, time.March, 1))
	assert.Equal(t, 3, r.CurrentStreak)
	assert.Equal(t, 1.1, r.Multiplier)

	// The account snapshot mirrors the tracker.
	summary, err := ledger.GetSummary("user-s1", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.CurrentStreak)
	assert.Equal(t, 3, summary.LongestStreak)
}

func TestStreakSameMonthIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	streaks := NewStreakService(db, ledger)

	recordPurchaseMonth(t, streaks, "user-s2", date(2026, time.May, 3))
	r := recordPurchaseMonth(t, streaks, "user-s2", date(2026, time.May, 28))
	assert.Equal(t, 1, r.CurrentStreak)
	assert.False(t, r.Incremented)
	assert.False(t, r.Broken)
}

func TestStreakBreaksAfterSkippedMonth(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	streaks := NewStreakService(db, ledger)

	recordPurchaseMonth(t, streaks, "user-s3", date(2026, time.January, 10))
	recordPurchaseMonth(t, streaks, "user-s3", date(2026, time.February, 10))
	recordPurchaseMonth(t, streaks, "user-s3", date(2026, time.March, 10))
	// April skipped.
	r := recordPurchaseMonth(t, streaks, "user-s3", date(2026, time.May, 10))
	assert.True(t, r.Broken)
	assert.Equal(t, 1, r.CurrentStreak)
	assert.Equal(t, 3, r.LongestStreak) // longest survives the break
	assert.Equal(t, 1.0, r.Multiplier)

	record, err := streaks.GetStreak("user-s3", models.StreakPurchaseMonthly)
	require.NoError(t, err)
	assert.NotNil(t, record.BrokeAt)

	summary, err := ledger.GetSummary("user-s3", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CurrentStreak)
	assert.Equal(t, 3, summary.LongestStreak)
}

func TestStreakYearRollover(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	streaks := NewStreakService(db, ledger)

	recordPurchaseMonth(t, streaks, "user-s4", date(2025, time.December, 31))
	r := recordPurchaseMonth(t, streaks, "user-s4", date(2026, time.January, 1))
	assert.Equal(t, 2, r.CurrentStreak)
	assert.True(t, r.Incremented)
}

func TestStreakMultiplierLadder(t *testing.T) {
	assert.Equal(t, 1.0, streakMultiplier(1))
	assert.Equal(t, 1.0, streakMultiplier(2))
	assert.Equal(t, 1.1, streakMultiplier(3))
	assert.Equal(t, 1.1, streakMultiplier(5))
	assert.Equal(t, 1.25, streakMultiplier(6))
	assert.Equal(t, 1.25, streakMultiplier(11))
	assert.Equal(t, 1.5, streakMultiplier(12))
	assert.Equal(t, 1.5, streakMultiplier(40))
}

func TestGetStreakUnknownAccount(t *testing.T) {
	db := setupTestDB(t)
	streaks := NewStreakService(db, NewLedgerService(db))

	record, err := streaks.GetStreak("nobody", models.StreakPurchaseMonthly)
	require.NoError(t, err)
	assert.Equal(t, 0, record.CurrentStreak)
	assert.Equal(t, 1.0, record.CurrentMultiplier)
}
