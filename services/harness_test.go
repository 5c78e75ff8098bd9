package services

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"loyalty-points-system/models"
)

// setupTestDB opens a private in-memory sqlite database with the same
// TranslateError setting as production, so the badge unique-constraint guard
// behaves identically under test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// Single connection keeps concurrent transactions serialized instead of
	// tripping SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.LoyaltyAccount{},
		&models.LoyaltyTransaction{},
		&models.Badge{},
		&models.AccountBadge{},
		&models.Streak{},
		&models.Referral{},
		&models.Reward{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func setupLedger(t *testing.T) (*gorm.DB, *LedgerService) {
	t.Helper()
	db := setupTestDB(t)
	return db, NewLedgerService(db)
}

// setupEngine wires the full service graph with the default badge catalog
// seeded, the way main does at startup.
func setupEngine(t *testing.T) (*gorm.DB, *LedgerService, *BadgeService, *StreakService, *ReferralService, *OrderEventService) {
	t.Helper()
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	badges := NewBadgeService(db, ledger)
	streaks := NewStreakService(db, ledger)
	referrals := NewReferralService(db, ledger)
	orders := NewOrderEventService(db, ledger, streaks, badges, referrals)
	if err := badges.SeedDefaultBadges(); err != nil {
		t.Fatalf("seed badges: %v", err)
	}
	return db, ledger, badges, streaks, referrals, orders
}

func mustBalance(t *testing.T, ledger *LedgerService, accountID string) int64 {
	t.Helper()
	summary, err := ledger.GetSummary(accountID, 1)
	if err != nil {
		t.Fatalf("get summary for %s: %v", accountID, err)
	}
	return summary.Balance
}
