package services

import (
	"errors"
	"log"
	"time"

	"loyalty-points-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StreakService maintains the monthly-activity streak per account. It never
// awards points itself — it reports the current multiplier and the caller
// decides whether to turn it into a bonus transaction.
type StreakService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewStreakService(db *gorm.DB, ledger *LedgerService) *StreakService {
	return &StreakService{DB: db, Ledger: ledger}
}

// StreakResult reports what one qualifying action did to the streak.
type StreakResult struct {
	CurrentStreak int     `json:"current_streak"`
	LongestStreak int     `json:"longest_streak"`
	Multiplier    float64 `json:"multiplier"`
	Incremented   bool    `json:"incremented"`
	Broken        bool    `json:"broken"`
}

// streakMultiplier escalates with consecutive months of activity.
func streakMultiplier(streak int) float64 {
	switch {
	case streak >= 12:
		return 1.5
	case streak >= 6:
		return 1.25
	case streak >= 3:
		return 1.1
	default:
		return 1.0
	}
}

// monthIndex flattens a date to a comparable month ordinal.
func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

func startOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
}

// RecordMonthlyAction registers a qualifying action dated actionDate.
// Same calendar month as the last action: no change (idempotent re-entry).
// Immediately preceding month: increment. A gap of two or more months breaks
// the streak back to 1.
func (s *StreakService) RecordMonthlyAction(accountID string, streakType models.StreakType, actionDate time.Time) (*StreakResult, error) {
	var result StreakResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var streak models.Streak
		err := tx.Where("account_id = ? AND type = ?", accountID, streakType).First(&streak).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			streak = models.Streak{
				ID:                uuid.NewString(),
				AccountID:         accountID,
				Type:              streakType,
				CurrentStreak:     1,
				LongestStreak:     1,
				CurrentMultiplier: 1.0,
				LastActionAt:      actionDate,
				NextRequiredBy:    startOfNextMonth(actionDate).AddDate(0, 1, 0),
			}
			if err := tx.Create(&streak).Error; err != nil {
				return err
			}
			result = StreakResult{CurrentStreak: 1, LongestStreak: 1, Multiplier: 1.0, Incremented: true}
			return nil
		}
		if err != nil {
			return err
		}

		gap := monthIndex(actionDate) - monthIndex(streak.LastActionAt)
		switch {
		case gap <= 0:
			// Second action within the same month (or a late-arriving event):
			// the streak moves at most once per calendar month.
			result = StreakResult{
				CurrentStreak: streak.CurrentStreak,
				LongestStreak: streak.LongestStreak,
				Multiplier:    streak.CurrentMultiplier,
			}
			return nil
		case gap == 1:
			streak.CurrentStreak++
			if streak.CurrentStreak > streak.LongestStreak {
				streak.LongestStreak = streak.CurrentStreak
			}
			streak.CurrentMultiplier = streakMultiplier(streak.CurrentStreak)
			streak.LastActionAt = actionDate
			streak.NextRequiredBy = startOfNextMonth(actionDate).AddDate(0, 1, 0)
			result = StreakResult{
				CurrentStreak: streak.CurrentStreak,
				LongestStreak: streak.LongestStreak,
				Multiplier:    streak.CurrentMultiplier,
				Incremented:   true,
			}
		default:
			// Skipped at least one full month.
			now := time.Now()
			streak.CurrentStreak = 1
			streak.CurrentMultiplier = 1.0
			streak.LastActionAt = actionDate
			streak.NextRequiredBy = startOfNextMonth(actionDate).AddDate(0, 1, 0)
			streak.BrokeAt = &now
			result = StreakResult{
				CurrentStreak: 1,
				LongestStreak: streak.LongestStreak,
				Multiplier:    1.0,
				Broken:        true,
			}
		}
		return tx.Save(&streak).Error
	})
	if err != nil {
		return nil, err
	}

	if result.Incremented || result.Broken {
		if err := s.Ledger.syncStreakMirror(accountID, result.CurrentStreak, result.LongestStreak); err != nil {
			log.Printf("⚠️ [STREAK] failed to mirror streak onto account=%s: %v", accountID, err)
		}
		if result.Broken {
			log.Printf("💔 [STREAK] streak broken for account=%s (%s)", accountID, streakType)
		} else {
			log.Printf("🔥 [STREAK] account=%s (%s) → %d months, multiplier %.2f", accountID, streakType, result.CurrentStreak, result.Multiplier)
		}
	}
	return &result, nil
}

// GetStreak returns the account's streak record, zeroed if none exists.
func (s *StreakService) GetStreak(accountID string, streakType models.StreakType) (*models.Streak, error) {
	var streak models.Streak
	err := s.DB.Where("account_id = ? AND type = ?", accountID, streakType).First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Streak{AccountID: accountID, Type: streakType, CurrentMultiplier: 1.0}, nil
	}
	if err != nil {
		return nil, err
	}
	return &streak, nil
}
