package models

import "time"

// StreakType identifies what kind of consecutive activity is tracked.
type StreakType string

const (
	StreakPurchaseMonthly StreakType = "PURCHASE_MONTHLY"
)

// Streak tracks consecutive-month activity per account. Incremented at most
// once per calendar month; a skipped month resets it to 1.
type Streak struct {
	ID        string     `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID string     `gorm:"not null;uniqueIndex:idx_account_streak" json:"account_id"`
	Type      StreakType `gorm:"type:varchar(32);not null;uniqueIndex:idx_account_streak" json:"type"`

	CurrentStreak     int     `json:"current_streak" gorm:"default:0"`
	LongestStreak     int     `json:"longest_streak" gorm:"default:0"`
	CurrentMultiplier float64 `json:"current_multiplier" gorm:"default:1"`

	LastActionAt   time.Time  `json:"last_action_at"`
	NextRequiredBy time.Time  `json:"next_required_by"`
	BrokeAt        *time.Time `json:"broke_at,omitempty"`

	Timestamps
}
