package models

import (
	"time"

	"gorm.io/gorm"
)

// Tier is the loyalty level derived from lifetime points.
type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
	TierDiamond  Tier = "DIAMOND"
)

// LoyaltyAccount is the per-user balance snapshot (denormalized for reads).
// The transaction log is the source of truth; this row is a cache of it and
// is only ever mutated through the ledger service.
type LoyaltyAccount struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID string `gorm:"uniqueIndex;not null" json:"account_id"` // external identity service's user ID

	// Balances. Invariant: CurrentBalance = TotalEarned - TotalRedeemed >= 0.
	// LifetimePoints never decreases and is the tier-determining quantity.
	CurrentBalance int64 `json:"current_balance" gorm:"default:0"`
	TotalEarned    int64 `json:"total_earned" gorm:"default:0"`
	TotalRedeemed  int64 `json:"total_redeemed" gorm:"default:0"`
	LifetimePoints int64 `json:"lifetime_points" gorm:"default:0"`

	Tier             Tier    `gorm:"type:varchar(16);default:'BRONZE'" json:"tier"`
	TierProgress     float64 `json:"tier_progress" gorm:"default:0"`
	PointsToNextTier int64   `json:"points_to_next_tier" gorm:"default:500"`

	// Streak mirror (authoritative record lives in Streak)
	CurrentStreak int `json:"current_streak" gorm:"default:0"`
	LongestStreak int `json:"longest_streak" gorm:"default:0"`

	// Activity counters (updated by the order/review/referral flows, read by
	// the badge evaluator)
	TotalOrders     int64 `json:"total_orders" gorm:"default:0"`
	TotalSpentCents int64 `json:"total_spent_cents" gorm:"default:0"`
	TotalReviews    int64 `json:"total_reviews" gorm:"default:0"`
	TotalReferrals  int64 `json:"total_referrals" gorm:"default:0"`
	TotalBadges     int64 `json:"total_badges" gorm:"default:0"`

	LastPointsEarnedAt *time.Time `json:"last_points_earned_at,omitempty"`
	LastTierUpgradeAt  *time.Time `json:"last_tier_upgrade_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
