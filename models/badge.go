package models

import (
	"time"
)

// BadgeRequirement is the metric a badge threshold is checked against.
type BadgeRequirement string

const (
	RequirementTier          BadgeRequirement = "TIER"
	RequirementPurchaseCount BadgeRequirement = "PURCHASE_COUNT"
	RequirementTotalSpent    BadgeRequirement = "TOTAL_SPENT"
	RequirementReviewCount   BadgeRequirement = "REVIEW_COUNT"
	RequirementReferralCount BadgeRequirement = "REFERRAL_COUNT"
	RequirementStreak        BadgeRequirement = "STREAK"
	RequirementSpecial       BadgeRequirement = "SPECIAL"
)

// Badge: catalog entity, globally defined (seeded from DefaultBadges or
// created by admins)
type Badge struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string `gorm:"uniqueIndex;not null" json:"code"` // e.g., "TIER_SILVER", "PURCHASES_5"
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Icon        string `gorm:"size:10" json:"icon"`
	IconURL     string `gorm:"type:text" json:"icon_url,omitempty"` // R2 URL, optional
	Color       string `gorm:"size:10" json:"color"`
	Rarity      string `gorm:"type:varchar(16);default:'COMMON'" json:"rarity"` // COMMON, RARE, EPIC, LEGENDARY

	RequirementType  BadgeRequirement `gorm:"type:varchar(32);not null" json:"requirement_type"`
	RequirementValue int64            `json:"requirement_value"`
	PointsReward     int64            `json:"points_reward"`

	IsSecret     bool  `gorm:"default:false" json:"is_secret"`
	IsActive     bool  `gorm:"default:true" json:"is_active"`
	TotalAwarded int64 `gorm:"default:0" json:"total_awarded"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AccountBadge: awarded instance. The composite unique index on
// (account_id, badge_code) is the idempotency guard — the evaluator's
// existence check is only a fast path, the constraint is what collapses two
// concurrent awards into one row.
type AccountBadge struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID  string    `gorm:"not null;uniqueIndex:idx_account_badge" json:"account_id"`
	BadgeCode  string    `gorm:"not null;uniqueIndex:idx_account_badge" json:"badge_code"`
	EarnedAt   time.Time `gorm:"autoCreateTime" json:"earned_at"`
	EarnedFrom string    `json:"earned_from,omitempty"` // e.g., "TIER_UPGRADE", "ORDER_FLOW"
}

// DefaultBadges is the built-in catalog, seeded idempotently at startup.
var DefaultBadges = []Badge{
	// Tier badges
	{Code: "TIER_BRONZE", Name: "Bronze Member", Description: "Reached the Bronze tier", Icon: "🥉", Color: "#CD7F32", Rarity: "COMMON", RequirementType: RequirementTier, RequirementValue: 0, PointsReward: 0},
	{Code: "TIER_SILVER", Name: "Silver Member", Description: "Reached the Silver tier", Icon: "🥈", Color: "#C0C0C0", Rarity: "COMMON", RequirementType: RequirementTier, RequirementValue: 500, PointsReward: 100},
	{Code: "TIER_GOLD", Name: "Gold Member", Description: "Reached the Gold tier", Icon: "🥇", Color: "#FFD700", Rarity: "RARE", RequirementType: RequirementTier, RequirementValue: 2000, PointsReward: 250},
	{Code: "TIER_PLATINUM", Name: "Platinum Member", Description: "Reached the Platinum tier", Icon: "💎", Color: "#E5E4E2", Rarity: "EPIC", RequirementType: RequirementTier, RequirementValue: 5000, PointsReward: 500},
	{Code: "TIER_DIAMOND", Name: "Diamond Member", Description: "Reached the Diamond tier — the top level", Icon: "👑", Color: "#B9F2FF", Rarity: "LEGENDARY", RequirementType: RequirementTier, RequirementValue: 10000, PointsReward: 1000},

	// Purchase count badges (cumulative — every crossed threshold is awarded)
	{Code: "FIRST_PURCHASE", Name: "First Purchase", Description: "Placed your first order", Icon: "🎉", Color: "#4CAF50", Rarity: "COMMON", RequirementType: RequirementPurchaseCount, RequirementValue: 1, PointsReward: 100},
	{Code: "PURCHASES_5", Name: "Regular Customer", Description: "Placed 5 orders", Icon: "🛍️", Color: "#2196F3", Rarity: "COMMON", RequirementType: RequirementPurchaseCount, RequirementValue: 5, PointsReward: 150},
	{Code: "PURCHASES_10", Name: "Loyal Customer", Description: "Placed 10 orders", Icon: "🎯", Color: "#FF9800", Rarity: "RARE", RequirementType: RequirementPurchaseCount, RequirementValue: 10, PointsReward: 300},
	{Code: "PURCHASES_20", Name: "Frequent Buyer", Description: "Placed 20 orders", Icon: "🏆", Color: "#9C27B0", Rarity: "EPIC", RequirementType: RequirementPurchaseCount, RequirementValue: 20, PointsReward: 500},
	{Code: "PURCHASES_50", Name: "Power Shopper", Description: "Placed 50 orders", Icon: "🔥", Color: "#F44336", Rarity: "EPIC", RequirementType: RequirementPurchaseCount, RequirementValue: 50, PointsReward: 1000},
	{Code: "PURCHASES_100", Name: "Shopping Legend", Description: "Placed 100 orders", Icon: "⚡", Color: "#FFD700", Rarity: "LEGENDARY", RequirementType: RequirementPurchaseCount, RequirementValue: 100, PointsReward: 2500},

	// Total spent badges (requirement value in whole dollars)
	{Code: "SPENT_1K", Name: "Big Spender", Description: "Spent $1,000 in total", Icon: "💰", Color: "#4CAF50", Rarity: "RARE", RequirementType: RequirementTotalSpent, RequirementValue: 1000, PointsReward: 250},
	{Code: "SPENT_5K", Name: "VIP Customer", Description: "Spent $5,000 in total", Icon: "💎", Color: "#9C27B0", Rarity: "EPIC", RequirementType: RequirementTotalSpent, RequirementValue: 5000, PointsReward: 1000},
	{Code: "SPENT_10K", Name: "Premium Legend", Description: "Spent $10,000 in total", Icon: "👑", Color: "#FFD700", Rarity: "LEGENDARY", RequirementType: RequirementTotalSpent, RequirementValue: 10000, PointsReward: 2500},

	// Review badges
	{Code: "FIRST_REVIEW", Name: "First Opinion", Description: "Wrote your first review", Icon: "📝", Color: "#2196F3", Rarity: "COMMON", RequirementType: RequirementReviewCount, RequirementValue: 1, PointsReward: 50},
	{Code: "REVIEWS_5", Name: "Active Critic", Description: "Wrote 5 reviews", Icon: "✍️", Color: "#FF9800", Rarity: "RARE", RequirementType: RequirementReviewCount, RequirementValue: 5, PointsReward: 200},
	{Code: "REVIEWS_10", Name: "Expert Critic", Description: "Wrote 10 reviews", Icon: "⭐", Color: "#9C27B0", Rarity: "EPIC", RequirementType: RequirementReviewCount, RequirementValue: 10, PointsReward: 500},

	// Referral badges
	{Code: "FIRST_REFERRAL", Name: "Rookie Ambassador", Description: "Referred your first friend", Icon: "🎁", Color: "#4CAF50", Rarity: "COMMON", RequirementType: RequirementReferralCount, RequirementValue: 1, PointsReward: 100},
	{Code: "REFERRALS_5", Name: "Ambassador", Description: "Referred 5 friends", Icon: "🌟", Color: "#2196F3", Rarity: "RARE", RequirementType: RequirementReferralCount, RequirementValue: 5, PointsReward: 500},
	{Code: "REFERRALS_10", Name: "Elite Ambassador", Description: "Referred 10 friends", Icon: "🎖️", Color: "#9C27B0", Rarity: "EPIC", RequirementType: RequirementReferralCount, RequirementValue: 10, PointsReward: 1500},

	// Streak badges
	{Code: "STREAK_3", Name: "On Fire", Description: "Purchased 3 months in a row", Icon: "🔥", Color: "#FF5722", Rarity: "RARE", RequirementType: RequirementStreak, RequirementValue: 3, PointsReward: 300},
	{Code: "STREAK_6", Name: "Unstoppable", Description: "Purchased 6 months in a row", Icon: "🔥🔥", Color: "#F44336", Rarity: "EPIC", RequirementType: RequirementStreak, RequirementValue: 6, PointsReward: 750},
	{Code: "STREAK_12", Name: "A Year of Loyalty", Description: "Purchased 12 months in a row", Icon: "🏅", Color: "#FFD700", Rarity: "LEGENDARY", RequirementType: RequirementStreak, RequirementValue: 12, PointsReward: 2000},

	// Special badges (awarded by explicit workflows, never by threshold sweep)
	{Code: "EARLY_ADOPTER", Name: "Early Adopter", Description: "One of the first to join the platform", Icon: "🚀", Color: "#00BCD4", Rarity: "LEGENDARY", RequirementType: RequirementSpecial, PointsReward: 500, IsSecret: true},
	{Code: "BIRTHDAY_BUYER", Name: "Birthday Shopper", Description: "Made a purchase on your birthday", Icon: "🎂", Color: "#E91E63", Rarity: "RARE", RequirementType: RequirementSpecial, PointsReward: 250},
	{Code: "MIDNIGHT_SHOPPER", Name: "Night Owl", Description: "Made a purchase between midnight and 6 AM", Icon: "🌙", Color: "#3F51B5", Rarity: "RARE", RequirementType: RequirementSpecial, PointsReward: 100, IsSecret: true},
}
