package models

import "time"

// TransactionKind separates earns from redemptions.
type TransactionKind string

const (
	KindEarned   TransactionKind = "EARNED"
	KindRedeemed TransactionKind = "REDEEMED"
)

// PointsAction identifies the business event behind a transaction.
type PointsAction string

const (
	ActionPurchase        PointsAction = "PURCHASE"
	ActionFirstPurchase   PointsAction = "FIRST_PURCHASE"
	ActionReview          PointsAction = "REVIEW"
	ActionReviewWithPhoto PointsAction = "REVIEW_WITH_PHOTO"
	ActionReferral        PointsAction = "REFERRAL"
	ActionBadgeBonus      PointsAction = "BADGE_BONUS"
	ActionStreakBonus     PointsAction = "STREAK_BONUS"
	ActionRedemption      PointsAction = "REDEMPTION"
	ActionAdjustment      PointsAction = "ADJUSTMENT"
)

// Base points per action where the amount is fixed (PURCHASE and REDEMPTION
// amounts come from the triggering event instead).
var ActionBasePoints = map[PointsAction]int64{
	ActionReview:          50,
	ActionReviewWithPhoto: 75,
	ActionFirstPurchase:   200,
}

// LoyaltyTransaction is one immutable ledger entry. Rows are created once and
// never updated or deleted; replaying them in creation order must reproduce
// the account's CurrentBalance exactly.
type LoyaltyTransaction struct {
	ID        string          `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID string          `gorm:"index;not null" json:"account_id"`
	Kind      TransactionKind `gorm:"type:varchar(16);not null" json:"kind"`
	Action    PointsAction    `gorm:"type:varchar(32);not null" json:"action"`

	BasePoints        int64   `json:"base_points"`
	PointsDelta       int64   `json:"points_delta"` // signed: positive earn, negative redeem
	BalanceBefore     int64   `json:"balance_before"`
	BalanceAfter      int64   `json:"balance_after"`
	MultiplierApplied float64 `json:"multiplier_applied" gorm:"default:1"`

	// Originating order/review/badge/reward. Indexed for audit lookup; not
	// unique — duplicate-event dedupe is the caller's contract.
	ReferenceType string `gorm:"index:idx_txn_reference" json:"reference_type,omitempty"`
	ReferenceID   string `gorm:"index:idx_txn_reference" json:"reference_id,omitempty"`

	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `gorm:"serializer:json" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
