package models

import "time"

// ReferralStatus is the pipeline stage of a referral.
// PENDING → REGISTERED → FIRST_PURCHASE → COMPLETED; PENDING/REGISTERED may
// move to CANCELLED when the code is invalidated.
type ReferralStatus string

const (
	ReferralPending       ReferralStatus = "PENDING"
	ReferralRegistered    ReferralStatus = "REGISTERED"
	ReferralFirstPurchase ReferralStatus = "FIRST_PURCHASE"
	ReferralCompleted     ReferralStatus = "COMPLETED"
	ReferralCancelled     ReferralStatus = "CANCELLED"
)

// Referral tracks one referral code through staged payouts. Each stage pays
// out at most once, guarded by its paid flag checked-and-set atomically with
// the status transition.
type Referral struct {
	ID                string         `gorm:"primaryKey;type:uuid" json:"id"`
	Code              string         `gorm:"uniqueIndex;not null" json:"code"`
	ReferrerAccountID string         `gorm:"index;not null" json:"referrer_account_id"`
	RefereeAccountID  *string        `gorm:"index" json:"referee_account_id,omitempty"` // set at registration
	Status            ReferralStatus `gorm:"type:varchar(16);default:'PENDING';index" json:"status"`

	// Per-stage payout flags
	SignupReferrerPaid bool `gorm:"default:false" json:"signup_referrer_paid"`
	SignupRefereePaid  bool `gorm:"default:false" json:"signup_referee_paid"`
	FirstPurchasePaid  bool `gorm:"default:false" json:"first_purchase_paid"`
	CompletionPaid     bool `gorm:"default:false" json:"completion_paid"`

	ReferrerPointsEarned int64 `json:"referrer_points_earned" gorm:"default:0"`
	RefereePointsEarned  int64 `json:"referee_points_earned" gorm:"default:0"`

	FirstPurchaseCents int64      `json:"first_purchase_cents,omitempty"`
	RegisteredAt       *time.Time `json:"registered_at,omitempty"`
	FirstPurchaseAt    *time.Time `json:"first_purchase_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	ClickCount  int64      `json:"click_count" gorm:"default:0"`
	LastClickAt *time.Time `json:"last_click_at,omitempty"`

	Timestamps
}
