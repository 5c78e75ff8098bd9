package models

import "time"

// Reward is a redeemable catalog entry. Only the mechanics the redeem flow
// needs live here — catalog content is managed elsewhere.
type Reward struct {
	ID         string     `gorm:"primaryKey;type:uuid" json:"id"`
	Code       string     `gorm:"uniqueIndex;not null" json:"code"`
	Title      string     `gorm:"not null" json:"title"`
	PointsCost int64      `gorm:"not null" json:"points_cost"`
	IsActive   bool       `gorm:"default:true" json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`

	Timestamps
}
