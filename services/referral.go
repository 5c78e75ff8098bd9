package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"loyalty-points-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Staged payouts (points) and the completion threshold.
const (
	signupReferrerBonus      = 200
	signupRefereeBonus       = 200
	firstPurchaseBonus       = 500
	completionBonus          = 250
	completionThresholdCents = 100_00 // first purchase of $100+ completes the referral
)

// ReferralService drives the referral state machine:
// PENDING → REGISTERED → FIRST_PURCHASE → COMPLETED (or CANCELLED from the
// first two stages). Every stage transition claims its payout flag with a
// conditional update, so replayed events are no-ops rather than double pays.
type ReferralService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewReferralService(db *gorm.DB, ledger *LedgerService) *ReferralService {
	return &ReferralService{DB: db, Ledger: ledger}
}

// ReferralEventResult reports what a pipeline event did.
type ReferralEventResult struct {
	Success      bool                  `json:"success"`
	Status       models.ReferralStatus `json:"status,omitempty"`
	PayoutPoints int64                 `json:"payout_points"`
}

func generateReferralCode(accountID string) string {
	sum := sha256.Sum256([]byte(accountID + time.Now().String()))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}

// GetOrCreateCode returns the account's open referral code, minting one if
// none exists.
func (s *ReferralService) GetOrCreateCode(accountID string) (*models.Referral, error) {
	var referral models.Referral
	err := s.DB.Where("referrer_account_id = ? AND status = ?", accountID, models.ReferralPending).
		First(&referral).Error
	if err == nil {
		return &referral, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	referral = models.Referral{
		ID:                uuid.NewString(),
		Code:              generateReferralCode(accountID),
		ReferrerAccountID: accountID,
		Status:            models.ReferralPending,
	}
	if err := s.DB.Create(&referral).Error; err != nil {
		return nil, err
	}
	log.Printf("🔗 [REFERRAL] minted code %s for account=%s", referral.Code, accountID)
	return &referral, nil
}

// TrackClick counts a visit through the referral link. Unknown codes are not
// an error; the caller just gets false.
func (s *ReferralService) TrackClick(code string) (bool, error) {
	res := s.DB.Model(&models.Referral{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{
			"click_count":   gorm.Expr("click_count + 1"),
			"last_click_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ProcessSignup moves PENDING → REGISTERED and pays the signup bonus pair.
// A replayed registration event finds the claim already taken and is a no-op.
func (s *ReferralService) ProcessSignup(code, refereeAccountID string) (*ReferralEventResult, error) {
	var referral models.Referral
	if err := s.DB.Where("code = ?", code).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("unknown referral code %s", code)
		}
		return nil, err
	}

	now := time.Now()
	claim := s.DB.Model(&models.Referral{}).
		Where("id = ? AND status = ? AND signup_referrer_paid = ?", referral.ID, models.ReferralPending, false).
		Updates(map[string]interface{}{
			"status":               models.ReferralRegistered,
			"referee_account_id":   refereeAccountID,
			"registered_at":        now,
			"signup_referrer_paid": true,
			"signup_referee_paid":  true,
		})
	if claim.Error != nil {
		return nil, claim.Error
	}
	if claim.RowsAffected == 0 {
		// Already registered (duplicate webhook) or cancelled — monotonic no-op.
		return &ReferralEventResult{Success: false, Status: referral.Status}, nil
	}

	if _, err := s.Ledger.Award(referral.ReferrerAccountID, signupReferrerBonus, models.ActionReferral,
		"REFERRAL", referral.ID, "A friend you referred signed up", nil); err != nil {
		return nil, err
	}
	if _, err := s.Ledger.Award(refereeAccountID, signupRefereeBonus, models.ActionReferral,
		"REFERRAL", referral.ID, "Welcome bonus — referred by a friend", nil); err != nil {
		return nil, err
	}
	s.addEarnedPoints(referral.ID, signupReferrerBonus, signupRefereeBonus)

	log.Printf("🤝 [REFERRAL] %s registered referee=%s (referrer=%s, +%d/+%d)",
		code, refereeAccountID, referral.ReferrerAccountID, signupReferrerBonus, signupRefereeBonus)
	return &ReferralEventResult{
		Success:      true,
		Status:       models.ReferralRegistered,
		PayoutPoints: signupReferrerBonus + signupRefereeBonus,
	}, nil
}

// ProcessPurchase advances the pipeline on a referee's completed order:
// REGISTERED → FIRST_PURCHASE pays the referrer, and any purchase of $100+
// while in FIRST_PURCHASE (including the first one) completes the referral
// with an extra bonus plus a referral-badge sweep. Purchases against
// COMPLETED or CANCELLED referrals are no-ops.
func (s *ReferralService) ProcessPurchase(refereeAccountID string, amountCents int64) (*ReferralEventResult, error) {
	var referral models.Referral
	err := s.DB.Where("referee_account_id = ? AND status IN ?", refereeAccountID,
		[]models.ReferralStatus{models.ReferralRegistered, models.ReferralFirstPurchase}).
		First(&referral).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ReferralEventResult{Success: false}, nil // not a referee, or pipeline already settled
	}
	if err != nil {
		return nil, err
	}

	var payout int64
	now := time.Now()

	if referral.Status == models.ReferralRegistered {
		claim := s.DB.Model(&models.Referral{}).
			Where("id = ? AND status = ? AND first_purchase_paid = ?", referral.ID, models.ReferralRegistered, false).
			Updates(map[string]interface{}{
				"status":               models.ReferralFirstPurchase,
				"first_purchase_at":    now,
				"first_purchase_cents": amountCents,
				"first_purchase_paid":  true,
			})
		if claim.Error != nil {
			return nil, claim.Error
		}
		if claim.RowsAffected > 0 {
			if _, err := s.Ledger.Award(referral.ReferrerAccountID, firstPurchaseBonus, models.ActionReferral,
				"REFERRAL", referral.ID, "Your referred friend made their first purchase", nil); err != nil {
				return nil, err
			}
			s.addEarnedPoints(referral.ID, firstPurchaseBonus, 0)
			payout += firstPurchaseBonus
			referral.Status = models.ReferralFirstPurchase
			log.Printf("🛒 [REFERRAL] %s first purchase by referee=%s (+%d to referrer)", referral.Code, refereeAccountID, firstPurchaseBonus)
		}
	}

	if referral.Status == models.ReferralFirstPurchase && amountCents >= completionThresholdCents {
		claim := s.DB.Model(&models.Referral{}).
			Where("id = ? AND status = ? AND completion_paid = ?", referral.ID, models.ReferralFirstPurchase, false).
			Updates(map[string]interface{}{
				"status":          models.ReferralCompleted,
				"completed_at":    now,
				"completion_paid": true,
			})
		if claim.Error != nil {
			return nil, claim.Error
		}
		if claim.RowsAffected > 0 {
			if _, err := s.Ledger.Award(referral.ReferrerAccountID, completionBonus, models.ActionReferral,
				"REFERRAL", referral.ID, "Bonus — referred friend's purchase reached $100", nil); err != nil {
				return nil, err
			}
			s.addEarnedPoints(referral.ID, completionBonus, 0)
			payout += completionBonus
			referral.Status = models.ReferralCompleted

			if _, err := s.Ledger.RecordReferralStats(referral.ReferrerAccountID); err != nil {
				log.Printf("⚠️ [REFERRAL] failed to bump referral counter for %s: %v", referral.ReferrerAccountID, err)
			}
			badgeSvc := NewBadgeService(s.DB, s.Ledger)
			if _, err := badgeSvc.EvaluateReferralBadges(referral.ReferrerAccountID); err != nil {
				log.Printf("⚠️ [REFERRAL] badge sweep failed for %s: %v", referral.ReferrerAccountID, err)
			}
			log.Printf("🏁 [REFERRAL] %s completed (referrer=%s, +%d)", referral.Code, referral.ReferrerAccountID, completionBonus)
		}
	}

	return &ReferralEventResult{Success: payout > 0, Status: referral.Status, PayoutPoints: payout}, nil
}

// Cancel invalidates a code still in PENDING or REGISTERED. Later stages are
// immutable; cancelling them is a no-op.
func (s *ReferralService) Cancel(code string) (*ReferralEventResult, error) {
	res := s.DB.Model(&models.Referral{}).
		Where("code = ? AND status IN ?", code,
			[]models.ReferralStatus{models.ReferralPending, models.ReferralRegistered}).
		Updates(map[string]interface{}{
			"status":       models.ReferralCancelled,
			"cancelled_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return &ReferralEventResult{Success: false}, nil
	}
	log.Printf("🚫 [REFERRAL] cancelled code %s", code)
	return &ReferralEventResult{Success: true, Status: models.ReferralCancelled}, nil
}

// ProcessEvent is the external dispatch surface for referral workflows.
// Unknown or out-of-order stages resolve to unsuccessful no-op results, not
// errors, to tolerate duplicate event delivery.
func (s *ReferralService) ProcessEvent(code, stage, refereeAccountID string, amountCents int64) (*ReferralEventResult, error) {
	switch strings.ToUpper(stage) {
	case "REGISTERED", "SIGNUP":
		return s.ProcessSignup(code, refereeAccountID)
	case "PURCHASE", "FIRST_PURCHASE":
		var referral models.Referral
		if err := s.DB.Where("code = ?", code).First(&referral).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("unknown referral code %s", code)
			}
			return nil, err
		}
		if referral.RefereeAccountID == nil {
			return &ReferralEventResult{Success: false, Status: referral.Status}, nil
		}
		return s.ProcessPurchase(*referral.RefereeAccountID, amountCents)
	case "CANCELLED":
		return s.Cancel(code)
	default:
		return &ReferralEventResult{Success: false}, nil
	}
}

// ReferralStats summarizes a referrer's pipeline.
type ReferralStats struct {
	Total             int64 `json:"total"`
	Registered        int64 `json:"registered"`
	Completed         int64 `json:"completed"`
	Pending           int64 `json:"pending"`
	TotalPointsEarned int64 `json:"total_points_earned"`
}

// GetStats aggregates the referrer's referrals by stage.
func (s *ReferralService) GetStats(referrerAccountID string) (*ReferralStats, []models.Referral, error) {
	var referrals []models.Referral
	if err := s.DB.Where("referrer_account_id = ?", referrerAccountID).
		Order("created_at DESC").Find(&referrals).Error; err != nil {
		return nil, nil, err
	}

	stats := &ReferralStats{}
	for _, r := range referrals {
		stats.Total++
		switch r.Status {
		case models.ReferralPending:
			stats.Pending++
		case models.ReferralCompleted:
			stats.Completed++
			stats.Registered++
		case models.ReferralRegistered, models.ReferralFirstPurchase:
			stats.Registered++
		}
		stats.TotalPointsEarned += r.ReferrerPointsEarned
	}
	return stats, referrals, nil
}

// CancelStalePending cancels PENDING referrals older than maxAge. Run by the
// maintenance scheduler.
func (s *ReferralService) CancelStalePending(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res := s.DB.Model(&models.Referral{}).
		Where("status = ? AND created_at < ?", models.ReferralPending, cutoff).
		Updates(map[string]interface{}{
			"status":       models.ReferralCancelled,
			"cancelled_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (s *ReferralService) addEarnedPoints(referralID string, referrerDelta, refereeDelta int64) {
	if err := s.DB.Model(&models.Referral{}).
		Where("id = ?", referralID).
		Updates(map[string]interface{}{
			"referrer_points_earned": gorm.Expr("referrer_points_earned + ?", referrerDelta),
			"referee_points_earned":  gorm.Expr("referee_points_earned + ?", refereeDelta),
		}).Error; err != nil {
		log.Printf("⚠️ [REFERRAL] failed to record earned points on %s: %v", referralID, err)
	}
}
