package services

import (
	"fmt"
	"log"
	"math"
	"time"

	"loyalty-points-system/models"

	"gorm.io/gorm"
)

// OrderEventService converts order and review events from the commerce side
// into ledger, streak, badge and referral activity. It is the single entry
// point those workflows call; each sub-step is independent so a failure in
// one does not roll back the points already committed for another.
type OrderEventService struct {
	DB        *gorm.DB
	Ledger    *LedgerService
	Streaks   *StreakService
	Badges    *BadgeService
	Referrals *ReferralService
}

func NewOrderEventService(db *gorm.DB, ledger *LedgerService, streaks *StreakService, badges *BadgeService, referrals *ReferralService) *OrderEventService {
	return &OrderEventService{DB: db, Ledger: ledger, Streaks: streaks, Badges: badges, Referrals: referrals}
}

// OrderResult aggregates everything one completed order triggered.
type OrderResult struct {
	PurchasePoints   int64                 `json:"purchase_points"`
	FirstOrderBonus  int64                 `json:"first_order_bonus,omitempty"`
	StreakBonus      int64                 `json:"streak_bonus,omitempty"`
	Streak           *StreakResult         `json:"streak"`
	TierChanged      bool                  `json:"tier_changed"`
	NewTier          models.Tier           `json:"new_tier,omitempty"`
	NewBalance       int64                 `json:"new_balance"`
	BadgesAwarded    []models.AccountBadge `json:"badges_awarded"`
	ReferralProgress *ReferralEventResult  `json:"referral_progress,omitempty"`
}

// ProcessOrderCompleted handles one completed order: purchase points (one
// point per dollar through the tier multiplier), first-order bonus, monthly
// streak progress with its bonus transaction, threshold badge sweeps, and
// referral pipeline progression when the buyer is a referee. orderID must be
// stable per order — it is the dedupe reference the caller owns.
func (s *OrderEventService) ProcessOrderCompleted(accountID, orderID string, totalCents int64, completedAt time.Time) (*OrderResult, error) {
	basePoints := totalCents / 100 // 1 point per whole dollar
	if basePoints <= 0 {
		return nil, fmt.Errorf("order %s total %d cents is below the minimum earnable amount", orderID, totalCents)
	}

	result := &OrderResult{BadgesAwarded: []models.AccountBadge{}}

	award, err := s.Ledger.Award(accountID, basePoints, models.ActionPurchase,
		"ORDER", orderID, fmt.Sprintf("Order for $%.2f", float64(totalCents)/100),
		map[string]string{"order_id": orderID})
	if err != nil {
		return nil, err
	}
	result.PurchasePoints = award.PointsAwarded
	result.TierChanged = award.TierChanged
	result.NewTier = award.NewTier
	result.NewBalance = award.NewBalance

	orders, firstOrder, err := s.Ledger.RecordOrderStats(accountID, totalCents)
	if err != nil {
		return nil, err
	}

	if firstOrder {
		bonus, err := s.Ledger.Award(accountID, models.ActionBasePoints[models.ActionFirstPurchase],
			models.ActionFirstPurchase, "ORDER", orderID, "First purchase bonus", nil)
		if err != nil {
			return nil, err
		}
		result.FirstOrderBonus = bonus.PointsAwarded
		result.NewBalance = bonus.NewBalance
	}

	streak, err := s.Streaks.RecordMonthlyAction(accountID, models.StreakPurchaseMonthly, completedAt)
	if err != nil {
		return nil, err
	}
	result.Streak = streak

	// The tracker only reports the multiplier; converting it into points is
	// this flow's job, as its own transaction against the order reference.
	if streak.Incremented && streak.Multiplier > 1.0 {
		streakBase := int64(math.Floor(float64(basePoints) * (streak.Multiplier - 1.0)))
		if streakBase > 0 {
			bonus, err := s.Ledger.Award(accountID, streakBase, models.ActionStreakBonus,
				"ORDER", orderID, fmt.Sprintf("%d-month streak bonus", streak.CurrentStreak), nil)
			if err != nil {
				return nil, err
			}
			result.StreakBonus = bonus.PointsAwarded
			result.NewBalance = bonus.NewBalance
		}
	}

	purchaseBadges, err := s.Badges.EvaluatePurchaseBadges(accountID)
	if err != nil {
		log.Printf("⚠️ [ORDER] purchase badge sweep failed for account=%s: %v", accountID, err)
	}
	result.BadgesAwarded = append(result.BadgesAwarded, purchaseBadges...)

	streakBadges, err := s.Badges.EvaluateStreakBadges(accountID)
	if err != nil {
		log.Printf("⚠️ [ORDER] streak badge sweep failed for account=%s: %v", accountID, err)
	}
	result.BadgesAwarded = append(result.BadgesAwarded, streakBadges...)

	referral, err := s.Referrals.ProcessPurchase(accountID, totalCents)
	if err != nil {
		log.Printf("⚠️ [ORDER] referral progression failed for account=%s: %v", accountID, err)
	} else if referral.Success {
		result.ReferralProgress = referral
	}

	log.Printf("📦 [ORDER] processed order=%s account=%s: +%d purchase, order #%d, streak=%d",
		orderID, accountID, result.PurchasePoints, orders, streak.CurrentStreak)
	return result, nil
}

// ReviewResult aggregates what an approved review triggered.
type ReviewResult struct {
	PointsAwarded int64                 `json:"points_awarded"`
	NewBalance    int64                 `json:"new_balance"`
	TierChanged   bool                  `json:"tier_changed"`
	NewTier       models.Tier           `json:"new_tier,omitempty"`
	BadgesAwarded []models.AccountBadge `json:"badges_awarded"`
}

// ProcessReviewApproved awards review points (more when the review carries a
// photo) and sweeps review badges. reviewID is the caller's stable reference.
func (s *OrderEventService) ProcessReviewApproved(accountID, reviewID string, withPhoto bool) (*ReviewResult, error) {
	action := models.ActionReview
	if withPhoto {
		action = models.ActionReviewWithPhoto
	}

	award, err := s.Ledger.Award(accountID, models.ActionBasePoints[action], action,
		"REVIEW", reviewID, "Approved product review", nil)
	if err != nil {
		return nil, err
	}

	if _, err := s.Ledger.RecordReviewStats(accountID); err != nil {
		return nil, err
	}

	badges, err := s.Badges.EvaluateReviewBadges(accountID)
	if err != nil {
		log.Printf("⚠️ [REVIEW] badge sweep failed for account=%s: %v", accountID, err)
	}
	if badges == nil {
		badges = []models.AccountBadge{}
	}

	return &ReviewResult{
		PointsAwarded: award.PointsAwarded,
		NewBalance:    award.NewBalance,
		TierChanged:   award.TierChanged,
		NewTier:       award.NewTier,
		BadgesAwarded: badges,
	}, nil
}
