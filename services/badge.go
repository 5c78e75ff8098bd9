package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"loyalty-points-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BadgeService awards badges idempotently. A badge is held at most once per
// account; the unique index on (account_id, badge_code) is the guard that
// holds even when the same check runs twice concurrently.
type BadgeService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewBadgeService(db *gorm.DB, ledger *LedgerService) *BadgeService {
	return &BadgeService{DB: db, Ledger: ledger}
}

// SeedDefaultBadges inserts any missing catalog badges (idempotent, run at
// startup).
func (s *BadgeService) SeedDefaultBadges() error {
	for _, def := range models.DefaultBadges {
		var count int64
		if err := s.DB.Model(&models.Badge{}).Where("code = ?", def.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		badge := def
		badge.ID = uuid.NewString()
		badge.IsActive = true
		if err := s.DB.Create(&badge).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return fmt.Errorf("seed badge %s: %w", def.Code, err)
		}
	}
	return nil
}

// CheckAndAward checks one badge for an account and awards it if qualified
// and not already held. Returns nil without error when the badge is already
// held, inactive, unknown, or the account does not qualify.
func (s *BadgeService) CheckAndAward(accountID, badgeCode string) (*models.AccountBadge, error) {
	return s.checkAndAward(accountID, badgeCode, "DIRECT_CHECK", 1)
}

func (s *BadgeService) checkAndAward(accountID, badgeCode, earnedFrom string, depth int) (*models.AccountBadge, error) {
	var badge models.Badge
	if err := s.DB.Where("code = ?", badgeCode).First(&badge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !badge.IsActive {
		return nil, nil
	}

	qualified, err := s.qualifies(accountID, &badge)
	if err != nil {
		return nil, err
	}
	if !qualified {
		return nil, nil
	}

	awarded := &models.AccountBadge{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		BadgeCode:  badge.Code,
		EarnedFrom: earnedFrom,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// Fast-path existence check; the unique index is the real guard.
		var count int64
		if err := tx.Model(&models.AccountBadge{}).
			Where("account_id = ? AND badge_code = ?", accountID, badge.Code).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return gorm.ErrDuplicatedKey
		}
		if err := tx.Create(awarded).Error; err != nil {
			return err
		}
		return tx.Model(&models.Badge{}).
			Where("code = ?", badge.Code).
			UpdateColumn("total_awarded", gorm.Expr("total_awarded + 1")).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Already held, possibly via a concurrent check. Exactly one caller
		// gets past this point, so the bonus below pays out exactly once.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	log.Printf("🎖️ [BADGE] awarded %s to account=%s (%s)", badge.Code, accountID, earnedFrom)

	if err := s.Ledger.incrementBadgeCount(accountID); err != nil {
		log.Printf("⚠️ [BADGE] failed to bump badge counter for account=%s: %v", accountID, err)
	}

	if badge.PointsReward > 0 {
		_, err := s.Ledger.award(accountID, badge.PointsReward, models.ActionBadgeBonus,
			"BADGE", badge.ID, "Bonus points for earning: "+badge.Name, nil, depth)
		if err != nil {
			// The badge row is already committed; surfacing the payout error
			// lets the operator reconcile rather than silently dropping it.
			return awarded, fmt.Errorf("badge %s awarded but bonus payout failed: %w", badge.Code, err)
		}
	}
	return awarded, nil
}

// qualifies evaluates the badge requirement against engine-owned metrics.
// SPECIAL badges carry no metric — awarding them is the explicit workflow's
// decision, so a direct check counts as qualification.
func (s *BadgeService) qualifies(accountID string, badge *models.Badge) (bool, error) {
	if badge.RequirementType == models.RequirementSpecial {
		return true, nil
	}

	var acct models.LoyaltyAccount
	err := s.DB.Where("account_id = ?", accountID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch badge.RequirementType {
	case models.RequirementTier:
		// Tier badge requirement value is the tier's lower points boundary.
		return acct.LifetimePoints >= badge.RequirementValue, nil
	case models.RequirementPurchaseCount:
		return acct.TotalOrders >= badge.RequirementValue, nil
	case models.RequirementTotalSpent:
		return acct.TotalSpentCents >= badge.RequirementValue*100, nil
	case models.RequirementReviewCount:
		return acct.TotalReviews >= badge.RequirementValue, nil
	case models.RequirementReferralCount:
		return acct.TotalReferrals >= badge.RequirementValue, nil
	case models.RequirementStreak:
		// Streak badges are permanent: the longest streak ever reached counts.
		return int64(acct.LongestStreak) >= badge.RequirementValue, nil
	default:
		return false, nil
	}
}

// awardTierBadges awards every tier badge up to and including newTier,
// highest first. A jump across several boundaries in one award (bulk points
// import) grants all of them.
func (s *BadgeService) awardTierBadges(accountID string, newTier models.Tier, depth int) error {
	var errs []error
	for i := tierRank(newTier); i >= 0; i-- {
		code := "TIER_" + string(TierLadder[i].Tier)
		if _, err := s.checkAndAward(accountID, code, "TIER_UPGRADE", depth); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// evaluateThresholdBadges awards every active badge of the given requirement
// types the account now qualifies for. Monotonic cascade: a metric jumping
// across several thresholds at once grants each crossed badge, not just the
// highest.
func (s *BadgeService) evaluateThresholdBadges(accountID string, types ...models.BadgeRequirement) ([]models.AccountBadge, error) {
	var badges []models.Badge
	if err := s.DB.Where("requirement_type IN ? AND is_active = ?", types, true).
		Order("requirement_value DESC").
		Find(&badges).Error; err != nil {
		return nil, err
	}

	var newlyAwarded []models.AccountBadge
	for _, badge := range badges {
		ab, err := s.checkAndAward(accountID, badge.Code, "THRESHOLD_SWEEP", 1)
		if err != nil {
			return newlyAwarded, err
		}
		if ab != nil {
			newlyAwarded = append(newlyAwarded, *ab)
		}
	}
	return newlyAwarded, nil
}

// EvaluatePurchaseBadges sweeps order-count and total-spent badges.
func (s *BadgeService) EvaluatePurchaseBadges(accountID string) ([]models.AccountBadge, error) {
	return s.evaluateThresholdBadges(accountID, models.RequirementPurchaseCount, models.RequirementTotalSpent)
}

// EvaluateReviewBadges sweeps review-count badges.
func (s *BadgeService) EvaluateReviewBadges(accountID string) ([]models.AccountBadge, error) {
	return s.evaluateThresholdBadges(accountID, models.RequirementReviewCount)
}

// EvaluateReferralBadges sweeps referral-count badges.
func (s *BadgeService) EvaluateReferralBadges(accountID string) ([]models.AccountBadge, error) {
	return s.evaluateThresholdBadges(accountID, models.RequirementReferralCount)
}

// EvaluateStreakBadges sweeps streak badges.
func (s *BadgeService) EvaluateStreakBadges(accountID string) ([]models.AccountBadge, error) {
	return s.evaluateThresholdBadges(accountID, models.RequirementStreak)
}

// ListAvailable returns the active catalog. Secret badges are excluded unless
// asked for (admin views only).
func (s *BadgeService) ListAvailable(includeSecret bool) ([]models.Badge, error) {
	q := s.DB.Where("is_active = ?", true)
	if !includeSecret {
		q = q.Where("is_secret = ?", false)
	}
	var badges []models.Badge
	err := q.Order("requirement_type ASC, requirement_value ASC").Find(&badges).Error
	return badges, err
}

// AccountBadgeView is a catalog badge joined with when the account earned it.
type AccountBadgeView struct {
	models.Badge
	EarnedAt   time.Time `json:"earned_at"`
	EarnedFrom string    `json:"earned_from,omitempty"`
}

// ListAccountBadges returns the badges an account holds, newest first.
func (s *BadgeService) ListAccountBadges(accountID string) ([]AccountBadgeView, error) {
	var held []models.AccountBadge
	if err := s.DB.Where("account_id = ?", accountID).Order("earned_at DESC").Find(&held).Error; err != nil {
		return nil, err
	}
	if len(held) == 0 {
		return []AccountBadgeView{}, nil
	}

	codes := make([]string, 0, len(held))
	for _, h := range held {
		codes = append(codes, h.BadgeCode)
	}
	var catalog []models.Badge
	if err := s.DB.Where("code IN ?", codes).Find(&catalog).Error; err != nil {
		return nil, err
	}
	byCode := make(map[string]models.Badge, len(catalog))
	for _, b := range catalog {
		byCode[b.Code] = b
	}

	views := make([]AccountBadgeView, 0, len(held))
	for _, h := range held {
		views = append(views, AccountBadgeView{
			Badge:      byCode[h.BadgeCode],
			EarnedAt:   h.EarnedAt,
			EarnedFrom: h.EarnedFrom,
		})
	}
	return views, nil
}

// CreateBadge registers a new catalog badge (admin).
func (s *BadgeService) CreateBadge(badge *models.Badge) error {
	if badge.ID == "" {
		badge.ID = uuid.NewString()
	}
	if err := s.DB.Create(badge).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("badge code %s already exists", badge.Code)
		}
		return err
	}
	return nil
}
