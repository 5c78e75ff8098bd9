package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"loyalty-points-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recoverable / caller errors
var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrNonPositiveAmount  = errors.New("points amount must be positive")
	ErrUnknownAccount     = errors.New("account has no loyalty ledger")
	ErrRewardUnavailable  = errors.New("reward is not available")
)

// ErrCascadeDepthExceeded is an invariant violation: the award→tier→badge→
// bonus chain must settle within maxCascadeDepth processor calls.
var ErrCascadeDepthExceeded = errors.New("badge bonus cascade depth exceeded")

const maxCascadeDepth = 2

// LedgerService is the point transaction processor. All balance mutations for
// an account go through it; it serializes them with a per-account mutex
// around a single DB transaction, so operations on different accounts never
// block each other.
type LedgerService struct {
	DB *gorm.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db, locks: make(map[string]*sync.Mutex)}
}

func (s *LedgerService) accountLock(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountID] = l
	}
	return l
}

// withAccount runs fn under the account's lock inside one DB transaction.
// When create is false a missing ledger is ErrUnknownAccount; otherwise one is
// created lazily (no ledger row exists until the first earning event).
func (s *LedgerService) withAccount(accountID string, create bool, fn func(tx *gorm.DB, acct *models.LoyaltyAccount) error) error {
	l := s.accountLock(accountID)
	l.Lock()
	defer l.Unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var acct models.LoyaltyAccount
		err := tx.Where("account_id = ?", accountID).First(&acct).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if !create {
				return ErrUnknownAccount
			}
			standing := TierFor(0)
			acct = models.LoyaltyAccount{
				ID:               uuid.NewString(),
				AccountID:        accountID,
				Tier:             standing.Tier,
				PointsToNextTier: standing.PointsToNextTier,
			}
			if err := tx.Create(&acct).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if err := fn(tx, &acct); err != nil {
			return err
		}
		return tx.Save(&acct).Error
	})
}

// AwardResult is what a committed earn looks like to the caller.
type AwardResult struct {
	Transaction   *models.LoyaltyTransaction `json:"transaction"`
	PointsAwarded int64                      `json:"points_awarded"`
	NewBalance    int64                      `json:"new_balance"`
	TierChanged   bool                       `json:"tier_changed"`
	NewTier       models.Tier                `json:"new_tier,omitempty"`
}

// RedeemResult is what a committed redemption looks like to the caller.
type RedeemResult struct {
	Transaction *models.LoyaltyTransaction `json:"transaction"`
	NewBalance  int64                      `json:"new_balance"`
}

// Award applies an earning event: multiplies basePoints by the account's
// tier multiplier, appends the ledger entry and updates the snapshot. The
// ledger is created lazily if this is the account's first activity.
func (s *LedgerService) Award(accountID string, basePoints int64, action models.PointsAction, refType, refID, description string, metadata map[string]string) (*AwardResult, error) {
	return s.award(accountID, basePoints, action, refType, refID, description, metadata, 0)
}

func (s *LedgerService) award(accountID string, basePoints int64, action models.PointsAction, refType, refID, description string, metadata map[string]string, depth int) (*AwardResult, error) {
	if depth > maxCascadeDepth {
		log.Printf("🚨 [LEDGER] cascade depth %d exceeded for account=%s action=%s base=%d — aborting", depth, accountID, action, basePoints)
		return nil, ErrCascadeDepthExceeded
	}
	if basePoints <= 0 {
		return nil, ErrNonPositiveAmount
	}

	var result AwardResult
	err := s.withAccount(accountID, true, func(tx *gorm.DB, acct *models.LoyaltyAccount) error {
		// Multiplier snapshot precedes mutation: the tier in effect is the one
		// *before* this transaction, even if the transaction itself advances
		// the tier. Otherwise an award could retroactively inflate itself.
		multiplier := TierMultiplier(acct.Tier)
		finalPoints := int64(math.Floor(float64(basePoints) * multiplier))

		balanceBefore := acct.CurrentBalance
		acct.CurrentBalance += finalPoints
		acct.TotalEarned += finalPoints
		acct.LifetimePoints += finalPoints

		now := time.Now()
		acct.LastPointsEarnedAt = &now

		prevTier := acct.Tier
		standing := TierFor(acct.LifetimePoints)
		acct.Tier = standing.Tier
		acct.TierProgress = standing.ProgressPercent
		acct.PointsToNextTier = standing.PointsToNextTier
		tierChanged := standing.Tier != prevTier
		if tierChanged {
			acct.LastTierUpgradeAt = &now
		}

		if acct.CurrentBalance != acct.TotalEarned-acct.TotalRedeemed || acct.CurrentBalance < 0 {
			log.Printf("🚨 [LEDGER] balance invariant violated for account=%s: balance=%d earned=%d redeemed=%d (delta %+d from %d)",
				accountID, acct.CurrentBalance, acct.TotalEarned, acct.TotalRedeemed, finalPoints, balanceBefore)
			return fmt.Errorf("balance invariant violated for account %s", accountID)
		}

		txn := &models.LoyaltyTransaction{
			ID:                uuid.NewString(),
			AccountID:         accountID,
			Kind:              models.KindEarned,
			Action:            action,
			BasePoints:        basePoints,
			PointsDelta:       finalPoints,
			BalanceBefore:     balanceBefore,
			BalanceAfter:      acct.CurrentBalance,
			MultiplierApplied: multiplier,
			ReferenceType:     refType,
			ReferenceID:       refID,
			Description:       description,
			Metadata:          metadata,
		}
		if err := tx.Create(txn).Error; err != nil {
			return err
		}

		result = AwardResult{
			Transaction:   txn,
			PointsAwarded: finalPoints,
			NewBalance:    acct.CurrentBalance,
			TierChanged:   tierChanged,
			NewTier:       standing.Tier,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("💰 [LEDGER] %s +%d (%s ×%.2f) → balance=%d account=%s",
		result.Transaction.Action, result.PointsAwarded, action, result.Transaction.MultiplierApplied, result.NewBalance, accountID)

	if result.TierChanged {
		// Tier badge check runs as a separate call after the account lock is
		// released — the badge's bonus payout re-enters this processor and
		// must not deadlock on the lock we just held.
		log.Printf("🏆 [LEDGER] tier change for account=%s → %s", accountID, result.NewTier)
		badgeSvc := NewBadgeService(s.DB, s)
		if err := badgeSvc.awardTierBadges(accountID, result.NewTier, depth+1); err != nil {
			log.Printf("⚠️ [LEDGER] tier badge evaluation failed for account=%s tier=%s: %v", accountID, result.NewTier, err)
		}
	}
	return &result, nil
}

// Redeem spends points. No multiplier applies; the tier never drops because
// it derives from lifetime points, which redemption leaves untouched.
func (s *LedgerService) Redeem(accountID string, points int64, refType, refID, description string) (*RedeemResult, error) {
	if points <= 0 {
		return nil, ErrNonPositiveAmount
	}

	var result RedeemResult
	err := s.withAccount(accountID, false, func(tx *gorm.DB, acct *models.LoyaltyAccount) error {
		if points > acct.CurrentBalance {
			return ErrInsufficientPoints
		}

		balanceBefore := acct.CurrentBalance
		acct.CurrentBalance -= points
		acct.TotalRedeemed += points

		standing := TierFor(acct.LifetimePoints)
		acct.Tier = standing.Tier
		acct.TierProgress = standing.ProgressPercent
		acct.PointsToNextTier = standing.PointsToNextTier

		if acct.CurrentBalance != acct.TotalEarned-acct.TotalRedeemed || acct.CurrentBalance < 0 {
			log.Printf("🚨 [LEDGER] balance invariant violated for account=%s: balance=%d earned=%d redeemed=%d (redeem %d from %d)",
				accountID, acct.CurrentBalance, acct.TotalEarned, acct.TotalRedeemed, points, balanceBefore)
			return fmt.Errorf("balance invariant violated for account %s", accountID)
		}

		txn := &models.LoyaltyTransaction{
			ID:                uuid.NewString(),
			AccountID:         accountID,
			Kind:              models.KindRedeemed,
			Action:            models.ActionRedemption,
			BasePoints:        points,
			PointsDelta:       -points,
			BalanceBefore:     balanceBefore,
			BalanceAfter:      acct.CurrentBalance,
			MultiplierApplied: 1,
			ReferenceType:     refType,
			ReferenceID:       refID,
			Description:       description,
		}
		if err := tx.Create(txn).Error; err != nil {
			return err
		}

		result = RedeemResult{Transaction: txn, NewBalance: acct.CurrentBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🎟️ [LEDGER] redeemed %d points → balance=%d account=%s", points, result.NewBalance, accountID)
	return &result, nil
}

// RedeemForReward validates a catalog reward and redeems its cost.
func (s *LedgerService) RedeemForReward(accountID, rewardCode string) (*RedeemResult, error) {
	var reward models.Reward
	if err := s.DB.Where("code = ?", rewardCode).First(&reward).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRewardUnavailable
		}
		return nil, err
	}
	if !reward.IsActive || (reward.ExpiresAt != nil && reward.ExpiresAt.Before(time.Now())) {
		return nil, ErrRewardUnavailable
	}
	return s.Redeem(accountID, reward.PointsCost, "REWARD", reward.ID, "Redeemed: "+reward.Title)
}

// AdjustPoints applies a signed manual correction (admin). Adjustments bypass
// the tier multiplier; negative adjustments obey the balance floor.
func (s *LedgerService) AdjustPoints(accountID string, delta int64, reason string) (*models.LoyaltyTransaction, error) {
	if delta == 0 {
		return nil, ErrNonPositiveAmount
	}

	var txn *models.LoyaltyTransaction
	err := s.withAccount(accountID, delta > 0, func(tx *gorm.DB, acct *models.LoyaltyAccount) error {
		if delta < 0 && -delta > acct.CurrentBalance {
			return ErrInsufficientPoints
		}

		balanceBefore := acct.CurrentBalance
		kind := models.KindEarned
		acct.CurrentBalance += delta
		if delta > 0 {
			acct.TotalEarned += delta
			acct.LifetimePoints += delta
		} else {
			kind = models.KindRedeemed
			acct.TotalRedeemed += -delta
		}

		standing := TierFor(acct.LifetimePoints)
		acct.Tier = standing.Tier
		acct.TierProgress = standing.ProgressPercent
		acct.PointsToNextTier = standing.PointsToNextTier

		txn = &models.LoyaltyTransaction{
			ID:                uuid.NewString(),
			AccountID:         accountID,
			Kind:              kind,
			Action:            models.ActionAdjustment,
			BasePoints:        delta,
			PointsDelta:       delta,
			BalanceBefore:     balanceBefore,
			BalanceAfter:      acct.CurrentBalance,
			MultiplierApplied: 1,
			Description:       reason,
		}
		return tx.Create(txn).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🔧 [LEDGER] adjustment %+d account=%s (%s)", delta, accountID, reason)
	return txn, nil
}

// AccountSummary is the read model for profile/dashboard UIs.
type AccountSummary struct {
	AccountID          string                      `json:"account_id"`
	Balance            int64                       `json:"balance"`
	TotalEarned        int64                       `json:"total_earned"`
	TotalRedeemed      int64                       `json:"total_redeemed"`
	LifetimePoints     int64                       `json:"lifetime_points"`
	Tier               models.Tier                 `json:"tier"`
	TierProgress       float64                     `json:"tier_progress"`
	PointsToNextTier   int64                       `json:"points_to_next_tier"`
	Multiplier         float64                     `json:"multiplier"`
	CurrentStreak      int                         `json:"current_streak"`
	LongestStreak      int                         `json:"longest_streak"`
	TotalBadges        int64                       `json:"total_badges"`
	RecentTransactions []models.LoyaltyTransaction `json:"recent_transactions"`
}

// GetSummary returns the account's loyalty state. An account with no activity
// yet reads as a fresh Bronze ledger; the read path never creates rows.
func (s *LedgerService) GetSummary(accountID string, recentLimit int) (*AccountSummary, error) {
	if recentLimit <= 0 || recentLimit > 100 {
		recentLimit = 10
	}

	var acct models.LoyaltyAccount
	err := s.DB.Where("account_id = ?", accountID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		standing := TierFor(0)
		return &AccountSummary{
			AccountID:          accountID,
			Tier:               standing.Tier,
			PointsToNextTier:   standing.PointsToNextTier,
			Multiplier:         standing.Multiplier,
			RecentTransactions: []models.LoyaltyTransaction{},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	var recent []models.LoyaltyTransaction
	if err := s.DB.Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(recentLimit).
		Find(&recent).Error; err != nil {
		return nil, err
	}

	return &AccountSummary{
		AccountID:          accountID,
		Balance:            acct.CurrentBalance,
		TotalEarned:        acct.TotalEarned,
		TotalRedeemed:      acct.TotalRedeemed,
		LifetimePoints:     acct.LifetimePoints,
		Tier:               acct.Tier,
		TierProgress:       acct.TierProgress,
		PointsToNextTier:   acct.PointsToNextTier,
		Multiplier:         TierMultiplier(acct.Tier),
		CurrentStreak:      acct.CurrentStreak,
		LongestStreak:      acct.LongestStreak,
		TotalBadges:        acct.TotalBadges,
		RecentTransactions: recent,
	}, nil
}

// GetTransactions returns the account's ledger page, newest first.
func (s *LedgerService) GetTransactions(accountID string, page, size int) ([]models.LoyaltyTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var total int64
	if err := s.DB.Model(&models.LoyaltyTransaction{}).Where("account_id = ?", accountID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []models.LoyaltyTransaction
	err := s.DB.Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&txns).Error
	return txns, total, err
}

// ReplayBalance recomputes the balance from the transaction log alone and
// verifies the before/after chaining of every entry.
func (s *LedgerService) ReplayBalance(accountID string) (int64, error) {
	var txns []models.LoyaltyTransaction
	if err := s.DB.Where("account_id = ?", accountID).Order("created_at ASC").Find(&txns).Error; err != nil {
		return 0, err
	}

	var balance int64
	for _, t := range txns {
		if t.BalanceBefore != balance || t.BalanceAfter != t.BalanceBefore+t.PointsDelta {
			return balance, fmt.Errorf("transaction %s breaks the chain: before=%d after=%d delta=%d expected before=%d",
				t.ID, t.BalanceBefore, t.BalanceAfter, t.PointsDelta, balance)
		}
		balance = t.BalanceAfter
	}
	return balance, nil
}

// VerifyAccount replays the log and compares it to the snapshot. Used by the
// audit worker; a mismatch is an operator-facing invariant violation.
func (s *LedgerService) VerifyAccount(accountID string) error {
	replayed, err := s.ReplayBalance(accountID)
	if err != nil {
		return err
	}

	var acct models.LoyaltyAccount
	if err := s.DB.Where("account_id = ?", accountID).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownAccount
		}
		return err
	}
	if acct.CurrentBalance != replayed {
		return fmt.Errorf("snapshot balance %d does not match replayed balance %d for account %s",
			acct.CurrentBalance, replayed, accountID)
	}
	if acct.CurrentBalance != acct.TotalEarned-acct.TotalRedeemed || acct.CurrentBalance < 0 {
		return fmt.Errorf("snapshot counters inconsistent for account %s: balance=%d earned=%d redeemed=%d",
			accountID, acct.CurrentBalance, acct.TotalEarned, acct.TotalRedeemed)
	}
	return nil
}

// --- activity counters ---
// The flows below own their metrics but the counters live on the account
// snapshot, so updates go through the same per-account lock as balance writes.

// RecordOrderStats increments the order counters and reports whether this was
// the account's first order.
func (s *LedgerService) RecordOrderStats(accountID string, totalCents int64) (orders int64, firstOrder bool, err error) {
	err = s.withAccount(accountID, true, func(tx *gorm.DB, acct *models.LoyaltyAccount) error {
		acct.TotalOrders++
		acct.TotalSpentCents += totalCents
		orders = acct.TotalOrders
		firstOrder = acct.TotalOrders == 1
		return nil
	})
	return orders, firstOrder, err
}

// RecordReviewStats increments the approved-review counter.
func (s *LedgerService) RecordReviewStats(accountID string) (reviews int64, err error) {
	err = s.withAccount(accountID, true, func(tx *gorm.DB, acct *models.LoyaltyAccount) error {
		acct.TotalReviews++
		reviews = acct.TotalReviews
		return nil
	})
	return reviews, err
}

// RecordReferralStats increments the referrer's completed-referral counter.
func (s *LedgerService) RecordReferralStats(accountID string) (referrals int64, err error) {
	err = s.withAccount(accountID, true, func(tx *gorm.DB, acct *models.LoyaltyAccount) error {
		acct.TotalReferrals++
		referrals = acct.TotalReferrals
		return nil
	})
	return referrals, err
}

func (s *LedgerService) incrementBadgeCount(accountID string) error {
	return s.withAccount(accountID, true, func(tx *gorm.DB, acct *models.LoyaltyAccount) error {
		acct.TotalBadges++
		return nil
	})
}

// syncStreakMirror copies the authoritative streak counters onto the account
// snapshot for cheap dashboard reads.
func (s *LedgerService) syncStreakMirror(accountID string, current, longest int) error {
	return s.withAccount(accountID, true, func(tx *gorm.DB, acct *models.LoyaltyAccount) error {
		acct.CurrentStreak = current
		if longest > acct.LongestStreak {
			acct.LongestStreak = longest
		}
		return nil
	})
}
