// services/scheduler.go
package services

import (
	"log"
	"time"

	"loyalty-points-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the periodic housekeeping jobs: expiring
// stale referral codes and spot-auditing recently active ledgers.
func StartMaintenanceScheduler(ledger *LedgerService, referrals *ReferralService, referralTTL time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Daily: cancel referral codes that sat in PENDING past their TTL
	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			n, err := referrals.CancelStalePending(referralTTL)
			if err != nil {
				log.Printf("[Scheduler] referral expiry failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("🧹 [Scheduler] cancelled %d stale pending referrals", n)
			}
		}),
	)

	// Hourly: replay-audit accounts that changed in the last hour
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			var accounts []models.LoyaltyAccount
			since := time.Now().Add(-1 * time.Hour)
			if err := ledger.DB.Where("updated_at >= ?", since).Find(&accounts).Error; err != nil {
				log.Printf("[Scheduler] audit query failed: %v", err)
				return
			}
			for _, acct := range accounts {
				if err := ledger.VerifyAccount(acct.AccountID); err != nil {
					log.Printf("🚨 [Scheduler] ledger audit failed for account=%s: %v", acct.AccountID, err)
				}
			}
		}),
	)
}
