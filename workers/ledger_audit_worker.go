package workers

import (
	"context"
	"log"
	"time"

	"loyalty-points-system/models"
	"loyalty-points-system/services"

	"gorm.io/gorm"
)

// LedgerAuditor replays transaction logs against balance snapshots in the
// background. A mismatch means a broken invariant: it is logged for the
// operator, never repaired silently.
type LedgerAuditor struct {
	DB     *gorm.DB
	Ledger *services.LedgerService

	lastRun time.Time
}

func NewLedgerAuditor(db *gorm.DB, ledger *services.LedgerService) *LedgerAuditor {
	return &LedgerAuditor{DB: db, Ledger: ledger, lastRun: time.Now().Add(-24 * time.Hour)}
}

// auditChangedAccounts verifies every account touched since the previous run.
func (a *LedgerAuditor) auditChangedAccounts(ctx context.Context) {
	since := a.lastRun
	a.lastRun = time.Now()

	var accounts []models.LoyaltyAccount
	if err := a.DB.WithContext(ctx).
		Where("updated_at >= ?", since).
		Find(&accounts).Error; err != nil {
		log.Printf("[AUDIT] failed to list changed accounts: %v", err)
		return
	}

	var failures int
	for _, acct := range accounts {
		if ctx.Err() != nil {
			return
		}
		if err := a.Ledger.VerifyAccount(acct.AccountID); err != nil {
			failures++
			log.Printf("🚨 [AUDIT] invariant violation on account=%s: %v", acct.AccountID, err)
		}
	}

	if len(accounts) > 0 {
		log.Printf("🔍 [AUDIT] verified %d accounts, %d failures", len(accounts), failures)
	}
}

// PollLedgerAudits runs the auditor until the context is cancelled.
func PollLedgerAudits(ctx context.Context, auditor *LedgerAuditor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("🔍 [AUDIT] ledger audit worker started (every %s)", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[AUDIT] ledger audit worker stopping")
			return
		case <-ticker.C:
			auditor.auditChangedAccounts(ctx)
		}
	}
}
