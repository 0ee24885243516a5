package jobs

import (
	"time"

	"refmart/database"
	"refmart/logger"
	"refmart/services"
)

// StartReconciler sweeps wallet caches against the ledger on a fixed
// interval. Drift is a bug somewhere else; the sweep logs it and repairs
// the cache so reports stay honest.
func StartReconciler(interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		for {
			<-ticker.C
			fixed, err := services.ReconcileWallets(database.DB)
			if err != nil {
				logger.Errorf("reconciliation sweep failed: %v", err)
				continue
			}
			if fixed > 0 {
				logger.Warnf("reconciliation repaired %d wallets", fixed)
			}
		}
	}()
}
