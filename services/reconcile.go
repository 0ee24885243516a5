package services

import (
	"refmart/ledger"
	"refmart/logger"
	"refmart/models"

	"gorm.io/gorm"
)

// ReconcileWallets refolds every wallet from its transaction history and
// repairs cached balances that drifted. Ledger rows are never touched; only
// the derived fields move. Returns how many wallets needed repair.
func ReconcileWallets(db *gorm.DB) (int, error) {
	var wallets []models.Wallet
	if err := db.Find(&wallets).Error; err != nil {
		return 0, err
	}

	fixed := 0
	for _, w := range wallets {
		want, err := ledger.Recompute(db, w.AccountID)
		if err != nil {
			return fixed, err
		}

		if w.Balance.Equal(want.Balance) &&
			w.MainBalance.Equal(want.Main) &&
			w.WithdrawableBalance.Equal(want.Withdrawable) {
			continue
		}

		logger.Warnf(
			"wallet drift account=%d balance=%s/%s main=%s/%s withdrawable=%s/%s",
			w.AccountID,
			w.Balance, want.Balance,
			w.MainBalance, want.Main,
			w.WithdrawableBalance, want.Withdrawable,
		)

		err = db.Model(&models.Wallet{}).Where("id = ?", w.ID).Updates(map[string]any{
			"balance":              want.Balance,
			"main_balance":         want.Main,
			"withdrawable_balance": want.Withdrawable,
		}).Error
		if err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}
