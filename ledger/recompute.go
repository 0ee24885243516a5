package ledger

import (
	"encoding/json"

	"refmart/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Balances is the result of folding an account's transaction history.
type Balances struct {
	Balance      decimal.Decimal
	Main         decimal.Decimal
	Withdrawable decimal.Decimal
}

// Recompute folds the account's full transaction history into the three
// balances, applying exactly the rules Credit and Debit apply. The fold is
// the reconciliation source of truth: when a cached wallet disagrees, the
// wallet is wrong.
func Recompute(db *gorm.DB, accountID uint) (Balances, error) {
	var rows []models.WalletTransaction
	err := db.Where("account_id = ?", accountID).Order("id ASC").Find(&rows).Error
	if err != nil {
		return Balances{}, err
	}

	var b Balances
	for _, row := range rows {
		if row.Amount.IsNegative() {
			b = applyDebit(b, row)
		} else {
			b = applyCredit(b, row)
		}
	}
	return b, nil
}

func applyCredit(b Balances, row models.WalletTransaction) Balances {
	gross := row.Amount
	b.Balance = b.Balance.Add(gross)

	switch {
	case row.Type.IsCommission():
		b.Main = b.Main.Add(gross)
		b.Withdrawable = b.Withdrawable.Add(gross.Sub(withheldOf(row)))
	case row.Type == models.TxWithhold:
		b.Withdrawable = b.Withdrawable.Add(gross)
	case row.Type.ExcludedFromMain():
	default:
		b.Main = b.Main.Add(gross)
		b.Withdrawable = b.Withdrawable.Add(gross)
	}
	return b
}

func applyDebit(b Balances, row models.WalletTransaction) Balances {
	amount := row.Amount.Neg()
	b.Balance = b.Balance.Sub(amount)

	switch row.Type {
	case models.TxAdjustment:
		b.Main = b.Main.Sub(amount)
		b.Withdrawable = b.Withdrawable.Sub(amount)
	case models.TxWithhold:
		b.Withdrawable = b.Withdrawable.Sub(amount)
	default:
		b.Withdrawable = b.Withdrawable.Sub(amount)
		b.Main = b.Main.Sub(decimal.Min(amount, b.Main))
	}
	return b
}

// withheldOf reads the withheld portion a commission credit recorded on its
// own row, so the fold never needs the policy that was in force at the time.
func withheldOf(row models.WalletTransaction) decimal.Decimal {
	if len(row.Meta) == 0 {
		return decimal.Zero
	}
	var meta struct {
		Withheld decimal.Decimal `json:"withheld"`
	}
	if err := json.Unmarshal(row.Meta, &meta); err != nil {
		return decimal.Zero
	}
	return meta.Withheld
}
