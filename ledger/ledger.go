// Package ledger is the single write path for wallet money. Every mutation
// locks the wallet row, appends exactly one immutable transaction row with
// before/after snapshots, and updates the cached balances. The cached
// balances must always equal the fold Recompute performs over the rows.
package ledger

import (
	"encoding/json"
	"errors"

	"refmart/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

var hundred = decimal.NewFromInt(100)

type CreditParams struct {
	AccountID  uint
	Amount     decimal.Decimal
	Type       models.TxType
	SourceType string
	SourceID   string
	Meta       map[string]any

	// WithholdPercent applies to commission-class types only: gross is
	// credited to the main balance, gross minus the withheld portion to the
	// withdrawable balance.
	WithholdPercent decimal.Decimal
}

type DebitParams struct {
	AccountID  uint
	Amount     decimal.Decimal
	Type       models.TxType
	SourceType string
	SourceID   string
	Meta       map[string]any
}

// Credit appends one credit row. A zero or negative amount is a no-op by
// contract, not an error. Must run inside the caller's transaction.
func Credit(tx *gorm.DB, p CreditParams) (*models.WalletTransaction, error) {
	gross := p.Amount.Round(2)
	if !gross.IsPositive() {
		return nil, nil
	}

	w, err := lockWallet(tx, p.AccountID)
	if err != nil {
		return nil, err
	}

	withheld := decimal.Zero
	if p.Type.IsCommission() && p.WithholdPercent.IsPositive() {
		withheld = gross.Mul(p.WithholdPercent).Div(hundred).Round(2)
	}
	net := gross.Sub(withheld)

	before := w.Balance
	w.Balance = w.Balance.Add(gross)

	switch {
	case p.Type.IsCommission():
		w.MainBalance = w.MainBalance.Add(gross)
		w.WithdrawableBalance = w.WithdrawableBalance.Add(net)
	case p.Type == models.TxWithhold:
		// Release of previously withheld funds; gross already counted in
		// main when the original commission landed.
		w.WithdrawableBalance = w.WithdrawableBalance.Add(gross)
	case p.Type.ExcludedFromMain():
		// REWARD: point value rides only on the legacy total.
	default:
		w.MainBalance = w.MainBalance.Add(gross)
		w.WithdrawableBalance = w.WithdrawableBalance.Add(gross)
	}

	if err := tx.Save(w).Error; err != nil {
		return nil, err
	}

	meta := cloneMeta(p.Meta)
	if withheld.IsPositive() {
		meta["withheld"] = withheld.String()
		meta["net"] = net.String()
	}

	row := models.WalletTransaction{
		AccountID:         p.AccountID,
		Type:              p.Type,
		Amount:            gross,
		SourceType:        p.SourceType,
		SourceID:          p.SourceID,
		Meta:              marshalMeta(meta),
		BalanceBefore:     before,
		BalanceAfter:      w.Balance,
		MainAfter:         w.MainBalance,
		WithdrawableAfter: w.WithdrawableBalance,
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Debit appends one debit row. WITHDRAWAL and WITHHOLD draw on the
// withdrawable balance; ADJUSTMENT bypasses that rule and draws on the main
// balance for administrative correction. Fails with ErrInsufficientFunds,
// leaving state untouched, when the relevant balance cannot cover it.
func Debit(tx *gorm.DB, p DebitParams) (*models.WalletTransaction, error) {
	amount := p.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, nil
	}

	w, err := lockWallet(tx, p.AccountID)
	if err != nil {
		return nil, err
	}

	switch p.Type {
	case models.TxAdjustment:
		if w.MainBalance.LessThan(amount) {
			return nil, ErrInsufficientFunds
		}
		w.MainBalance = w.MainBalance.Sub(amount)
		w.WithdrawableBalance = w.WithdrawableBalance.Sub(amount)
	default:
		if w.WithdrawableBalance.LessThan(amount) {
			return nil, ErrInsufficientFunds
		}
		w.WithdrawableBalance = w.WithdrawableBalance.Sub(amount)
		if p.Type == models.TxWithhold {
			// Reclaiming funds into the held bucket leaves main untouched.
		} else {
			w.MainBalance = w.MainBalance.Sub(decimal.Min(amount, w.MainBalance))
		}
	}

	before := w.Balance
	w.Balance = w.Balance.Sub(amount)

	if err := tx.Save(w).Error; err != nil {
		return nil, err
	}

	row := models.WalletTransaction{
		AccountID:         p.AccountID,
		Type:              p.Type,
		Amount:            amount.Neg(),
		SourceType:        p.SourceType,
		SourceID:          p.SourceID,
		Meta:              marshalMeta(cloneMeta(p.Meta)),
		BalanceBefore:     before,
		BalanceAfter:      w.Balance,
		MainAfter:         w.MainBalance,
		WithdrawableAfter: w.WithdrawableBalance,
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Fetch returns the wallet for an account, creating it lazily like every
// write path does.
func Fetch(db *gorm.DB, accountID uint) (*models.Wallet, error) {
	var w models.Wallet
	err := db.Where("account_id = ?", accountID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		w = models.Wallet{AccountID: accountID}
		if err := db.Create(&w).Error; err != nil {
			return nil, err
		}
		return &w, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// lockWallet serializes concurrent writers on the same wallet. The lock is a
// postgres row lock; sqlite (tests) serializes at the database level.
func lockWallet(tx *gorm.DB, accountID uint) (*models.Wallet, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var w models.Wallet
	err := q.Where("account_id = ?", accountID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		w = models.Wallet{AccountID: accountID}
		if err := tx.Create(&w).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Lost the create race; take the row the winner made.
				if err := q.Where("account_id = ?", accountID).First(&w).Error; err != nil {
					return nil, err
				}
				return &w, nil
			}
			return nil, err
		}
		return &w, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func cloneMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta)+2)
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func marshalMeta(meta map[string]any) datatypes.JSON {
	if len(meta) == 0 {
		return nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
