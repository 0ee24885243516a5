package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TxType string

const (
	TxDirect      TxType = "DIRECT"
	TxSelf        TxType = "SELF"
	TxLevel       TxType = "LEVEL"
	TxMatrixLevel TxType = "MATRIX_LEVEL"
	TxGeo         TxType = "GEO"
	TxReward      TxType = "REWARD"
	TxWithhold    TxType = "WITHHOLD"
	TxAdjustment  TxType = "ADJUSTMENT"
	TxWithdrawal  TxType = "WITHDRAWAL"
)

// IsCommission marks the types whose credits are taxed at source: gross goes
// to the main balance, net of withholding to the withdrawable balance.
func (t TxType) IsCommission() bool {
	switch t {
	case TxDirect, TxSelf, TxLevel, TxMatrixLevel, TxGeo:
		return true
	}
	return false
}

// ExcludedFromMain marks synthetic credit types that must not inflate the
// main balance: REWARD is point value, WITHHOLD only moves already-counted
// funds into the withdrawable balance.
func (t TxType) ExcludedFromMain() bool {
	return t == TxReward || t == TxWithhold
}

// Wallet caches three balances. The ledger rows are the source of truth;
// these fields must always equal the fold ledger.Recompute produces.
type Wallet struct {
	gorm.Model

	AccountID           uint            `gorm:"uniqueIndex" json:"account_id"`
	Balance             decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"balance"`
	MainBalance         decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"main_balance"`
	WithdrawableBalance decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"withdrawable_balance"`
}

// WalletTransaction is append-only. Amount is signed: credits positive,
// debits negative. SourceType+SourceID correlate the row back to the event
// that produced it.
type WalletTransaction struct {
	gorm.Model

	AccountID  uint           `gorm:"index" json:"account_id"`
	Type       TxType         `gorm:"size:16;index" json:"type"`
	Amount     decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	SourceType string         `gorm:"size:32;index:idx_wtx_source" json:"source_type"`
	SourceID   string         `gorm:"size:64;index:idx_wtx_source" json:"source_id"`
	Meta       datatypes.JSON `gorm:"type:jsonb" json:"meta"`

	BalanceBefore     decimal.Decimal `gorm:"type:numeric(14,2)" json:"balance_before"`
	BalanceAfter      decimal.Decimal `gorm:"type:numeric(14,2)" json:"balance_after"`
	MainAfter         decimal.Decimal `gorm:"type:numeric(14,2)" json:"main_after"`
	WithdrawableAfter decimal.Decimal `gorm:"type:numeric(14,2)" json:"withdrawable_after"`
}
