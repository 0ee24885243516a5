package triggers

import (
	"refmart/distribution"
	"refmart/ledger"
	"refmart/models"
	"refmart/policy"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// WithdrawalBreakdown splits a gross payout into the immediately payable net
// and the withheld (tax) portion. Net plus withheld always equals gross.
type WithdrawalBreakdown struct {
	Gross    decimal.Decimal `json:"gross"`
	Withheld decimal.Decimal `json:"withheld"`
	Net      decimal.Decimal `json:"net"`
}

// PreviewWithdrawalDistribution is the pure calculation: no lookup, no
// mutation.
func PreviewWithdrawalDistribution(pol *policy.Policy, gross decimal.Decimal) WithdrawalBreakdown {
	g := gross.Round(2)
	withheld := g.Mul(pol.WithholdingPercent()).Div(hundred).Round(2)
	return WithdrawalBreakdown{
		Gross:    g,
		Withheld: withheld,
		Net:      g.Sub(withheld),
	}
}

// ApplyWithdrawalDistribution debits the gross amount from the withdrawable
// balance and records the payout breakdown on the ledger row. Idempotent per
// source like every other trigger; fails with ledger.ErrInsufficientFunds
// when the balance cannot cover the gross.
func ApplyWithdrawalDistribution(db *gorm.DB, accountID uint, gross decimal.Decimal, src distribution.Source) (Result, WithdrawalBreakdown, error) {
	var breakdown WithdrawalBreakdown

	res, err := run(db, accountID, models.TriggerWithdrawal, src,
		func(tx *gorm.DB, pol *policy.Policy, acct *models.Account) (int, error) {
			breakdown = PreviewWithdrawalDistribution(pol, gross)
			_, err := ledger.Debit(tx, ledger.DebitParams{
				AccountID:  acct.ID,
				Amount:     breakdown.Gross,
				Type:       models.TxWithdrawal,
				SourceType: src.Type,
				SourceID:   src.ID,
				Meta: map[string]any{
					"withheld": breakdown.Withheld.String(),
					"net":      breakdown.Net.String(),
				},
			})
			return 0, err
		})

	return res, breakdown, err
}
