// Package distribution fans configured commissions out across ancestry
// chains and geographic tiers. All walks credit through the ledger inside
// the caller's transaction; a skipped recipient is normal, a failed credit
// aborts the whole trigger.
package distribution

import (
	"errors"

	"refmart/cache"
	"refmart/ledger"
	"refmart/matrix"
	"refmart/models"
	"refmart/policy"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Source correlates every credit of one distribution run back to its
// triggering event.
type Source struct {
	Type string
	ID   string
}

// FanOutSponsor walks the flat sponsor chain crediting the schedule amount
// at each 1-indexed level, up to min(chain length, schedule depth). Agency
// and employee ancestors are skipped without error: they are paid through
// the geo path and must not collect twice.
func FanOutSponsor(tx *gorm.DB, from *models.Account, sched policy.Schedule, base decimal.Decimal, pol *policy.Policy, src Source) (int, error) {
	credited := 0
	cur := from

	for level := 1; level <= sched.Levels(); level++ {
		if cur.SponsorID == nil {
			break
		}
		var ancestor models.Account
		if err := tx.First(&ancestor, *cur.SponsorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return credited, err
		}
		cur = &ancestor

		amount := sched.AmountAt(level, base)
		if !amount.IsPositive() || !ancestor.Category.EligibleForLevels() {
			continue
		}

		_, err := ledger.Credit(tx, ledger.CreditParams{
			AccountID:       ancestor.ID,
			Amount:          amount,
			Type:            models.TxLevel,
			SourceType:      src.Type,
			SourceID:        src.ID,
			Meta:            map[string]any{"level": level, "from": from.MemberCode},
			WithholdPercent: pol.WithholdingPercent(),
		})
		if err != nil {
			return credited, err
		}
		credited++
	}
	return credited, nil
}

// FanOutMatrix walks the matrix-parent chain for one pool, crediting
// MATRIX_LEVEL amounts and folding each credit into the recipient's
// progress aggregate.
func FanOutMatrix(tx *gorm.DB, from *models.Account, pool models.PoolType, base decimal.Decimal, pol *policy.Policy, src Source) (int, error) {
	sched, err := pol.MatrixSchedule(pool)
	if err != nil {
		return 0, err
	}

	credited := 0
	cur := from

	for level := 1; level <= sched.Levels(); level++ {
		if cur.MatrixParentID == nil {
			break
		}
		var ancestor models.Account
		if err := tx.First(&ancestor, *cur.MatrixParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return credited, err
		}
		cur = &ancestor

		amount := sched.AmountAt(level, base)
		if !amount.IsPositive() || !ancestor.Category.EligibleForLevels() {
			continue
		}

		_, err := ledger.Credit(tx, ledger.CreditParams{
			AccountID:       ancestor.ID,
			Amount:          amount,
			Type:            models.TxMatrixLevel,
			SourceType:      src.Type,
			SourceID:        src.ID,
			Meta:            map[string]any{"level": level, "pool": pool, "from": from.MemberCode},
			WithholdPercent: pol.WithholdingPercent(),
		})
		if err != nil {
			return credited, err
		}
		if err := matrix.BumpProgress(tx, ancestor.ID, pool, level, amount); err != nil {
			return credited, err
		}
		cache.DropProgress(ancestor.ID, pool)
		credited++
	}
	return credited, nil
}
