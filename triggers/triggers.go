// Package triggers composes the engine into one atomic unit per business
// event. Each trigger loads a policy snapshot, claims the idempotency
// record, runs every credit and placement inside a single transaction, and
// either commits the whole distribution or none of it.
package triggers

import (
	"errors"
	"fmt"

	"refmart/distribution"
	"refmart/ledger"
	"refmart/logger"
	"refmart/matrix"
	"refmart/models"
	"refmart/policy"

	"gorm.io/gorm"
)

type PrimeTier string

const (
	Prime150 PrimeTier = "150"
	Prime750 PrimeTier = "750"
)

// Result reports whether the trigger ran now or had already been processed,
// and how many ledger credits the run issued.
type Result struct {
	Processed bool
	Credits   int
}

// OnReferralJoin places a newly registered account into the spillover tree.
// Join itself moves no money; commissions flow on activation.
func OnReferralJoin(db *gorm.DB, accountID uint, src distribution.Source) (Result, error) {
	return run(db, accountID, models.TriggerJoin, src,
		func(tx *gorm.DB, pol *policy.Policy, acct *models.Account) (int, error) {
			sponsor, err := sponsorOf(tx, acct)
			if err != nil {
				return 0, err
			}
			if _, err := matrix.Place(tx, acct, sponsor); err != nil {
				return 0, err
			}
			return 0, nil
		})
}

// OnPrimeProductActivation distributes a prime product purchase: direct and
// self credits, matrix unit opening and placement, sponsor and matrix level
// fan-outs, geo distribution, and reward points — one commit.
func OnPrimeProductActivation(db *gorm.DB, accountID uint, tier PrimeTier, src distribution.Source) (Result, error) {
	return run(db, accountID, models.TriggerPrimeActivation, src,
		func(tx *gorm.DB, pol *policy.Policy, acct *models.Account) (int, error) {
			var product policy.Product
			switch tier {
			case Prime150:
				product = pol.Prime150()
			case Prime750:
				product = pol.Prime750()
			default:
				return 0, fmt.Errorf("unknown prime tier %q", tier)
			}
			return distribute(tx, pol, acct, product, models.PoolThree150, "prime_"+string(tier), src)
		})
}

// OnMonthlyBoxActivation distributes a monthly box purchase, with separate
// configuration for the first and recurring months.
func OnMonthlyBoxActivation(db *gorm.DB, accountID uint, isFirstMonth bool, src distribution.Source) (Result, error) {
	return run(db, accountID, models.TriggerMonthlyBox, src,
		func(tx *gorm.DB, pol *policy.Policy, acct *models.Account) (int, error) {
			product := pol.MonthlyRecurringBox()
			label := "monthly_recurring"
			if isFirstMonth {
				product = pol.MonthlyFirstBox()
				label = "monthly_first"
			}
			return distribute(tx, pol, acct, product, models.PoolThree50, label, src)
		})
}

// OnFranchiseBenefit runs the geo distribution alone for events that only
// pay the franchise tiers, such as coupon redemptions.
func OnFranchiseBenefit(db *gorm.DB, accountID uint, kind models.TriggerKind, src distribution.Source) (Result, error) {
	if kind == "" {
		kind = models.TriggerFranchiseBenefit
	}
	return run(db, accountID, kind, src,
		func(tx *gorm.DB, pol *policy.Policy, acct *models.Account) (int, error) {
			return distribution.DistributeGeo(tx, acct, pol, src)
		})
}

// distribute is the shared activation flow: the full fan-out for one
// product purchase.
func distribute(tx *gorm.DB, pol *policy.Policy, acct *models.Account, product policy.Product, threePool models.PoolType, label string, src distribution.Source) (int, error) {
	credits := 0
	sponsor, err := sponsorOf(tx, acct)
	if err != nil {
		return 0, err
	}

	if sponsor != nil {
		row, err := ledger.Credit(tx, ledger.CreditParams{
			AccountID:       sponsor.ID,
			Amount:          product.SponsorAmount,
			Type:            models.TxDirect,
			SourceType:      src.Type,
			SourceID:        src.ID,
			Meta:            map[string]any{"from": acct.MemberCode, "product": label},
			WithholdPercent: pol.WithholdingPercent(),
		})
		if err != nil {
			return credits, err
		}
		if row != nil {
			credits++
		}
	}

	row, err := ledger.Credit(tx, ledger.CreditParams{
		AccountID:       acct.ID,
		Amount:          product.SelfAmount,
		Type:            models.TxSelf,
		SourceType:      src.Type,
		SourceID:        src.ID,
		Meta:            map[string]any{"product": label},
		WithholdPercent: pol.WithholdingPercent(),
	})
	if err != nil {
		return credits, err
	}
	if row != nil {
		credits++
	}

	// Placement is idempotent; an account activating before any join trigger
	// still ends up in the tree.
	if _, err := matrix.Place(tx, acct, sponsor); err != nil {
		return credits, err
	}

	pools := []models.PoolType{}
	if product.Enable5 {
		pools = append(pools, models.PoolFive)
	}
	if product.Enable3 {
		pools = append(pools, threePool)
	}

	for _, pool := range pools {
		unit := models.MatrixAccount{
			PoolType:   pool,
			AccountID:  acct.ID,
			Status:     models.MatrixStatusActive,
			Label:      label,
			SourceType: src.Type,
			SourceID:   src.ID,
		}
		if err := tx.Create(&unit).Error; err != nil {
			return credits, err
		}
	}

	n, err := distribution.FanOutSponsor(tx, acct, pol.SponsorSchedule(), product.BaseAmount, pol, src)
	credits += n
	if err != nil {
		return credits, err
	}

	for _, pool := range pools {
		n, err := distribution.FanOutMatrix(tx, acct, pool, product.BaseAmount, pol, src)
		credits += n
		if err != nil {
			return credits, err
		}
	}

	n, err = distribution.DistributeGeo(tx, acct, pol, src)
	credits += n
	if err != nil {
		return credits, err
	}

	row, err = ledger.Credit(tx, ledger.CreditParams{
		AccountID:  acct.ID,
		Amount:     product.PointsAmount,
		Type:       models.TxReward,
		SourceType: src.Type,
		SourceID:   src.ID,
		Meta:       map[string]any{"product": label},
	})
	if err != nil {
		return credits, err
	}
	if row != nil {
		credits++
	}

	return credits, nil
}

// run wraps one trigger in a transaction: policy snapshot, account lookup,
// idempotency claim, body. A duplicate claim rolls back and reports
// Processed=false without error.
func run(db *gorm.DB, accountID uint, trigger models.TriggerKind, src distribution.Source, body func(tx *gorm.DB, pol *policy.Policy, acct *models.Account) (int, error)) (Result, error) {
	var res Result

	err := db.Transaction(func(tx *gorm.DB) error {
		pol, err := policy.Load(tx)
		if err != nil {
			return err
		}

		var acct models.Account
		if err := tx.First(&acct, accountID).Error; err != nil {
			return err
		}

		if err := claim(tx, acct.ID, trigger, src); err != nil {
			return err
		}

		credits, err := body(tx, pol, &acct)
		if err != nil {
			return err
		}

		res = Result{Processed: true, Credits: credits}
		return nil
	})

	if errors.Is(err, ErrAlreadyProcessed) {
		return Result{Processed: false}, nil
	}
	if err != nil {
		return Result{}, err
	}

	logger.Infof("distribution done trigger=%s account=%d credits=%d", trigger, accountID, res.Credits)
	return res, nil
}

func sponsorOf(tx *gorm.DB, acct *models.Account) (*models.Account, error) {
	if acct.SponsorID == nil {
		return nil, nil
	}
	var sponsor models.Account
	if err := tx.First(&sponsor, *acct.SponsorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sponsor, nil
}
