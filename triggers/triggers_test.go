package triggers

import (
	"encoding/json"
	"fmt"
	"testing"

	"refmart/database"
	"refmart/distribution"
	"refmart/ledger"
	"refmart/models"
	"refmart/policy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.OpenSQLite(dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func product(sponsor, self string) map[string]any {
	return map[string]any{
		"direct":      map[string]any{"sponsor": sponsor, "self": self},
		"matrix":      map[string]any{"enable3": true, "enable5": true},
		"coupons":     map[string]any{"activation_count": 1},
		"rewards":     map[string]any{"points_amount": "10"},
		"base_amount": "150",
	}
}

func fixedSeries(n int, v string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func docMap(withholding string, geo map[string]any) map[string]any {
	if geo == nil {
		geo = map[string]any{}
	}
	return map[string]any{
		"withholding_percent": withholding,
		"products": map[string]any{
			"prime_150":             product("15", "5"),
			"prime_750":             product("75", "25"),
			"monthly_first_box":     product("10", "7"),
			"monthly_recurring_box": product("4", "2"),
		},
		"levels": map[string]any{
			"sponsor":          map[string]any{"fixed": []string{"5", "4", "3", "2", "1"}},
			"matrix_five":      map[string]any{"fixed": fixedSeries(6, "3")},
			"matrix_three_150": map[string]any{"fixed": fixedSeries(15, "2")},
			"matrix_three_50":  map[string]any{"fixed": fixedSeries(15, "0.5")},
		},
		"geo": geo,
	}
}

func installPolicy(t *testing.T, db *gorm.DB, doc map[string]any) {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	_, err = policy.Install(db, raw)
	require.NoError(t, err)
}

func mkAccount(t *testing.T, db *gorm.DB, code string, category models.AccountCategory, sponsorID *uint) *models.Account {
	t.Helper()
	a := models.Account{
		MemberCode: code,
		FullName:   code,
		Category:   category,
		SponsorID:  sponsorID,
		IsActive:   true,
	}
	require.NoError(t, db.Create(&a).Error)
	return &a
}

func txCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.WalletTransaction{}).Count(&n).Error)
	return n
}

func typedRows(t *testing.T, db *gorm.DB, accountID uint, typ models.TxType) []models.WalletTransaction {
	t.Helper()
	var rows []models.WalletTransaction
	require.NoError(t, db.Where("account_id = ? AND type = ?", accountID, typ).
		Order("id ASC").Find(&rows).Error)
	return rows
}

func TestReferralJoinPlacesWithoutMoney(t *testing.T) {
	db := testDB(t)
	installPolicy(t, db, docMap("0", nil))

	root := mkAccount(t, db, "ROOT", models.CategoryConsumer, nil)
	joiner := mkAccount(t, db, "NEW", models.CategoryConsumer, &root.ID)

	res, err := OnReferralJoin(db, joiner.ID, distribution.Source{Type: "JOIN", ID: "j-1"})
	require.NoError(t, err)
	require.True(t, res.Processed)
	require.Zero(t, res.Credits)

	require.NoError(t, db.First(joiner, joiner.ID).Error)
	require.NotNil(t, joiner.MatrixParentID)
	require.Equal(t, root.ID, *joiner.MatrixParentID)
	require.Zero(t, txCount(t, db))
}

func TestPrimeActivationDistributesEverythingOnce(t *testing.T) {
	db := testDB(t)
	installPolicy(t, db, docMap("0", nil))

	sponsor := mkAccount(t, db, "SPON", models.CategoryConsumer, nil)
	buyer := mkAccount(t, db, "BUY", models.CategoryConsumer, &sponsor.ID)

	res, err := OnPrimeProductActivation(db, buyer.ID, Prime150, distribution.Source{Type: "PRIME_ORDER", ID: "p-1"})
	require.NoError(t, err)
	require.True(t, res.Processed)

	// direct to the sponsor, exactly one row
	direct := typedRows(t, db, sponsor.ID, models.TxDirect)
	require.Len(t, direct, 1)
	require.True(t, direct[0].Amount.Equal(dec("15")))

	// self credit and reward points to the buyer
	self := typedRows(t, db, buyer.ID, models.TxSelf)
	require.Len(t, self, 1)
	require.True(t, self[0].Amount.Equal(dec("5")))
	reward := typedRows(t, db, buyer.ID, models.TxReward)
	require.Len(t, reward, 1)
	require.True(t, reward[0].Amount.Equal(dec("10")))

	// sponsor collects level 1 of the sponsor fan-out
	level := typedRows(t, db, sponsor.ID, models.TxLevel)
	require.Len(t, level, 1)
	require.True(t, level[0].Amount.Equal(dec("5")))

	// buyer got placed under the sponsor, so the sponsor collects one
	// matrix level per enabled pool
	mlevel := typedRows(t, db, sponsor.ID, models.TxMatrixLevel)
	require.Len(t, mlevel, 2)

	var units int64
	require.NoError(t, db.Model(&models.MatrixAccount{}).
		Where("account_id = ?", buyer.ID).Count(&units).Error)
	require.EqualValues(t, 2, units)

	// direct + self + level + 2 matrix levels + reward
	require.Equal(t, 6, res.Credits)
}

func TestPrimeActivationIsIdempotent(t *testing.T) {
	db := testDB(t)
	installPolicy(t, db, docMap("0", nil))

	sponsor := mkAccount(t, db, "SPON", models.CategoryConsumer, nil)
	buyer := mkAccount(t, db, "BUY", models.CategoryConsumer, &sponsor.ID)

	src := distribution.Source{Type: "PRIME_ORDER", ID: "p-1"}
	first, err := OnPrimeProductActivation(db, buyer.ID, Prime150, src)
	require.NoError(t, err)
	require.True(t, first.Processed)

	rowsBefore := txCount(t, db)
	var unitsBefore int64
	require.NoError(t, db.Model(&models.MatrixAccount{}).Count(&unitsBefore).Error)

	second, err := OnPrimeProductActivation(db, buyer.ID, Prime150, src)
	require.NoError(t, err, "a replay is a no-op, not a failure")
	require.False(t, second.Processed)
	require.Zero(t, second.Credits)

	require.Equal(t, rowsBefore, txCount(t, db))
	var unitsAfter int64
	require.NoError(t, db.Model(&models.MatrixAccount{}).Count(&unitsAfter).Error)
	require.Equal(t, unitsBefore, unitsAfter)

	// a different order id for the same buyer distributes again
	third, err := OnPrimeProductActivation(db, buyer.ID, Prime150, distribution.Source{Type: "PRIME_ORDER", ID: "p-2"})
	require.NoError(t, err)
	require.True(t, third.Processed)
}

func TestMonthlyBoxFirstAndRecurringDiffer(t *testing.T) {
	db := testDB(t)
	installPolicy(t, db, docMap("0", nil))

	buyer := mkAccount(t, db, "BUY", models.CategoryConsumer, nil)

	res, err := OnMonthlyBoxActivation(db, buyer.ID, true, distribution.Source{Type: "MONTHLY_ORDER", ID: "m-1"})
	require.NoError(t, err)
	require.True(t, res.Processed)

	res, err = OnMonthlyBoxActivation(db, buyer.ID, false, distribution.Source{Type: "MONTHLY_ORDER", ID: "m-2"})
	require.NoError(t, err)
	require.True(t, res.Processed)

	self := typedRows(t, db, buyer.ID, models.TxSelf)
	require.Len(t, self, 2)
	require.True(t, self[0].Amount.Equal(dec("7")), "first month pays the first-box rate")
	require.True(t, self[1].Amount.Equal(dec("2")), "later months pay the recurring rate")
}

func TestFranchiseBenefitPaysGeoTiersOnly(t *testing.T) {
	db := testDB(t)
	installPolicy(t, db, docMap("0", map[string]any{"sub_franchise": "15"}))

	buyer := mkAccount(t, db, "BUY", models.CategoryConsumer, nil)
	require.NoError(t, db.Model(buyer).Update("pincode", "500001").Error)

	sf := mkAccount(t, db, "SF", models.CategorySubFranchise, nil)
	require.NoError(t, db.Create(&models.RegionAssignment{
		AccountID: sf.ID,
		Category:  models.CategorySubFranchise,
		Level:     models.GeoPincode,
		Scope:     "500001",
	}).Error)

	res, err := OnFranchiseBenefit(db, buyer.ID, "", distribution.Source{Type: "FRANCHISE_EVENT", ID: "f-1"})
	require.NoError(t, err)
	require.True(t, res.Processed)
	require.Equal(t, 1, res.Credits)

	geo := typedRows(t, db, sf.ID, models.TxGeo)
	require.Len(t, geo, 1)
	require.True(t, geo[0].Amount.Equal(dec("15")))
	require.Empty(t, typedRows(t, db, buyer.ID, models.TxSelf))
	require.Empty(t, typedRows(t, db, buyer.ID, models.TxReward))
}

func TestWithdrawalPreviewMatchesApply(t *testing.T) {
	db := testDB(t)
	installPolicy(t, db, docMap("5", nil))

	acct := mkAccount(t, db, "MBR", models.CategoryConsumer, nil)
	_, err := ledger.Credit(db, ledger.CreditParams{
		AccountID: acct.ID, Amount: dec("100"), Type: models.TxAdjustment,
		SourceType: "ADMIN", SourceID: "seed",
	})
	require.NoError(t, err)

	pol, err := policy.Load(db)
	require.NoError(t, err)
	preview := PreviewWithdrawalDistribution(pol, dec("80"))
	require.True(t, preview.Withheld.Equal(dec("4")))
	require.True(t, preview.Net.Equal(dec("76")))
	require.True(t, preview.Net.Add(preview.Withheld).Equal(preview.Gross))

	res, breakdown, err := ApplyWithdrawalDistribution(db, acct.ID, dec("80"), distribution.Source{Type: "WD", ID: "w-1"})
	require.NoError(t, err)
	require.True(t, res.Processed)
	require.Equal(t, preview, breakdown)

	wallet, err := ledger.Fetch(db, acct.ID)
	require.NoError(t, err)
	require.True(t, wallet.WithdrawableBalance.Equal(dec("20")))

	rows := typedRows(t, db, acct.ID, models.TxWithdrawal)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Amount.Equal(dec("-80")), "debits are stored negative")

	// the same payout reference never debits twice
	replay, _, err := ApplyWithdrawalDistribution(db, acct.ID, dec("80"), distribution.Source{Type: "WD", ID: "w-1"})
	require.NoError(t, err)
	require.False(t, replay.Processed)
	wallet, err = ledger.Fetch(db, acct.ID)
	require.NoError(t, err)
	require.True(t, wallet.WithdrawableBalance.Equal(dec("20")))
}

func TestWithdrawalInsufficientFundsRollsBackClaim(t *testing.T) {
	db := testDB(t)
	installPolicy(t, db, docMap("5", nil))

	acct := mkAccount(t, db, "MBR", models.CategoryConsumer, nil)
	_, err := ledger.Credit(db, ledger.CreditParams{
		AccountID: acct.ID, Amount: dec("10"), Type: models.TxAdjustment,
		SourceType: "ADMIN", SourceID: "seed",
	})
	require.NoError(t, err)

	src := distribution.Source{Type: "WD", ID: "w-1"}
	_, _, err = ApplyWithdrawalDistribution(db, acct.ID, dec("50"), src)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	// the failed run left no claim behind, so a retry can succeed
	var claims int64
	require.NoError(t, db.Model(&models.DistributionRecord{}).Count(&claims).Error)
	require.Zero(t, claims)

	_, err = ledger.Credit(db, ledger.CreditParams{
		AccountID: acct.ID, Amount: dec("90"), Type: models.TxAdjustment,
		SourceType: "ADMIN", SourceID: "seed-2",
	})
	require.NoError(t, err)

	res, _, err := ApplyWithdrawalDistribution(db, acct.ID, dec("50"), src)
	require.NoError(t, err)
	require.True(t, res.Processed)
}
