package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"testing"

	"refmart/database"
	"refmart/models"

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

func series(n int, start float64) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%.2f", start-float64(i)*0.1)
	}
	return out
}

func productMap() map[string]any {
	return map[string]any{
		"direct":      map[string]any{"sponsor": "15", "self": "5"},
		"matrix":      map[string]any{"enable3": true, "enable5": true},
		"coupons":     map[string]any{"activation_count": 1},
		"rewards":     map[string]any{"points_amount": "10"},
		"base_amount": "150",
	}
}

func validDocMap() map[string]any {
	return map[string]any{
		"withholding_percent": "5",
		"products": map[string]any{
			"prime_150":             productMap(),
			"prime_750":             productMap(),
			"monthly_first_box":     productMap(),
			"monthly_recurring_box": productMap(),
		},
		"levels": map[string]any{
			"sponsor":          map[string]any{"fixed": []string{"5", "4", "3", "2", "1"}},
			"matrix_five":      map[string]any{"fixed": series(6, 3)},
			"matrix_three_150": map[string]any{"fixed": series(15, 2)},
			"matrix_three_50":  map[string]any{"fixed": series(15, 2)},
		},
		"geo": map[string]any{
			"sub_franchise": "15",
			"pincode_agent": "4",
			"district_agent": "1",
		},
	}
}

func marshalDoc(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func TestParseValidDocument(t *testing.T) {
	pol, err := Parse(marshalDoc(t, validDocMap()))
	require.NoError(t, err)

	p := pol.Prime150()
	require.True(t, p.SponsorAmount.Equal(decimal.NewFromInt(15)))
	require.True(t, p.SelfAmount.Equal(decimal.NewFromInt(5)))
	require.True(t, p.Enable3)
	require.True(t, p.Enable5)
	require.Equal(t, 1, p.ActivationCount)
	require.True(t, p.PointsAmount.Equal(decimal.NewFromInt(10)))

	require.Equal(t, SponsorLevels, pol.SponsorSchedule().Levels())

	sched, err := pol.MatrixSchedule(models.PoolThree150)
	require.NoError(t, err)
	require.Equal(t, ThreePoolLevels, sched.Levels())

	amt, ok := pol.GeoAmount(GeoSubFranchise)
	require.True(t, ok)
	require.True(t, amt.Equal(decimal.NewFromInt(15)))

	_, ok = pol.GeoAmount(GeoStateCoordinator)
	require.False(t, ok, "unconfigured tiers must report not-ok, not zero-default")
}

func TestMissingFieldNamesItsPath(t *testing.T) {
	doc := validDocMap()
	products := doc["products"].(map[string]any)
	prime := products["prime_150"].(map[string]any)
	prime["direct"] = map[string]any{"self": "5"}

	_, err := Parse(marshalDoc(t, doc))
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "products.prime_150.direct.sponsor", cfgErr.Path)
}

func TestScheduleNeedsFixedOrPercent(t *testing.T) {
	doc := validDocMap()
	levels := doc["levels"].(map[string]any)
	levels["sponsor"] = map[string]any{}

	_, err := Parse(marshalDoc(t, doc))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "levels.sponsor", cfgErr.Path)
}

func TestFixedScheduleLengthEnforced(t *testing.T) {
	doc := validDocMap()
	levels := doc["levels"].(map[string]any)
	levels["sponsor"] = map[string]any{"fixed": []string{"5", "4", "3"}}

	_, err := Parse(marshalDoc(t, doc))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "levels.sponsor", cfgErr.Path)
	require.Contains(t, cfgErr.Reason, "5 entries")
}

func TestPercentScheduleFallsBackPerLevel(t *testing.T) {
	doc := validDocMap()
	levels := doc["levels"].(map[string]any)
	levels["matrix_five"] = map[string]any{"percent": "2.5"}

	pol, err := Parse(marshalDoc(t, doc))
	require.NoError(t, err)

	sched, err := pol.MatrixSchedule(models.PoolFive)
	require.NoError(t, err)
	require.Equal(t, FivePoolLevels, sched.Levels(), "percent schedules keep the pool's canonical depth")

	base := decimal.NewFromInt(200)
	require.True(t, sched.AmountAt(3, base).Equal(decimal.NewFromInt(5)))
	require.True(t, sched.AmountAt(FivePoolLevels+1, base).IsZero(), "out of range pays nothing")
}

func TestHashStableAcrossKeyOrderAndWhitespace(t *testing.T) {
	raw := marshalDoc(t, validDocMap())
	a, err := Parse(raw)
	require.NoError(t, err)

	// re-emit the same document with reversed key order and indentation
	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &top))
	keys := make([]string, 0, len(top))
	for k := range top {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(",\n")
		}
		fmt.Fprintf(&buf, "  %q: %s", k, top[k])
	}
	buf.WriteString("\n}")
	require.NotEqual(t, string(raw), buf.String())

	b, err := Parse(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, a.Hash(), b.Hash())
}

func TestLoadWithoutActivePolicy(t *testing.T) {
	db := testDB(t)

	_, err := Load(db)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "policy", cfgErr.Path)
}

func TestInstallSupersedesPrevious(t *testing.T) {
	db := testDB(t)

	_, err := Install(db, marshalDoc(t, validDocMap()))
	require.NoError(t, err)

	doc := validDocMap()
	doc["withholding_percent"] = "10"
	row, err := Install(db, marshalDoc(t, doc))
	require.NoError(t, err)
	require.Equal(t, 2, row.Version)

	pol, err := Load(db)
	require.NoError(t, err)
	require.True(t, pol.WithholdingPercent().Equal(decimal.NewFromInt(10)))

	var active int64
	require.NoError(t, db.Model(&models.CommissionPolicy{}).Where("active = ?", true).Count(&active).Error)
	require.EqualValues(t, 1, active)
}

func TestInstallRejectsBrokenDocument(t *testing.T) {
	db := testDB(t)

	doc := validDocMap()
	delete(doc, "withholding_percent")
	_, err := Install(db, marshalDoc(t, doc))
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.CommissionPolicy{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestFromLegacyFlatKeys(t *testing.T) {
	legacy := map[string]any{"tds_percent": "5"}
	for _, suffix := range []string{"150", "750", "mfirst", "mbox"} {
		legacy["direct_sponsor_"+suffix] = "15"
		legacy["direct_self_"+suffix] = "5"
		legacy["matrix3_"+suffix] = true
		legacy["matrix5_"+suffix] = suffix == "150" || suffix == "750"
		legacy["coupon_count_"+suffix] = 1
		legacy["reward_points_"+suffix] = "10"
		legacy["base_amount_"+suffix] = "150"
	}
	for i := 1; i <= SponsorLevels; i++ {
		legacy[fmt.Sprintf("level_%d", i)] = "2"
	}
	for i := 1; i <= FivePoolLevels; i++ {
		legacy[fmt.Sprintf("mlevel5_%d", i)] = "3"
	}
	for i := 1; i <= ThreePoolLevels; i++ {
		legacy[fmt.Sprintf("mlevel3a_%d", i)] = "1.5"
		legacy[fmt.Sprintf("mlevel3b_%d", i)] = "0.5"
	}
	legacy["geo_sub_franchise"] = "15"
	legacy["geo_state_agent"] = "2"

	raw, err := FromLegacy(legacy)
	require.NoError(t, err)

	pol, err := Parse(raw)
	require.NoError(t, err)

	p := pol.Prime150()
	require.True(t, p.SponsorAmount.Equal(decimal.NewFromInt(15)))
	require.True(t, p.Enable5)
	require.False(t, pol.MonthlyFirstBox().Enable5)

	sched, err := pol.MatrixSchedule(models.PoolThree50)
	require.NoError(t, err)
	require.True(t, sched.AmountAt(15, decimal.Zero).Equal(dec("0.5")))

	amt, ok := pol.GeoAmount(GeoStateAgent)
	require.True(t, ok)
	require.True(t, amt.Equal(decimal.NewFromInt(2)))

	_, ok = pol.GeoAmount(GeoDistrictAgent)
	require.False(t, ok, "keys absent in the legacy map stay unconfigured")
}

func TestFromLegacyMissingSeriesFails(t *testing.T) {
	legacy := map[string]any{"tds_percent": "5"}
	_, err := FromLegacy(legacy)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
