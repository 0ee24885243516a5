package policy

import (
	"encoding/json"
	"fmt"
)

// FromLegacy converts the old flat admin-settings shape into the strict
// document schema. It is a one-time migration step; the strict core never
// falls back to guessing legacy keys itself.
//
// The legacy shape kept everything in one level of string keys, e.g.
//
//	direct_sponsor_150, direct_self_150, matrix3_150, matrix5_150,
//	coupon_count_150, reward_points_150,
//	level_1..level_5 (sponsor), mlevel5_1..mlevel5_6,
//	mlevel3a_1..mlevel3a_15, mlevel3b_1..mlevel3b_15,
//	geo_sub_franchise, geo_pincode_agent, ..., tds_percent
func FromLegacy(legacy map[string]any) ([]byte, error) {
	doc := map[string]any{
		"withholding_percent": legacy["tds_percent"],
		"products": map[string]any{
			"prime_150":             legacyProduct(legacy, "150"),
			"prime_750":             legacyProduct(legacy, "750"),
			"monthly_first_box":     legacyProduct(legacy, "mfirst"),
			"monthly_recurring_box": legacyProduct(legacy, "mbox"),
		},
		"levels": map[string]any{
			"sponsor":          map[string]any{"fixed": legacySeries(legacy, "level_", SponsorLevels)},
			"matrix_five":      map[string]any{"fixed": legacySeries(legacy, "mlevel5_", FivePoolLevels)},
			"matrix_three_150": map[string]any{"fixed": legacySeries(legacy, "mlevel3a_", ThreePoolLevels)},
			"matrix_three_50":  map[string]any{"fixed": legacySeries(legacy, "mlevel3b_", ThreePoolLevels)},
		},
		"geo": legacyGeo(legacy),
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	// Round-trip through the strict parser so a broken legacy document is
	// rejected here, with a named path, not deep inside a payout.
	if _, err := Parse(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func legacyProduct(legacy map[string]any, suffix string) map[string]any {
	return map[string]any{
		"direct": map[string]any{
			"sponsor": legacy["direct_sponsor_"+suffix],
			"self":    legacy["direct_self_"+suffix],
		},
		"matrix": map[string]any{
			"enable3": legacy["matrix3_"+suffix],
			"enable5": legacy["matrix5_"+suffix],
		},
		"coupons": map[string]any{
			"activation_count": legacy["coupon_count_"+suffix],
		},
		"rewards": map[string]any{
			"points_amount": legacy["reward_points_"+suffix],
		},
		"base_amount": legacy["base_amount_"+suffix],
	}
}

func legacySeries(legacy map[string]any, prefix string, n int) []any {
	series := make([]any, 0, n)
	for i := 1; i <= n; i++ {
		v, ok := legacy[fmt.Sprintf("%s%d", prefix, i)]
		if !ok {
			return nil
		}
		series = append(series, v)
	}
	return series
}

func legacyGeo(legacy map[string]any) map[string]any {
	geo := map[string]any{}
	for _, tier := range []string{
		GeoSubFranchise, GeoPincodeAgent, GeoPincodeCoordinator,
		GeoDistrictAgent, GeoDistrictCoordinator, GeoStateAgent, GeoStateCoordinator,
	} {
		if v, ok := legacy["geo_"+tier]; ok {
			geo[tier] = v
		}
	}
	return geo
}
