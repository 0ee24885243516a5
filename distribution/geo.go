package distribution

import (
	"errors"

	"refmart/ledger"
	"refmart/models"
	"refmart/policy"

	"gorm.io/gorm"
)

// geoTier binds a policy amount key to the region-assignment lookup that
// resolves its recipient.
type geoTier struct {
	key      string
	category models.AccountCategory
	level    models.GeoLevel
}

var geoTiers = []geoTier{
	{policy.GeoSubFranchise, models.CategorySubFranchise, models.GeoPincode},
	{policy.GeoPincodeAgent, models.CategoryPincodeAgent, models.GeoPincode},
	{policy.GeoPincodeCoordinator, models.CategoryPincodeCoordinator, models.GeoPincode},
	{policy.GeoDistrictAgent, models.CategoryDistrictAgent, models.GeoDistrict},
	{policy.GeoDistrictCoordinator, models.CategoryDistrictCoordinator, models.GeoDistrict},
	{policy.GeoStateAgent, models.CategoryStateAgent, models.GeoState},
	{policy.GeoStateCoordinator, models.CategoryStateCoordinator, models.GeoState},
}

// DistributeGeo resolves at most one recipient per geographic tier from the
// triggering account's pincode, district and state, crediting the configured
// fixed amount. A tier with no configuration or no resolvable recipient is
// skipped silently; geo tiers have no percent fallback.
func DistributeGeo(tx *gorm.DB, trigger *models.Account, pol *policy.Policy, src Source) (int, error) {
	credited := 0

	for _, tier := range geoTiers {
		amount, ok := pol.GeoAmount(tier.key)
		if !ok || !amount.IsPositive() {
			continue
		}

		scope := scopeOf(trigger, tier.level)
		if scope == "" {
			continue
		}

		var assignment models.RegionAssignment
		err := tx.Where("category = ? AND level = ? AND scope = ?", tier.category, tier.level, scope).
			Order("id ASC").First(&assignment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return credited, err
		}

		_, err = ledger.Credit(tx, ledger.CreditParams{
			AccountID:       assignment.AccountID,
			Amount:          amount,
			Type:            models.TxGeo,
			SourceType:      src.Type,
			SourceID:        src.ID,
			Meta:            map[string]any{"tier": tier.key, "scope": scope, "from": trigger.MemberCode},
			WithholdPercent: pol.WithholdingPercent(),
		})
		if err != nil {
			return credited, err
		}
		credited++
	}
	return credited, nil
}

func scopeOf(a *models.Account, level models.GeoLevel) string {
	switch level {
	case models.GeoPincode:
		return a.Pincode
	case models.GeoDistrict:
		return a.District
	case models.GeoState:
		return a.State
	}
	return ""
}
