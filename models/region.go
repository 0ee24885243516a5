package models

import "gorm.io/gorm"

type GeoLevel string

const (
	GeoPincode  GeoLevel = "PINCODE"
	GeoDistrict GeoLevel = "DISTRICT"
	GeoState    GeoLevel = "STATE"
)

// RegionAssignment maps an agency-category account to the geographic scope
// it earns franchise payouts for. Owned by the admin subsystem; the engine
// only reads it.
type RegionAssignment struct {
	gorm.Model

	AccountID uint            `gorm:"index" json:"account_id"`
	Category  AccountCategory `gorm:"size:32;index:idx_region_scope" json:"category"`
	Level     GeoLevel        `gorm:"size:16;index:idx_region_scope" json:"level"`
	Scope     string          `gorm:"size:64;index:idx_region_scope" json:"scope"`
}
