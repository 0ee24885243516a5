package models

import (
	"gorm.io/gorm"
)

type AccountCategory string

const (
	CategoryConsumer            AccountCategory = "CONSUMER"
	CategoryEmployee            AccountCategory = "EMPLOYEE"
	CategorySubFranchise        AccountCategory = "SUB_FRANCHISE"
	CategoryPincodeAgent        AccountCategory = "PINCODE_AGENT"
	CategoryPincodeCoordinator  AccountCategory = "PINCODE_COORDINATOR"
	CategoryDistrictAgent       AccountCategory = "DISTRICT_AGENT"
	CategoryDistrictCoordinator AccountCategory = "DISTRICT_COORDINATOR"
	CategoryStateAgent          AccountCategory = "STATE_AGENT"
	CategoryStateCoordinator    AccountCategory = "STATE_COORDINATOR"
)

// IsAgency reports whether the category is paid through the geo/franchise
// path. Agency accounts are excluded from level fan-out so the same sale
// never pays them twice.
func (c AccountCategory) IsAgency() bool {
	switch c {
	case CategorySubFranchise,
		CategoryPincodeAgent, CategoryPincodeCoordinator,
		CategoryDistrictAgent, CategoryDistrictCoordinator,
		CategoryStateAgent, CategoryStateCoordinator:
		return true
	}
	return false
}

func (c AccountCategory) EligibleForLevels() bool {
	return !c.IsAgency() && c != CategoryEmployee
}

// Account carries two distinct links: SponsorID is the flat referral chain,
// MatrixParentID/MatrixPosition/MatrixDepth are the spillover tree link set
// exactly once at placement.
type Account struct {
	gorm.Model

	MemberCode string          `gorm:"uniqueIndex;size:32" json:"member_code"`
	FullName   string          `gorm:"size:128" json:"full_name"`
	Category   AccountCategory `gorm:"size:32;index;default:CONSUMER" json:"category"`

	SponsorID *uint `gorm:"index" json:"sponsor_id"`

	MatrixParentID *uint `gorm:"index;uniqueIndex:idx_matrix_slot" json:"matrix_parent_id"`
	MatrixPosition *int  `gorm:"uniqueIndex:idx_matrix_slot" json:"matrix_position"`
	MatrixDepth    int   `gorm:"default:0" json:"matrix_depth"`

	Pincode  string `gorm:"size:10;index" json:"pincode"`
	District string `gorm:"size:64;index" json:"district"`
	State    string `gorm:"size:64;index" json:"state"`

	IsActive bool `gorm:"default:true" json:"is_active"`
}

func (a *Account) Placed() bool {
	return a.MatrixParentID != nil && a.MatrixPosition != nil
}
