package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TriggerKind string

const (
	TriggerJoin             TriggerKind = "REFERRAL_JOIN"
	TriggerPrimeActivation  TriggerKind = "PRIME_ACTIVATION"
	TriggerMonthlyBox       TriggerKind = "MONTHLY_BOX"
	TriggerFranchiseBenefit TriggerKind = "FRANCHISE_BENEFIT"
	TriggerWithdrawal       TriggerKind = "WITHDRAWAL"
)

// DistributionRecord is the at-most-once gate: the composite unique index is
// what makes a duplicate trigger a no-op. It is inserted inside the same
// transaction as every credit it guards.
type DistributionRecord struct {
	gorm.Model

	AccountID  uint        `gorm:"uniqueIndex:idx_distribution_once" json:"account_id"`
	Trigger    TriggerKind `gorm:"size:32;uniqueIndex:idx_distribution_once" json:"trigger"`
	SourceType string      `gorm:"size:32;uniqueIndex:idx_distribution_once" json:"source_type"`
	SourceID   string      `gorm:"size:64;uniqueIndex:idx_distribution_once" json:"source_id"`
}

// CommissionPolicy holds the single admin-configured payout document as raw
// JSON. The policy package parses and validates it; nothing reads Doc
// directly.
type CommissionPolicy struct {
	gorm.Model

	Version int            `gorm:"default:1" json:"version"`
	Active  bool           `gorm:"index" json:"active"`
	Doc     datatypes.JSON `gorm:"type:jsonb" json:"doc"`
}
