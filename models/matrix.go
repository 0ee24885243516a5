package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PoolType string

const (
	PoolFive     PoolType = "FIVE"
	PoolThree150 PoolType = "THREE_150"
	PoolThree50  PoolType = "THREE_50"
)

const (
	MatrixStatusActive = "ACTIVE"
	MatrixStatusClosed = "CLOSED"
)

// MatrixAccount is one activation unit opened under a pool. A member can
// hold several units in the same pool over time; each unit keeps the source
// reference of the purchase that opened it.
type MatrixAccount struct {
	gorm.Model

	PoolType   PoolType `gorm:"size:16;index:idx_matrix_unit" json:"pool_type"`
	AccountID  uint     `gorm:"index:idx_matrix_unit" json:"account_id"`
	Status     string   `gorm:"size:16;default:ACTIVE" json:"status"`
	Label      string   `gorm:"size:64" json:"label"`
	SourceType string   `gorm:"size:32" json:"source_type"`
	SourceID   string   `gorm:"size:64" json:"source_id"`
}

// MatrixProgress is a derived cache per (account, pool): rebuildable from
// the MATRIX_LEVEL ledger rows at any time, never authoritative on its own.
type MatrixProgress struct {
	gorm.Model

	AccountID   uint            `gorm:"uniqueIndex:idx_progress_pool" json:"account_id"`
	PoolType    PoolType        `gorm:"size:16;uniqueIndex:idx_progress_pool" json:"pool_type"`
	TotalEarned decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"total_earned"`
	MaxLevel    int             `gorm:"default:0" json:"max_level"`
	Levels      datatypes.JSON  `gorm:"type:jsonb" json:"levels"`
}

// LevelStat is one entry of MatrixProgress.Levels, keyed by the 1-indexed
// level number as a string.
type LevelStat struct {
	Count  int             `json:"count"`
	Earned decimal.Decimal `json:"earned"`
}
