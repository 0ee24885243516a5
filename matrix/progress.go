package matrix

import (
	"encoding/json"
	"errors"
	"strconv"

	"refmart/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BumpProgress folds one matrix-level credit into the per-(account, pool)
// aggregate. Runs inside the trigger's transaction: the cache is rebuildable
// but its upkeep is not allowed to silently fail.
func BumpProgress(tx *gorm.DB, accountID uint, pool models.PoolType, level int, amount decimal.Decimal) error {
	var p models.MatrixProgress
	err := tx.Where("account_id = ? AND pool_type = ?", accountID, pool).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = models.MatrixProgress{AccountID: accountID, PoolType: pool}
	} else if err != nil {
		return err
	}

	levels := map[string]models.LevelStat{}
	if len(p.Levels) > 0 {
		if err := json.Unmarshal(p.Levels, &levels); err != nil {
			return err
		}
	}

	key := strconv.Itoa(level)
	stat := levels[key]
	stat.Count++
	stat.Earned = stat.Earned.Add(amount)
	levels[key] = stat

	raw, err := json.Marshal(levels)
	if err != nil {
		return err
	}

	p.TotalEarned = p.TotalEarned.Add(amount)
	if level > p.MaxLevel {
		p.MaxLevel = level
	}
	p.Levels = datatypes.JSON(raw)

	return tx.Save(&p).Error
}

// RebuildProgress recomputes the aggregate from the MATRIX_LEVEL ledger rows
// tagged with the pool. The operator's repair path for a drifted cache.
func RebuildProgress(db *gorm.DB, accountID uint, pool models.PoolType) (*models.MatrixProgress, error) {
	var rows []models.WalletTransaction
	err := db.Where("account_id = ? AND type = ?", accountID, models.TxMatrixLevel).
		Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}

	levels := map[string]models.LevelStat{}
	total := decimal.Zero
	maxLevel := 0

	for _, row := range rows {
		var meta struct {
			Level int             `json:"level"`
			Pool  models.PoolType `json:"pool"`
		}
		if len(row.Meta) == 0 || json.Unmarshal(row.Meta, &meta) != nil {
			continue
		}
		if meta.Pool != pool || meta.Level < 1 {
			continue
		}

		key := strconv.Itoa(meta.Level)
		stat := levels[key]
		stat.Count++
		stat.Earned = stat.Earned.Add(row.Amount)
		levels[key] = stat

		total = total.Add(row.Amount)
		if meta.Level > maxLevel {
			maxLevel = meta.Level
		}
	}

	raw, err := json.Marshal(levels)
	if err != nil {
		return nil, err
	}

	var p models.MatrixProgress
	err = db.Where("account_id = ? AND pool_type = ?", accountID, pool).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = models.MatrixProgress{AccountID: accountID, PoolType: pool}
	} else if err != nil {
		return nil, err
	}

	p.TotalEarned = total
	p.MaxLevel = maxLevel
	p.Levels = datatypes.JSON(raw)
	if err := db.Save(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
