package reports

import (
	"errors"
	"strings"

	"refmart/cache"
	"refmart/database"
	"refmart/helpers"
	"refmart/matrix"
	"refmart/models"
	"refmart/policy"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// MatrixProgress serves the per-(member, pool) progress summary, read
// through the redis cache when available. A missing row means the member
// simply has no matrix earnings in that pool yet.
func MatrixProgress(c *fiber.Ctx) error {
	var account models.Account
	code := strings.ToUpper(strings.TrimSpace(c.Params("code")))
	if err := database.DB.Where("member_code = ?", code).First(&account).Error; err != nil {
		return helpers.JSONError(c, "MEMBER_NOT_FOUND")
	}

	pool := models.PoolType(strings.ToUpper(c.Params("pool")))
	switch pool {
	case models.PoolFive, models.PoolThree150, models.PoolThree50:
	default:
		return helpers.JSONError(c, "UNKNOWN_POOL_TYPE")
	}

	if progress, ok := cache.GetProgress(account.ID, pool); ok {
		return helpers.JSONSuccess(c, "Matrix progress fetched", progress)
	}

	var progress models.MatrixProgress
	err := database.DB.
		Where("account_id = ? AND pool_type = ?", account.ID, pool).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = models.MatrixProgress{AccountID: account.ID, PoolType: pool}
	} else if err != nil {
		return helpers.JSONEngineError(c, err)
	}

	cache.SetProgress(&progress)
	return helpers.JSONSuccess(c, "Matrix progress fetched", progress)
}

// RebuildMatrixProgress recomputes the aggregate from the ledger. The
// operator's repair path when a cache is suspected of drifting.
func RebuildMatrixProgress(c *fiber.Ctx) error {
	var account models.Account
	code := strings.ToUpper(strings.TrimSpace(c.Params("code")))
	if err := database.DB.Where("member_code = ?", code).First(&account).Error; err != nil {
		return helpers.JSONError(c, "MEMBER_NOT_FOUND")
	}

	pool := models.PoolType(strings.ToUpper(c.Params("pool")))
	switch pool {
	case models.PoolFive, models.PoolThree150, models.PoolThree50:
	default:
		return helpers.JSONError(c, "UNKNOWN_POOL_TYPE")
	}

	progress, err := matrix.RebuildProgress(database.DB, account.ID, pool)
	if err != nil {
		return helpers.JSONEngineError(c, err)
	}

	cache.DropProgress(account.ID, pool)
	return helpers.JSONSuccess(c, "Matrix progress rebuilt", progress)
}

// Policy exposes the active policy's version and hash so operators can
// confirm which configuration is live.
func Policy(c *fiber.Ctx) error {
	var row models.CommissionPolicy
	err := database.DB.Where("active = ?", true).Order("version DESC").First(&row).Error
	if err != nil {
		return helpers.JSONError(c, "NO_ACTIVE_POLICY")
	}

	pol, err := policy.Parse(row.Doc)
	if err != nil {
		return helpers.JSONEngineError(c, err)
	}

	return helpers.JSONSuccess(c, "Policy fetched", fiber.Map{
		"version": row.Version,
		"hash":    pol.Hash(),
	})
}
