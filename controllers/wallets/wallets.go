package wallets

import (
	"strings"

	"refmart/database"
	"refmart/distribution"
	"refmart/helpers"
	"refmart/ledger"
	"refmart/models"
	"refmart/policy"
	"refmart/triggers"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func findAccount(code string) (*models.Account, error) {
	var account models.Account
	err := database.DB.
		Where("member_code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Balance returns the cached wallet balances for one member.
func Balance(c *fiber.Ctx) error {
	account, err := findAccount(c.Params("code"))
	if err != nil {
		return helpers.JSONError(c, "MEMBER_NOT_FOUND")
	}

	wallet, err := ledger.Fetch(database.DB, account.ID)
	if err != nil {
		return helpers.JSONEngineError(c, err)
	}

	return helpers.JSONSuccess(c, "Balance fetched", fiber.Map{
		"member_code":          account.MemberCode,
		"balance":              wallet.Balance,
		"main_balance":         wallet.MainBalance,
		"withdrawable_balance": wallet.WithdrawableBalance,
	})
}

// Transactions is the per-account ledger feed for reporting and export
// tooling, newest first.
func Transactions(c *fiber.Ctx) error {
	account, err := findAccount(c.Params("code"))
	if err != nil {
		return helpers.JSONError(c, "MEMBER_NOT_FOUND")
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	var rows []models.WalletTransaction
	err = database.DB.
		Where("account_id = ?", account.ID).
		Order("id DESC").Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return helpers.JSONEngineError(c, err)
	}

	return helpers.JSONSuccess(c, "Transactions fetched", fiber.Map{
		"member_code":  account.MemberCode,
		"transactions": rows,
	})
}

type WithdrawRequest struct {
	MemberCode string          `json:"member_code" validate:"required,max=32"`
	Gross      decimal.Decimal `json:"gross"`
	SourceID   string          `json:"source_id" validate:"max=64"`
}

// PreviewWithdraw returns the gross/withheld/net breakdown without touching
// any balance.
func PreviewWithdraw(c *fiber.Ctx) error {
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if !req.Gross.IsPositive() {
		return helpers.JSONError(c, "GROSS_MUST_BE_POSITIVE")
	}

	pol, err := policy.Load(database.DB)
	if err != nil {
		return helpers.JSONEngineError(c, err)
	}

	return helpers.JSONSuccess(c, "Withdrawal previewed",
		triggers.PreviewWithdrawalDistribution(pol, req.Gross))
}

// Withdraw applies the withdrawal distribution as one idempotent trigger.
func Withdraw(c *fiber.Ctx) error {
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if errs := helpers.ValidateStruct(req); errs != nil {
		return helpers.JSONError(c, strings.Join(errs, "; "))
	}
	if !req.Gross.IsPositive() {
		return helpers.JSONError(c, "GROSS_MUST_BE_POSITIVE")
	}

	account, err := findAccount(req.MemberCode)
	if err != nil {
		return helpers.JSONError(c, "MEMBER_NOT_FOUND")
	}

	sourceID := strings.TrimSpace(req.SourceID)
	if sourceID == "" {
		sourceID = uuid.New().String()
	}

	result, breakdown, err := triggers.ApplyWithdrawalDistribution(
		database.DB, account.ID, req.Gross,
		distribution.Source{Type: "WITHDRAWAL_REQUEST", ID: sourceID},
	)
	if err != nil {
		return helpers.JSONEngineError(c, err)
	}

	return helpers.JSONSuccess(c, "Withdrawal processed", fiber.Map{
		"member_code": account.MemberCode,
		"processed":   result.Processed,
		"gross":       breakdown.Gross,
		"withheld":    breakdown.Withheld,
		"net":         breakdown.Net,
		"source_id":   sourceID,
	})
}

type AdjustRequest struct {
	MemberCode string          `json:"member_code" validate:"required,max=32"`
	Amount     decimal.Decimal `json:"amount"`
	Direction  string          `json:"direction" validate:"required,oneof=credit debit"`
	Note       string          `json:"note" validate:"max=255"`
}

// Adjust is the administrative correction path. Debits draw on the main
// balance, bypassing the withdrawable rule.
func Adjust(c *fiber.Ctx) error {
	var req AdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if errs := helpers.ValidateStruct(req); errs != nil {
		return helpers.JSONError(c, strings.Join(errs, "; "))
	}
	if !req.Amount.IsPositive() {
		return helpers.JSONError(c, "AMOUNT_MUST_BE_POSITIVE")
	}

	account, err := findAccount(req.MemberCode)
	if err != nil {
		return helpers.JSONError(c, "MEMBER_NOT_FOUND")
	}

	sourceID := uuid.New().String()
	meta := map[string]any{"note": req.Note}

	var row *models.WalletTransaction
	txErr := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		if req.Direction == "credit" {
			row, err = ledger.Credit(tx, ledger.CreditParams{
				AccountID:  account.ID,
				Amount:     req.Amount,
				Type:       models.TxAdjustment,
				SourceType: "ADMIN_ADJUSTMENT",
				SourceID:   sourceID,
				Meta:       meta,
			})
		} else {
			row, err = ledger.Debit(tx, ledger.DebitParams{
				AccountID:  account.ID,
				Amount:     req.Amount,
				Type:       models.TxAdjustment,
				SourceType: "ADMIN_ADJUSTMENT",
				SourceID:   sourceID,
				Meta:       meta,
			})
		}
		return err
	})
	if txErr != nil {
		return helpers.JSONEngineError(c, txErr)
	}

	return helpers.JSONSuccess(c, "Adjustment applied", fiber.Map{
		"member_code":   account.MemberCode,
		"source_id":     sourceID,
		"balance_after": row.BalanceAfter,
	})
}
