package activations

import (
	"strings"

	"refmart/database"
	"refmart/distribution"
	"refmart/helpers"
	"refmart/models"
	"refmart/triggers"

	"github.com/gofiber/fiber/v2"
)

func findAccount(code string) (*models.Account, error) {
	var account models.Account
	err := database.DB.
		Where("member_code = ? AND is_active = true", strings.ToUpper(strings.TrimSpace(code))).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

type PrimeRequest struct {
	MemberCode string `json:"member_code" validate:"required,max=32"`
	Tier       string `json:"tier" validate:"required,oneof=150 750"`
	SourceID   string `json:"source_id" validate:"required,max=64"`
}

// Prime runs the prime product activation trigger.
func Prime(c *fiber.Ctx) error {
	var req PrimeRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if errs := helpers.ValidateStruct(req); errs != nil {
		return helpers.JSONError(c, strings.Join(errs, "; "))
	}

	account, err := findAccount(req.MemberCode)
	if err != nil {
		return helpers.JSONError(c, "MEMBER_NOT_FOUND")
	}

	result, err := triggers.OnPrimeProductActivation(
		database.DB, account.ID, triggers.PrimeTier(req.Tier),
		distribution.Source{Type: "PRIME_ORDER", ID: req.SourceID},
	)
	if err != nil {
		return helpers.JSONEngineError(c, err)
	}

	return helpers.JSONSuccess(c, "Prime activation processed", fiber.Map{
		"member_code": account.MemberCode,
		"processed":   result.Processed,
		"credits":     result.Credits,
	})
}

type MonthlyRequest struct {
	MemberCode   string `json:"member_code" validate:"required,max=32"`
	IsFirstMonth bool   `json:"is_first_month"`
	SourceID     string `json:"source_id" validate:"required,max=64"`
}

// Monthly runs the monthly box activation trigger.
func Monthly(c *fiber.Ctx) error {
	var req MonthlyRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if errs := helpers.ValidateStruct(req); errs != nil {
		return helpers.JSONError(c, strings.Join(errs, "; "))
	}

	account, err := findAccount(req.MemberCode)
	if err != nil {
		return helpers.JSONError(c, "MEMBER_NOT_FOUND")
	}

	result, err := triggers.OnMonthlyBoxActivation(
		database.DB, account.ID, req.IsFirstMonth,
		distribution.Source{Type: "MONTHLY_ORDER", ID: req.SourceID},
	)
	if err != nil {
		return helpers.JSONEngineError(c, err)
	}

	return helpers.JSONSuccess(c, "Monthly box activation processed", fiber.Map{
		"member_code": account.MemberCode,
		"processed":   result.Processed,
		"credits":     result.Credits,
	})
}

type FranchiseRequest struct {
	MemberCode string `json:"member_code" validate:"required,max=32"`
	Kind       string `json:"kind" validate:"omitempty,oneof=FRANCHISE_BENEFIT"`
	SourceID   string `json:"source_id" validate:"required,max=64"`
}

// Franchise runs the geo-only benefit trigger for events like coupon
// redemptions.
func Franchise(c *fiber.Ctx) error {
	var req FranchiseRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if errs := helpers.ValidateStruct(req); errs != nil {
		return helpers.JSONError(c, strings.Join(errs, "; "))
	}

	account, err := findAccount(req.MemberCode)
	if err != nil {
		return helpers.JSONError(c, "MEMBER_NOT_FOUND")
	}

	result, err := triggers.OnFranchiseBenefit(
		database.DB, account.ID, models.TriggerKind(req.Kind),
		distribution.Source{Type: "FRANCHISE_EVENT", ID: req.SourceID},
	)
	if err != nil {
		return helpers.JSONEngineError(c, err)
	}

	return helpers.JSONSuccess(c, "Franchise benefit processed", fiber.Map{
		"member_code": account.MemberCode,
		"processed":   result.Processed,
		"credits":     result.Credits,
	})
}
