package members

import (
	"strings"

	"refmart/database"
	"refmart/distribution"
	"refmart/helpers"
	"refmart/models"
	"refmart/triggers"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	MemberCode  string `json:"member_code" validate:"required,min=3,max=32"`
	FullName    string `json:"full_name" validate:"required,max=128"`
	SponsorCode string `json:"sponsor_code" validate:"max=32"`
	Category    string `json:"category" validate:"omitempty,oneof=CONSUMER EMPLOYEE SUB_FRANCHISE PINCODE_AGENT PINCODE_COORDINATOR DISTRICT_AGENT DISTRICT_COORDINATOR STATE_AGENT STATE_COORDINATOR"`
	Pincode     string `json:"pincode" validate:"required,max=10"`
	District    string `json:"district" validate:"required,max=64"`
	State       string `json:"state" validate:"required,max=64"`
	SourceID    string `json:"source_id" validate:"max=64"`
}

// Register creates the account and runs the referral-join trigger, which
// places it into the spillover tree.
func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if errs := helpers.ValidateStruct(req); errs != nil {
		return helpers.JSONError(c, strings.Join(errs, "; "))
	}

	memberCode := strings.ToUpper(strings.TrimSpace(req.MemberCode))

	var existing models.Account
	if err := database.DB.Where("member_code = ?", memberCode).First(&existing).Error; err == nil {
		return helpers.JSONError(c, "MEMBER_ALREADY_EXISTS")
	}

	var sponsorID *uint
	if req.SponsorCode != "" {
		var sponsor models.Account
		err := database.DB.
			Where("member_code = ?", strings.ToUpper(strings.TrimSpace(req.SponsorCode))).
			First(&sponsor).Error
		if err != nil {
			return helpers.JSONError(c, "SPONSOR_NOT_FOUND")
		}
		sponsorID = &sponsor.ID
	}

	category := models.CategoryConsumer
	if req.Category != "" {
		category = models.AccountCategory(req.Category)
	}

	account := models.Account{
		MemberCode: memberCode,
		FullName:   strings.TrimSpace(req.FullName),
		Category:   category,
		SponsorID:  sponsorID,
		Pincode:    strings.TrimSpace(req.Pincode),
		District:   strings.TrimSpace(req.District),
		State:      strings.TrimSpace(req.State),
		IsActive:   true,
	}
	if err := database.DB.Create(&account).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_REGISTER_MEMBER")
	}

	sourceID := strings.TrimSpace(req.SourceID)
	if sourceID == "" {
		sourceID = uuid.New().String()
	}

	result, err := triggers.OnReferralJoin(database.DB, account.ID, distribution.Source{
		Type: "REGISTRATION",
		ID:   sourceID,
	})
	if err != nil {
		return helpers.JSONEngineError(c, err)
	}

	var placed models.Account
	_ = database.DB.First(&placed, account.ID).Error

	return helpers.JSONSuccess(c, "Member registered successfully", fiber.Map{
		"member_code":      placed.MemberCode,
		"category":         placed.Category,
		"matrix_parent_id": placed.MatrixParentID,
		"matrix_position":  placed.MatrixPosition,
		"matrix_depth":     placed.MatrixDepth,
		"processed":        result.Processed,
	})
}
