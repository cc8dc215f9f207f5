package controller

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/database"
	"alurai_backend/pkg/utils/jwt"
)

type JoinAffiliateInput struct {
	PayoutEmail string `json:"payout_email" validate:"required,email"`
}

type TrackClickInput struct {
	Code    string `json:"code" validate:"required"`
	Landing string `json:"landing"`
}

// JoinAffiliateProgram creates the user's affiliate account with a fresh
// referral code.
func JoinAffiliateProgram(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(JoinAffiliateInput)
	if err := c.BodyParser(input); err != nil || input.PayoutEmail == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var existing model.AffiliateAccount
	if err := database.GetDB().Where("user_id = ?", claims.UserID).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "You are already an affiliate",
			"code":  existing.Code,
		})
	}

	account := model.AffiliateAccount{
		UserID:      claims.UserID,
		Code:        generateReferralCode(claims.Username),
		PayoutEmail: input.PayoutEmail,
	}

	if err := database.GetDB().Create(&account).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create affiliate account",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(account)
}

// GetAffiliateData returns the user's referral code and counters.
func GetAffiliateData(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var account model.AffiliateAccount
	if err := database.GetDB().Where("user_id = ?", claims.UserID).First(&account).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "You are not an affiliate yet",
		})
	}

	return c.JSON(account)
}

// TrackAffiliateClick records a landing through a referral link. Also used
// by the referral middleware's async path.
func TrackAffiliateClick(c *fiber.Ctx) error {
	input := new(TrackClickInput)
	if err := c.BodyParser(input); err != nil || input.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var account model.AffiliateAccount
	if err := database.GetDB().Where("code = ?", input.Code).First(&account).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Unknown referral code",
		})
	}

	click := model.ReferralClick{
		Code:      input.Code,
		IP:        c.IP(),
		Landing:   input.Landing,
		UserAgent: c.Get("User-Agent"),
		ClickedAt: time.Now(),
	}
	if err := database.GetDB().Create(&click).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not track click",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Click recorded",
	})
}

func generateReferralCode(username string) string {
	suffix := strings.Split(uuid.New().String(), "-")[0]
	return username + "-" + suffix
}
