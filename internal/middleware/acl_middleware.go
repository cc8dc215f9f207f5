package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/database"
	"alurai_backend/pkg/plan"
	"alurai_backend/pkg/quota"
	"alurai_backend/pkg/utils/jwt"
)

// CheckFormOwnership rejects requests touching a form the user doesn't own
func CheckFormOwnership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)
		formID := c.Params("id")
		if formID == "" {
			formID = c.Params("form_id")
		}

		var form model.Form
		if err := database.DB.First(&form, formID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Form not found",
			})
		}

		if form.UserID != claims.UserID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You don't have permission to access this form",
			})
		}

		c.Locals("form", &form)
		return c.Next()
	}
}

// RequireFeature gates a route on the user's plan tier
func RequireFeature(feature plan.Feature) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		tier := quota.GlobalTracker.TierForUser(claims.UserID)
		if !plan.CanUseFeature(tier, feature) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "This feature requires a higher subscription plan",
			})
		}

		return c.Next()
	}
}

// CheckQuota admits the request only while the user is under their plan
// limit, then records one unit of the action once the handler has answered
// successfully. Failed requests never consume quota. Storage failures follow
// the tracker's enforcement mode.
func CheckQuota(action plan.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		res, err := quota.GlobalTracker.CheckQuota(claims.UserID, action)
		if err != nil {
			if err == quota.ErrUnavailable {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "Usage tracking is unavailable, please retry",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not check usage",
			})
		}

		if !res.Allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":         res.Message,
				"current_usage": res.CurrentUsage,
				"limit":         res.Limit,
			})
		}

		if err := c.Next(); err != nil {
			return err
		}

		if c.Response().StatusCode() < fiber.StatusBadRequest {
			if _, err := quota.GlobalTracker.TrackUsage(claims.UserID, action, 1); err != nil {
				log.Printf("Could not track %s usage for user %d: %v", action, claims.UserID, err)
			}
		}
		return nil
	}
}
