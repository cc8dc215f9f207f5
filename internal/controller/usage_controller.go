package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"alurai_backend/pkg/plan"
	"alurai_backend/pkg/quota"
	"alurai_backend/pkg/utils/jwt"
)

// Latency bound for the quota check endpoint. The check races this timer;
// in permissive mode a timeout answers allowed so slow storage never blocks
// the product surface.
const quotaCheckTimeout = 2 * time.Second

type TrackUsageInput struct {
	Action string `json:"action" validate:"required"`
	Amount int64  `json:"amount"`
}

type SetUsageInput struct {
	Action string `json:"action" validate:"required"`
	Amount int64  `json:"amount"`
}

// CheckQuotaEndpoint answers whether one more unit of the action would be
// within the user's plan limit.
func CheckQuotaEndpoint(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	action := plan.Action(c.Query("action"))

	if !plan.ValidAction(action) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown usage action",
		})
	}

	type outcome struct {
		res quota.Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		res, err := quota.GlobalTracker.CheckQuota(claims.UserID, action)
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if out.err == quota.ErrUnavailable {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "Quota check unavailable",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Quota check failed",
			})
		}
		return c.JSON(out.res)
	case <-time.After(quotaCheckTimeout):
		if quota.GlobalTracker.Mode() == quota.Strict {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Quota check timed out",
			})
		}
		log.Printf("Quota check timed out for user %d action %s, answering allowed", claims.UserID, action)
		return c.JSON(quota.Result{
			Allowed: true,
			Limit:   plan.LimitFor(quota.GlobalTracker.TierForUser(claims.UserID), action),
			Message: "quota check timed out",
		})
	}
}

// TrackUsageEndpoint records consumption for an action.
func TrackUsageEndpoint(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(TrackUsageInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	amount := input.Amount
	if amount == 0 {
		amount = 1
	}
	if amount < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Amount must be positive",
		})
	}

	res, err := quota.GlobalTracker.TrackUsage(claims.UserID, plan.Action(input.Action), amount)
	if err != nil {
		if err == quota.ErrUnavailable {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Usage tracking unavailable",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(res)
}

// GetUsageStats returns all counters and limits for the quota display.
func GetUsageStats(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	stats, err := quota.GlobalTracker.GetUserUsageStats(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Could not fetch usage stats",
		})
	}

	return c.JSON(fiber.Map{
		"tier":  quota.GlobalTracker.TierForUser(claims.UserID),
		"usage": stats,
	})
}

// ResetUsage zeroes one counter (?action=) or all of them. Correction and
// period rollover entry point.
func ResetUsage(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	action := plan.Action(c.Query("action"))

	if err := quota.GlobalTracker.ResetUserUsage(claims.UserID, action); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Usage reset successfully",
	})
}

// SetUsage overwrites a counter. Administrative correction.
func SetUsage(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(SetUsageInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if err := quota.GlobalTracker.SetUsage(claims.UserID, plan.Action(input.Action), input.Amount); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Usage updated successfully",
	})
}
