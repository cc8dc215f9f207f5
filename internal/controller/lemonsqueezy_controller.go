package controller

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/database"
	"alurai_backend/pkg/payment"
	"alurai_backend/pkg/utils/jwt"
)

// CreateLemonSqueezyCheckout starts a hosted checkout on the secondary
// billing provider.
func CreateLemonSqueezyCheckout(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(CheckoutInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var plan model.Plan
	if err := database.DB.First(&plan, input.PlanID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Subscription plan not found",
		})
	}

	if plan.LemonSqueezyVariantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "This plan cannot be purchased",
		})
	}

	var user model.User
	if err := database.DB.First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	checkoutURL, err := payment.GlobalLemonSqueezy.CreateCheckout(plan.LemonSqueezyVariantID, user.ID, user.Email)
	if err != nil {
		log.Printf("Could not create LemonSqueezy checkout: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create checkout session",
		})
	}

	return c.JSON(fiber.Map{
		"checkout_url": checkoutURL,
	})
}

func cancelLemonSqueezySubscription(subscriptionID string) error {
	return payment.GlobalLemonSqueezy.CancelSubscription(subscriptionID)
}

type lemonSqueezyEvent struct {
	Meta struct {
		EventName  string            `json:"event_name"`
		CustomData map[string]string `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status     string `json:"status"`
			CustomerID int64  `json:"customer_id"`
			VariantID  int64  `json:"variant_id"`
			RenewsAt   string `json:"renews_at"`
			EndsAt     string `json:"ends_at"`
		} `json:"attributes"`
	} `json:"data"`
}

// HandleLemonSqueezyWebhook verifies the X-Signature HMAC and dispatches
// subscription lifecycle events.
func HandleLemonSqueezyWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get("X-Signature")

	secret := os.Getenv("LEMONSQUEEZY_WEBHOOK_SECRET")
	if !payment.VerifySignature(payload, signature, secret) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	var event lemonSqueezyEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payload",
		})
	}

	// LemonSqueezy carries no event id header on every delivery. Without
	// one, key redelivery detection on the payload itself: identical bytes
	// are a redelivery, distinct state changes never share an id.
	eventID := c.Get("X-Event-Id")
	if eventID == "" {
		sum := sha256.Sum256(payload)
		eventID = hex.EncodeToString(sum[:])
	}

	if alreadyProcessed("lemonsqueezy", eventID) {
		return c.SendStatus(fiber.StatusOK)
	}

	log.Printf("Processing LemonSqueezy webhook event: %s", event.Meta.EventName)

	var handleErr error
	switch event.Meta.EventName {
	case "subscription_created":
		handleErr = handleLemonSqueezyCreated(&event)
	case "subscription_updated":
		handleErr = handleLemonSqueezyUpdated(&event)
	case "subscription_cancelled", "subscription_expired":
		handleErr = database.DB.Model(&model.UserSubscription{}).
			Where("provider = ? AND provider_sub_id = ?", "lemonsqueezy", event.Data.ID).
			Update("status", model.SubscriptionStatusCancelled).Error
	case "subscription_payment_failed":
		handleErr = database.DB.Model(&model.UserSubscription{}).
			Where("provider = ? AND provider_sub_id = ?", "lemonsqueezy", event.Data.ID).
			Update("status", model.SubscriptionStatusPastDue).Error
	}

	recordWebhookEvent("lemonsqueezy", eventID, event.Meta.EventName, string(payload), handleErr)

	if handleErr != nil {
		log.Printf("Error handling LemonSqueezy event %s: %v", event.Meta.EventName, handleErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not process event",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func handleLemonSqueezyCreated(event *lemonSqueezyEvent) error {
	var userID uint
	fmt.Sscanf(event.Meta.CustomData["user_id"], "%d", &userID)
	if userID == 0 {
		return fmt.Errorf("subscription event has no user attribution")
	}

	variantID := fmt.Sprintf("%d", event.Data.Attributes.VariantID)
	var plan model.Plan
	if err := database.DB.Where("lemon_squeezy_variant_id = ?", variantID).First(&plan).Error; err != nil {
		return fmt.Errorf("no plan for variant %s: %v", variantID, err)
	}

	periodEnd := parseLemonSqueezyTime(event.Data.Attributes.RenewsAt, plan.Duration)

	userSub := model.UserSubscription{
		UserID:             userID,
		PlanID:             plan.ID,
		Status:             model.SubscriptionStatusActive,
		Provider:           "lemonsqueezy",
		ProviderSubID:      event.Data.ID,
		ProviderCustomerID: fmt.Sprintf("%d", event.Data.Attributes.CustomerID),
		PeriodStart:        time.Now(),
		PeriodEnd:          periodEnd,
	}
	if err := database.DB.Create(&userSub).Error; err != nil {
		return err
	}

	recordAffiliateConversion(userID, plan.Price)
	sendSubscriptionStartedEmail(userID, plan, periodEnd, false)
	return nil
}

func handleLemonSqueezyUpdated(event *lemonSqueezyEvent) error {
	updates := map[string]interface{}{}

	switch event.Data.Attributes.Status {
	case "active":
		updates["status"] = model.SubscriptionStatusActive
	case "on_trial":
		updates["status"] = model.SubscriptionStatusTrialing
	case "past_due":
		updates["status"] = model.SubscriptionStatusPastDue
	case "cancelled", "expired":
		updates["status"] = model.SubscriptionStatusCancelled
	}

	if event.Data.Attributes.RenewsAt != "" {
		if ts, err := time.Parse(time.RFC3339, event.Data.Attributes.RenewsAt); err == nil {
			updates["period_end"] = ts
		}
	}

	if len(updates) == 0 {
		return nil
	}

	return database.DB.Model(&model.UserSubscription{}).
		Where("provider = ? AND provider_sub_id = ?", "lemonsqueezy", event.Data.ID).
		Updates(updates).Error
}

func parseLemonSqueezyTime(value string, fallbackDays int) time.Time {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Now().AddDate(0, 0, fallbackDays)
}
