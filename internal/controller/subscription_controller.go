package controller

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74"
	portalsession "github.com/stripe/stripe-go/v74/billingportal/session"
	"github.com/stripe/stripe-go/v74/checkout/session"
	stripesub "github.com/stripe/stripe-go/v74/subscription"
	"github.com/stripe/stripe-go/v74/webhook"
	"gorm.io/gorm"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/database"
	"alurai_backend/pkg/email"
	"alurai_backend/pkg/utils/jwt"
)

type CheckoutInput struct {
	PlanID uint `json:"plan_id" validate:"required"`
}

func InitSubscriptionController() {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
}

func ListPlans(c *fiber.Ctx) error {
	var plans []model.Plan
	if err := database.DB.Find(&plans).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch subscription plans",
		})
	}

	return c.JSON(plans)
}

func GetMySubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var userSub model.UserSubscription
	err := database.DB.Where("user_id = ? AND status IN ?", claims.UserID,
		[]model.SubscriptionStatus{model.SubscriptionStatusActive, model.SubscriptionStatusTrialing}).
		Preload("Plan").
		Order("created_at DESC").
		First(&userSub).Error
	if err != nil {
		// No paid subscription means the free tier, not an error state
		return c.JSON(fiber.Map{
			"tier":   "free",
			"status": "none",
		})
	}

	return c.JSON(userSub)
}

// CreateCheckoutSession starts a Stripe-hosted checkout for a plan.
func CreateCheckoutSession(c *fiber.Ctx) error {
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

	if plan.StripePriceID == "" {
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

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail:     stripe.String(user.Email),
		ClientReferenceID: stripe.String(fmt.Sprintf("%d", user.ID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(os.Getenv("CHECKOUT_SUCCESS_URL")),
		CancelURL:  stripe.String(os.Getenv("CHECKOUT_CANCEL_URL")),
	}
	params.AddMetadata("user_id", fmt.Sprintf("%d", user.ID))
	params.AddMetadata("plan_id", fmt.Sprintf("%d", plan.ID))

	checkoutSession, err := session.New(params)
	if err != nil {
		log.Printf("Could not create checkout session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create checkout session",
		})
	}

	return c.JSON(fiber.Map{
		"checkout_url": checkoutSession.URL,
	})
}

// CreateBillingPortalSession returns a Stripe billing portal URL for
// self-service payment management.
func CreateBillingPortalSession(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var userSub model.UserSubscription
	if err := database.DB.Where("user_id = ? AND provider = ? AND status = ?",
		claims.UserID, "stripe", model.SubscriptionStatusActive).
		First(&userSub).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active subscription found",
		})
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(userSub.ProviderCustomerID),
		ReturnURL: stripe.String(os.Getenv("BILLING_PORTAL_RETURN_URL")),
	}

	portal, err := portalsession.New(params)
	if err != nil {
		log.Printf("Could not create billing portal session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create billing portal session",
		})
	}

	return c.JSON(fiber.Map{
		"portal_url": portal.URL,
	})
}

// CancelSubscription schedules cancellation at period end on the owning
// provider.
func CancelSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var userSub model.UserSubscription
	if err := database.DB.Where("user_id = ? AND status = ?", claims.UserID, model.SubscriptionStatusActive).
		Preload("User").
		Preload("Plan").
		First(&userSub).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active subscription found",
		})
	}

	switch userSub.Provider {
	case "stripe":
		_, err := stripesub.Update(userSub.ProviderSubID, &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not cancel subscription",
			})
		}
	case "lemonsqueezy":
		if err := cancelLemonSqueezySubscription(userSub.ProviderSubID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not cancel subscription",
			})
		}
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unknown billing provider",
		})
	}

	userSub.CancelAtPeriodEnd = true
	if err := database.DB.Save(&userSub).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update subscription status",
		})
	}

	if email.GlobalEmailService != nil {
		err := email.GlobalEmailService.SendSubscriptionCancelledEmail(
			userSub.User.Email,
			userSub.User.Name,
			userSub.Plan.Name,
			userSub.PeriodEnd,
		)
		if err != nil {
			log.Printf("Could not send subscription cancellation email: %v", err)
		}
	}

	return c.JSON(fiber.Map{
		"message": "Subscription will be cancelled at the end of the current period",
	})
}

// HandleStripeWebhook verifies and dispatches Stripe events. Redelivered
// events are skipped via the stored event id.
func HandleStripeWebhook(c *fiber.Ctx) error {
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")

	payload := c.Body()
	signatureHeader := c.Get("Stripe-Signature")

	event, err := webhook.ConstructEvent(payload, signatureHeader, webhookSecret)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	if alreadyProcessed("stripe", event.ID) {
		return c.SendStatus(fiber.StatusOK)
	}

	log.Printf("Processing Stripe webhook event: %s", event.Type)

	var handleErr error
	switch event.Type {
	case "checkout.session.completed":
		handleErr = handleStripeCheckoutCompleted(event.Data.Raw)
	case "customer.subscription.updated":
		handleErr = handleStripeSubscriptionUpdated(event.Data.Raw)
	case "customer.subscription.deleted":
		handleErr = handleStripeSubscriptionDeleted(event.Data.Raw)
	case "invoice.payment_failed":
		handleErr = handleStripePaymentFailed(event.Data.Raw)
	}

	recordWebhookEvent("stripe", event.ID, string(event.Type), string(payload), handleErr)

	if handleErr != nil {
		log.Printf("Error handling Stripe event %s: %v", event.Type, handleErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not process event",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func handleStripeCheckoutCompleted(raw json.RawMessage) error {
	var data struct {
		Customer          string            `json:"customer"`
		Subscription      string            `json:"subscription"`
		ClientReferenceID string            `json:"client_reference_id"`
		Metadata          map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}

	var userID, planID uint
	fmt.Sscanf(data.Metadata["user_id"], "%d", &userID)
	fmt.Sscanf(data.Metadata["plan_id"], "%d", &planID)
	if userID == 0 {
		fmt.Sscanf(data.ClientReferenceID, "%d", &userID)
	}
	if userID == 0 || planID == 0 {
		return fmt.Errorf("checkout session has no user/plan attribution")
	}

	var plan model.Plan
	if err := database.DB.First(&plan, planID).Error; err != nil {
		return fmt.Errorf("plan %d not found: %v", planID, err)
	}

	userSub := model.UserSubscription{
		UserID:             userID,
		PlanID:             plan.ID,
		Status:             model.SubscriptionStatusActive,
		Provider:           "stripe",
		ProviderSubID:      data.Subscription,
		ProviderCustomerID: data.Customer,
		PeriodStart:        time.Now(),
		PeriodEnd:          time.Now().AddDate(0, 0, plan.Duration),
	}
	if err := database.DB.Create(&userSub).Error; err != nil {
		return err
	}

	recordAffiliateConversion(userID, plan.Price)
	sendSubscriptionStartedEmail(userID, plan, userSub.PeriodEnd, false)
	return nil
}

func handleStripeSubscriptionUpdated(raw json.RawMessage) error {
	var data struct {
		ID                string `json:"id"`
		Status            string `json:"status"`
		CurrentPeriodEnd  int64  `json:"current_period_end"`
		CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}

	updates := map[string]interface{}{
		"period_end":           time.Unix(data.CurrentPeriodEnd, 0),
		"cancel_at_period_end": data.CancelAtPeriodEnd,
	}
	switch data.Status {
	case "active":
		updates["status"] = model.SubscriptionStatusActive
	case "trialing":
		updates["status"] = model.SubscriptionStatusTrialing
	case "past_due":
		updates["status"] = model.SubscriptionStatusPastDue
	case "canceled":
		updates["status"] = model.SubscriptionStatusCancelled
	}

	return database.DB.Model(&model.UserSubscription{}).
		Where("provider = ? AND provider_sub_id = ?", "stripe", data.ID).
		Updates(updates).Error
}

func handleStripeSubscriptionDeleted(raw json.RawMessage) error {
	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}

	return database.DB.Model(&model.UserSubscription{}).
		Where("provider = ? AND provider_sub_id = ?", "stripe", data.ID).
		Update("status", model.SubscriptionStatusCancelled).Error
}

func handleStripePaymentFailed(raw json.RawMessage) error {
	var data struct {
		Subscription string `json:"subscription"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}
	if data.Subscription == "" {
		return nil
	}

	return database.DB.Model(&model.UserSubscription{}).
		Where("provider = ? AND provider_sub_id = ?", "stripe", data.Subscription).
		Update("status", model.SubscriptionStatusPastDue).Error
}

// alreadyProcessed reports whether this provider event was handled before.
func alreadyProcessed(provider, eventID string) bool {
	if eventID == "" {
		return false
	}
	var existing model.BillingWebhookEvent
	err := database.DB.Where("provider = ? AND provider_event_id = ? AND processed_at IS NOT NULL",
		provider, eventID).First(&existing).Error
	return err == nil
}

func recordWebhookEvent(provider, eventID, eventType, payload string, handleErr error) {
	event := model.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       eventType,
		Payload:         payload,
	}
	if handleErr != nil {
		event.ProcessingError = handleErr.Error()
	} else {
		now := time.Now()
		event.ProcessedAt = &now
	}
	if err := database.DB.Create(&event).Error; err != nil {
		log.Printf("Could not record webhook event %s/%s: %v", provider, eventID, err)
	}
}

// recordAffiliateConversion credits the referring affiliate when a referred
// user first pays.
func recordAffiliateConversion(userID uint, planPrice float64) {
	var user model.User
	if err := database.DB.First(&user, userID).Error; err != nil || user.ReferredBy == "" {
		return
	}

	// Only the first paid subscription counts as a conversion
	var paidCount int64
	database.DB.Model(&model.UserSubscription{}).Where("user_id = ?", userID).Count(&paidCount)
	if paidCount > 1 {
		return
	}

	const commissionRate = 0.30
	err := database.DB.Model(&model.AffiliateAccount{}).
		Where("code = ?", user.ReferredBy).
		Updates(map[string]interface{}{
			"conversions":      gorm.Expr("conversions + ?", 1),
			"pending_earnings": gorm.Expr("pending_earnings + ?", planPrice*commissionRate),
		}).Error
	if err != nil {
		log.Printf("Could not record affiliate conversion for code %s: %v", user.ReferredBy, err)
	}
}

func sendSubscriptionStartedEmail(userID uint, plan model.Plan, periodEnd time.Time, isRenewal bool) {
	if email.GlobalEmailService == nil {
		return
	}
	var user model.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return
	}
	err := email.GlobalEmailService.SendSubscriptionStartedEmail(
		user.Email, user.Name, plan.Name, plan.Price, "USD", periodEnd, isRenewal,
	)
	if err != nil {
		log.Printf("Could not send subscription email: %v", err)
	}
}
