package controller

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/database"
)

const testWebhookSecret = "whsec_test"

func setupWebhookApp(t *testing.T) *fiber.App {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Plan{},
		&model.UserSubscription{},
		&model.AffiliateAccount{},
		&model.BillingWebhookEvent{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	database.DB = db
	t.Setenv("LEMONSQUEEZY_WEBHOOK_SECRET", testWebhookSecret)

	app := fiber.New()
	app.Post("/api/webhooks/lemonsqueezy", HandleLemonSqueezyWebhook)
	return app
}

func signPayload(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, signature, eventID string) int {
	req := httptest.NewRequest("POST", "/api/webhooks/lemonsqueezy", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature)
	if eventID != "" {
		req.Header.Set("X-Event-Id", eventID)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	return resp.StatusCode
}

func subscriptionCreatedPayload(userID uint, variantID int64) []byte {
	return []byte(fmt.Sprintf(`{
		"meta": {
			"event_name": "subscription_created",
			"custom_data": {"user_id": "%d"}
		},
		"data": {
			"id": "sub_ls_1",
			"attributes": {
				"status": "active",
				"customer_id": 777,
				"variant_id": %d,
				"renews_at": "2026-10-01T00:00:00Z"
			}
		}
	}`, userID, variantID))
}

func TestLemonSqueezyWebhookRejectsBadSignature(t *testing.T) {
	app := setupWebhookApp(t)

	payload := subscriptionCreatedPayload(1, 100)
	if code := postWebhook(t, app, payload, "deadbeef", ""); code != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for bad signature, got %d", code)
	}
	if code := postWebhook(t, app, payload, "", ""); code != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for missing signature, got %d", code)
	}

	var count int64
	database.DB.Model(&model.UserSubscription{}).Count(&count)
	if count != 0 {
		t.Errorf("Rejected events must not create subscriptions, got %d", count)
	}
}

func TestLemonSqueezyWebhookCreatesSubscription(t *testing.T) {
	app := setupWebhookApp(t)

	user := model.User{Email: "ada@example.com", Password: "hashed", Username: "ada", ReferredBy: "jane-ab12"}
	database.DB.Create(&user)
	database.DB.Create(&model.AffiliateAccount{UserID: 99, Code: "jane-ab12"})
	pro := model.Plan{Name: "Pro", Tier: "pro", Price: 19, Duration: 30, LemonSqueezyVariantID: "100"}
	database.DB.Create(&pro)

	payload := subscriptionCreatedPayload(user.ID, 100)
	if code := postWebhook(t, app, payload, signPayload(payload), "evt_1"); code != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}

	var sub model.UserSubscription
	if err := database.DB.Where("user_id = ?", user.ID).First(&sub).Error; err != nil {
		t.Fatalf("Expected a subscription row: %v", err)
	}
	if sub.Provider != "lemonsqueezy" || sub.ProviderSubID != "sub_ls_1" {
		t.Errorf("Unexpected provider attribution: %s/%s", sub.Provider, sub.ProviderSubID)
	}
	if sub.Status != model.SubscriptionStatusActive {
		t.Errorf("Expected active status, got %s", sub.Status)
	}
	if sub.PlanID != pro.ID {
		t.Errorf("Expected plan %d, got %d", pro.ID, sub.PlanID)
	}

	// First paid subscription credits the referring affiliate
	var account model.AffiliateAccount
	database.DB.Where("code = ?", "jane-ab12").First(&account)
	if account.Conversions != 1 {
		t.Errorf("Expected 1 affiliate conversion, got %d", account.Conversions)
	}
	expectedEarnings := 19 * 0.30
	if account.PendingEarnings < expectedEarnings-0.001 || account.PendingEarnings > expectedEarnings+0.001 {
		t.Errorf("Expected pending earnings %.2f, got %.2f", expectedEarnings, account.PendingEarnings)
	}
}

func TestLemonSqueezyWebhookDeduplicatesRedelivery(t *testing.T) {
	app := setupWebhookApp(t)

	user := model.User{Email: "ada@example.com", Password: "hashed", Username: "ada"}
	database.DB.Create(&user)
	database.DB.Create(&model.Plan{Name: "Pro", Tier: "pro", Price: 19, Duration: 30, LemonSqueezyVariantID: "100"})

	payload := subscriptionCreatedPayload(user.ID, 100)
	signature := signPayload(payload)

	for i := 0; i < 3; i++ {
		if code := postWebhook(t, app, payload, signature, "evt_dup"); code != fiber.StatusOK {
			t.Fatalf("Delivery %d: expected status 200, got %d", i+1, code)
		}
	}

	var count int64
	database.DB.Model(&model.UserSubscription{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Errorf("Redelivered event must not duplicate the subscription, got %d rows", count)
	}
}

func TestLemonSqueezyWebhookAppliesDistinctUpdatesWithoutEventID(t *testing.T) {
	app := setupWebhookApp(t)

	database.DB.Create(&model.UserSubscription{
		UserID:        1,
		Status:        model.SubscriptionStatusActive,
		Provider:      "lemonsqueezy",
		ProviderSubID: "sub_ls_9",
	})

	update := func(status string) []byte {
		return []byte(fmt.Sprintf(`{
			"meta": {"event_name": "subscription_updated"},
			"data": {"id": "sub_ls_9", "attributes": {"status": "%s"}}
		}`, status))
	}

	first := update("active")
	if code := postWebhook(t, app, first, signPayload(first), ""); code != fiber.StatusOK {
		t.Fatalf("First update: expected status 200, got %d", code)
	}

	second := update("past_due")
	if code := postWebhook(t, app, second, signPayload(second), ""); code != fiber.StatusOK {
		t.Fatalf("Second update: expected status 200, got %d", code)
	}

	var sub model.UserSubscription
	database.DB.Where("provider_sub_id = ?", "sub_ls_9").First(&sub)
	if sub.Status != model.SubscriptionStatusPastDue {
		t.Errorf("Second distinct update must be applied: status is %q, want %q",
			sub.Status, model.SubscriptionStatusPastDue)
	}

	// Byte-identical redelivery is still processed only once
	if code := postWebhook(t, app, second, signPayload(second), ""); code != fiber.StatusOK {
		t.Fatalf("Redelivery: expected status 200, got %d", code)
	}
	var events int64
	database.DB.Model(&model.BillingWebhookEvent{}).Count(&events)
	if events != 2 {
		t.Errorf("Expected 2 stored events (one per distinct payload), got %d", events)
	}
}

func TestLemonSqueezyWebhookCancelsSubscription(t *testing.T) {
	app := setupWebhookApp(t)

	database.DB.Create(&model.UserSubscription{
		UserID:        1,
		Status:        model.SubscriptionStatusActive,
		Provider:      "lemonsqueezy",
		ProviderSubID: "sub_ls_1",
	})

	payload := []byte(`{
		"meta": {"event_name": "subscription_cancelled"},
		"data": {"id": "sub_ls_1", "attributes": {"status": "cancelled"}}
	}`)
	if code := postWebhook(t, app, payload, signPayload(payload), "evt_cancel"); code != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}

	var sub model.UserSubscription
	database.DB.Where("provider_sub_id = ?", "sub_ls_1").First(&sub)
	if sub.Status != model.SubscriptionStatusCancelled {
		t.Errorf("Expected cancelled status, got %s", sub.Status)
	}
}
