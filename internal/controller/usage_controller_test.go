package controller

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"alurai_backend/internal/middleware"
	"alurai_backend/internal/model"
	"alurai_backend/pkg/database"
	"alurai_backend/pkg/quota"
	"alurai_backend/pkg/utils/jwt"
)

func setupUsageApp(t *testing.T) *fiber.App {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Plan{},
		&model.UserSubscription{},
		&model.UsageStat{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	database.DB = db
	quota.InitTracker(db, quota.Permissive)

	app := fiber.New()
	usage := app.Group("/api/quota", middleware.AuthMiddleware())
	usage.Get("/check", CheckQuotaEndpoint)
	usage.Post("/track", TrackUsageEndpoint)
	usage.Get("/usage", GetUsageStats)
	usage.Post("/reset", ResetUsage)

	return app
}

func usageToken(t *testing.T) string {
	user := model.User{Email: "ada@example.com", Password: "hashed", Username: "ada"}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	token, err := jwt.GenerateToken(user.ID, user.Email, user.Username)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

func TestCheckQuotaEndpoint(t *testing.T) {
	app := setupUsageApp(t)
	token := usageToken(t)

	req := httptest.NewRequest("GET", "/api/quota/check?action=forms", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var result quota.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !result.Allowed {
		t.Error("Fresh user should be within the forms limit")
	}
	if result.Limit != 3 {
		t.Errorf("Expected free tier forms limit 3, got %d", result.Limit)
	}

	req = httptest.NewRequest("GET", "/api/quota/check?action=bogus", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown action, got %d", resp.StatusCode)
	}
}

func TestTrackUsageEndpoint(t *testing.T) {
	app := setupUsageApp(t)
	token := usageToken(t)

	track := func(body map[string]interface{}) (int, quota.Result) {
		payload, _ := json.Marshal(body)
		req := httptest.NewRequest("POST", "/api/quota/track", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to execute request: %v", err)
		}
		var result quota.Result
		json.NewDecoder(resp.Body).Decode(&result)
		return resp.StatusCode, result
	}

	// Missing amount defaults to one unit
	code, result := track(map[string]interface{}{"action": "ai_generations"})
	if code != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}
	if result.CurrentUsage != 1 {
		t.Errorf("Expected usage 1, got %d", result.CurrentUsage)
	}

	code, result = track(map[string]interface{}{"action": "ai_generations", "amount": 4})
	if code != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}
	if result.CurrentUsage != 5 {
		t.Errorf("Expected usage 5, got %d", result.CurrentUsage)
	}

	if code, _ := track(map[string]interface{}{"action": "ai_generations", "amount": -2}); code != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for negative amount, got %d", code)
	}
	if code, _ := track(map[string]interface{}{"action": "bogus"}); code != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown action, got %d", code)
	}
}

func TestUsageStatsAndReset(t *testing.T) {
	app := setupUsageApp(t)
	token := usageToken(t)

	quota.GlobalTracker.SetUsage(1, "forms", 2)

	req := httptest.NewRequest("GET", "/api/quota/usage", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var stats struct {
		Tier  string                  `json:"tier"`
		Usage map[string]quota.Result `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if stats.Tier != "free" {
		t.Errorf("Expected free tier, got %q", stats.Tier)
	}
	if stats.Usage["forms"].CurrentUsage != 2 {
		t.Errorf("Expected forms usage 2, got %d", stats.Usage["forms"].CurrentUsage)
	}

	req = httptest.NewRequest("POST", "/api/quota/reset?action=forms", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	res, _ := quota.GlobalTracker.CheckQuota(1, "forms")
	if res.CurrentUsage != 0 {
		t.Errorf("Expected zero usage after reset, got %d", res.CurrentUsage)
	}
}
