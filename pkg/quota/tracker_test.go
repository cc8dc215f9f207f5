package quota

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/plan"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
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

	return db
}

func TestTrackUsageIncrementsByAmount(t *testing.T) {
	tracker := NewTracker(setupTestDB(t), Permissive)

	res, err := tracker.TrackUsage(1, plan.ActionStorage, 1024)
	if err != nil {
		t.Fatalf("TrackUsage failed: %v", err)
	}
	if res.CurrentUsage != 1024 {
		t.Errorf("Expected current usage 1024, got %d", res.CurrentUsage)
	}

	res, err = tracker.TrackUsage(1, plan.ActionStorage, 2048)
	if err != nil {
		t.Fatalf("TrackUsage failed: %v", err)
	}
	if res.CurrentUsage != 3072 {
		t.Errorf("Expected current usage 3072, got %d", res.CurrentUsage)
	}
	if !res.Allowed {
		t.Error("Expected usage well under the free storage limit to be allowed")
	}
}

func TestTrackUsageDeniesOverLimit(t *testing.T) {
	tracker := NewTracker(setupTestDB(t), Permissive)

	// Free tier allows 3 forms
	for i := 0; i < 3; i++ {
		res, err := tracker.TrackUsage(1, plan.ActionForms, 1)
		if err != nil {
			t.Fatalf("TrackUsage failed on increment %d: %v", i+1, err)
		}
		if !res.Allowed {
			t.Errorf("Increment %d should be within the limit", i+1)
		}
	}

	res, err := tracker.TrackUsage(1, plan.ActionForms, 1)
	if err != nil {
		t.Fatalf("TrackUsage failed: %v", err)
	}
	if res.Allowed {
		t.Error("Fourth form should exceed the free tier limit")
	}
	if res.Message == "" {
		t.Error("Denied result should carry a message")
	}
	if res.CurrentUsage != 4 {
		t.Errorf("Expected current usage 4, got %d", res.CurrentUsage)
	}
}

func TestTrackUsageRejectsBadInput(t *testing.T) {
	tracker := NewTracker(setupTestDB(t), Permissive)

	if _, err := tracker.TrackUsage(1, plan.Action("bogus"), 1); err == nil {
		t.Error("Expected error for unknown action")
	}
	if _, err := tracker.TrackUsage(1, plan.ActionForms, -1); err == nil {
		t.Error("Expected error for negative amount")
	}
}

func TestCheckQuotaDoesNotIncrement(t *testing.T) {
	tracker := NewTracker(setupTestDB(t), Permissive)

	if err := tracker.SetUsage(1, plan.ActionForms, 2); err != nil {
		t.Fatalf("SetUsage failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		res, err := tracker.CheckQuota(1, plan.ActionForms)
		if err != nil {
			t.Fatalf("CheckQuota failed: %v", err)
		}
		if res.CurrentUsage != 2 {
			t.Errorf("CheckQuota must not change the counter, got %d", res.CurrentUsage)
		}
		if !res.Allowed {
			t.Error("2 of 3 forms should still be allowed")
		}
	}

	if err := tracker.SetUsage(1, plan.ActionForms, 3); err != nil {
		t.Fatalf("SetUsage failed: %v", err)
	}
	res, err := tracker.CheckQuota(1, plan.ActionForms)
	if err != nil {
		t.Fatalf("CheckQuota failed: %v", err)
	}
	if res.Allowed {
		t.Error("At the limit, one more unit should not be allowed")
	}
}

func TestUnlimitedTierNeverDenies(t *testing.T) {
	db := setupTestDB(t)
	tracker := NewTracker(db, Permissive)

	enterprise := model.Plan{Name: "Enterprise", Tier: string(plan.EnterpriseTier), Price: 99, Duration: 30}
	db.Create(&enterprise)
	db.Create(&model.UserSubscription{
		UserID:      7,
		PlanID:      enterprise.ID,
		Status:      model.SubscriptionStatusActive,
		Provider:    "stripe",
		PeriodStart: time.Now(),
		PeriodEnd:   time.Now().AddDate(0, 1, 0),
	})

	res, err := tracker.TrackUsage(7, plan.ActionForms, 100000)
	if err != nil {
		t.Fatalf("TrackUsage failed: %v", err)
	}
	if !res.Allowed {
		t.Error("Enterprise tier should never be denied")
	}
	if res.Limit != plan.Unlimited {
		t.Errorf("Expected unlimited sentinel, got %d", res.Limit)
	}
}

func TestTierForUserDefaultsToFree(t *testing.T) {
	tracker := NewTracker(setupTestDB(t), Permissive)

	if tier := tracker.TierForUser(42); tier != plan.FreeTier {
		t.Errorf("User without subscription should be free tier, got %s", tier)
	}
}

func TestCancelledSubscriptionFallsBackToFree(t *testing.T) {
	db := setupTestDB(t)
	tracker := NewTracker(db, Permissive)

	pro := model.Plan{Name: "Pro", Tier: string(plan.ProTier), Price: 19, Duration: 30}
	db.Create(&pro)
	db.Create(&model.UserSubscription{
		UserID:   3,
		PlanID:   pro.ID,
		Status:   model.SubscriptionStatusCancelled,
		Provider: "stripe",
	})

	if tier := tracker.TierForUser(3); tier != plan.FreeTier {
		t.Errorf("Cancelled subscription should not grant a paid tier, got %s", tier)
	}
}

func TestStorageFailureEnforcementModes(t *testing.T) {
	// No usage_stats table, so every counter write fails
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	strict := NewTracker(db, Strict)
	if _, err := strict.TrackUsage(1, plan.ActionForms, 1); err != ErrUnavailable {
		t.Errorf("Strict mode should surface ErrUnavailable, got %v", err)
	}

	permissive := NewTracker(db, Permissive)
	res, err := permissive.TrackUsage(1, plan.ActionForms, 1)
	if err != nil {
		t.Fatalf("Permissive mode should not error, got %v", err)
	}
	if !res.Allowed {
		t.Error("Permissive mode should answer allowed on storage failure")
	}
	if res.Message == "" {
		t.Error("Degraded answer should carry a message")
	}
}

func TestResetUserUsage(t *testing.T) {
	tracker := NewTracker(setupTestDB(t), Permissive)

	tracker.SetUsage(1, plan.ActionForms, 3)
	tracker.SetUsage(1, plan.ActionResponses, 50)

	if err := tracker.ResetUserUsage(1, plan.ActionForms); err != nil {
		t.Fatalf("ResetUserUsage failed: %v", err)
	}

	res, _ := tracker.CheckQuota(1, plan.ActionForms)
	if res.CurrentUsage != 0 {
		t.Errorf("Forms counter should be zero after reset, got %d", res.CurrentUsage)
	}
	res, _ = tracker.CheckQuota(1, plan.ActionResponses)
	if res.CurrentUsage != 50 {
		t.Errorf("Responses counter should be untouched, got %d", res.CurrentUsage)
	}

	// Empty action resets everything for the user
	if err := tracker.ResetUserUsage(1, ""); err != nil {
		t.Fatalf("ResetUserUsage failed: %v", err)
	}
	res, _ = tracker.CheckQuota(1, plan.ActionResponses)
	if res.CurrentUsage != 0 {
		t.Errorf("All counters should be zero after full reset, got %d", res.CurrentUsage)
	}
}

func TestResetAllUsage(t *testing.T) {
	tracker := NewTracker(setupTestDB(t), Permissive)

	tracker.SetUsage(1, plan.ActionForms, 3)
	tracker.SetUsage(2, plan.ActionForms, 2)

	if err := tracker.ResetAllUsage(); err != nil {
		t.Fatalf("ResetAllUsage failed: %v", err)
	}

	for _, userID := range []uint{1, 2} {
		res, _ := tracker.CheckQuota(userID, plan.ActionForms)
		if res.CurrentUsage != 0 {
			t.Errorf("User %d counter should be zero after rollover, got %d", userID, res.CurrentUsage)
		}
	}
}

func TestGetUserUsageStats(t *testing.T) {
	tracker := NewTracker(setupTestDB(t), Permissive)

	tracker.SetUsage(1, plan.ActionForms, 2)

	stats, err := tracker.GetUserUsageStats(1)
	if err != nil {
		t.Fatalf("GetUserUsageStats failed: %v", err)
	}

	forms, ok := stats[plan.ActionForms]
	if !ok {
		t.Fatal("Expected forms action in stats")
	}
	if forms.CurrentUsage != 2 {
		t.Errorf("Expected forms usage 2, got %d", forms.CurrentUsage)
	}

	// Actions with no row yet still show up with zero usage
	responses, ok := stats[plan.ActionResponses]
	if !ok {
		t.Fatal("Expected responses action in stats")
	}
	if responses.CurrentUsage != 0 {
		t.Errorf("Expected zero responses usage, got %d", responses.CurrentUsage)
	}
	if !responses.Allowed {
		t.Error("Zero usage should be allowed")
	}
}
