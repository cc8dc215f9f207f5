package model

import (
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&User{},
		&Form{},
		&FormField{},
		&FormView{},
		&FormStats{},
		&Submission{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func TestFormSlugGeneration(t *testing.T) {
	db := setupTestDB(t)

	form := Form{Title: "Customer Feedback Survey!", UserID: 1}
	if err := db.Create(&form).Error; err != nil {
		t.Fatalf("Failed to create form: %v", err)
	}

	if form.Slug != "customer-feedback-survey" {
		t.Errorf("Expected slug 'customer-feedback-survey', got %q", form.Slug)
	}
}

func TestFormSlugCollisionGetsSuffix(t *testing.T) {
	db := setupTestDB(t)

	first := Form{Title: "Contact", UserID: 1}
	db.Create(&first)

	second := Form{Title: "Contact", UserID: 1}
	if err := db.Create(&second).Error; err != nil {
		t.Fatalf("Failed to create second form: %v", err)
	}

	if second.Slug == first.Slug {
		t.Error("Same title for the same user must produce distinct slugs")
	}

	// A different user can reuse the plain slug
	other := Form{Title: "Contact", UserID: 2}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("Failed to create form for other user: %v", err)
	}
	if other.Slug != "contact" {
		t.Errorf("Other user's slug should be 'contact', got %q", other.Slug)
	}
}

func TestFormViewUniqueDedup(t *testing.T) {
	db := setupTestDB(t)

	form := Form{Title: "Survey", UserID: 1}
	db.Create(&form)

	first := FormView{FormID: form.ID, IP: "203.0.113.5", ViewedAt: time.Now()}
	db.Create(&first)
	if !first.IsUnique {
		t.Error("First view from an IP should be unique")
	}

	repeat := FormView{FormID: form.ID, IP: "203.0.113.5", ViewedAt: time.Now()}
	db.Create(&repeat)
	if repeat.IsUnique {
		t.Error("Repeat view within 24h from the same IP should not be unique")
	}

	otherIP := FormView{FormID: form.ID, IP: "203.0.113.6", ViewedAt: time.Now()}
	db.Create(&otherIP)
	if !otherIP.IsUnique {
		t.Error("View from a different IP should be unique")
	}

	var stats FormStats
	if err := db.Where("form_id = ?", form.ID).First(&stats).Error; err != nil {
		t.Fatalf("Expected rolled-up stats row: %v", err)
	}
	if stats.TotalViews != 3 {
		t.Errorf("Expected 3 total views, got %d", stats.TotalViews)
	}
	if stats.UniqueViews != 2 {
		t.Errorf("Expected 2 unique views, got %d", stats.UniqueViews)
	}
}

func TestSubmissionBumpsFormCounter(t *testing.T) {
	db := setupTestDB(t)

	form := Form{Title: "Survey", UserID: 1}
	db.Create(&form)

	for i := 0; i < 2; i++ {
		sub := Submission{
			FormID:      form.ID,
			Answers:     datatypes.JSON(`{"name":"Ada"}`),
			SubmittedAt: time.Now(),
		}
		if err := db.Create(&sub).Error; err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}
	}

	var reloaded Form
	db.First(&reloaded, form.ID)
	if reloaded.SubmissionCount != 2 {
		t.Errorf("Expected submission count 2, got %d", reloaded.SubmissionCount)
	}
}

func TestGenerateUsername(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"Jane Doe", "jane-doe"},
		{"Ümit Çelik 42", "mit-elik-42"},
		{"already-fine", "already-fine"},
	}

	for _, tt := range tests {
		if got := GenerateUsername(tt.name); got != tt.expected {
			t.Errorf("GenerateUsername(%q) = %q, expected %q", tt.name, got, tt.expected)
		}
	}
}
