package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Field input types supported by the conversational renderer
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeNumber   FieldType = "number"
	FieldTypePhone    FieldType = "phone"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeRating   FieldType = "rating"
)

type Form struct {
	gorm.Model
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
	Slug        string `json:"slug" gorm:"uniqueIndex:idx_user_form_slug;not null"`
	Published   bool   `json:"published" gorm:"default:false"`

	UserID uint `json:"user_id" gorm:"uniqueIndex:idx_user_form_slug"`

	// Denormalized counter, bumped atomically by Submission.AfterCreate
	SubmissionCount int64 `json:"submission_count" gorm:"default:0"`

	User   User        `json:"-" gorm:"foreignKey:UserID"`
	Fields []FormField `json:"fields" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
}

type FormField struct {
	gorm.Model
	FormID   uint      `json:"form_id" gorm:"index"`
	Key      string    `json:"key" gorm:"not null"`
	Question string    `json:"question" gorm:"not null"`
	Type     FieldType `json:"type" gorm:"not null"`
	Required bool      `json:"required" gorm:"default:false"`
	Position int       `json:"position" gorm:"default:0"`

	// Type-specific rules: min/max, options list, regex, etc.
	Validation datatypes.JSON `json:"validation"`

	Form Form `json:"-" gorm:"foreignKey:FormID"`
}

// BeforeCreate generates the form slug from the title when not set
func (f *Form) BeforeCreate(tx *gorm.DB) error {
	if f.Slug == "" {
		slug := strings.ToLower(strings.ReplaceAll(f.Title, " ", "-"))
		slug = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
				return r
			}
			return -1
		}, slug)

		var count int64
		tx.Model(&Form{}).Where("user_id = ? AND slug = ?", f.UserID, slug).Count(&count)
		if count > 0 {
			slug = slug + "-" + time.Now().Format("20060102150405")
		}

		f.Slug = slug
	}
	return nil
}

// FormView is a single render of a public form
type FormView struct {
	gorm.Model
	FormID    uint      `json:"form_id" gorm:"index"`
	IP        string    `json:"ip" gorm:"index"`
	SessionID string    `json:"session_id" gorm:"index"`
	UserAgent string    `json:"user_agent"`
	ViewedAt  time.Time `json:"viewed_at" gorm:"index"`
	IsUnique  bool      `json:"is_unique" gorm:"default:true"`

	Form Form `json:"-" gorm:"foreignKey:FormID"`
}

// FormStats keeps rolled-up view counters per form
type FormStats struct {
	gorm.Model
	FormID      uint      `json:"form_id" gorm:"uniqueIndex"`
	TotalViews  int64     `json:"total_views"`
	UniqueViews int64     `json:"unique_views"`
	LastUpdated time.Time `json:"last_updated"`

	Form Form `json:"-" gorm:"foreignKey:FormID"`
}

// BeforeCreate marks repeat views from the same IP within 24h as non-unique
func (fv *FormView) BeforeCreate(tx *gorm.DB) error {
	var count int64
	tx.Model(&FormView{}).
		Where("form_id = ? AND ip = ? AND viewed_at > ?",
			fv.FormID,
			fv.IP,
			time.Now().Add(-24*time.Hour)).
		Count(&count)

	if count > 0 {
		fv.IsUnique = false
	}

	return nil
}

// AfterCreate rolls the view up into FormStats
func (fv *FormView) AfterCreate(tx *gorm.DB) error {
	var stats FormStats
	tx.FirstOrCreate(&stats, FormStats{FormID: fv.FormID})

	updates := map[string]interface{}{
		"total_views":  gorm.Expr("total_views + ?", 1),
		"last_updated": time.Now(),
	}

	if fv.IsUnique {
		updates["unique_views"] = gorm.Expr("unique_views + ?", 1)
	}

	return tx.Model(&stats).Updates(updates).Error
}
