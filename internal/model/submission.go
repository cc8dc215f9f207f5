package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission is a completed response to a form. Rows are immutable after
// creation; corrections happen by deleting and resubmitting.
type Submission struct {
	gorm.Model
	FormID      uint           `json:"form_id" gorm:"index"`
	Answers     datatypes.JSON `json:"answers" gorm:"not null"` // field key -> answer value
	IP          string         `json:"ip"`
	SubmittedAt time.Time      `json:"submitted_at" gorm:"index"`

	Form Form `json:"-" gorm:"foreignKey:FormID"`
}

// AfterCreate bumps the owning form's submission counter atomically
func (s *Submission) AfterCreate(tx *gorm.DB) error {
	return tx.Model(&Form{}).
		Where("id = ?", s.FormID).
		Update("submission_count", gorm.Expr("submission_count + ?", 1)).Error
}
