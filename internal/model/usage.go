package model

import (
	"time"

	"gorm.io/gorm"
)

// UsageStat is one per-user counter for a tracked action. One row per
// (user, action); increments go through gorm.Expr so concurrent requests
// never lose updates.
type UsageStat struct {
	gorm.Model
	UserID      uint      `json:"user_id" gorm:"uniqueIndex:idx_user_action,priority:1;not null"`
	Action      string    `json:"action" gorm:"uniqueIndex:idx_user_action,priority:2;not null"`
	Count       int64     `json:"count" gorm:"default:0"`
	PeriodStart time.Time `json:"period_start"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}
