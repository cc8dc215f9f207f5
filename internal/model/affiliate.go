package model

import (
	"time"

	"gorm.io/gorm"
)

type AffiliateAccount struct {
	gorm.Model
	UserID      uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	Code        string `json:"code" gorm:"uniqueIndex;not null"`
	PayoutEmail string `json:"payout_email"`

	Clicks          int64   `json:"clicks" gorm:"default:0"`
	Conversions     int64   `json:"conversions" gorm:"default:0"`
	PendingEarnings float64 `json:"pending_earnings" gorm:"default:0"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// ReferralClick is one landing through an affiliate link
type ReferralClick struct {
	gorm.Model
	Code      string    `json:"code" gorm:"index;not null"`
	IP        string    `json:"ip"`
	Landing   string    `json:"landing"`
	UserAgent string    `json:"user_agent"`
	ClickedAt time.Time `json:"clicked_at"`
}

// AfterCreate bumps the affiliate click counter atomically
func (rc *ReferralClick) AfterCreate(tx *gorm.DB) error {
	return tx.Model(&AffiliateAccount{}).
		Where("code = ?", rc.Code).
		Update("clicks", gorm.Expr("clicks + ?", 1)).Error
}
