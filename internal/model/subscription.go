package model

import (
	"time"

	"gorm.io/gorm"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusTrialing  SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type Plan struct {
	gorm.Model
	Name        string  `json:"name" gorm:"not null"`
	Tier        string  `json:"tier" gorm:"uniqueIndex;not null"` // free / pro / enterprise
	Description string  `json:"description"`
	Price       float64 `json:"price" gorm:"not null"`
	Duration    int     `json:"duration" gorm:"not null"` // days

	StripeProductID       string `json:"stripe_product_id"`
	StripePriceID         string `json:"stripe_price_id"`
	LemonSqueezyVariantID string `json:"lemonsqueezy_variant_id"`

	UserSubscriptions []UserSubscription `json:"-"`
}

type UserSubscription struct {
	gorm.Model
	UserID uint               `json:"user_id" gorm:"index"`
	PlanID uint               `json:"plan_id"`
	Status SubscriptionStatus `json:"status" gorm:"default:'active'"`

	// Which billing provider owns this subscription
	Provider           string `json:"provider"` // "stripe" or "lemonsqueezy"
	ProviderSubID      string `json:"provider_subscription_id" gorm:"index"`
	ProviderCustomerID string `json:"provider_customer_id"`

	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end" gorm:"default:false"`

	User User `json:"-" gorm:"foreignKey:UserID"`
	Plan Plan `json:"plan" gorm:"foreignKey:PlanID"`
}
