package model

import "gorm.io/gorm"

// BrandingSettings holds per-user form appearance overrides. Custom domain
// and custom CSS are tier-gated at the controller level.
type BrandingSettings struct {
	gorm.Model
	UserID uint `json:"user_id" gorm:"uniqueIndex;not null"`

	PrimaryColor    string `json:"primary_color" gorm:"default:'#6366f1'"`
	BackgroundColor string `json:"background_color" gorm:"default:'#ffffff'"`
	LogoURL         string `json:"logo_url"`
	CustomDomain    string `json:"custom_domain"`
	CustomCSS       string `json:"custom_css" gorm:"type:text"`
	RemoveBadge     bool   `json:"remove_badge" gorm:"default:false"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}
