package model

import (
	"strings"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email    string `gorm:"uniqueIndex;not null"`
	Password string `gorm:"not null"`
	Username string `gorm:"uniqueIndex;not null"`
	Name     string `json:"name"`

	// Referral code this user signed up through, if any
	ReferredBy string `json:"referred_by"`

	IsVerified bool `json:"is_verified" gorm:"default:false"`

	Forms         []Form             `json:"-"`
	Subscriptions []UserSubscription `json:"-"`
	Branding      *BrandingSettings  `json:"-"`
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":          u.ID,
		"username":    u.Username,
		"name":        u.Name,
		"is_verified": u.IsVerified,
	}
}

// GenerateUsername derives a URL-friendly username from a display name.
func GenerateUsername(name string) string {
	username := strings.ToLower(name)
	username = strings.ReplaceAll(username, " ", "-")
	username = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, username)
	return username
}
