package middleware

import (
	"log"
	"net/url"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/database"
)

const (
	ReferralCookieName = "alurai_ref"
	ReferralCookieAge  = 30 * 24 * time.Hour
)

// ReferralCapture stores the affiliate code from a ?ref= parameter in a
// 30-day cookie and redirects to the same URL without the parameter. Click
// tracking happens off the request path; failures are only logged.
func ReferralCapture() fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Query("ref")
		if code == "" {
			return c.Next()
		}

		c.Cookie(&fiber.Cookie{
			Name:     ReferralCookieName,
			Value:    code,
			Expires:  time.Now().Add(ReferralCookieAge),
			HTTPOnly: true,
			Secure:   os.Getenv("ENV") == "production",
			SameSite: "Lax",
		})

		ip := c.IP()
		landing := c.Path()
		userAgent := c.Get("User-Agent")
		go trackReferralClick(code, ip, landing, userAgent)

		return c.Redirect(stripRefParam(c), fiber.StatusTemporaryRedirect)
	}
}

func trackReferralClick(code, ip, landing, userAgent string) {
	click := model.ReferralClick{
		Code:      code,
		IP:        ip,
		Landing:   landing,
		UserAgent: userAgent,
		ClickedAt: time.Now(),
	}
	if err := database.DB.Create(&click).Error; err != nil {
		log.Printf("Could not track referral click for code %s: %v", code, err)
	}
}

func stripRefParam(c *fiber.Ctx) string {
	values, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return c.Path()
	}
	values.Del("ref")

	target := c.Path()
	if encoded := values.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target
}
