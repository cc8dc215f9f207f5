package controller

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/database"
)

var staticRoutes = []string{
	"/",
	"/pricing",
	"/templates",
	"/affiliates",
	"/login",
	"/register",
}

func baseURL() string {
	if url := os.Getenv("APP_BASE_URL"); url != "" {
		return strings.TrimSuffix(url, "/")
	}
	return "https://alurai.com"
}

// GetSitemap renders the static routes plus every published form.
func GetSitemap(c *fiber.Ctx) error {
	base := baseURL()
	now := time.Now().Format("2006-01-02")

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")

	for _, route := range staticRoutes {
		sb.WriteString(fmt.Sprintf("  <url><loc>%s%s</loc><lastmod>%s</lastmod></url>\n", base, route, now))
	}

	type publicForm struct {
		Slug     string
		Username string
	}
	var forms []publicForm
	database.GetDB().Model(&model.Form{}).
		Select("forms.slug, users.username").
		Joins("JOIN users ON forms.user_id = users.id").
		Where("forms.published = ?", true).
		Scan(&forms)

	for _, f := range forms {
		sb.WriteString(fmt.Sprintf("  <url><loc>%s/f/%s/%s</loc></url>\n", base, f.Username, f.Slug))
	}

	sb.WriteString("</urlset>\n")

	c.Set("Content-Type", "application/xml")
	return c.SendString(sb.String())
}

func GetRobots(c *fiber.Ctx) error {
	robots := fmt.Sprintf(`User-agent: *
Allow: /
Disallow: /api/
Disallow: /dashboard/

Sitemap: %s/sitemap.xml
`, baseURL())

	c.Set("Content-Type", "text/plain")
	return c.SendString(robots)
}
