package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/database"
	"alurai_backend/pkg/utils/jwt"
)

type DashboardStats struct {
	TotalForms       int64       `json:"total_forms"`
	PublishedForms   int64       `json:"published_forms"`
	TotalSubmissions int64       `json:"total_submissions"`
	TotalViews       int64       `json:"total_views"`
	CompletionRate   float64     `json:"completion_rate"`
	TopForms         []TopForm   `json:"top_forms"`
	DailyStats       []DailyStat `json:"daily_stats"`
}

type TopForm struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Submissions int64  `json:"submissions"`
	Views       int64  `json:"views"`
}

type DailyStat struct {
	Date        string `json:"date"`
	Views       int64  `json:"views"`
	Submissions int64  `json:"submissions"`
}

// GetDashboardStats aggregates the owner's form performance for the
// analytics overview.
func GetDashboardStats(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	db := database.GetDB()

	var stats DashboardStats

	db.Model(&model.Form{}).
		Where("user_id = ?", claims.UserID).
		Count(&stats.TotalForms)

	db.Model(&model.Form{}).
		Where("user_id = ? AND published = ?", claims.UserID, true).
		Count(&stats.PublishedForms)

	db.Model(&model.Submission{}).
		Joins("JOIN forms ON submissions.form_id = forms.id").
		Where("forms.user_id = ?", claims.UserID).
		Count(&stats.TotalSubmissions)

	db.Model(&model.FormView{}).
		Joins("JOIN forms ON form_views.form_id = forms.id").
		Where("forms.user_id = ?", claims.UserID).
		Count(&stats.TotalViews)

	if stats.TotalViews > 0 {
		stats.CompletionRate = float64(stats.TotalSubmissions) / float64(stats.TotalViews)
	}

	var topForms []TopForm
	db.Table("forms").
		Select("forms.id, forms.title, forms.slug, forms.submission_count as submissions, COUNT(form_views.id) as views").
		Joins("LEFT JOIN form_views ON forms.id = form_views.form_id").
		Where("forms.user_id = ? AND forms.deleted_at IS NULL", claims.UserID).
		Group("forms.id").
		Order("submissions DESC").
		Limit(5).
		Scan(&topForms)
	stats.TopForms = topForms

	// Last 7 days of views and submissions
	var dailyStats []DailyStat
	for i := 6; i >= 0; i-- {
		date := time.Now().AddDate(0, 0, -i)
		var stat DailyStat
		stat.Date = date.Format("2006-01-02")

		db.Model(&model.FormView{}).
			Joins("JOIN forms ON form_views.form_id = forms.id").
			Where("forms.user_id = ? AND DATE(form_views.created_at) = ?",
				claims.UserID, date.Format("2006-01-02")).
			Count(&stat.Views)

		db.Model(&model.Submission{}).
			Joins("JOIN forms ON submissions.form_id = forms.id").
			Where("forms.user_id = ? AND DATE(submissions.created_at) = ?",
				claims.UserID, date.Format("2006-01-02")).
			Count(&stat.Submissions)

		dailyStats = append(dailyStats, stat)
	}
	stats.DailyStats = dailyStats

	return c.JSON(stats)
}

// GetFormAnalytics returns per-form counters for one form.
func GetFormAnalytics(c *fiber.Ctx) error {
	form := c.Locals("form").(*model.Form)
	db := database.GetDB()

	var formStats model.FormStats
	db.Where("form_id = ?", form.ID).First(&formStats)

	completionRate := 0.0
	if formStats.TotalViews > 0 {
		completionRate = float64(form.SubmissionCount) / float64(formStats.TotalViews)
	}

	return c.JSON(fiber.Map{
		"form_id":         form.ID,
		"title":           form.Title,
		"submissions":     form.SubmissionCount,
		"total_views":     formStats.TotalViews,
		"unique_views":    formStats.UniqueViews,
		"completion_rate": completionRate,
	})
}
