package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"alurai_backend/internal/controller"
	"alurai_backend/internal/middleware"
	"alurai_backend/internal/model"
	"alurai_backend/pkg/ai"
	"alurai_backend/pkg/config"
	appcron "alurai_backend/pkg/cron"
	"alurai_backend/pkg/database"
	"alurai_backend/pkg/email"
	"alurai_backend/pkg/payment"
	"alurai_backend/pkg/plan"
	"alurai_backend/pkg/quota"
	"alurai_backend/pkg/seed"
)

func setupRoutes(app *fiber.App) {
	app.Use(middleware.ReferralCapture())

	// SEO endpoints at the root
	app.Get("/sitemap.xml", controller.GetSitemap)
	app.Get("/robots.txt", controller.GetRobots)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	// Public form routes
	publicForms := api.Group("/f")
	publicForms.Get("/:username/:form_slug", controller.GetFormBySlug)
	api.Post("/forms/:form_id/submissions", controller.SubmitForm)

	// Protected routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)

	// Form management with quota checks
	forms := protected.Group("/forms")
	forms.Get("/my", controller.ListMyForms)
	forms.Post("/", middleware.CheckQuota(plan.ActionForms), controller.CreateForm)
	forms.Put("/:id", middleware.CheckFormOwnership(), controller.UpdateForm)
	forms.Delete("/:id", middleware.CheckFormOwnership(), controller.DeleteForm)
	forms.Put("/:id/publish", middleware.CheckFormOwnership(), controller.PublishForm)
	forms.Get("/:id/submissions", middleware.CheckFormOwnership(), controller.ListSubmissions)
	forms.Get("/:id/submissions/export", middleware.CheckFormOwnership(), controller.ExportSubmissionsCSV)
	forms.Get("/:id/analytics", middleware.CheckFormOwnership(), controller.GetFormAnalytics)

	// AI flows
	aiRoutes := protected.Group("/ai")
	aiRoutes.Post("/generate-form", middleware.CheckQuota(plan.ActionAIGenerations), controller.GenerateFormFromPrompt)
	aiRoutes.Post("/validate-answer", controller.ValidateAnswerWithAI)
	aiRoutes.Post("/parse-submission", middleware.CheckQuota(plan.ActionAIGenerations), controller.ParseSubmissionWithAI)

	// Quota / usage
	quotaRoutes := protected.Group("/quota")
	quotaRoutes.Get("/check", controller.CheckQuotaEndpoint)
	quotaRoutes.Post("/track", controller.TrackUsageEndpoint)
	quotaRoutes.Get("/usage", controller.GetUsageStats)
	quotaRoutes.Post("/reset", controller.ResetUsage)
	quotaRoutes.Put("/usage", controller.SetUsage)

	// Analytics dashboard
	dashboard := api.Group("/dashboard", middleware.AuthMiddleware())
	dashboard.Get("/stats", controller.GetDashboardStats)

	// Branding settings
	branding := api.Group("/branding", middleware.AuthMiddleware())
	branding.Get("/", controller.GetBranding)
	branding.Put("/", controller.UpdateBranding)
	branding.Post("/logo", middleware.RequireFeature(plan.CustomBranding), controller.UploadLogo)

	// Uploads (presigned, direct-to-store)
	uploads := api.Group("/uploads", middleware.AuthMiddleware())
	uploads.Post("/presign", controller.CreatePresignedUpload)
	uploads.Get("/presign-download", controller.CreatePresignedDownload)

	// Affiliate program
	affiliate := api.Group("/affiliate")
	affiliate.Post("/track", controller.TrackAffiliateClick)
	affiliateProtected := affiliate.Use(middleware.AuthMiddleware())
	affiliateProtected.Post("/join", controller.JoinAffiliateProgram)
	affiliateProtected.Get("/data", controller.GetAffiliateData)

	// Subscriptions
	subscriptions := api.Group("/subscriptions")
	subscriptions.Get("/plans", controller.ListPlans)

	subProtected := subscriptions.Use(middleware.AuthMiddleware())
	subProtected.Get("/my", controller.GetMySubscription)
	subProtected.Post("/create-checkout-session", controller.CreateCheckoutSession)
	subProtected.Post("/create-lemonsqueezy-checkout", controller.CreateLemonSqueezyCheckout)
	subProtected.Post("/billing-portal", controller.CreateBillingPortalSession)
	subProtected.Post("/cancel-subscription", controller.CancelSubscription)

	// Billing webhooks
	api.Post("/webhooks/stripe", controller.HandleStripeWebhook)
	api.Post("/webhooks/lemonsqueezy", controller.HandleLemonSqueezyWebhook)
}

func main() {
	cfg := config.Load()

	if err := email.InitEmailService(os.Getenv("RESEND_API_KEY")); err != nil {
		log.Printf("Email service disabled: %v", err)
	}

	controller.InitSubscriptionController()

	ai.InitAI(cfg.AI.OpenAIKey, cfg.AI.Model)
	payment.InitLemonSqueezy(payment.LemonSqueezyConfig{
		APIKey:        cfg.Billing.LemonSqueezyAPIKey,
		StoreID:       cfg.Billing.LemonSqueezyStoreID,
		WebhookSecret: cfg.Billing.LemonSqueezySecret,
		SuccessURL:    cfg.Billing.CheckoutSuccessURL,
	})

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is not set in .env")
	}

	database.InitDB(cfg.Database.URL)
	err := database.MigrateDatabase(
		&model.User{},
		&model.Plan{},
		&model.UserSubscription{},
		&model.Form{},
		&model.FormField{},
		&model.FormView{},
		&model.FormStats{},
		&model.Submission{},
		&model.UsageStat{},
		&model.BrandingSettings{},
		&model.AffiliateAccount{},
		&model.ReferralClick{},
		&model.BillingWebhookEvent{},
	)
	if err != nil {
		log.Printf("Migration warning: %v", err)
	}

	seed.SeedPlans(database.DB)

	quota.InitTracker(database.DB, quota.EnforcementMode(cfg.Quota.Enforcement))
	appcron.InitUsageResetCron()
	appcron.InitSubscriptionExpiryCron()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	setupRoutes(app)

	log.Printf("Server is running on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
