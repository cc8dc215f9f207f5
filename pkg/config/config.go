package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Quota    QuotaConfig
	Storage  StorageConfig
	Billing  BillingConfig
	AI       AIConfig
}

type ServerConfig struct {
	Port    string
	Env     string // "development" or "production"
	BaseURL string
}

type DatabaseConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
}

type QuotaConfig struct {
	// "strict" denies tracked actions when the counter store errors;
	// "permissive" (default) answers allowed.
	Enforcement string
}

type StorageConfig struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type BillingConfig struct {
	StripeSecretKey      string
	StripeWebhookSecret  string
	LemonSqueezyAPIKey   string
	LemonSqueezyStoreID  string
	LemonSqueezySecret   string
	CheckoutSuccessURL   string
	CheckoutCancelURL    string
	BillingPortalReturn  string
}

type AIConfig struct {
	OpenAIKey string
	Model     string
}

func Load() *Config {
	godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "3000"),
			Env:     getEnv("ENV", "development"),
			BaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
		Quota: QuotaConfig{
			Enforcement: getEnv("QUOTA_ENFORCEMENT", "permissive"),
		},
		Storage: StorageConfig{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", "alurai-assets"),
			PublicURL:  getEnv("R2_PUBLIC_URL", "https://cdn.alurai.com"),
		},
		Billing: BillingConfig{
			StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			LemonSqueezyAPIKey:  getEnv("LEMONSQUEEZY_API_KEY", ""),
			LemonSqueezyStoreID: getEnv("LEMONSQUEEZY_STORE_ID", ""),
			LemonSqueezySecret:  getEnv("LEMONSQUEEZY_WEBHOOK_SECRET", ""),
			CheckoutSuccessURL:  getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/billing/success"),
			CheckoutCancelURL:   getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/billing/cancelled"),
			BillingPortalReturn: getEnv("BILLING_PORTAL_RETURN_URL", "http://localhost:3000/settings/billing"),
		},
		AI: AIConfig{
			OpenAIKey: getEnv("OPENAI_API_KEY", ""),
			Model:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
