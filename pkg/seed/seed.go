package seed

import (
	"log"

	"gorm.io/gorm"

	"alurai_backend/internal/model"
)

func SeedPlans(db *gorm.DB) {
	plans := []model.Plan{
		{
			Name:        "Free",
			Tier:        "free",
			Description: "Try AlurAI with a few forms",
			Price:       0,
			Duration:    30,
		},
		{
			Name:                  "Pro",
			Tier:                  "pro",
			Description:           "For creators and small teams",
			Price:                 19.00,
			Duration:              30,
			StripeProductID:       "prod_test_pro",
			StripePriceID:         "price_test_pro",
			LemonSqueezyVariantID: "variant_test_pro",
		},
		{
			Name:                  "Enterprise",
			Tier:                  "enterprise",
			Description:           "Unlimited forms and responses",
			Price:                 99.00,
			Duration:              30,
			StripeProductID:       "prod_test_enterprise",
			StripePriceID:         "price_test_enterprise",
			LemonSqueezyVariantID: "variant_test_enterprise",
		},
	}

	for _, plan := range plans {
		result := db.FirstOrCreate(&plan, model.Plan{Tier: plan.Tier})
		if result.Error != nil {
			log.Printf("Error creating plan %s: %v", plan.Name, result.Error)
		}
	}

	log.Println("Subscription plans seeded successfully!")
}
