package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/database"
	"alurai_backend/pkg/email"
)

func InitSubscriptionExpiryCron() {
	c := cron.New()

	_, err := c.AddFunc("0 9 * * *", func() {
		checkExpiringSubscriptions()
		sweepExpiredSubscriptions()
	})

	if err != nil {
		log.Printf("Could not initialize subscription expiry cron: %v", err)
		return
	}

	c.Start()
}

func checkExpiringSubscriptions() {
	log.Println("Checking for expiring subscriptions...")

	warningDays := []int{7, 3}

	for _, days := range warningDays {
		var subs []model.UserSubscription
		targetDate := time.Now().AddDate(0, 0, days).Format("2006-01-02")

		err := database.DB.Where("DATE(period_end) = ? AND status = ?", targetDate, model.SubscriptionStatusActive).
			Preload("User").
			Preload("Plan").
			Find(&subs).Error

		if err != nil {
			log.Printf("Error fetching expiring subscriptions: %v", err)
			continue
		}

		log.Printf("Found %d subscriptions expiring in %d days", len(subs), days)

		for _, sub := range subs {
			if email.GlobalEmailService != nil {
				err = email.GlobalEmailService.SendSubscriptionExpiryWarning(
					sub.User.Email,
					sub.User.Name,
					sub.Plan.Name,
					sub.PeriodEnd,
					days,
				)
				if err != nil {
					log.Printf("Error sending expiry warning to %s: %v", sub.User.Email, err)
				}
			}
		}
	}
}

// sweepExpiredSubscriptions closes subscriptions whose period ended without
// a renewal webhook arriving.
func sweepExpiredSubscriptions() {
	result := database.DB.Model(&model.UserSubscription{}).
		Where("period_end < ? AND status = ?", time.Now(), model.SubscriptionStatusActive).
		Update("status", model.SubscriptionStatusCancelled)

	if result.Error != nil {
		log.Printf("Error sweeping expired subscriptions: %v", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		log.Printf("Marked %d expired subscriptions as cancelled", result.RowsAffected)
	}
}
