package cron

import (
	"log"

	"github.com/robfig/cron/v3"

	"alurai_backend/pkg/quota"
)

// InitUsageResetCron zeroes every usage counter at the start of each
// billing month. Manual resets stay available for corrections.
func InitUsageResetCron() {
	c := cron.New()

	_, err := c.AddFunc("5 0 1 * *", func() {
		resetMonthlyUsage()
	})

	if err != nil {
		log.Printf("Could not initialize usage reset cron: %v", err)
		return
	}

	c.Start()
}

func resetMonthlyUsage() {
	log.Println("Resetting usage counters for new billing period...")

	if quota.GlobalTracker == nil {
		log.Println("Usage reset skipped: tracker not initialized")
		return
	}

	if err := quota.GlobalTracker.ResetAllUsage(); err != nil {
		log.Printf("Error resetting usage counters: %v", err)
		return
	}

	log.Println("Usage counters reset")
}
