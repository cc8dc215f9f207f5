package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"alurai_backend/pkg/plan"
	"alurai_backend/pkg/quota"
	"alurai_backend/pkg/utils/jwt"
	"alurai_backend/pkg/utils/storage"
)

type PresignUploadInput struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	Size        int64  `json:"size" validate:"required"`
}

const maxUploadSize = 25 * 1024 * 1024

// CreatePresignedUpload hands the client a time-limited PUT URL so files go
// straight to the object store. The byte size counts against the storage
// quota once the URL is issued.
func CreatePresignedUpload(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(PresignUploadInput)
	if err := c.BodyParser(input); err != nil || input.Filename == "" || input.ContentType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if input.Size <= 0 || input.Size > maxUploadSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File size must be between 1 byte and 25MB",
		})
	}

	res, err := quota.GlobalTracker.CheckQuota(claims.UserID, plan.ActionStorage)
	if err != nil {
		if err == quota.ErrUnavailable {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Could not verify storage quota, please retry",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not verify storage quota",
		})
	}
	if res.Limit != plan.Unlimited && res.CurrentUsage+input.Size > res.Limit {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":         "This upload would exceed your storage limit",
			"current_usage": res.CurrentUsage,
			"limit":         res.Limit,
		})
	}

	objectKey := storage.ObjectKey(claims.Username, "uploads", input.Filename)
	presigned, err := storage.PresignUpload(objectKey, input.ContentType)
	if err != nil {
		log.Printf("Could not presign upload: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create upload URL",
		})
	}

	// Bytes count against the storage quota only once the URL is issued
	if _, err := quota.GlobalTracker.TrackUsage(claims.UserID, plan.ActionStorage, input.Size); err != nil {
		log.Printf("Could not track storage usage for user %d: %v", claims.UserID, err)
	}

	return c.JSON(presigned)
}

// CreatePresignedDownload returns a time-limited GET URL for a stored object.
func CreatePresignedDownload(c *fiber.Ctx) error {
	objectKey := c.Query("key")
	if objectKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing object key",
		})
	}

	url, err := storage.PresignDownload(objectKey)
	if err != nil {
		log.Printf("Could not presign download: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create download URL",
		})
	}

	return c.JSON(fiber.Map{
		"download_url": url,
		"expires_in":   int64(storage.PresignExpiry.Seconds()),
	})
}
