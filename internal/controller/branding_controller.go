package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/database"
	"alurai_backend/pkg/plan"
	"alurai_backend/pkg/quota"
	"alurai_backend/pkg/utils/image"
	"alurai_backend/pkg/utils/jwt"
	"alurai_backend/pkg/utils/storage"
	"alurai_backend/pkg/utils/validation"
)

type BrandingInput struct {
	PrimaryColor    string `json:"primary_color"`
	BackgroundColor string `json:"background_color"`
	CustomDomain    string `json:"custom_domain"`
	CustomCSS       string `json:"custom_css"`
	RemoveBadge     bool   `json:"remove_badge"`
}

func GetBranding(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var branding model.BrandingSettings
	if err := database.GetDB().Where("user_id = ?", claims.UserID).First(&branding).Error; err != nil {
		// No row yet means defaults
		branding = model.BrandingSettings{
			UserID:          claims.UserID,
			PrimaryColor:    validation.DefaultPrimaryColor,
			BackgroundColor: validation.DefaultBackgroundColor,
		}
	}

	return c.JSON(branding)
}

// UpdateBranding validates and persists branding settings. Malformed colors,
// domains and CSS fall back to defaults instead of rejecting the request.
func UpdateBranding(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(BrandingInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	tier := quota.GlobalTracker.TierForUser(claims.UserID)

	var branding model.BrandingSettings
	database.GetDB().Where("user_id = ?", claims.UserID).FirstOrInit(&branding)
	branding.UserID = claims.UserID

	branding.PrimaryColor = validation.SanitizeColor(input.PrimaryColor, validation.DefaultPrimaryColor)
	branding.BackgroundColor = validation.SanitizeColor(input.BackgroundColor, validation.DefaultBackgroundColor)

	if plan.CanUseFeature(tier, plan.CustomDomain) {
		branding.CustomDomain = validation.SanitizeDomain(input.CustomDomain)
	}
	if plan.CanUseFeature(tier, plan.CustomCSS) {
		branding.CustomCSS = validation.SanitizeCSS(input.CustomCSS)
	}
	if plan.CanUseFeature(tier, plan.RemoveBadge) {
		branding.RemoveBadge = input.RemoveBadge
	}

	if err := database.GetDB().Save(&branding).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save branding settings",
		})
	}

	return c.JSON(branding)
}

// UploadLogo re-encodes the uploaded image and stores it in the object
// store alongside every other asset.
func UploadLogo(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	file, err := c.FormFile("logo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
		})
	}

	if file.Size > image.MaxImageSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Logo must be 2MB or smaller",
		})
	}

	contentType := file.Header.Get("Content-Type")
	if !image.AllowedImageTypes[contentType] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid file type. Allowed types are: jpeg, png, webp",
		})
	}

	buf, processedType, err := image.ProcessImage(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not process image",
		})
	}

	objectKey := storage.ObjectKey(claims.Username, "branding", file.Filename)
	logoURL, err := storage.Upload(objectKey, processedType, buf)
	if err != nil {
		log.Printf("Could not upload logo: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not upload logo",
		})
	}

	var branding model.BrandingSettings
	database.GetDB().Where("user_id = ?", claims.UserID).FirstOrInit(&branding)
	branding.UserID = claims.UserID

	if branding.LogoURL != "" {
		if err := storage.Delete(branding.LogoURL); err != nil {
			log.Printf("Could not delete old logo: %v", err)
		}
	}

	branding.LogoURL = logoURL
	if err := database.GetDB().Save(&branding).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save branding settings",
		})
	}

	return c.JSON(fiber.Map{
		"logo_url": logoURL,
	})
}
