package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/database"
	"alurai_backend/pkg/utils/jwt"
)

type FormFieldInput struct {
	Key        string         `json:"key" validate:"required"`
	Question   string         `json:"question" validate:"required"`
	Type       string         `json:"type" validate:"required"`
	Required   bool           `json:"required"`
	Validation datatypes.JSON `json:"validation"`
}

type FormInput struct {
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description"`
	Fields      []FormFieldInput `json:"fields"`
}

func validFieldType(t string) bool {
	switch model.FieldType(t) {
	case model.FieldTypeText, model.FieldTypeEmail, model.FieldTypeNumber,
		model.FieldTypePhone, model.FieldTypeDate, model.FieldTypeSelect,
		model.FieldTypeTextarea, model.FieldTypeRating:
		return true
	}
	return false
}

func CreateForm(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(FormInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if input.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}

	form := model.Form{
		Title:       input.Title,
		Description: input.Description,
		UserID:      claims.UserID,
	}

	for i, f := range input.Fields {
		if f.Key == "" || f.Question == "" || !validFieldType(f.Type) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid field definition",
			})
		}
		form.Fields = append(form.Fields, model.FormField{
			Key:        f.Key,
			Question:   f.Question,
			Type:       model.FieldType(f.Type),
			Required:   f.Required,
			Position:   i,
			Validation: f.Validation,
		})
	}

	if err := database.GetDB().Create(&form).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create form",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(form)
}

func UpdateForm(c *fiber.Ctx) error {
	form := c.Locals("form").(*model.Form)

	input := new(FormInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if input.Title != "" {
		form.Title = input.Title
	}
	form.Description = input.Description

	// Field definitions are replaced wholesale on edit
	if input.Fields != nil {
		if err := database.GetDB().Where("form_id = ?", form.ID).Delete(&model.FormField{}).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not update form fields",
			})
		}
		form.Fields = nil
		for i, f := range input.Fields {
			if f.Key == "" || f.Question == "" || !validFieldType(f.Type) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid field definition",
				})
			}
			form.Fields = append(form.Fields, model.FormField{
				FormID:     form.ID,
				Key:        f.Key,
				Question:   f.Question,
				Type:       model.FieldType(f.Type),
				Required:   f.Required,
				Position:   i,
				Validation: f.Validation,
			})
		}
	}

	if err := database.GetDB().Save(form).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update form",
		})
	}

	return c.JSON(form)
}

func DeleteForm(c *fiber.Ctx) error {
	form := c.Locals("form").(*model.Form)

	if err := database.GetDB().Delete(form).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete form",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Form deleted successfully",
	})
}

func PublishForm(c *fiber.Ctx) error {
	form := c.Locals("form").(*model.Form)

	var input struct {
		Published bool `json:"published"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if err := database.GetDB().Model(form).Update("published", input.Published).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update form",
		})
	}

	return c.JSON(fiber.Map{
		"published": input.Published,
	})
}

func ListMyForms(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var forms []model.Form
	if err := database.GetDB().
		Where("user_id = ?", claims.UserID).
		Preload("Fields").
		Order("created_at DESC").
		Find(&forms).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch forms",
		})
	}

	return c.JSON(forms)
}

// GetFormBySlug serves a published form for public filling and records the
// view.
func GetFormBySlug(c *fiber.Ctx) error {
	username := c.Params("username")
	formSlug := c.Params("form_slug")

	var user model.User
	if err := database.GetDB().Where("username = ?", username).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Form not found",
		})
	}

	var form model.Form
	if err := database.GetDB().
		Where("user_id = ? AND slug = ? AND published = ?", user.ID, formSlug, true).
		Preload("Fields").
		First(&form).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Form not found",
		})
	}

	view := model.FormView{
		FormID:    form.ID,
		IP:        c.IP(),
		SessionID: c.Cookies("alurai_session"),
		UserAgent: c.Get("User-Agent"),
		ViewedAt:  time.Now(),
	}
	database.GetDB().Create(&view)

	var branding model.BrandingSettings
	database.GetDB().Where("user_id = ?", user.ID).First(&branding)

	return c.JSON(fiber.Map{
		"form":     form,
		"branding": branding,
		"owner":    user.GetPublicProfile(),
	})
}
