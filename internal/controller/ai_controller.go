package controller

import (
	"encoding/json"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/ai"
	"alurai_backend/pkg/database"
	"alurai_backend/pkg/utils/jwt"
)

type GenerateFormInput struct {
	Prompt string `json:"prompt" validate:"required"`
	// Save the generated form immediately instead of returning a draft
	Save bool `json:"save"`
}

type ValidateAnswerInput struct {
	Question string `json:"question" validate:"required"`
	Rule     string `json:"rule"`
	Answer   string `json:"answer" validate:"required"`
}

type ParseSubmissionInput struct {
	FormID  uint   `json:"form_id" validate:"required"`
	RawText string `json:"raw_text" validate:"required"`
}

// GenerateFormFromPrompt drafts a form definition from a natural-language
// description. Gated by the ai_generations quota in the route chain.
func GenerateFormFromPrompt(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(GenerateFormInput)
	if err := c.BodyParser(input); err != nil || input.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Prompt is required",
		})
	}

	generated, err := ai.GlobalAI.GenerateForm(c.Context(), input.Prompt)
	if err != nil {
		log.Printf("Form generation failed for user %d: %v", claims.UserID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not generate form, please try again",
		})
	}

	if !input.Save {
		return c.JSON(generated)
	}

	form := model.Form{
		Title:       generated.Title,
		Description: generated.Description,
		UserID:      claims.UserID,
	}
	for i, f := range generated.Fields {
		fieldType := model.FieldType(f.Type)
		if !validFieldType(f.Type) {
			fieldType = model.FieldTypeText
		}
		field := model.FormField{
			Key:      f.Key,
			Question: f.Question,
			Type:     fieldType,
			Required: f.Required,
			Position: i,
		}
		if f.Validation != nil {
			if raw, err := json.Marshal(f.Validation); err == nil {
				field.Validation = datatypes.JSON(raw)
			}
		}
		form.Fields = append(form.Fields, field)
	}

	if err := database.GetDB().Create(&form).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save generated form",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(form)
}

// ValidateAnswerWithAI checks a free-text answer against a field rule.
func ValidateAnswerWithAI(c *fiber.Ctx) error {
	input := new(ValidateAnswerInput)
	if err := c.BodyParser(input); err != nil || input.Question == "" || input.Answer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question and answer are required",
		})
	}

	check, err := ai.GlobalAI.ValidateAnswer(c.Context(), input.Question, input.Rule, input.Answer)
	if err != nil {
		log.Printf("Answer validation failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not validate answer",
		})
	}

	return c.JSON(check)
}

// ParseSubmissionWithAI extracts field values for a form from free text.
func ParseSubmissionWithAI(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(ParseSubmissionInput)
	if err := c.BodyParser(input); err != nil || input.FormID == 0 || input.RawText == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Form ID and raw text are required",
		})
	}

	var form model.Form
	if err := database.GetDB().Preload("Fields").
		First(&form, strconv.FormatUint(uint64(input.FormID), 10)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Form not found",
		})
	}
	if form.UserID != claims.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have permission to access this form",
		})
	}

	keys := make([]string, 0, len(form.Fields))
	for _, f := range form.Fields {
		keys = append(keys, f.Key)
	}

	parsed, err := ai.GlobalAI.ParseSubmission(c.Context(), keys, input.RawText)
	if err != nil {
		log.Printf("Submission parsing failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not parse text",
		})
	}

	return c.JSON(fiber.Map{
		"form_id": form.ID,
		"parsed":  parsed,
	})
}
