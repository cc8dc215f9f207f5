package controller

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/mail"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/database"
	"alurai_backend/pkg/email"
	"alurai_backend/pkg/plan"
	"alurai_backend/pkg/quota"
)

type SubmissionInput struct {
	Answers map[string]interface{} `json:"answers" validate:"required"`
}

// SubmitForm stores a completed response to a published form. Submissions
// are immutable once created.
func SubmitForm(c *fiber.Ctx) error {
	formIDStr := c.Params("form_id")
	formID, err := strconv.ParseUint(formIDStr, 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid form ID",
		})
	}

	var form model.Form
	if err := database.GetDB().Preload("Fields").Preload("User").First(&form, formID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Form not found",
		})
	}

	if !form.Published {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "This form is not accepting responses",
		})
	}

	input := new(SubmissionInput)
	if err := c.BodyParser(input); err != nil || input.Answers == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if msg := validateAnswers(form.Fields, input.Answers); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": msg,
		})
	}

	// The form owner's response quota gates intake, not the respondent's
	res, err := quota.GlobalTracker.TrackUsage(form.UserID, plan.ActionResponses, 1)
	if err != nil {
		if err == quota.ErrUnavailable {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Could not accept response, please retry",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not accept response",
		})
	}
	if !res.Allowed {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "This form has reached its response limit",
		})
	}

	answersJSON, err := json.Marshal(input.Answers)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid answers",
		})
	}

	submission := model.Submission{
		FormID:      form.ID,
		Answers:     datatypes.JSON(answersJSON),
		IP:          c.IP(),
		SubmittedAt: time.Now(),
	}

	if err := database.GetDB().Create(&submission).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save response",
		})
	}

	if email.GlobalEmailService != nil {
		ownerEmail := form.User.Email
		formTitle := form.Title
		count := form.SubmissionCount + 1
		go func() {
			if err := email.GlobalEmailService.SendSubmissionNotificationEmail(ownerEmail, formTitle, count); err != nil {
				log.Printf("Could not send submission notification: %v", err)
			}
		}()
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "Response recorded. Thank you!",
		"submission_id": submission.ID,
	})
}

// validateAnswers checks required fields and per-field rules, returning a
// human-readable message on the first violation.
func validateAnswers(fields []model.FormField, answers map[string]interface{}) string {
	for _, field := range fields {
		value, present := answers[field.Key]

		if field.Required {
			if !present || value == nil || fmt.Sprintf("%v", value) == "" {
				return fmt.Sprintf("Field %q is required", field.Key)
			}
		}
		if !present || value == nil {
			continue
		}

		switch field.Type {
		case model.FieldTypeEmail:
			if _, err := mail.ParseAddress(fmt.Sprintf("%v", value)); err != nil {
				return fmt.Sprintf("Field %q must be a valid email address", field.Key)
			}
		case model.FieldTypeNumber, model.FieldTypeRating:
			switch value.(type) {
			case float64, int, int64:
			default:
				if _, err := strconv.ParseFloat(fmt.Sprintf("%v", value), 64); err != nil {
					return fmt.Sprintf("Field %q must be a number", field.Key)
				}
			}
		case model.FieldTypeSelect:
			var rules struct {
				Options []string `json:"options"`
			}
			if len(field.Validation) > 0 {
				if err := json.Unmarshal(field.Validation, &rules); err == nil && len(rules.Options) > 0 {
					answer := fmt.Sprintf("%v", value)
					found := false
					for _, opt := range rules.Options {
						if opt == answer {
							found = true
							break
						}
					}
					if !found {
						return fmt.Sprintf("Field %q must be one of the listed options", field.Key)
					}
				}
			}
		}
	}
	return ""
}

func ListSubmissions(c *fiber.Ctx) error {
	form := c.Locals("form").(*model.Form)

	var submissions []model.Submission
	query := database.GetDB().
		Where("form_id = ?", form.ID).
		Order("submitted_at DESC")

	if since := c.Query("since"); since != "" {
		if ts, err := time.Parse("2006-01-02", since); err == nil {
			query = query.Where("submitted_at >= ?", ts)
		}
	}

	if err := query.Find(&submissions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch submissions",
		})
	}

	return c.JSON(fiber.Map{
		"form_id":     form.ID,
		"count":       len(submissions),
		"submissions": submissions,
	})
}

// ExportSubmissionsCSV streams all responses for a form as CSV, one column
// per field key in form order.
func ExportSubmissionsCSV(c *fiber.Ctx) error {
	form := c.Locals("form").(*model.Form)

	var fields []model.FormField
	if err := database.GetDB().
		Where("form_id = ?", form.ID).
		Order("position").
		Find(&fields).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch form fields",
		})
	}

	var submissions []model.Submission
	if err := database.GetDB().
		Where("form_id = ?", form.ID).
		Order("submitted_at ASC").
		Find(&submissions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch submissions",
		})
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"submitted_at"}
	for _, f := range fields {
		header = append(header, f.Key)
	}
	writer.Write(header)

	for _, sub := range submissions {
		var answers map[string]interface{}
		if err := json.Unmarshal(sub.Answers, &answers); err != nil {
			continue
		}
		row := []string{sub.SubmittedAt.Format(time.RFC3339)}
		for _, f := range fields {
			if v, ok := answers[f.Key]; ok && v != nil {
				row = append(row, fmt.Sprintf("%v", v))
			} else {
				row = append(row, "")
			}
		}
		writer.Write(row)
	}
	writer.Flush()

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-responses.csv", form.Slug))
	return c.Send(buf.Bytes())
}
