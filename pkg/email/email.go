package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"
)

type EmailService struct {
	apiKey    string
	from      string
	templates *template.Template
}

type EmailData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

// Template data structures
type WelcomeEmailData struct {
	Name string
}

type SubmissionNotificationData struct {
	FormTitle       string
	SubmissionCount int64
	SubmittedAt     time.Time
}

type SubscriptionEmailData struct {
	Name      string
	PlanName  string
	Price     float64
	Currency  string
	PeriodEnd time.Time
	IsRenewal bool
}

type SubscriptionCancelledData struct {
	Name      string
	PlanName  string
	PeriodEnd time.Time
}

type SubscriptionExpiryWarningData struct {
	Name       string
	PlanName   string
	DaysLeft   int
	ExpiryDate time.Time
}

func NewEmailService(apiKey string) (*EmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %v", err)
	}

	return &EmailService{
		apiKey:    apiKey,
		from:      "AlurAI <noreply@alurai.com>",
		templates: templates,
	}, nil
}

func (s *EmailService) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %v", err)
	}

	emailData := EmailData{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    body.String(),
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("error marshaling email data: %v", err)
	}

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("resend API error: %s", string(respBody))
	}

	log.Printf("Sent %q email to %s", subject, to)
	return nil
}

func (s *EmailService) SendWelcomeEmail(email, name string) error {
	return s.sendTemplateEmail(email, "Welcome to AlurAI! 🎉", "welcome.html", WelcomeEmailData{
		Name: name,
	})
}

func (s *EmailService) SendSubmissionNotificationEmail(ownerEmail, formTitle string, submissionCount int64) error {
	return s.sendTemplateEmail(ownerEmail, "New response to your form 📋", "submission_notification.html",
		SubmissionNotificationData{
			FormTitle:       formTitle,
			SubmissionCount: submissionCount,
			SubmittedAt:     time.Now(),
		})
}

func (s *EmailService) SendSubscriptionStartedEmail(
	email, name, planName string,
	price float64,
	currency string,
	periodEnd time.Time,
	isRenewal bool,
) error {
	subject := "Your AlurAI subscription is active ✨"
	if isRenewal {
		subject = "Your AlurAI subscription was renewed"
	}
	return s.sendTemplateEmail(email, subject, "subscription_started.html", SubscriptionEmailData{
		Name:      name,
		PlanName:  planName,
		Price:     price,
		Currency:  currency,
		PeriodEnd: periodEnd,
		IsRenewal: isRenewal,
	})
}

func (s *EmailService) SendSubscriptionCancelledEmail(email, name, planName string, periodEnd time.Time) error {
	return s.sendTemplateEmail(email, "Your AlurAI subscription was cancelled", "subscription_cancelled.html",
		SubscriptionCancelledData{
			Name:      name,
			PlanName:  planName,
			PeriodEnd: periodEnd,
		})
}

func (s *EmailService) SendSubscriptionExpiryWarning(email, name, planName string, expiryDate time.Time, daysLeft int) error {
	return s.sendTemplateEmail(email, fmt.Sprintf("Your AlurAI subscription ends in %d days", daysLeft),
		"expiry_warning.html", SubscriptionExpiryWarningData{
			Name:       name,
			PlanName:   planName,
			DaysLeft:   daysLeft,
			ExpiryDate: expiryDate,
		})
}
