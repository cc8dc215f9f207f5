package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Service wraps the model-calling client for the three form flows:
// generating a form from a prompt, validating a free-text answer, and
// parsing unstructured input into field values.
type Service struct {
	client *openai.Client
	model  string
}

var GlobalAI *Service

func InitAI(apiKey, model string) {
	if model == "" {
		model = openai.GPT4oMini
	}
	GlobalAI = &Service{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

type GeneratedField struct {
	Key      string `json:"key"`
	Question string `json:"question"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	// Type-specific rules, e.g. {"options": [...]} for select
	Validation map[string]interface{} `json:"validation,omitempty"`
}

type GeneratedForm struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Fields      []GeneratedField `json:"fields"`
}

const formSchema = `
{
  "title": "string",
  "description": "string",
  "fields": [
    {"key":"snake_case_key","question":"string","type":"text|email|number|phone|date|select|textarea|rating","required":true,"validation":{"options":["only for select"]}}
  ]
}`

// GenerateForm turns a natural-language description into a form definition.
// The model is forced into JSON-only output and the result is decoded and
// checked before it reaches the caller.
func (s *Service) GenerateForm(ctx context.Context, prompt string) (*GeneratedForm, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt must not be empty")
	}

	instruction := fmt.Sprintf(`You are building a conversational form. Return **JSON only** that exactly matches the schema below.
Use 3-10 fields, snake_case keys, one clear question per field, and only the listed input types.

Schema (match keys exactly):
%s

Form description:
%s`, formSchema, prompt)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: instruction},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("form generation failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("form generation returned no choices")
	}

	var form GeneratedForm
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &form); err != nil {
		return nil, fmt.Errorf("could not parse generated form: %v", err)
	}
	if form.Title == "" || len(form.Fields) == 0 {
		return nil, fmt.Errorf("generated form is incomplete")
	}
	for i := range form.Fields {
		if form.Fields[i].Key == "" {
			return nil, fmt.Errorf("generated field %d has no key", i)
		}
	}

	return &form, nil
}

type AnswerCheck struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ValidateAnswer asks the model whether a free-text answer satisfies a
// field's question and rule.
func (s *Service) ValidateAnswer(ctx context.Context, question, rule, answer string) (*AnswerCheck, error) {
	instruction := fmt.Sprintf(`Return **JSON only**: {"valid": true|false, "reason": "short explanation when invalid"}.

Question: %s
Validation rule: %s
Answer: %s`, question, rule, answer)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: instruction},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("answer validation failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("answer validation returned no choices")
	}

	var check AnswerCheck
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &check); err != nil {
		return nil, fmt.Errorf("could not parse validation result: %v", err)
	}

	return &check, nil
}

// ParseSubmission extracts values for the given field keys from free text,
// e.g. a pasted email or chat transcript. Missing fields come back empty.
func (s *Service) ParseSubmission(ctx context.Context, keys []string, rawText string) (map[string]string, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("no field keys given")
	}

	instruction := fmt.Sprintf(`Extract values for these field keys from the text below. Return **JSON only**, one string value per key, empty string when the text has no value for a key.

Keys: %s

Text:
%s`, strings.Join(keys, ", "), rawText)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: instruction},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("submission parsing failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("submission parsing returned no choices")
	}

	var parsed map[string]string
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("could not parse extraction result: %v", err)
	}

	return parsed, nil
}
