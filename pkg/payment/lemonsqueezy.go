package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const lemonSqueezyAPI = "https://api.lemonsqueezy.com/v1"

// LemonSqueezyConfig carries the secondary billing provider's credentials.
type LemonSqueezyConfig struct {
	APIKey        string
	StoreID       string
	WebhookSecret string
	SuccessURL    string
}

type LemonSqueezyClient struct {
	cfg  LemonSqueezyConfig
	http *http.Client
}

var GlobalLemonSqueezy *LemonSqueezyClient

func InitLemonSqueezy(cfg LemonSqueezyConfig) {
	GlobalLemonSqueezy = NewLemonSqueezyClient(cfg)
}

func NewLemonSqueezyClient(cfg LemonSqueezyConfig) *LemonSqueezyClient {
	return &LemonSqueezyClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateCheckout creates a hosted checkout for a store variant and returns
// its URL. The user id travels in custom data so the webhook can attribute
// the resulting subscription.
func (c *LemonSqueezyClient) CreateCheckout(variantID string, userID uint, email string) (string, error) {
	body := map[string]interface{}{
		"data": map[string]interface{}{
			"type": "checkouts",
			"attributes": map[string]interface{}{
				"checkout_data": map[string]interface{}{
					"email": email,
					"custom": map[string]string{
						"user_id": fmt.Sprintf("%d", userID),
					},
				},
				"product_options": map[string]interface{}{
					"redirect_url": c.cfg.SuccessURL,
				},
			},
			"relationships": map[string]interface{}{
				"store": map[string]interface{}{
					"data": map[string]string{"type": "stores", "id": c.cfg.StoreID},
				},
				"variant": map[string]interface{}{
					"data": map[string]string{"type": "variants", "id": variantID},
				},
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, lemonSqueezyAPI+"/checkouts", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Content-Type", "application/vnd.api+json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("lemonsqueezy request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("lemonsqueezy checkout failed: status %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		Data struct {
			Attributes struct {
				URL string `json:"url"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("could not parse lemonsqueezy response: %v", err)
	}
	if out.Data.Attributes.URL == "" {
		return "", fmt.Errorf("lemonsqueezy returned no checkout url")
	}

	return out.Data.Attributes.URL, nil
}

// CancelSubscription deletes a subscription on the provider side.
func (c *LemonSqueezyClient) CancelSubscription(subscriptionID string) error {
	req, err := http.NewRequest(http.MethodDelete, lemonSqueezyAPI+"/subscriptions/"+subscriptionID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lemonsqueezy request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("lemonsqueezy cancel failed: status %d: %s", resp.StatusCode, raw)
	}
	return nil
}

// VerifySignature checks the X-Signature header against a fresh HMAC-SHA256
// of the payload. Constant-time compare; any mismatch rejects the event.
func VerifySignature(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
