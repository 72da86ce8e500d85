package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MailClient sends verification emails through the transactional mail API.
type MailClient struct {
	APIKey     string
	BaseURL    string
	From       string
	HTTPClient *http.Client
}

// NewMailClient returns a client that uses the given API key and optional
// base URL/from address.
func NewMailClient(apiKey, baseURL, from string) *MailClient {
	if baseURL == "" {
		baseURL = "https://api.mailgateway.example.com/v3/send"
	}
	if from == "" {
		from = "no-reply@pairing.example.com"
	}
	return &MailClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		From:       from,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Send delivers an HTML email to toAddress. Does not log the body.
func (c *MailClient) Send(ctx context.Context, toAddress, subject, htmlBody string) error {
	if c.APIKey == "" {
		return fmt.Errorf("mail: API key not configured")
	}
	payload := map[string]interface{}{
		"from":    c.From,
		"to":      toAddress,
		"subject": subject,
		"html":    htmlBody,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
