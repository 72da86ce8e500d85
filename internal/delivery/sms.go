// Package delivery holds the HTTP clients for the external delivery
// providers: SMS, voice call, and email. Each client implements the matching
// channel provider interface and never logs the code it carries.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// SMSClient sends verification texts through the SMS gateway API.
type SMSClient struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewSMSClient returns a client that uses the given API key and optional base
// URL/sender.
func NewSMSClient(apiKey, baseURL, sender string) *SMSClient {
	if baseURL == "" {
		baseURL = "https://api.smsgateway.example.com/v2/messages"
	}
	return &SMSClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Send posts the message body to phone. Does not log the body.
func (c *SMSClient) Send(ctx context.Context, toPhone, body string) error {
	if c.APIKey == "" {
		return fmt.Errorf("sms: API key not configured")
	}
	payload := map[string]interface{}{
		"to":   toPhone,
		"body": body,
	}
	if c.Sender != "" {
		payload["sender"] = c.Sender
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
	req.Header.Set("Authorization", c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
