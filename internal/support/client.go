// Package support is the HTTP client for the support desk, used by the
// emergency fallback tier to open escalation tickets.
package support

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const defaultTimeout = 15 * time.Second

// Client opens support tickets through the desk API.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a support desk client for the given base URL.
func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Open files a ticket for the session and returns the desk's ticket id. The
// request carries a client-generated reference so a retried call is traceable.
func (c *Client) Open(ctx context.Context, sessionID, summary string) (string, error) {
	if c.BaseURL == "" {
		return "", fmt.Errorf("support: desk URL not configured")
	}
	payload := map[string]interface{}{
		"session_id": sessionID,
		"summary":    summary,
		"reference":  uuid.NewString(),
		"queue":      "device-pairing",
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/tickets", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("support: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	var out struct {
		TicketID string `json:"ticket_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("support: decoding response: %w", err)
	}
	if out.TicketID == "" {
		return "", fmt.Errorf("support: response missing ticket_id")
	}
	return out.TicketID, nil
}
