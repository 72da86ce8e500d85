package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// VoiceClient places automated calls through the voice gateway API. The
// gateway's text-to-speech reads the provided script to the callee.
type VoiceClient struct {
	APIKey     string
	BaseURL    string
	CallerID   string
	HTTPClient *http.Client
}

// NewVoiceClient returns a client that uses the given API key and optional
// base URL/caller id.
func NewVoiceClient(apiKey, baseURL, callerID string) *VoiceClient {
	if baseURL == "" {
		baseURL = "https://api.voicegateway.example.com/v1/calls"
	}
	return &VoiceClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		CallerID:   callerID,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Call dials phone and has the gateway speak script. Does not log the script.
func (c *VoiceClient) Call(ctx context.Context, toPhone, script string) error {
	if c.APIKey == "" {
		return fmt.Errorf("voice: API key not configured")
	}
	payload := map[string]interface{}{
		"to":     toPhone,
		"script": script,
	}
	if c.CallerID != "" {
		payload["caller_id"] = c.CallerID
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
		return fmt.Errorf("voice: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
