package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const webhookTimeout = 10 * time.Second

// WebhookSender posts notification payloads as JSON to an endpoint URL.
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender creates a webhook sender. A nil client gets a default
// with a bounded timeout.
func NewWebhookSender(client *http.Client) *WebhookSender {
	if client == nil {
		client = &http.Client{Timeout: webhookTimeout}
	}
	return &WebhookSender{client: client}
}

// Send posts the message to the endpoint's configured URL. Network errors
// and 5xx responses are retryable; a missing URL or 4xx response is not.
func (s *WebhookSender) Send(ctx context.Context, endpointMeta map[string]any, message Message) error {
	url, _ := endpointMeta["url"].(string)
	if url == "" {
		return fmt.Errorf("webhook endpoint has no url")
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Retryable(fmt.Errorf("webhook delivery failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Retryable(fmt.Errorf("webhook returned %s", resp.Status))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook rejected payload: %s", resp.Status)
	}
	return nil
}
