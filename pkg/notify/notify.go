// Package notify delivers out-of-band notices (email relays, chat hooks).
// Delivery is fire-and-forget from the caller's perspective: failures are
// logged, never propagated into request handling.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Message is one notification to a recipient. Context carries free-form
// template values for the relay (contract id, signing URL, reset token, ...).
type Message struct {
	Recipient string            `json:"recipient"`
	Template  string            `json:"template"`
	Context   map[string]string `json:"context,omitempty"`
}

// Dispatcher sends notifications.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// WebhookDispatcher posts messages as JSON to a configured relay URL.
type WebhookDispatcher struct {
	url        string
	httpClient *http.Client
}

// NewWebhookDispatcher creates a dispatcher for the given relay URL.
func NewWebhookDispatcher(url string) *WebhookDispatcher {
	return &WebhookDispatcher{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *WebhookDispatcher) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification relay returned %d", resp.StatusCode)
	}
	return nil
}

// LogDispatcher logs messages instead of delivering them. Used when no relay
// URL is configured.
type LogDispatcher struct{}

func (LogDispatcher) Send(_ context.Context, msg Message) error {
	log.Printf("[notify] %s -> %s (%v)", msg.Template, msg.Recipient, msg.Context)
	return nil
}
