package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookPayload is the JSON body posted for each part.
type WebhookPayload struct {
	Text  string `json:"text"`
	Part  int    `json:"part"`
	Parts int    `json:"parts"`
}

// Webhook posts each chunk of a payload as JSON to a URL.
type Webhook struct {
	name   string
	url    string
	client *http.Client
}

// NewWebhook returns a Webhook channel. A nil client uses a client with a
// 20 second timeout.
func NewWebhook(name, url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if name == "" {
		name = "webhook"
	}
	return &Webhook{name: name, url: url, client: client}
}

func (w *Webhook) Name() string { return w.name }

// Send posts the parts in order and stops at the first failure.
func (w *Webhook) Send(ctx context.Context, text string) error {
	parts := Chunk(text, ChunkSize)
	for i, p := range parts {
		if err := w.post(ctx, WebhookPayload{Text: p, Part: i + 1, Parts: len(parts)}); err != nil {
			return &ErrSendFailed{Channel: w.name, Platform: "webhook", Part: i + 1, Cause: err}
		}
	}
	return nil
}

func (w *Webhook) post(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
