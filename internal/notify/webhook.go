package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const webhookTimeout = 5 * time.Second

// Webhook posts messages as JSON to a single endpoint. The receiving bridge
// (chat bot, ntfy relay) owns delivery and the approval UI.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook messenger.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
	}
}

// SendMessage posts the message.
func (w *Webhook) SendMessage(ctx context.Context, m Message) error {
	return w.post(ctx, map[string]any{"kind": "message", "message": m})
}

// RequestApproval posts the approval request.
func (w *Webhook) RequestApproval(ctx context.Context, req ApprovalRequest) error {
	return w.post(ctx, map[string]any{"kind": "approval", "approval": req})
}

func (w *Webhook) post(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", w.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s: status %d: %s", w.url, resp.StatusCode, data)
	}
	return nil
}
