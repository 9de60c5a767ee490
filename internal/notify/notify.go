// Package notify is the messaging boundary. The engine emits abstract
// messages and approval requests; providers decide how they reach the user.
package notify

import (
	"context"
	"fmt"

	"github.com/bprzybysz/integra/internal/config"
)

// Message tones, matched to the advisor's daily standing.
const (
	ToneSupportive  = "supportive"
	ToneSteady      = "steady"
	ToneCelebratory = "celebratory"
	ToneWarning     = "warning"
)

// Message is one outbound coaching message. MilestoneID is set only on
// milestone announcements so transports can thread or pin them.
type Message struct {
	Tone        string `json:"tone"`
	Text        string `json:"text"`
	MilestoneID string `json:"milestone_id,omitempty"`
}

// ApprovalRequest asks the user to pick among options. The answer comes back
// asynchronously through the approvals API, never through the transport.
type ApprovalRequest struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// Messenger is the interface for message transports.
type Messenger interface {
	SendMessage(ctx context.Context, m Message) error
	RequestApproval(ctx context.Context, req ApprovalRequest) error
}

// NewMessenger creates a messenger based on the config provider setting.
func NewMessenger(cfg config.NotifyConfig) (Messenger, error) {
	switch cfg.Provider {
	case "console", "":
		return NewConsole(), nil
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("webhook provider requires INTEGRA_WEBHOOK_URL or config")
		}
		return NewWebhook(cfg.WebhookURL), nil
	case "mock":
		return &Mock{}, nil
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Provider)
	}
}
