package notify

import (
	"context"
	"log"
	"strings"
)

// Console writes messages to the daemon log. Default provider; useful for
// local runs and as a fallback when no transport is configured.
type Console struct{}

// NewConsole creates a console messenger.
func NewConsole() *Console {
	return &Console{}
}

// SendMessage logs the message.
func (c *Console) SendMessage(ctx context.Context, m Message) error {
	log.Printf("[%s] %s", m.Tone, m.Text)
	return nil
}

// RequestApproval logs the options. Console has no answer channel; the user
// resolves via `integra approvals`.
func (c *Console) RequestApproval(ctx context.Context, req ApprovalRequest) error {
	log.Printf("[approval %s] %s options: %s", req.ID, req.Prompt, strings.Join(req.Options, " | "))
	return nil
}
