package notify

import "context"

// Mock is a test double for the Messenger interface. It records every call
// so tests can assert on dispatched messages.
type Mock struct {
	Messages  []Message
	Approvals []ApprovalRequest
	Err       error
}

// SendMessage records the message and returns the scripted error.
func (m *Mock) SendMessage(ctx context.Context, msg Message) error {
	m.Messages = append(m.Messages, msg)
	return m.Err
}

// RequestApproval records the request and returns the scripted error.
func (m *Mock) RequestApproval(ctx context.Context, req ApprovalRequest) error {
	m.Approvals = append(m.Approvals, req)
	return m.Err
}
