package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bprzybysz/integra/internal/config"
)

func TestNewMessengerProviders(t *testing.T) {
	tests := []struct {
		provider string
		wantErr  bool
	}{
		{"console", false},
		{"", false},
		{"mock", false},
		{"webhook", true}, // no URL configured
		{"carrier-pigeon", true},
	}
	for _, tt := range tests {
		_, err := NewMessenger(config.NotifyConfig{Provider: tt.provider})
		if (err != nil) != tt.wantErr {
			t.Errorf("NewMessenger(%q) err = %v, wantErr %v", tt.provider, err, tt.wantErr)
		}
	}
}

func TestWebhookSendMessage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL)
	err := wh.SendMessage(context.Background(), Message{Tone: ToneSteady, Text: "holding"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got["kind"] != "message" {
		t.Errorf("kind = %v, want message", got["kind"])
	}
	msg, ok := got["message"].(map[string]any)
	if !ok || msg["text"] != "holding" {
		t.Errorf("message = %v, want text holding", got["message"])
	}
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL)
	err := wh.RequestApproval(context.Background(), ApprovalRequest{ID: "ap-1", Options: []string{"a"}})
	if err == nil {
		t.Error("expected error on 502 response")
	}
}

func TestMockRecordsCalls(t *testing.T) {
	m := &Mock{}
	m.SendMessage(context.Background(), Message{Tone: ToneCelebratory, Text: "7 days"})
	m.RequestApproval(context.Background(), ApprovalRequest{ID: "ap-1"})

	if len(m.Messages) != 1 || m.Messages[0].Text != "7 days" {
		t.Errorf("Messages = %+v, want one recorded message", m.Messages)
	}
	if len(m.Approvals) != 1 || m.Approvals[0].ID != "ap-1" {
		t.Errorf("Approvals = %+v, want one recorded request", m.Approvals)
	}
}
