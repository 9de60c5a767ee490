package store

import (
	"testing"
)

func TestEnqueuePromptDedup(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if err := db.EnqueuePrompt(&Prompt{ID: "pr-001", Kind: "morning", Day: "2026-01-05"}); err != nil {
		t.Fatalf("EnqueuePrompt: %v", err)
	}
	// Scheduler restart re-enqueues the same slot
	if err := db.EnqueuePrompt(&Prompt{ID: "pr-dup", Kind: "morning", Day: "2026-01-05"}); err != nil {
		t.Fatalf("EnqueuePrompt duplicate: %v", err)
	}

	pending, err := db.PendingPrompts()
	if err != nil {
		t.Fatalf("PendingPrompts: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending, want 1", len(pending))
	}
	if pending[0].ID != "pr-001" {
		t.Errorf("ID = %s, want the original pr-001", pending[0].ID)
	}
}

func TestAnswerPrompt(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.EnqueuePrompt(&Prompt{ID: "pr-001", Kind: "evening", Day: "2026-01-05"})

	if err := db.AnswerPrompt("pr-001", "mood: 6, slept 7h"); err != nil {
		t.Fatalf("AnswerPrompt: %v", err)
	}

	p, err := db.GetPrompt("evening", "2026-01-05")
	if err != nil {
		t.Fatalf("GetPrompt: %v", err)
	}
	if p.Status != PromptAnswered {
		t.Errorf("Status = %s, want answered", p.Status)
	}
	if p.Answer != "mood: 6, slept 7h" {
		t.Errorf("Answer = %q, want recorded answer", p.Answer)
	}

	if err := db.AnswerPrompt("pr-001", "changed my mind"); err == nil {
		t.Error("expected error answering an answered prompt")
	}
}

func TestDeferPromptThenAnswer(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.EnqueuePrompt(&Prompt{ID: "pr-001", Kind: "halt", Day: "2026-01-05"})

	if err := db.DeferPrompt("pr-001"); err != nil {
		t.Fatalf("DeferPrompt: %v", err)
	}
	pending, _ := db.PendingPrompts()
	if len(pending) != 0 {
		t.Errorf("got %d pending after defer, want 0", len(pending))
	}

	// A deferred prompt can still be answered later
	if err := db.AnswerPrompt("pr-001", "late answer"); err != nil {
		t.Fatalf("AnswerPrompt after defer: %v", err)
	}
	p, _ := db.GetPrompt("halt", "2026-01-05")
	if p.Status != PromptAnswered {
		t.Errorf("Status = %s, want answered", p.Status)
	}
}

func TestPendingPromptsOrder(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.EnqueuePrompt(&Prompt{ID: "pr-002", Kind: "morning", Day: "2026-01-06"})
	db.EnqueuePrompt(&Prompt{ID: "pr-001", Kind: "evening", Day: "2026-01-05"})

	pending, err := db.PendingPrompts()
	if err != nil {
		t.Fatalf("PendingPrompts: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
	if pending[0].Day != "2026-01-05" {
		t.Errorf("first pending day = %s, want oldest 2026-01-05", pending[0].Day)
	}
}
