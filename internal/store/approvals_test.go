package store

import (
	"testing"
)

func testApproval(id string, expiresAt int64) *Approval {
	return &Approval{
		ID:          id,
		Kind:        "penance",
		SubjectID:   "pn-001",
		Prompt:      "Relapse logged. Pick a repair task:",
		Options:     `["45 min cardio","NA meeting"]`,
		RequestedAt: 1000,
		ExpiresAt:   expiresAt,
	}
}

func TestApprovalLifecycle(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if err := db.CreateApproval(testApproval("ap-001", 99999)); err != nil {
		t.Fatalf("CreateApproval: %v", err)
	}

	a, err := db.GetApproval("ap-001")
	if err != nil {
		t.Fatalf("GetApproval: %v", err)
	}
	if a == nil {
		t.Fatal("expected approval, got nil")
	}
	if a.Status != ApprovalPending {
		t.Errorf("Status = %s, want pending", a.Status)
	}

	if err := db.ResolveApproval("ap-001", ApprovalApproved); err != nil {
		t.Fatalf("ResolveApproval: %v", err)
	}
	a, _ = db.GetApproval("ap-001")
	if a.Status != ApprovalApproved {
		t.Errorf("Status = %s, want approved", a.Status)
	}
	if a.ResolvedAt == nil {
		t.Error("ResolvedAt should be set")
	}

	// A late answer cannot flip the decision
	if err := db.ResolveApproval("ap-001", ApprovalDenied); err == nil {
		t.Error("expected error resolving an already-resolved approval")
	}
}

func TestResolveApprovalInvalidStatus(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.CreateApproval(testApproval("ap-001", 99999))
	if err := db.ResolveApproval("ap-001", "maybe"); err == nil {
		t.Error("expected error for invalid resolution status")
	}
}

func TestPendingApprovalsOldestFirst(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	late := testApproval("ap-002", 99999)
	late.RequestedAt = 5000
	db.CreateApproval(late)
	early := testApproval("ap-001", 99999)
	early.RequestedAt = 1000
	db.CreateApproval(early)
	resolved := testApproval("ap-003", 99999)
	resolved.RequestedAt = 2000
	db.CreateApproval(resolved)
	db.ResolveApproval("ap-003", ApprovalDenied)

	pending, err := db.PendingApprovals()
	if err != nil {
		t.Fatalf("PendingApprovals: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
	if pending[0].ID != "ap-001" || pending[1].ID != "ap-002" {
		t.Errorf("order = %s, %s, want ap-001, ap-002", pending[0].ID, pending[1].ID)
	}
}

func TestExpireApprovals(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.CreateApproval(testApproval("ap-old", 5000))
	db.CreateApproval(testApproval("ap-fresh", 50000))

	expired, err := db.ExpireApprovals(10000)
	if err != nil {
		t.Fatalf("ExpireApprovals: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "ap-old" {
		t.Fatalf("expired = %+v, want only ap-old", expired)
	}

	a, _ := db.GetApproval("ap-old")
	if a.Status != ApprovalExpired {
		t.Errorf("Status = %s, want expired", a.Status)
	}
	a, _ = db.GetApproval("ap-fresh")
	if a.Status != ApprovalPending {
		t.Errorf("Status = %s, want pending", a.Status)
	}

	// Second sweep finds nothing
	expired, err = db.ExpireApprovals(10000)
	if err != nil {
		t.Fatalf("ExpireApprovals again: %v", err)
	}
	if expired != nil {
		t.Errorf("second sweep = %+v, want nil", expired)
	}

	// An expired approval can no longer be resolved
	if err := db.ResolveApproval("ap-old", ApprovalApproved); err == nil {
		t.Error("expected error resolving an expired approval")
	}
}
