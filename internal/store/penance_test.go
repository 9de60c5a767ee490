package store

import (
	"strings"
	"testing"
)

func testPenance(id, behavior, day string) *PenanceRecord {
	return &PenanceRecord{
		ID:         id,
		Behavior:   behavior,
		Day:        day,
		UnitsOver:  2,
		Relapses:   1,
		Severity:   "standard",
		Status:     PenanceProposed,
		Options:    `["option a","option b"]`,
		ApprovalID: "ap-" + id,
	}
}

func TestCreateAndGetPenance(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if err := db.CreatePenance(testPenance("pn-001", "x", "2026-01-05")); err != nil {
		t.Fatalf("CreatePenance: %v", err)
	}

	p, err := db.GetPenance("pn-001")
	if err != nil {
		t.Fatalf("GetPenance: %v", err)
	}
	if p == nil {
		t.Fatal("expected penance, got nil")
	}
	if p.Severity != "standard" {
		t.Errorf("Severity = %s, want standard", p.Severity)
	}
	if p.Status != PenanceProposed {
		t.Errorf("Status = %s, want proposed", p.Status)
	}

	byDay, err := db.GetPenanceForDay("x", "2026-01-05")
	if err != nil {
		t.Fatalf("GetPenanceForDay: %v", err)
	}
	if byDay == nil || byDay.ID != "pn-001" {
		t.Errorf("GetPenanceForDay = %+v, want pn-001", byDay)
	}
}

func TestCreatePenanceDuplicateDay(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.CreatePenance(testPenance("pn-001", "x", "2026-01-05"))
	if err := db.CreatePenance(testPenance("pn-002", "x", "2026-01-05")); err == nil {
		t.Error("expected error for second penance on same (behavior, day)")
	}
}

func TestPenanceApprovalFlow(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.CreatePenance(testPenance("pn-001", "x", "2026-01-05"))

	if err := db.MarkPenanceApproved("pn-001", 1, "task-9", "task-10"); err != nil {
		t.Fatalf("MarkPenanceApproved: %v", err)
	}

	p, _ := db.GetPenance("pn-001")
	if p.Status != PenanceApproved {
		t.Errorf("Status = %s, want approved", p.Status)
	}
	if p.Chosen == nil || *p.Chosen != 1 {
		t.Errorf("Chosen = %v, want 1", p.Chosen)
	}
	if p.TaskID != "task-9" || p.DiaryTaskID != "task-10" {
		t.Errorf("tasks = %s, %s, want task-9, task-10", p.TaskID, p.DiaryTaskID)
	}
	if p.ResolvedAt == nil {
		t.Error("ResolvedAt should be set")
	}

	// A settled penance cannot be approved again
	if err := db.MarkPenanceApproved("pn-001", 0, "t", "t"); err == nil {
		t.Error("expected error approving an already-approved penance")
	} else if !strings.Contains(err.Error(), "no open penance") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPenanceUnresolvedThenReProposed(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.CreatePenance(testPenance("pn-001", "x", "2026-01-05"))

	if err := db.MarkPenanceUnresolved("pn-001"); err != nil {
		t.Fatalf("MarkPenanceUnresolved: %v", err)
	}
	p, _ := db.GetPenance("pn-001")
	if p.Status != PenanceUnresolved {
		t.Errorf("Status = %s, want unresolved", p.Status)
	}

	// Re-propose with a fresh approval
	if err := db.SetPenanceApproval("pn-001", "ap-retry"); err != nil {
		t.Fatalf("SetPenanceApproval: %v", err)
	}
	p, _ = db.GetPenance("pn-001")
	if p.Status != PenanceProposed || p.ApprovalID != "ap-retry" {
		t.Errorf("after re-propose: status=%s approval=%s, want proposed and ap-retry", p.Status, p.ApprovalID)
	}

	// An unresolved penance can still be approved on the retry
	db.MarkPenanceUnresolved("pn-001")
	if err := db.MarkPenanceApproved("pn-001", 0, "task-1", "task-2"); err != nil {
		t.Fatalf("MarkPenanceApproved from unresolved: %v", err)
	}
}

func TestPenancesByStatus(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.CreatePenance(testPenance("pn-001", "x", "2026-01-05"))
	db.CreatePenance(testPenance("pn-002", "k", "2026-01-06"))
	db.MarkPenanceDeclined("pn-001")

	proposed, err := db.PenancesByStatus(PenanceProposed)
	if err != nil {
		t.Fatalf("PenancesByStatus: %v", err)
	}
	if len(proposed) != 1 || proposed[0].ID != "pn-002" {
		t.Errorf("proposed = %+v, want only pn-002", proposed)
	}
}
