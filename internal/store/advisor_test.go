package store

import (
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	s, err := db.GetSnapshot("2026-01-05")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil for unclosed day, got %+v", s)
	}

	in := &AdvisorSnapshot{
		Day:      "2026-01-05",
		State:    "STRUGGLING",
		Misses:   3,
		Requests: `["reduce_intensity"]`,
	}
	if err := db.PutSnapshot(in); err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}

	out, err := db.GetSnapshot("2026-01-05")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if out == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if out.State != "STRUGGLING" {
		t.Errorf("State = %s, want STRUGGLING", out.State)
	}
	if out.Misses != 3 {
		t.Errorf("Misses = %d, want 3", out.Misses)
	}

	// Recompute replaces the same day
	in.State = "HOLDING"
	in.Misses = 1
	if err := db.PutSnapshot(in); err != nil {
		t.Fatalf("PutSnapshot recompute: %v", err)
	}
	out, _ = db.GetSnapshot("2026-01-05")
	if out.State != "HOLDING" || out.Misses != 1 {
		t.Errorf("after recompute: state=%s misses=%d, want HOLDING and 1", out.State, out.Misses)
	}
}

func TestRecentSnapshotsNewestFirst(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.PutSnapshot(&AdvisorSnapshot{Day: "2026-01-05", State: "HOLDING", Requests: "[]"})
	db.PutSnapshot(&AdvisorSnapshot{Day: "2026-01-07", State: "THRIVING", Requests: "[]"})
	db.PutSnapshot(&AdvisorSnapshot{Day: "2026-01-06", State: "HOLDING", Requests: "[]"})

	snaps, err := db.RecentSnapshots(2)
	if err != nil {
		t.Fatalf("RecentSnapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}
	if snaps[0].Day != "2026-01-07" || snaps[1].Day != "2026-01-06" {
		t.Errorf("order = %s, %s, want 2026-01-07, 2026-01-06", snaps[0].Day, snaps[1].Day)
	}
}

func TestMilestoneFiredOnce(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	fired, err := db.MilestoneFired("streak:exercise:7")
	if err != nil {
		t.Fatalf("MilestoneFired: %v", err)
	}
	if fired {
		t.Error("milestone should not be fired yet")
	}

	if err := db.RecordMilestone("streak:exercise:7", "2026-01-11"); err != nil {
		t.Fatalf("RecordMilestone: %v", err)
	}
	// Replaying the same milestone is a no-op
	if err := db.RecordMilestone("streak:exercise:7", "2026-02-01"); err != nil {
		t.Fatalf("RecordMilestone replay: %v", err)
	}

	fired, err = db.MilestoneFired("streak:exercise:7")
	if err != nil {
		t.Fatalf("MilestoneFired: %v", err)
	}
	if !fired {
		t.Error("milestone should be fired")
	}

	var day string
	if err := db.QueryRow(`SELECT fired_on FROM milestones WHERE id = ?`, "streak:exercise:7").Scan(&day); err != nil {
		t.Fatalf("read milestone: %v", err)
	}
	if day != "2026-01-11" {
		t.Errorf("fired_on = %s, want the original 2026-01-11", day)
	}
}
