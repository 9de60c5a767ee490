package store

import (
	"testing"
)

func TestGraceAvailableClamps(t *testing.T) {
	tests := []struct {
		name     string
		earned   int
		consumed int
		want     int
	}{
		{"nothing earned", 0, 0, 0},
		{"one banked", 1, 0, 1},
		{"partially spent", 2, 1, 1},
		{"overspent floors at zero", 1, 2, 0},
		{"cap at three", 7, 0, 3},
		{"cap after spending", 7, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &StreakState{GraceEarned: tt.earned, GraceConsumed: tt.consumed}
			if got := s.GraceAvailable(); got != tt.want {
				t.Errorf("GraceAvailable() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStreakStateRoundTrip(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	s, err := db.GetStreakState("exercise")
	if err != nil {
		t.Fatalf("GetStreakState: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil before first write, got %+v", s)
	}

	in := &StreakState{
		Habit:          "exercise",
		StreakLength:   12,
		GraceEarned:    1,
		GraceConsumed:  0,
		LastAppliedDay: "2026-01-16",
	}
	if err := db.PutStreakState(in); err != nil {
		t.Fatalf("PutStreakState: %v", err)
	}

	out, err := db.GetStreakState("exercise")
	if err != nil {
		t.Fatalf("GetStreakState: %v", err)
	}
	if out == nil {
		t.Fatal("expected state, got nil")
	}
	if out.StreakLength != 12 {
		t.Errorf("StreakLength = %d, want 12", out.StreakLength)
	}
	if out.LastAppliedDay != "2026-01-16" {
		t.Errorf("LastAppliedDay = %s, want 2026-01-16", out.LastAppliedDay)
	}

	// Second put replaces
	in.StreakLength = 0
	in.GraceConsumed = 1
	in.LastAppliedDay = "2026-01-17"
	if err := db.PutStreakState(in); err != nil {
		t.Fatalf("PutStreakState update: %v", err)
	}
	out, _ = db.GetStreakState("exercise")
	if out.StreakLength != 0 || out.GraceConsumed != 1 {
		t.Errorf("after update: length=%d consumed=%d, want 0 and 1", out.StreakLength, out.GraceConsumed)
	}
}

func TestAllStreakStates(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.PutStreakState(&StreakState{Habit: "sleep_target", StreakLength: 3})
	db.PutStreakState(&StreakState{Habit: "exercise", StreakLength: 7})

	states, err := db.AllStreakStates()
	if err != nil {
		t.Fatalf("AllStreakStates: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("got %d states, want 2", len(states))
	}
	if states[0].Habit != "exercise" || states[1].Habit != "sleep_target" {
		t.Errorf("order = %s, %s, want exercise, sleep_target", states[0].Habit, states[1].Habit)
	}
}
