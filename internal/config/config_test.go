package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultListenAddr(t *testing.T) {
	cfg := Default()
	if got := cfg.ListenAddr(); got != "127.0.0.1:37113" {
		t.Fatalf("ListenAddr = %q, want 127.0.0.1:37113", got)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("INTEGRA_PORT", "4040")
	t.Setenv("INTEGRA_TZ", "UTC")
	t.Setenv("INTEGRA_CHECKINS", "07:00,19:00")
	t.Setenv("INTEGRA_APPROVAL_TIMEOUT", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 4040 {
		t.Fatalf("Port = %d, want 4040", cfg.Server.Port)
	}
	if cfg.Clock.Timezone != "UTC" {
		t.Fatalf("Timezone = %q, want UTC", cfg.Clock.Timezone)
	}
	if len(cfg.Schedule.CheckIns) != 2 || cfg.Schedule.CheckIns[0] != "07:00" {
		t.Fatalf("CheckIns = %v, want [07:00 19:00]", cfg.Schedule.CheckIns)
	}
	if cfg.Approvals.Timeout != 30*time.Minute {
		t.Fatalf("Timeout = %v, want 30m", cfg.Approvals.Timeout)
	}
	// Untouched values keep their defaults.
	if cfg.Server.Bind != "127.0.0.1" {
		t.Fatalf("Bind = %q, want default", cfg.Server.Bind)
	}
}

func TestLoadNormalizesCheckInTimes(t *testing.T) {
	// The scheduler compares check-in times as strings, so unpadded values
	// must come out of Load zero-padded.
	t.Setenv("INTEGRA_CHECKINS", "8:00, 12:30,21:5")
	t.Setenv("INTEGRA_EVENING_CHECK", "9:30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"08:00", "12:30", "21:05"}
	if len(cfg.Schedule.CheckIns) != len(want) {
		t.Fatalf("CheckIns = %v, want %v", cfg.Schedule.CheckIns, want)
	}
	for i, at := range want {
		if cfg.Schedule.CheckIns[i] != at {
			t.Errorf("CheckIns[%d] = %q, want %q", i, cfg.Schedule.CheckIns[i], at)
		}
	}
	if cfg.Schedule.EveningCheck != "09:30" {
		t.Errorf("EveningCheck = %q, want 09:30", cfg.Schedule.EveningCheck)
	}
}

func TestLoadRejectsBadCheckInTime(t *testing.T) {
	t.Setenv("INTEGRA_CHECKINS", "25:00")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for an out-of-range check-in time")
	}
}

func TestDefaultCatalogIsValid(t *testing.T) {
	cat := DefaultCatalog()
	if err := cat.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(cat.HealthyHabits()) != 4 {
		t.Fatalf("healthy habits = %d, want 4", len(cat.HealthyHabits()))
	}
}

func TestCatalogLookupIsCaseInsensitive(t *testing.T) {
	cat := DefaultCatalog()

	b, ok := cat.Behavior("THC")
	if !ok {
		t.Fatal("Behavior(THC) not found")
	}
	if b.QuotaWeek0 != 14.0 || b.DecayFactor != 0.90 {
		t.Fatalf("thc params = %v/%v, want 14/0.90", b.QuotaWeek0, b.DecayFactor)
	}

	if _, ok := cat.Behavior("unknown"); ok {
		t.Fatal("unknown behavior must not resolve")
	}
	if _, ok := cat.Habit(" Exercise "); !ok {
		t.Fatal("Habit lookup must trim and fold case")
	}
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := `
behaviors:
  - id: gaming
    tier: quota
    unit: hour
    quota_week_0: 10
    decay_factor: 1.0
habits:
  - id: reading
    category: healthy
    cadence: daily
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	cat, err := LoadCatalogFile(path)
	if err != nil {
		t.Fatalf("LoadCatalogFile: %v", err)
	}
	if len(cat.Behaviors) != 1 || cat.Behaviors[0].ID != "gaming" {
		t.Fatalf("behaviors = %+v", cat.Behaviors)
	}
	if _, ok := cat.Behavior("thc"); ok {
		t.Fatal("file catalog must replace built-ins, not merge")
	}
}

func TestCatalogValidation(t *testing.T) {
	tests := []struct {
		name    string
		cat     Catalog
		wantErr string
	}{
		{
			"unknown tier",
			Catalog{Behaviors: []BehaviorDefinition{{ID: "a", Tier: "bad", DecayFactor: 1.0}}},
			"unknown tier",
		},
		{
			"duplicate behavior",
			Catalog{Behaviors: []BehaviorDefinition{
				{ID: "a", Tier: TierQuota, DecayFactor: 1.0},
				{ID: "A", Tier: TierQuota, DecayFactor: 1.0},
			}},
			"duplicate behavior",
		},
		{
			"decay out of range",
			Catalog{Behaviors: []BehaviorDefinition{{ID: "a", Tier: TierAddictionTherapy, DecayFactor: 1.5}}},
			"out of (0, 1]",
		},
		{
			"decay pinned outside addiction-therapy",
			Catalog{Behaviors: []BehaviorDefinition{{ID: "a", Tier: TierQuota, DecayFactor: 0.9}}},
			"must be 1.0",
		},
		{
			"bad work hours",
			Catalog{Behaviors: []BehaviorDefinition{{
				ID: "a", Tier: TierControlledUse, DecayFactor: 1.0,
				WorkHours: &WorkHours{Start: 17, End: 9},
			}}},
			"invalid work_hours",
		},
		{
			"habit without category",
			Catalog{Habits: []HabitDefinition{{ID: "x"}}},
			"empty category",
		},
	}
	for _, tt := range tests {
		err := tt.cat.Validate()
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.wantErr)
		}
	}
}
