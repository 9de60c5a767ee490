package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Behavior tiers. The tier decides which quota rules apply.
const (
	TierAddictionTherapy = "addiction-therapy"
	TierControlledUse    = "controlled-use"
	TierQuota            = "quota"
)

// HealthyCategory marks habits that participate in streak mechanics.
const HealthyCategory = "healthy"

// BehaviorDefinition describes one regulated behavior. Immutable.
type BehaviorDefinition struct {
	ID          string  `yaml:"id"`
	Tier        string  `yaml:"tier"`
	Unit        string  `yaml:"unit"`
	QuotaWeek0  float64 `yaml:"quota_week_0"`
	DecayFactor float64 `yaml:"decay_factor"`

	// WorkHours blocks use inside [Start, End) local hours. Nil disables
	// the gate. Only meaningful for controlled-use.
	WorkHours *WorkHours `yaml:"work_hours,omitempty"`

	// CooldownHours is the minimum gap between intakes. Zero disables.
	CooldownHours int `yaml:"cooldown_hours,omitempty"`

	// Rules is the human-readable rule summary echoed in coaching messages.
	Rules string `yaml:"rules,omitempty"`

	// TrackingStart (YYYY-MM-DD) overrides the global quota anchor for this
	// behavior.
	TrackingStart string `yaml:"tracking_start,omitempty"`
}

type WorkHours struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// Cooldown returns the cooldown gate as a duration.
func (b BehaviorDefinition) Cooldown() time.Duration {
	return time.Duration(b.CooldownHours) * time.Hour
}

// HabitDefinition describes one tracked habit. Immutable.
type HabitDefinition struct {
	ID       string `yaml:"id"`
	Category string `yaml:"category"`
	Cadence  string `yaml:"cadence"`
}

// Healthy reports whether the habit participates in streak mechanics.
func (h HabitDefinition) Healthy() bool {
	return h.Category == HealthyCategory
}

// Catalog is the full set of behavior and habit definitions.
type Catalog struct {
	Behaviors []BehaviorDefinition `yaml:"behaviors"`
	Habits    []HabitDefinition    `yaml:"habits"`
}

// DefaultCatalog returns the built-in definitions.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Behaviors: []BehaviorDefinition{
			{ID: "3-cmc", Tier: TierAddictionTherapy, Unit: "g", QuotaWeek0: 10.0, DecayFactor: 0.85},
			{ID: "k", Tier: TierAddictionTherapy, Unit: "g", QuotaWeek0: 5.0, DecayFactor: 0.85},
			{ID: "x", Tier: TierAddictionTherapy, Unit: "unit", QuotaWeek0: 2.0, DecayFactor: 0.80},
			{ID: "thc", Tier: TierAddictionTherapy, Unit: "g", QuotaWeek0: 14.0, DecayFactor: 0.90},
			{
				ID:            "bcd",
				Tier:          TierControlledUse,
				Unit:          "dose",
				QuotaWeek0:    28.0,
				DecayFactor:   1.0,
				WorkHours:     &WorkHours{Start: 9, End: 17},
				CooldownHours: 2,
				Rules:         "not during work hours (09-17), 2h cooldown between uses, skip on a high HALT score",
			},
		},
		Habits: []HabitDefinition{
			{ID: "exercise", Category: HealthyCategory, Cadence: "daily"},
			{ID: "supplements", Category: HealthyCategory, Cadence: "daily"},
			{ID: "sleep_target", Category: HealthyCategory, Cadence: "daily"},
			{ID: "coding_drill", Category: HealthyCategory, Cadence: "daily"},
		},
	}
}

// LoadCatalogFile reads a YAML catalog. The file fully replaces the built-in
// definitions; it is not merged with them.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &cat, nil
}

// Behavior looks up a behavior definition by id, case-insensitively.
func (c *Catalog) Behavior(id string) (BehaviorDefinition, bool) {
	key := strings.ToLower(strings.TrimSpace(id))
	for _, b := range c.Behaviors {
		if strings.ToLower(b.ID) == key {
			return b, true
		}
	}
	return BehaviorDefinition{}, false
}

// Habit looks up a habit definition by id, case-insensitively.
func (c *Catalog) Habit(id string) (HabitDefinition, bool) {
	key := strings.ToLower(strings.TrimSpace(id))
	for _, h := range c.Habits {
		if strings.ToLower(h.ID) == key {
			return h, true
		}
	}
	return HabitDefinition{}, false
}

// HealthyHabits returns the habits that participate in streak mechanics.
func (c *Catalog) HealthyHabits() []HabitDefinition {
	var out []HabitDefinition
	for _, h := range c.Habits {
		if h.Healthy() {
			out = append(out, h)
		}
	}
	return out
}

// Validate checks catalog consistency: unique non-empty ids, known tiers,
// sane quota parameters, decay pinned to 1.0 outside addiction-therapy.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool)
	for _, b := range c.Behaviors {
		if b.ID == "" {
			return fmt.Errorf("behavior with empty id")
		}
		key := strings.ToLower(b.ID)
		if seen[key] {
			return fmt.Errorf("duplicate behavior id %q", b.ID)
		}
		seen[key] = true

		switch b.Tier {
		case TierAddictionTherapy, TierControlledUse, TierQuota:
		default:
			return fmt.Errorf("behavior %q: unknown tier %q", b.ID, b.Tier)
		}
		if b.QuotaWeek0 < 0 {
			return fmt.Errorf("behavior %q: negative quota_week_0", b.ID)
		}
		if b.DecayFactor <= 0 || b.DecayFactor > 1 {
			return fmt.Errorf("behavior %q: decay_factor %v out of (0, 1]", b.ID, b.DecayFactor)
		}
		if b.Tier != TierAddictionTherapy && b.DecayFactor != 1.0 {
			return fmt.Errorf("behavior %q: decay_factor must be 1.0 for tier %s", b.ID, b.Tier)
		}
		if b.WorkHours != nil {
			wh := b.WorkHours
			if wh.Start < 0 || wh.End > 24 || wh.Start >= wh.End {
				return fmt.Errorf("behavior %q: invalid work_hours %d-%d", b.ID, wh.Start, wh.End)
			}
		}
		if b.CooldownHours < 0 {
			return fmt.Errorf("behavior %q: negative cooldown_hours", b.ID)
		}
	}

	seenHabit := make(map[string]bool)
	for _, h := range c.Habits {
		if h.ID == "" {
			return fmt.Errorf("habit with empty id")
		}
		key := strings.ToLower(h.ID)
		if seenHabit[key] {
			return fmt.Errorf("duplicate habit id %q", h.ID)
		}
		seenHabit[key] = true
		if h.Category == "" {
			return fmt.Errorf("habit %q: empty category", h.ID)
		}
	}
	return nil
}
