// Package config holds runtime configuration and the behavior/habit catalog.
// Runtime settings come from defaults overridden by INTEGRA_* environment
// variables; the catalog comes from built-in definitions or a YAML file.
// Both are immutable after load.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all integra runtime configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Notify    NotifyConfig
	Clock     ClockConfig
	Approvals ApprovalsConfig
	Schedule  ScheduleConfig

	// CatalogPath points at a YAML behavior/habit catalog. Empty means the
	// built-in defaults.
	CatalogPath string `env:"INTEGRA_CATALOG"`
}

type ServerConfig struct {
	Bind string `env:"INTEGRA_BIND"`
	Port int    `env:"INTEGRA_PORT"`
}

type DatabaseConfig struct {
	Path string `env:"INTEGRA_DB"`
}

type NotifyConfig struct {
	Provider   string `env:"INTEGRA_NOTIFY"` // "console", "webhook", "mock"
	WebhookURL string `env:"INTEGRA_WEBHOOK_URL"`
}

type ClockConfig struct {
	Timezone string `env:"INTEGRA_TZ"`

	// TrackingStart anchors quota week indexing (YYYY-MM-DD). Empty derives
	// the start from each behavior's earliest recorded event.
	TrackingStart string `env:"INTEGRA_TRACKING_START"`
}

type ApprovalsConfig struct {
	Timeout time.Duration `env:"INTEGRA_APPROVAL_TIMEOUT"`
}

type ScheduleConfig struct {
	// CheckIns are the daily questionnaire trigger times (HH:MM local),
	// morning to night.
	CheckIns []string `env:"INTEGRA_CHECKINS" envSeparator:","`

	// EveningCheck is when the streak-at-risk advisory runs (HH:MM local).
	EveningCheck string `env:"INTEGRA_EVENING_CHECK"`

	// AutoCloseDay runs the advisor for the previous day shortly after
	// midnight when no snapshot exists yet.
	AutoCloseDay bool `env:"INTEGRA_AUTO_CLOSE"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37113,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Notify: NotifyConfig{
			Provider: "console",
		},
		Clock: ClockConfig{
			Timezone: "Europe/Warsaw",
		},
		Approvals: ApprovalsConfig{
			Timeout: 6 * time.Hour,
		},
		Schedule: ScheduleConfig{
			CheckIns:     []string{"08:00", "12:30", "17:30", "21:00"},
			EveningCheck: "20:30",
			AutoCloseDay: true,
		},
	}
}

// Load returns Default() with environment overrides applied.
func Load() (Config, error) {
	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	for i, at := range cfg.Schedule.CheckIns {
		norm, err := normalizeClockTime(at)
		if err != nil {
			return cfg, fmt.Errorf("INTEGRA_CHECKINS: %w", err)
		}
		cfg.Schedule.CheckIns[i] = norm
	}
	if cfg.Schedule.EveningCheck != "" {
		norm, err := normalizeClockTime(cfg.Schedule.EveningCheck)
		if err != nil {
			return cfg, fmt.Errorf("INTEGRA_EVENING_CHECK: %w", err)
		}
		cfg.Schedule.EveningCheck = norm
	}
	return cfg, nil
}

// normalizeClockTime validates an HH:MM value and zero-pads it. The
// scheduler compares these strings lexicographically, which only holds for
// padded values, so "8:00" must become "08:00" here.
func normalizeClockTime(s string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	return t.Format("15:04"), nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
