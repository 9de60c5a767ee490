package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "usage_events: one row per behavior per day, with HALT context and outcome",
		SQL: `
CREATE TABLE usage_events (
    id             INTEGER PRIMARY KEY,
    event_id       TEXT NOT NULL UNIQUE,
    behavior       TEXT NOT NULL,
    day            TEXT NOT NULL,
    week_key       TEXT NOT NULL,
    occurred_at    INTEGER NOT NULL,
    amount         REAL NOT NULL,
    unit           TEXT NOT NULL DEFAULT '',

    -- HALT trigger context
    hungry         INTEGER NOT NULL DEFAULT 0,
    angry          INTEGER NOT NULL DEFAULT 0,
    lonely         INTEGER NOT NULL DEFAULT 0,
    tired          INTEGER NOT NULL DEFAULT 0,
    craving        INTEGER,
    note           TEXT NOT NULL DEFAULT '',

    -- last classification outcome for the day
    class          TEXT NOT NULL DEFAULT '' CHECK (class IN ('', 'under', 'at', 'over', 'at_zero', 'gate')),
    score          INTEGER NOT NULL DEFAULT 0,

    created_at     INTEGER NOT NULL,
    updated_at     INTEGER NOT NULL,

    UNIQUE (behavior, day)
);

CREATE INDEX idx_usage_behavior_week ON usage_events(behavior, week_key);
CREATE INDEX idx_usage_day           ON usage_events(day);
`,
	},
	{
		Version:     2,
		Description: "habit_records: one row per habit per day",
		SQL: `
CREATE TABLE habit_records (
    id           INTEGER PRIMARY KEY,
    habit        TEXT NOT NULL,
    day          TEXT NOT NULL,
    completed    INTEGER NOT NULL DEFAULT 0,
    duration_min INTEGER NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL,

    UNIQUE (habit, day)
);

CREATE INDEX idx_habit_day ON habit_records(day);
`,
	},
	{
		Version:     3,
		Description: "streak_states: per-habit streak ledger",
		SQL: `
CREATE TABLE streak_states (
    habit            TEXT PRIMARY KEY,
    streak_length    INTEGER NOT NULL DEFAULT 0,
    grace_earned     INTEGER NOT NULL DEFAULT 0,
    grace_consumed   INTEGER NOT NULL DEFAULT 0,
    last_applied_day TEXT NOT NULL DEFAULT '',
    updated_at       INTEGER NOT NULL
);
`,
	},
	{
		Version:     4,
		Description: "advisor_snapshots and milestones: one snapshot per day, permanent milestone dedup",
		SQL: `
CREATE TABLE advisor_snapshots (
    day          TEXT PRIMARY KEY,
    state        TEXT NOT NULL CHECK (state IN ('STRUGGLING', 'HOLDING', 'THRIVING')),
    misses       INTEGER NOT NULL DEFAULT 0,
    violations   INTEGER NOT NULL DEFAULT 0,
    at_ceiling   INTEGER NOT NULL DEFAULT 0,
    requests     TEXT NOT NULL DEFAULT '[]',
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);

CREATE TABLE milestones (
    id       TEXT PRIMARY KEY,
    fired_on TEXT NOT NULL,
    fired_at INTEGER NOT NULL
);
`,
	},
	{
		Version:     5,
		Description: "penance_records and approvals: HIL-gated escalation state",
		SQL: `
CREATE TABLE penance_records (
    id           TEXT PRIMARY KEY,
    behavior     TEXT NOT NULL,
    day          TEXT NOT NULL,
    units_over   REAL NOT NULL,
    relapses     INTEGER NOT NULL DEFAULT 0,
    severity     TEXT NOT NULL CHECK (severity IN ('minor', 'standard', 'escalated')),
    status       TEXT NOT NULL DEFAULT 'proposed' CHECK (status IN ('proposed', 'approved', 'declined', 'unresolved', 'completed')),
    options      TEXT NOT NULL DEFAULT '[]',
    chosen       INTEGER,
    approval_id  TEXT NOT NULL DEFAULT '',
    task_id      TEXT NOT NULL DEFAULT '',
    diary_task_id TEXT NOT NULL DEFAULT '',
    diary_credit REAL NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL,
    resolved_at  INTEGER,

    UNIQUE (behavior, day)
);

CREATE TABLE approvals (
    id           TEXT PRIMARY KEY,
    kind         TEXT NOT NULL,
    subject_id   TEXT NOT NULL,
    prompt       TEXT NOT NULL DEFAULT '',
    options      TEXT NOT NULL DEFAULT '[]',
    status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'denied', 'expired')),
    requested_at INTEGER NOT NULL,
    expires_at   INTEGER NOT NULL,
    resolved_at  INTEGER
);

CREATE INDEX idx_approvals_status ON approvals(status);
`,
	},
	{
		Version:     6,
		Description: "tasks: local ledger with label-encoded classification",
		SQL: `
CREATE TABLE tasks (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    labels     TEXT NOT NULL DEFAULT '[]',
    closed_day TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX idx_tasks_closed ON tasks(closed_day);
`,
	},
	{
		Version:     7,
		Description: "prompts: resumable scheduled check-in state",
		SQL: `
CREATE TABLE prompts (
    id         TEXT PRIMARY KEY,
    kind       TEXT NOT NULL,
    day        TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'answered', 'deferred')),
    answer     TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,

    UNIQUE (kind, day)
);

CREATE INDEX idx_prompts_status ON prompts(status);
`,
	},
	{
		Version:     8,
		Description: "audit_log: append-only trail of engine actions",
		SQL: `
CREATE TABLE audit_log (
    id         INTEGER PRIMARY KEY,
    at         INTEGER NOT NULL,
    day        TEXT NOT NULL,
    kind       TEXT NOT NULL,
    subject    TEXT NOT NULL DEFAULT '',
    detail     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX idx_audit_day ON audit_log(day);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
