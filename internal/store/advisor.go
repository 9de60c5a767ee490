package store

import (
	"database/sql"
	"fmt"
	"time"
)

// AdvisorSnapshot is the one-per-day classification result plus the counts
// that produced it and the requests it triggered (JSON).
type AdvisorSnapshot struct {
	Day        string
	State      string
	Misses     int
	Violations int
	AtCeiling  int
	Requests   string
	CreatedAt  int64
	UpdatedAt  int64
}

// GetSnapshot returns the day's snapshot, or nil when the day was never
// closed.
func (db *DB) GetSnapshot(day string) (*AdvisorSnapshot, error) {
	var s AdvisorSnapshot
	err := db.QueryRow(`
		SELECT day, state, misses, violations, at_ceiling, requests, created_at, updated_at
		FROM advisor_snapshots WHERE day = ?
	`, day).Scan(&s.Day, &s.State, &s.Misses, &s.Violations, &s.AtCeiling, &s.Requests, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", day, err)
	}
	return &s, nil
}

// PutSnapshot writes the day's snapshot, replacing it on explicit recompute.
func (db *DB) PutSnapshot(s *AdvisorSnapshot) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO advisor_snapshots (day, state, misses, violations, at_ceiling, requests, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			state      = excluded.state,
			misses     = excluded.misses,
			violations = excluded.violations,
			at_ceiling = excluded.at_ceiling,
			requests   = excluded.requests,
			updated_at = excluded.updated_at
	`, s.Day, s.State, s.Misses, s.Violations, s.AtCeiling, s.Requests, now, now)
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", s.Day, err)
	}
	return nil
}

// RecentSnapshots returns the latest snapshots, newest first.
func (db *DB) RecentSnapshots(limit int) ([]AdvisorSnapshot, error) {
	rows, err := db.Query(`
		SELECT day, state, misses, violations, at_ceiling, requests, created_at, updated_at
		FROM advisor_snapshots ORDER BY day DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []AdvisorSnapshot
	for rows.Next() {
		var s AdvisorSnapshot
		if err := rows.Scan(&s.Day, &s.State, &s.Misses, &s.Violations, &s.AtCeiling, &s.Requests, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// MilestoneFired reports whether a milestone id was ever fired.
func (db *DB) MilestoneFired(id string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM milestones WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check milestone %s: %w", id, err)
	}
	return count > 0, nil
}

// RecordMilestone marks a milestone id as fired. Recording an already-fired
// id is a no-op, so replays cannot fire a milestone twice.
func (db *DB) RecordMilestone(id, day string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT OR IGNORE INTO milestones (id, fired_on, fired_at) VALUES (?, ?, ?)
	`, id, day, now)
	if err != nil {
		return fmt.Errorf("record milestone %s: %w", id, err)
	}
	return nil
}
