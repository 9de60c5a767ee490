package store

import (
	"database/sql"
	"fmt"
	"time"
)

// StreakState is the per-habit streak ledger: current length, the grace bank,
// and the last day already applied so replays never apply a day twice.
type StreakState struct {
	Habit          string
	StreakLength   int
	GraceEarned    int
	GraceConsumed  int
	LastAppliedDay string
	UpdatedAt      int64
}

// GraceAvailable returns the spendable grace balance, clamped to [0, 3].
func (s *StreakState) GraceAvailable() int {
	avail := s.GraceEarned - s.GraceConsumed
	if avail < 0 {
		avail = 0
	}
	if avail > 3 {
		avail = 3
	}
	return avail
}

// GetStreakState returns the habit's state, or nil when none exists yet.
func (db *DB) GetStreakState(habit string) (*StreakState, error) {
	var s StreakState
	err := db.QueryRow(`
		SELECT habit, streak_length, grace_earned, grace_consumed, last_applied_day, updated_at
		FROM streak_states WHERE habit = ?
	`, habit).Scan(&s.Habit, &s.StreakLength, &s.GraceEarned, &s.GraceConsumed, &s.LastAppliedDay, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get streak state %s: %w", habit, err)
	}
	return &s, nil
}

// PutStreakState writes the habit's state, replacing any existing row.
func (db *DB) PutStreakState(s *StreakState) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO streak_states (habit, streak_length, grace_earned, grace_consumed, last_applied_day, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(habit) DO UPDATE SET
			streak_length    = excluded.streak_length,
			grace_earned     = excluded.grace_earned,
			grace_consumed   = excluded.grace_consumed,
			last_applied_day = excluded.last_applied_day,
			updated_at       = excluded.updated_at
	`, s.Habit, s.StreakLength, s.GraceEarned, s.GraceConsumed, s.LastAppliedDay, now)
	if err != nil {
		return fmt.Errorf("put streak state %s: %w", s.Habit, err)
	}
	return nil
}

// AllStreakStates returns every habit's state, ordered by habit id.
func (db *DB) AllStreakStates() ([]StreakState, error) {
	rows, err := db.Query(`
		SELECT habit, streak_length, grace_earned, grace_consumed, last_applied_day, updated_at
		FROM streak_states ORDER BY habit
	`)
	if err != nil {
		return nil, fmt.Errorf("all streak states: %w", err)
	}
	defer rows.Close()

	var states []StreakState
	for rows.Next() {
		var s StreakState
		if err := rows.Scan(&s.Habit, &s.StreakLength, &s.GraceEarned, &s.GraceConsumed, &s.LastAppliedDay, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan streak state: %w", err)
		}
		states = append(states, s)
	}
	return states, rows.Err()
}
