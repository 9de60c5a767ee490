package store

import (
	"database/sql"
	"fmt"
	"time"
)

// HabitRecord is one habit's completion record for one day. One row per
// (habit, day); submissions upsert.
type HabitRecord struct {
	ID          int64
	Habit       string
	Day         string
	Completed   bool
	DurationMin int
	CreatedAt   int64
	UpdatedAt   int64
}

// UpsertHabit writes a (habit, day) record, replacing any existing one.
func (db *DB) UpsertHabit(r *HabitRecord) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO habit_records (habit, day, completed, duration_min, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(habit, day) DO UPDATE SET
			completed    = excluded.completed,
			duration_min = excluded.duration_min,
			updated_at   = excluded.updated_at
	`, r.Habit, r.Day, r.Completed, r.DurationMin, now, now)
	if err != nil {
		return fmt.Errorf("upsert habit %s/%s: %w", r.Habit, r.Day, err)
	}
	return nil
}

// GetHabit returns the (habit, day) record, or nil when absent.
func (db *DB) GetHabit(habit, day string) (*HabitRecord, error) {
	var r HabitRecord
	err := db.QueryRow(`
		SELECT id, habit, day, completed, duration_min, created_at, updated_at
		FROM habit_records WHERE habit = ? AND day = ?
	`, habit, day).Scan(&r.ID, &r.Habit, &r.Day, &r.Completed, &r.DurationMin, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get habit %s/%s: %w", habit, day, err)
	}
	return &r, nil
}

// HabitsForDay returns every habit record for one day.
func (db *DB) HabitsForDay(day string) ([]HabitRecord, error) {
	rows, err := db.Query(`
		SELECT id, habit, day, completed, duration_min, created_at, updated_at
		FROM habit_records WHERE day = ? ORDER BY habit
	`, day)
	if err != nil {
		return nil, fmt.Errorf("habits for day %s: %w", day, err)
	}
	defer rows.Close()

	var records []HabitRecord
	for rows.Next() {
		var r HabitRecord
		if err := rows.Scan(&r.ID, &r.Habit, &r.Day, &r.Completed, &r.DurationMin, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan habit record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
