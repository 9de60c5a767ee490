package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UsageEvent is one behavior's day aggregate: the day's reported total, the
// latest intake time, the HALT context captured with it, and the outcome of
// the last classification. One row per (behavior, day); submissions upsert.
type UsageEvent struct {
	ID         int64
	EventID    string
	Behavior   string
	Day        string
	WeekKey    string
	OccurredAt int64
	Amount     float64
	Unit       string

	Hungry  bool
	Angry   bool
	Lonely  bool
	Tired   bool
	Craving *int64
	Note    string

	Class string
	Score int

	CreatedAt int64
	UpdatedAt int64
}

const usageColumns = `id, event_id, behavior, day, week_key, occurred_at, amount, unit,
	hungry, angry, lonely, tired, craving, note, class, score, created_at, updated_at`

func scanUsage(row interface{ Scan(...any) error }) (*UsageEvent, error) {
	var e UsageEvent
	err := row.Scan(&e.ID, &e.EventID, &e.Behavior, &e.Day, &e.WeekKey, &e.OccurredAt,
		&e.Amount, &e.Unit, &e.Hungry, &e.Angry, &e.Lonely, &e.Tired, &e.Craving,
		&e.Note, &e.Class, &e.Score, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertUsage writes a (behavior, day) row, replacing any existing one.
// Last write wins: amount, intake time, HALT context, and outcome are
// overwritten; the original event_id and created_at survive.
func (db *DB) UpsertUsage(e *UsageEvent) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO usage_events (event_id, behavior, day, week_key, occurred_at, amount, unit,
			hungry, angry, lonely, tired, craving, note, class, score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(behavior, day) DO UPDATE SET
			week_key    = excluded.week_key,
			occurred_at = excluded.occurred_at,
			amount      = excluded.amount,
			unit        = excluded.unit,
			hungry      = excluded.hungry,
			angry       = excluded.angry,
			lonely      = excluded.lonely,
			tired       = excluded.tired,
			craving     = excluded.craving,
			note        = excluded.note,
			class       = excluded.class,
			score       = excluded.score,
			updated_at  = excluded.updated_at
	`, e.EventID, e.Behavior, e.Day, e.WeekKey, e.OccurredAt, e.Amount, e.Unit,
		e.Hungry, e.Angry, e.Lonely, e.Tired, e.Craving, e.Note, e.Class, e.Score, now, now)
	if err != nil {
		return fmt.Errorf("upsert usage %s/%s: %w", e.Behavior, e.Day, err)
	}
	return nil
}

// GetUsage returns the (behavior, day) row, or nil when absent.
func (db *DB) GetUsage(behavior, day string) (*UsageEvent, error) {
	e, err := scanUsage(db.QueryRow(`
		SELECT `+usageColumns+` FROM usage_events WHERE behavior = ? AND day = ?
	`, behavior, day))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get usage %s/%s: %w", behavior, day, err)
	}
	return e, nil
}

// WeekUsage returns a behavior's rows for one ISO week, day ascending.
func (db *DB) WeekUsage(behavior, weekKey string) ([]UsageEvent, error) {
	rows, err := db.Query(`
		SELECT `+usageColumns+` FROM usage_events
		WHERE behavior = ? AND week_key = ? ORDER BY day
	`, behavior, weekKey)
	if err != nil {
		return nil, fmt.Errorf("week usage %s/%s: %w", behavior, weekKey, err)
	}
	defer rows.Close()

	var events []UsageEvent
	for rows.Next() {
		e, err := scanUsage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// UsageForDay returns every behavior's row for one day.
func (db *DB) UsageForDay(day string) ([]UsageEvent, error) {
	rows, err := db.Query(`
		SELECT `+usageColumns+` FROM usage_events WHERE day = ? ORDER BY behavior
	`, day)
	if err != nil {
		return nil, fmt.Errorf("usage for day %s: %w", day, err)
	}
	defer rows.Close()

	var events []UsageEvent
	for rows.Next() {
		e, err := scanUsage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// LastUsage returns the behavior's most recent row by intake time, or nil.
func (db *DB) LastUsage(behavior string) (*UsageEvent, error) {
	e, err := scanUsage(db.QueryRow(`
		SELECT `+usageColumns+` FROM usage_events
		WHERE behavior = ? ORDER BY occurred_at DESC LIMIT 1
	`, behavior))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last usage %s: %w", behavior, err)
	}
	return e, nil
}

// LastUsageBefore returns the behavior's most recent row from any day
// strictly before the given one, or nil. Feeds the cooldown gate when a
// day's total is being corrected rather than extended.
func (db *DB) LastUsageBefore(behavior, day string) (*UsageEvent, error) {
	e, err := scanUsage(db.QueryRow(`
		SELECT `+usageColumns+` FROM usage_events
		WHERE behavior = ? AND day < ? AND amount > 0
		ORDER BY occurred_at DESC LIMIT 1
	`, behavior, day))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last usage before %s/%s: %w", behavior, day, err)
	}
	return e, nil
}

// LastUsedDay returns the behavior's most recent day with a nonzero amount,
// or "" when it was never used.
func (db *DB) LastUsedDay(behavior string) (string, error) {
	var day string
	err := db.QueryRow(`
		SELECT day FROM usage_events
		WHERE behavior = ? AND amount > 0 ORDER BY day DESC LIMIT 1
	`, behavior).Scan(&day)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("last used day %s: %w", behavior, err)
	}
	return day, nil
}

// LastUsedDayThrough returns the behavior's most recent nonzero-amount day
// at or before the given day, or "". Clean-day counts use this so replaying
// an old day never sees usage from its future.
func (db *DB) LastUsedDayThrough(behavior, day string) (string, error) {
	var d string
	err := db.QueryRow(`
		SELECT day FROM usage_events
		WHERE behavior = ? AND amount > 0 AND day <= ? ORDER BY day DESC LIMIT 1
	`, behavior, day).Scan(&d)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("last used day %s through %s: %w", behavior, day, err)
	}
	return d, nil
}

// EarliestUsageDay returns the behavior's first recorded day, or "" when
// there is no history. Used to derive the quota tracking start.
func (db *DB) EarliestUsageDay(behavior string) (string, error) {
	var day string
	err := db.QueryRow(`
		SELECT day FROM usage_events WHERE behavior = ? ORDER BY day LIMIT 1
	`, behavior).Scan(&day)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("earliest usage day %s: %w", behavior, err)
	}
	return day, nil
}

// RelapseDays counts the behavior's at-zero violation days within one ISO
// week. Feeds penance severity.
func (db *DB) RelapseDays(behavior, weekKey string) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM usage_events
		WHERE behavior = ? AND week_key = ? AND class = 'at_zero'
	`, behavior, weekKey).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("relapse days %s/%s: %w", behavior, weekKey, err)
	}
	return count, nil
}
