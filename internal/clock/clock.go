// Package clock resolves instants to the user's calendar: day keys, ISO week
// keys (Monday through Sunday, never a rolling window), and the time-gates
// used by controlled-use rules. All methods are pure and deterministic for a
// given timezone.
package clock

import (
	"fmt"
	"time"
)

// DayFormat is the canonical day key layout (local calendar date).
const DayFormat = "2006-01-02"

// Clock holds the user's fixed timezone.
type Clock struct {
	loc *time.Location
}

// New creates a Clock for the given IANA timezone name.
func New(timezone string) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Clock{loc: loc}, nil
}

// Location returns the clock's timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Day returns the calendar day key (YYYY-MM-DD) for t in the user's timezone.
func (c *Clock) Day(t time.Time) string {
	return t.In(c.loc).Format(DayFormat)
}

// ParseDay parses a day key into midnight local time.
func (c *Clock) ParseDay(day string) (time.Time, error) {
	t, err := time.ParseInLocation(DayFormat, day, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", day, err)
	}
	return t, nil
}

// WeekKey returns the ISO week key (YYYY-Www) for t in the user's timezone.
// Week keys identify Monday-to-Sunday weeks; two instants share a key iff
// they fall in the same ISO week.
func (c *Clock) WeekKey(t time.Time) string {
	year, week := t.In(c.loc).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// WeekKeyOfDay returns the ISO week key containing the given day.
func (c *Clock) WeekKeyOfDay(day string) (string, error) {
	t, err := c.ParseDay(day)
	if err != nil {
		return "", err
	}
	return c.WeekKey(t), nil
}

// WeekStart returns Monday 00:00 local time of the ISO week containing t.
func (c *Clock) WeekStart(t time.Time) time.Time {
	lt := t.In(c.loc)
	offset := (int(lt.Weekday()) + 6) % 7 // Monday-based weekday
	midnight := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
	return midnight.AddDate(0, 0, -offset)
}

// WeekIndex returns the number of whole ISO weeks between the week containing
// start and the week containing t, clamped at zero. Two instants in the same
// ISO week have index 0 regardless of order.
func (c *Clock) WeekIndex(start, t time.Time) int {
	days := daysBetween(c.WeekStart(start), c.WeekStart(t))
	if days < 0 {
		return 0
	}
	return days / 7
}

// DaysBetween counts calendar days from a to b in the user's timezone.
func (c *Clock) DaysBetween(a, b time.Time) int {
	return daysBetween(a.In(c.loc), b.In(c.loc))
}

// daysBetween counts calendar days from a to b. Dates are re-anchored in UTC
// so DST transitions cannot skew the count.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// WeekDays returns the seven day keys of the ISO week identified by key,
// Monday first.
func (c *Clock) WeekDays(key string) ([]string, error) {
	var year, week int
	if _, err := fmt.Sscanf(key, "%d-W%d", &year, &week); err != nil {
		return nil, fmt.Errorf("parse week key %q: %w", key, err)
	}
	if week < 1 || week > 53 {
		return nil, fmt.Errorf("parse week key %q: week out of range", key)
	}

	// January 4th is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, c.loc)
	monday := c.WeekStart(jan4).AddDate(0, 0, (week-1)*7)

	days := make([]string, 7)
	for i := range days {
		days[i] = monday.AddDate(0, 0, i).Format(DayFormat)
	}
	return days, nil
}

// IsWorkHours reports whether t falls inside the [startHour, endHour) local
// window. An empty window (start == end) never matches.
func (c *Clock) IsWorkHours(t time.Time, startHour, endHour int) bool {
	h := t.In(c.loc).Hour()
	return startHour <= h && h < endHour
}

// CooldownElapsed reports whether at least d has passed since last. A zero
// last counts as elapsed.
func (c *Clock) CooldownElapsed(last, t time.Time, d time.Duration) bool {
	if last.IsZero() {
		return true
	}
	return !t.Before(last.Add(d))
}
