// Package history parses exported tracking data for bulk import. The input
// is JSONL with one record per line; field names and value types drifted
// across export versions, so parsing is tolerant: every recognizable record
// is normalized, everything else is counted and skipped.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Record is one normalized history line.
type Record struct {
	Kind string // "usage" or "habit"
	Day  string // YYYY-MM-DD

	// Usage fields.
	Behavior string
	Amount   float64
	Unit     string
	At       time.Time
	Note     string
	Hungry   bool
	Angry    bool
	Lonely   bool
	Tired    bool
	Craving  *int64

	// Habit fields.
	Habit       string
	Completed   bool
	DurationMin int
}

// Result is a parsed import file.
type Result struct {
	Records  []Record
	Skipped  int
	FirstDay string
	LastDay  string
}

// line mirrors the union of field names seen across export versions. Numeric
// fields stay raw because older exports wrote them as strings.
type line struct {
	Type        string          `json:"type"`
	Behavior    string          `json:"behavior"`
	Substance   string          `json:"substance"`
	Habit       string          `json:"habit"`
	Amount      json.RawMessage `json:"amount"`
	Unit        string          `json:"unit"`
	Timestamp   string          `json:"timestamp"`
	Day         string          `json:"day"`
	Date        string          `json:"date"`
	Completed   json.RawMessage `json:"completed"`
	DurationMin json.RawMessage `json:"duration_min"`
	Note        string          `json:"note"`
	Notes       string          `json:"notes"`
	Hungry      bool            `json:"hungry"`
	Angry       bool            `json:"angry"`
	Lonely      bool            `json:"lonely"`
	Tired       bool            `json:"tired"`
	Craving     json.RawMessage `json:"craving"`
}

// ParseFile reads a JSONL export and returns the normalized records in file
// order. Times without a zone are interpreted in loc.
func ParseFile(path string, loc *time.Location) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	res := &Result{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line buffer

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		rec, err := parseLine(raw, loc)
		if err != nil {
			res.Skipped++
			continue
		}
		if rec != nil {
			res.add(*rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return res, nil
}

// ParseLines parses export content from a string (for testing).
func ParseLines(content string, loc *time.Location) (*Result, error) {
	res := &Result{}
	for _, l := range strings.Split(content, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		rec, err := parseLine([]byte(l), loc)
		if err != nil {
			res.Skipped++
			continue
		}
		if rec != nil {
			res.add(*rec)
		}
	}
	return res, nil
}

func (r *Result) add(rec Record) {
	r.Records = append(r.Records, rec)
	if r.FirstDay == "" || rec.Day < r.FirstDay {
		r.FirstDay = rec.Day
	}
	if rec.Day > r.LastDay {
		r.LastDay = rec.Day
	}
}

func parseLine(raw []byte, loc *time.Location) (*Record, error) {
	var l line
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}

	behavior := l.Behavior
	if behavior == "" {
		behavior = l.Substance
	}
	kind := l.Type
	if kind == "" || kind == "intake" || kind == "addiction-therapy" {
		// Older exports had no type field; infer from what is present.
		switch {
		case behavior != "":
			kind = "usage"
		case l.Habit != "":
			kind = "habit"
		}
	}

	switch kind {
	case "usage":
		if behavior == "" {
			return nil, fmt.Errorf("usage record without behavior")
		}
		at, day, err := parseWhen(l, loc)
		if err != nil {
			return nil, err
		}
		amount, err := parseNumber(l.Amount)
		if err != nil {
			return nil, fmt.Errorf("amount: %w", err)
		}
		note := l.Note
		if note == "" {
			note = l.Notes
		}
		rec := &Record{
			Kind:     "usage",
			Day:      day,
			Behavior: behavior,
			Amount:   amount,
			Unit:     l.Unit,
			At:       at,
			Note:     note,
			Hungry:   l.Hungry,
			Angry:    l.Angry,
			Lonely:   l.Lonely,
			Tired:    l.Tired,
		}
		if len(l.Craving) > 0 && string(l.Craving) != "null" {
			c, err := parseNumber(l.Craving)
			if err != nil {
				return nil, fmt.Errorf("craving: %w", err)
			}
			v := int64(c)
			rec.Craving = &v
		}
		return rec, nil

	case "habit":
		if l.Habit == "" {
			return nil, fmt.Errorf("habit record without habit")
		}
		_, day, err := parseWhen(l, loc)
		if err != nil {
			return nil, err
		}
		completed, err := parseFlag(l.Completed)
		if err != nil {
			return nil, fmt.Errorf("completed: %w", err)
		}
		rec := &Record{
			Kind:      "habit",
			Day:       day,
			Habit:     l.Habit,
			Completed: completed,
		}
		if len(l.DurationMin) > 0 && string(l.DurationMin) != "null" {
			d, err := parseNumber(l.DurationMin)
			if err != nil {
				return nil, fmt.Errorf("duration_min: %w", err)
			}
			rec.DurationMin = int(d)
		}
		return rec, nil
	}
	// Supplement, dietary, and other record kinds are out of scope here.
	return nil, nil
}

// parseWhen resolves a record's moment and day. Day-level fields win over the
// timestamp; a bare day is anchored at noon so week math never straddles
// midnight.
func parseWhen(l line, loc *time.Location) (time.Time, string, error) {
	day := l.Day
	if day == "" {
		day = l.Date
	}
	if day != "" {
		d, err := time.ParseInLocation("2006-01-02", day, loc)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("day %q: %w", day, err)
		}
		return d.Add(12 * time.Hour), day, nil
	}
	if l.Timestamp == "" {
		return time.Time{}, "", fmt.Errorf("record without day or timestamp")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, l.Timestamp, loc); err == nil {
			t = t.In(loc)
			return t, t.Format("2006-01-02"), nil
		}
	}
	return time.Time{}, "", fmt.Errorf("unparseable timestamp %q", l.Timestamp)
}

// parseNumber accepts a JSON number or a numeric string. Older exports wrote
// amounts as strings, some with the unit glued on ("2.5 g").
func parseNumber(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("neither number nor string: %s", raw)
	}
	s = strings.TrimSpace(s)
	if i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != '-'
	}); i > 0 {
		s = strings.TrimSpace(s[:i])
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed number %q", s)
	}
	return n, nil
}

// parseFlag accepts a JSON bool, 0/1, or a handful of string spellings.
func parseFlag(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, fmt.Errorf("neither bool, number nor string: %s", raw)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "done", "1":
		return true, nil
	case "false", "no", "missed", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("malformed flag %q", s)
}

// CountKind returns how many records of one kind the result holds.
func CountKind(records []Record, kind string) int {
	count := 0
	for _, r := range records {
		if r.Kind == kind {
			count++
		}
	}
	return count
}
