// Package ledger is the task-ledger boundary. Tasks are opaque records
// addressable by id; all classification travels in labels (origin:*,
// nature:*, category:*, score:N) so any issue tracker can sit behind the
// interface.
package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Task origins.
const (
	OriginPlanned     = "planned"
	OriginUserRequest = "user-request"
	OriginChoice      = "choice"
	OriginPenance     = "penance"
	OriginDiary       = "diary"
)

// Task natures.
const (
	NatureJob    = "job"
	NatureReward = "reward"
)

// ErrNoScore marks a closed task whose score label is missing. Aggregation
// skips such tasks with a warning instead of failing.
var ErrNoScore = errors.New("no score label")

// Task is one ledger record. ClosedDay is empty while the task is open.
type Task struct {
	ID        string
	Title     string
	Labels    []string
	ClosedDay string
}

// Closed reports whether the task has been settled.
func (t *Task) Closed() bool { return t.ClosedDay != "" }

// Ledger is the narrow read/append surface the engine uses. Implementations
// persist however they like; the engine only sees ids, labels, and days.
type Ledger interface {
	CreateTask(t *Task) error
	CloseTask(id, day string, labels []string) error
	Task(id string) (*Task, error)
	OpenTasks() ([]Task, error)
	ClosedTasksBetween(fromDay, toDay string) ([]Task, error)
	AllClosedTasks() ([]Task, error)
}

// Facets is the label-decoded classification of a task.
type Facets struct {
	Origin   string
	Nature   string
	Category string
	Score    int
}

// Format renders the facet labels, skipping empty facets. The score label is
// appended separately at close time via ScoreLabel.
func (f Facets) Format() []string {
	var labels []string
	if f.Origin != "" {
		labels = append(labels, "origin:"+f.Origin)
	}
	if f.Nature != "" {
		labels = append(labels, "nature:"+f.Nature)
	}
	if f.Category != "" {
		labels = append(labels, "category:"+f.Category)
	}
	return labels
}

// ScoreLabel renders a final score as a ledger label.
func ScoreLabel(score int) string {
	return "score:" + strconv.Itoa(score)
}

// Parse extracts facets from a task's labels. Labels without a colon and
// unknown prefixes are ignored. A missing score label returns ErrNoScore; a
// non-numeric or negative one returns a parse error.
func Parse(labels []string) (Facets, error) {
	var f Facets
	scored := false
	for _, label := range labels {
		key, value, ok := strings.Cut(label, ":")
		if !ok {
			continue
		}
		switch key {
		case "origin":
			f.Origin = value
		case "nature":
			f.Nature = value
		case "category":
			f.Category = value
		case "score":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return f, fmt.Errorf("malformed score label %q", label)
			}
			f.Score = n
			scored = true
		}
	}
	if !scored {
		return f, ErrNoScore
	}
	return f, nil
}
