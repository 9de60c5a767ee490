package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/bprzybysz/integra/internal/store"
)

// Local is the SQLite-backed ledger. Labels are stored as a JSON array on
// the task row.
type Local struct {
	db *store.DB
}

// NewLocal returns a ledger backed by the given store.
func NewLocal(db *store.DB) *Local {
	return &Local{db: db}
}

// CreateTask opens a task, assigning an id when the caller left it empty.
func (l *Local) CreateTask(t *Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	labels, err := json.Marshal(t.Labels)
	if err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}
	return l.db.CreateTask(&store.TaskRow{ID: t.ID, Title: t.Title, Labels: string(labels)})
}

// CloseTask settles a task with its closing day and final labels.
func (l *Local) CloseTask(id, day string, labels []string) error {
	encoded, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}
	return l.db.CloseTaskRow(id, day, string(encoded))
}

// Task returns a task by id, or nil.
func (l *Local) Task(id string) (*Task, error) {
	row, err := l.db.GetTask(id)
	if err != nil || row == nil {
		return nil, err
	}
	return fromRow(row)
}

// OpenTasks returns tasks not yet closed.
func (l *Local) OpenTasks() ([]Task, error) {
	rows, err := l.db.OpenTasks()
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

// ClosedTasksBetween returns tasks closed in the inclusive day range.
func (l *Local) ClosedTasksBetween(fromDay, toDay string) ([]Task, error) {
	rows, err := l.db.ClosedTasksBetween(fromDay, toDay)
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

// AllClosedTasks returns every settled task.
func (l *Local) AllClosedTasks() ([]Task, error) {
	rows, err := l.db.AllClosedTasks()
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

func fromRow(row *store.TaskRow) (*Task, error) {
	var labels []string
	if err := json.Unmarshal([]byte(row.Labels), &labels); err != nil {
		return nil, fmt.Errorf("decode labels for %s: %w", row.ID, err)
	}
	return &Task{ID: row.ID, Title: row.Title, Labels: labels, ClosedDay: row.ClosedDay}, nil
}

func fromRows(rows []store.TaskRow) ([]Task, error) {
	tasks := make([]Task, 0, len(rows))
	for i := range rows {
		t, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, nil
}
