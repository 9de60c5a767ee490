package store

import (
	"database/sql"
	"fmt"
	"time"
)

// TaskRow is a row in the local ledger. Labels carry the classification
// facets and score as a JSON array of strings.
type TaskRow struct {
	ID        string
	Title     string
	Labels    string
	ClosedDay string
	CreatedAt int64
	UpdatedAt int64
}

// CreateTask inserts an open ledger task.
func (db *DB) CreateTask(t *TaskRow) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO tasks (id, title, labels, closed_day, created_at, updated_at)
		VALUES (?, ?, ?, '', ?, ?)
	`, t.ID, t.Title, t.Labels, now, now)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetTask returns a task by id, or nil.
func (db *DB) GetTask(id string) (*TaskRow, error) {
	var t TaskRow
	err := db.QueryRow(`
		SELECT id, title, labels, closed_day, created_at, updated_at FROM tasks WHERE id = ?
	`, id).Scan(&t.ID, &t.Title, &t.Labels, &t.ClosedDay, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

// CloseTaskRow stamps a task with its closing day and final labels. Closing
// an already-closed task is an error; the ledger is append-only once settled.
func (db *DB) CloseTaskRow(id, day, labels string) error {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		UPDATE tasks SET closed_day = ?, labels = ?, updated_at = ? WHERE id = ? AND closed_day = ''
	`, day, labels, now, id)
	if err != nil {
		return fmt.Errorf("close task %s: %w", id, err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("no open task found for %s", id)
	}
	return nil
}

// OpenTasks returns tasks not yet closed, oldest first.
func (db *DB) OpenTasks() ([]TaskRow, error) {
	rows, err := db.Query(`
		SELECT id, title, labels, closed_day, created_at, updated_at
		FROM tasks WHERE closed_day = '' ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("open tasks: %w", err)
	}
	return collectTasks(rows)
}

// ClosedTasksBetween returns tasks closed in the inclusive day range.
func (db *DB) ClosedTasksBetween(fromDay, toDay string) ([]TaskRow, error) {
	rows, err := db.Query(`
		SELECT id, title, labels, closed_day, created_at, updated_at
		FROM tasks WHERE closed_day != '' AND closed_day >= ? AND closed_day <= ?
		ORDER BY closed_day ASC, created_at ASC
	`, fromDay, toDay)
	if err != nil {
		return nil, fmt.Errorf("closed tasks %s..%s: %w", fromDay, toDay, err)
	}
	return collectTasks(rows)
}

// AllClosedTasks returns every settled task, oldest closing day first.
func (db *DB) AllClosedTasks() ([]TaskRow, error) {
	rows, err := db.Query(`
		SELECT id, title, labels, closed_day, created_at, updated_at
		FROM tasks WHERE closed_day != '' ORDER BY closed_day ASC, created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("closed tasks: %w", err)
	}
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]TaskRow, error) {
	defer rows.Close()
	var tasks []TaskRow
	for rows.Next() {
		var t TaskRow
		if err := rows.Scan(&t.ID, &t.Title, &t.Labels, &t.ClosedDay, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
