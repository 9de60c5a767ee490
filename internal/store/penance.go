package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Penance statuses.
const (
	PenanceProposed   = "proposed"
	PenanceApproved   = "approved"
	PenanceDeclined   = "declined"
	PenanceUnresolved = "unresolved"
	PenanceCompleted  = "completed"
)

// PenanceRecord tracks one at-zero violation through the HIL gate: the
// violation facts, the proposed options, and the resolution.
type PenanceRecord struct {
	ID          string
	Behavior    string
	Day         string
	UnitsOver   float64
	Relapses    int
	Severity    string
	Status      string
	Options     string
	Chosen      *int64
	ApprovalID  string
	TaskID      string
	DiaryTaskID string
	DiaryCredit float64
	CreatedAt   int64
	ResolvedAt  *int64
}

const penanceColumns = `id, behavior, day, units_over, relapses, severity, status, options,
	chosen, approval_id, task_id, diary_task_id, diary_credit, created_at, resolved_at`

func scanPenance(row interface{ Scan(...any) error }) (*PenanceRecord, error) {
	var p PenanceRecord
	err := row.Scan(&p.ID, &p.Behavior, &p.Day, &p.UnitsOver, &p.Relapses, &p.Severity,
		&p.Status, &p.Options, &p.Chosen, &p.ApprovalID, &p.TaskID, &p.DiaryTaskID,
		&p.DiaryCredit, &p.CreatedAt, &p.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePenance inserts a new penance record. One per (behavior, day); the
// caller checks GetPenanceForDay first.
func (db *DB) CreatePenance(p *PenanceRecord) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO penance_records (id, behavior, day, units_over, relapses, severity, status,
			options, approval_id, diary_credit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Behavior, p.Day, p.UnitsOver, p.Relapses, p.Severity, p.Status,
		p.Options, p.ApprovalID, p.DiaryCredit, now)
	if err != nil {
		return fmt.Errorf("create penance %s/%s: %w", p.Behavior, p.Day, err)
	}
	return nil
}

// GetPenance returns a penance record by id, or nil.
func (db *DB) GetPenance(id string) (*PenanceRecord, error) {
	p, err := scanPenance(db.QueryRow(`
		SELECT `+penanceColumns+` FROM penance_records WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get penance %s: %w", id, err)
	}
	return p, nil
}

// GetPenanceForDay returns the (behavior, day) penance record, or nil.
func (db *DB) GetPenanceForDay(behavior, day string) (*PenanceRecord, error) {
	p, err := scanPenance(db.QueryRow(`
		SELECT `+penanceColumns+` FROM penance_records WHERE behavior = ? AND day = ?
	`, behavior, day))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get penance %s/%s: %w", behavior, day, err)
	}
	return p, nil
}

// PenanceByTask returns the penance record whose repair task or diary
// task matches the given ledger task id, or nil.
func (db *DB) PenanceByTask(taskID string) (*PenanceRecord, error) {
	p, err := scanPenance(db.QueryRow(`
		SELECT `+penanceColumns+` FROM penance_records
		WHERE task_id = ? OR diary_task_id = ?
	`, taskID, taskID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("penance by task %s: %w", taskID, err)
	}
	return p, nil
}

// PenancesByStatus returns penance records in one status, newest first.
func (db *DB) PenancesByStatus(status string) ([]PenanceRecord, error) {
	rows, err := db.Query(`
		SELECT `+penanceColumns+` FROM penance_records WHERE status = ? ORDER BY day DESC
	`, status)
	if err != nil {
		return nil, fmt.Errorf("penances by status %s: %w", status, err)
	}
	defer rows.Close()

	var records []PenanceRecord
	for rows.Next() {
		p, err := scanPenance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan penance: %w", err)
		}
		records = append(records, *p)
	}
	return records, rows.Err()
}

// MarkPenanceApproved records the HIL approval: the chosen option and the
// ledger tasks it produced.
func (db *DB) MarkPenanceApproved(id string, chosen int, taskID, diaryTaskID string) error {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		UPDATE penance_records SET status = ?, chosen = ?, task_id = ?, diary_task_id = ?, resolved_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, PenanceApproved, chosen, taskID, diaryTaskID, now, id, PenanceProposed, PenanceUnresolved)
	if err != nil {
		return fmt.Errorf("approve penance %s: %w", id, err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("no open penance found for %s", id)
	}
	return nil
}

// MarkPenanceCompleted records that the approved repair work has met the
// severity's requirement.
func (db *DB) MarkPenanceCompleted(id string) error {
	res, err := db.Exec(`
		UPDATE penance_records SET status = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`, PenanceCompleted, time.Now().UnixMilli(), id, PenanceApproved)
	if err != nil {
		return fmt.Errorf("complete penance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete penance: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no approved penance found for %s", id)
	}
	return nil
}

// MarkPenanceDeclined records a HIL denial.
func (db *DB) MarkPenanceDeclined(id string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE penance_records SET status = ?, resolved_at = ? WHERE id = ?
	`, PenanceDeclined, now, id)
	if err != nil {
		return fmt.Errorf("decline penance %s: %w", id, err)
	}
	return nil
}

// MarkPenanceUnresolved parks a penance whose approval timed out; it is
// re-proposed at the next scheduled contact.
func (db *DB) MarkPenanceUnresolved(id string) error {
	_, err := db.Exec(`
		UPDATE penance_records SET status = ? WHERE id = ? AND status = ?
	`, PenanceUnresolved, id, PenanceProposed)
	if err != nil {
		return fmt.Errorf("park penance %s: %w", id, err)
	}
	return nil
}

// SetPenanceApproval points a penance at a fresh approval request (used when
// re-proposing an unresolved penance).
func (db *DB) SetPenanceApproval(id, approvalID string) error {
	_, err := db.Exec(`
		UPDATE penance_records SET approval_id = ?, status = ? WHERE id = ?
	`, approvalID, PenanceProposed, id)
	if err != nil {
		return fmt.Errorf("set penance approval %s: %w", id, err)
	}
	return nil
}
