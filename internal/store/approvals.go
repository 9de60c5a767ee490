package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Approval statuses.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalDenied   = "denied"
	ApprovalExpired  = "expired"
)

// Approval is one human-in-the-loop decision point. Nothing it gates is
// created until the approval resolves.
type Approval struct {
	ID          string
	Kind        string
	SubjectID   string
	Prompt      string
	Options     string
	Status      string
	RequestedAt int64
	ExpiresAt   int64
	ResolvedAt  *int64
}

const approvalColumns = `id, kind, subject_id, prompt, options, status, requested_at, expires_at, resolved_at`

func scanApproval(row interface{ Scan(...any) error }) (*Approval, error) {
	var a Approval
	err := row.Scan(&a.ID, &a.Kind, &a.SubjectID, &a.Prompt, &a.Options, &a.Status,
		&a.RequestedAt, &a.ExpiresAt, &a.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateApproval inserts a pending approval.
func (db *DB) CreateApproval(a *Approval) error {
	if a.RequestedAt == 0 {
		a.RequestedAt = time.Now().UnixMilli()
	}
	a.Status = ApprovalPending
	_, err := db.Exec(`
		INSERT INTO approvals (id, kind, subject_id, prompt, options, status, requested_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Kind, a.SubjectID, a.Prompt, a.Options, a.Status, a.RequestedAt, a.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create approval: %w", err)
	}
	return nil
}

// GetApproval returns an approval by id, or nil.
func (db *DB) GetApproval(id string) (*Approval, error) {
	a, err := scanApproval(db.QueryRow(`
		SELECT `+approvalColumns+` FROM approvals WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get approval %s: %w", id, err)
	}
	return a, nil
}

// PendingApprovals returns all unresolved approvals, oldest first.
func (db *DB) PendingApprovals() ([]Approval, error) {
	rows, err := db.Query(`
		SELECT `+approvalColumns+` FROM approvals WHERE status = ? ORDER BY requested_at ASC
	`, ApprovalPending)
	if err != nil {
		return nil, fmt.Errorf("pending approvals: %w", err)
	}
	defer rows.Close()

	var approvals []Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		approvals = append(approvals, *a)
	}
	return approvals, rows.Err()
}

// ResolveApproval moves a pending approval to approved or denied. Resolving
// an already-settled approval is an error so late answers cannot flip a
// decision.
func (db *DB) ResolveApproval(id, status string) error {
	if status != ApprovalApproved && status != ApprovalDenied {
		return fmt.Errorf("invalid approval resolution %q", status)
	}
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		UPDATE approvals SET status = ?, resolved_at = ? WHERE id = ? AND status = ?
	`, status, now, id, ApprovalPending)
	if err != nil {
		return fmt.Errorf("resolve approval %s: %w", id, err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("no pending approval found for %s", id)
	}
	return nil
}

// ExpireApprovals marks every pending approval past its deadline as expired
// and returns the ones it touched so callers can park their subjects.
func (db *DB) ExpireApprovals(cutoff int64) ([]Approval, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin expiry: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`
		SELECT `+approvalColumns+` FROM approvals
		WHERE status = ? AND expires_at > 0 AND expires_at <= ?
		ORDER BY requested_at ASC
	`, ApprovalPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find expired approvals: %w", err)
	}
	var expired []Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		expired = append(expired, *a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(expired) == 0 {
		return nil, nil
	}

	for i := range expired {
		expired[i].Status = ApprovalExpired
		expired[i].ResolvedAt = nil
		_, err := tx.Exec(`
			UPDATE approvals SET status = ? WHERE id = ?
		`, ApprovalExpired, expired[i].ID)
		if err != nil {
			return nil, fmt.Errorf("expire approval %s: %w", expired[i].ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit expiry: %w", err)
	}
	return expired, nil
}
