package store

import (
	"fmt"
	"time"
)

// AuditEntry is one line of the append-only decision trail: every score,
// state change, and dispatched side effect lands here.
type AuditEntry struct {
	ID      int64
	At      int64
	Day     string
	Kind    string
	Subject string
	Detail  string
}

// AppendAudit records a decision. Audit writes never fail the operation that
// produced them; callers log and continue on error.
func (db *DB) AppendAudit(day, kind, subject, detail string) error {
	_, err := db.Exec(`
		INSERT INTO audit_log (at, day, kind, subject, detail) VALUES (?, ?, ?, ?, ?)
	`, time.Now().UnixMilli(), day, kind, subject, detail)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// AuditForDay returns the trail for one day in write order.
func (db *DB) AuditForDay(day string) ([]AuditEntry, error) {
	rows, err := db.Query(`
		SELECT id, at, day, kind, subject, detail FROM audit_log WHERE day = ? ORDER BY id ASC
	`, day)
	if err != nil {
		return nil, fmt.Errorf("audit for day %s: %w", day, err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.At, &e.Day, &e.Kind, &e.Subject, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecentAudit returns the latest entries, newest first.
func (db *DB) RecentAudit(limit int) ([]AuditEntry, error) {
	rows, err := db.Query(`
		SELECT id, at, day, kind, subject, detail FROM audit_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent audit: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.At, &e.Day, &e.Kind, &e.Subject, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
