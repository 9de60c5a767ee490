package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Prompt statuses.
const (
	PromptPending  = "pending"
	PromptAnswered = "answered"
	PromptDeferred = "deferred"
)

// Prompt is a queued check-in question (morning mood, HALT snapshot, evening
// review). One per (kind, day).
type Prompt struct {
	ID        string
	Kind      string
	Day       string
	Status    string
	Answer    string
	CreatedAt int64
	UpdatedAt int64
}

const promptColumns = `id, kind, day, status, answer, created_at, updated_at`

func scanPrompt(row interface{ Scan(...any) error }) (*Prompt, error) {
	var p Prompt
	err := row.Scan(&p.ID, &p.Kind, &p.Day, &p.Status, &p.Answer, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// EnqueuePrompt queues a check-in question for a day. Re-enqueueing the same
// (kind, day) is a no-op so scheduler restarts do not duplicate questions.
func (db *DB) EnqueuePrompt(p *Prompt) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO prompts (id, kind, day, status, answer, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', ?, ?)
		ON CONFLICT(kind, day) DO NOTHING
	`, p.ID, p.Kind, p.Day, PromptPending, now, now)
	if err != nil {
		return fmt.Errorf("enqueue prompt %s/%s: %w", p.Kind, p.Day, err)
	}
	return nil
}

// GetPrompt returns the (kind, day) prompt, or nil.
func (db *DB) GetPrompt(kind, day string) (*Prompt, error) {
	p, err := scanPrompt(db.QueryRow(`
		SELECT `+promptColumns+` FROM prompts WHERE kind = ? AND day = ?
	`, kind, day))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt %s/%s: %w", kind, day, err)
	}
	return p, nil
}

// PendingPrompts returns unanswered prompts, oldest day first.
func (db *DB) PendingPrompts() ([]Prompt, error) {
	rows, err := db.Query(`
		SELECT `+promptColumns+` FROM prompts WHERE status = ? ORDER BY day ASC, kind ASC
	`, PromptPending)
	if err != nil {
		return nil, fmt.Errorf("pending prompts: %w", err)
	}
	defer rows.Close()

	var prompts []Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, *p)
	}
	return prompts, rows.Err()
}

// AnswerPrompt stores the answer and settles the prompt.
func (db *DB) AnswerPrompt(id, answer string) error {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		UPDATE prompts SET status = ?, answer = ?, updated_at = ? WHERE id = ? AND status != ?
	`, PromptAnswered, answer, now, id, PromptAnswered)
	if err != nil {
		return fmt.Errorf("answer prompt %s: %w", id, err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("no open prompt found for %s", id)
	}
	return nil
}

// DeferPrompt pushes a prompt aside without an answer.
func (db *DB) DeferPrompt(id string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE prompts SET status = ?, updated_at = ? WHERE id = ? AND status = ?
	`, PromptDeferred, now, id, PromptPending)
	if err != nil {
		return fmt.Errorf("defer prompt %s: %w", id, err)
	}
	return nil
}
