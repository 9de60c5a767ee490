package engine

import (
	"fmt"
	"log"
	"math"
	"strings"
	"unicode"
)

const maxNoteChars = 2000

// validateAmount rejects amounts the quota math cannot work with.
func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("amount must be a finite number")
	}
	if amount < 0 {
		return fmt.Errorf("amount must be non-negative")
	}
	return nil
}

// clampCraving normalizes a reported craving intensity to 1-10, defaulting
// to the midpoint when absent.
func clampCraving(raw *int64) int64 {
	if raw == nil {
		return 5
	}
	v := *raw
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// sanitizeNote trims a free-text note and caps its length, truncating at a
// word boundary rather than rejecting.
func sanitizeNote(behavior, note string) string {
	note = strings.TrimSpace(note)
	if len(note) > maxNoteChars {
		log.Printf("validate: truncating note for %s (%d → %d chars)", behavior, len(note), maxNoteChars)
		note = truncateClean(note, maxNoteChars)
	}
	return note
}

// truncateClean truncates a string to maxLen, cutting at the last word
// boundary to avoid mid-word breaks.
func truncateClean(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	truncated := s[:maxLen]
	if idx := strings.LastIndexFunc(truncated, unicode.IsSpace); idx > maxLen-200 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}
