package engine

import (
	"math"
	"time"

	"github.com/bprzybysz/integra/internal/clock"
	"github.com/bprzybysz/integra/internal/store"
)

// Streak day outcomes.
const (
	StreakAdvanced     = "advanced"
	StreakGraceCovered = "grace"
	StreakReset        = "reset"
)

const (
	maxGrace      = 3
	maxMultiplier = 1.5
)

// Streak milestones fire once ever per habit.
var streakMilestones = []int{7, 30, 50, 100}

// Clean-day milestones fire once ever per addiction-therapy behavior.
var cleanMilestones = []int{7, 14, 30, 60, 90}

// Multiplier returns min(1.0 + 0.01 × streak, 1.5). The ramp caps at day 50.
func Multiplier(streak int) float64 {
	m := 1.0 + 0.01*float64(streak)
	if m > maxMultiplier {
		return maxMultiplier
	}
	return m
}

// FinalScore applies the streak multiplier to a task's base+bonus points,
// rounding half away from zero so scores reproduce exactly.
func FinalScore(base, bonus int, multiplier float64) int {
	return int(math.Round(float64(base+bonus) * multiplier))
}

// ValidateStreakState checks the ledger invariants before applying a day.
// A state that fails is surfaced as ErrCorruptStreakState; the caller never
// guesses past it.
func ValidateStreakState(s *store.StreakState) error {
	if s == nil {
		return nil
	}
	if s.StreakLength < 0 || s.GraceEarned < 0 || s.GraceConsumed < 0 {
		return ErrCorruptStreakState
	}
	if s.LastAppliedDay != "" {
		if _, err := time.Parse(clock.DayFormat, s.LastAppliedDay); err != nil {
			return ErrCorruptStreakState
		}
	}
	return nil
}

// ApplyHabitDay advances a streak state by one finalized day and reports
// what happened. Completion extends the streak and re-banks grace (one day
// per full week of streak, spendable balance capped at 3). A miss consumes
// one grace day when available, preserving the streak exactly; otherwise the
// streak resets and the grace bank clears.
func ApplyHabitDay(s store.StreakState, day string, completed bool) (store.StreakState, string) {
	outcome := StreakReset
	switch {
	case completed:
		s.StreakLength++
		s.GraceEarned = s.StreakLength / 7
		outcome = StreakAdvanced
	case s.GraceAvailable() > 0:
		s.GraceConsumed++
		outcome = StreakGraceCovered
	default:
		s.StreakLength = 0
		s.GraceEarned = 0
		s.GraceConsumed = 0
	}
	s.LastAppliedDay = day
	return s, outcome
}

// AtRisk reports whether an evening warning applies: streak worth protecting
// and nothing recorded yet today. Advisory only.
func AtRisk(streak int, completedToday bool) bool {
	return streak >= 7 && !completedToday
}
