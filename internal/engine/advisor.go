package engine

import (
	"fmt"
	"strings"

	"github.com/bprzybysz/integra/internal/notify"
)

// Advisor states. One snapshot per day; the next day starts fresh.
const (
	StateStruggling = "STRUGGLING"
	StateHolding    = "HOLDING"
	StateThriving   = "THRIVING"
)

// DayCounts feed the daily classification. Violations counts score-zero
// usage outcomes (over, at-zero, gate); AtCeiling counts behaviors whose
// week total sits at or over their ceiling.
type DayCounts struct {
	Misses     int `json:"misses"`
	Violations int `json:"violations"`
	AtCeiling  int `json:"at_ceiling"`
}

// ClassifyDay applies the transition rule once per day, after all of the
// day's events are finalized.
func ClassifyDay(c DayCounts) string {
	if c.Violations > 0 || c.Misses >= 3 {
		return StateStruggling
	}
	if c.Misses == 0 && c.AtCeiling == 0 {
		return StateThriving
	}
	return StateHolding
}

// StateTone maps the advisor state to the message tone table.
func StateTone(state string) string {
	switch state {
	case StateStruggling:
		return notify.ToneSupportive
	case StateThriving:
		return notify.ToneCelebratory
	default:
		return notify.ToneSteady
	}
}

func stateEmoji(state string) string {
	switch state {
	case StateThriving:
		return "✅"
	case StateStruggling:
		return "🔴"
	default:
		return "⚠️"
	}
}

// AdvisorMessage renders the daily coaching message: state header, one
// bullet per coaching line, then any milestone celebrations.
func AdvisorMessage(state string, coaching, milestones []string) string {
	parts := []string{fmt.Sprintf("*Advisor: %s* %s", state, stateEmoji(state))}
	if len(coaching) > 0 {
		parts = append(parts, "")
		for _, line := range coaching {
			parts = append(parts, "• "+line)
		}
	}
	if len(milestones) > 0 {
		parts = append(parts, "")
		parts = append(parts, milestones...)
	}
	return strings.Join(parts, "\n")
}

// StreakMilestoneID is the permanent dedup key for a streak threshold.
func StreakMilestoneID(habit string, days int) string {
	return fmt.Sprintf("streak:%s:%d", habit, days)
}

// CleanMilestoneID is the permanent dedup key for a clean-days threshold.
func CleanMilestoneID(behavior string, days int) string {
	return fmt.Sprintf("clean:%s:%d", behavior, days)
}

// StreakMilestoneText renders a streak celebration.
func StreakMilestoneText(habit string, days int) string {
	return fmt.Sprintf("🎯 Milestone: %d-day %s streak!", days, habit)
}

// CleanMilestoneText renders a clean-days celebration.
func CleanMilestoneText(behavior string, days int) string {
	return fmt.Sprintf("🏆 %dd clean: %s addiction therapy milestone!", days, behavior)
}

// DueStreakMilestones returns the thresholds a streak has reached. The
// caller drops the ones already fired, so walking a gap fires each exactly
// once.
func DueStreakMilestones(streak int) []int {
	var due []int
	for _, m := range streakMilestones {
		if streak >= m {
			due = append(due, m)
		}
	}
	return due
}

// DueCleanMilestones returns the thresholds a clean-day count has reached.
func DueCleanMilestones(cleanDays int) []int {
	var due []int
	for _, m := range cleanMilestones {
		if cleanDays >= m {
			due = append(due, m)
		}
	}
	return due
}
