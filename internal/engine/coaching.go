package engine

import "strings"

// DayContext carries the evening check-in answers the coaching rules read.
// The zero value would trip the sleep rule, so build from DefaultDayContext
// when the user skipped the questionnaire.
type DayContext struct {
	SleepHours      float64 `json:"sleep_hours"`
	SleepBrokenDays int     `json:"sleep_broken_days"`
	Mood            string  `json:"mood"`
	Energy          string  `json:"energy"`
	TimeOfDay       string  `json:"time_of_day"`
	Pomodoros       int     `json:"pomodoros"`
	DaysNoExercise  int     `json:"days_no_exercise"`
	MinStreakDays   int     `json:"min_streak_days"`
	Notes           string  `json:"notes"`
}

// DefaultDayContext returns the answers assumed when nothing was reported.
func DefaultDayContext() DayContext {
	return DayContext{SleepHours: 8}
}

// CoachingLines applies the coaching rule table to the day's answers and the
// advisor state. Rules are independent; each that matches contributes one
// line to the advisor message.
func CoachingLines(ctx DayContext, state string) []string {
	var lines []string
	notes := strings.ToLower(ctx.Notes)
	mood := strings.ToLower(ctx.Mood)

	if ctx.SleepHours < 6 || ctx.SleepBrokenDays >= 2 {
		lines = append(lines, "Cut pomodoros 50% today, prioritize a nap first.")
	}
	if mood == "low" || mood == "rough" {
		lines = append(lines, "No study pressure today. Gym if energy allows.")
	}
	if ctx.DaysNoExercise >= 3 {
		lines = append(lines, "Push some movement today, even a walk counts.")
	}
	if strings.Contains(notes, "ibs") {
		lines = append(lines, "Bland diet, shorter pomodoros, skip coffee.")
	}
	if ctx.Pomodoros > 6 && ctx.SleepHours < 6 {
		lines = append(lines, "You're overdriving on low sleep, ease off.")
	}
	if strings.Contains(notes, "freeze") || strings.Contains(notes, "pivot") {
		lines = append(lines, "Switch to an easier task, warm-up first.")
	}
	if strings.Contains(notes, "adhd") || strings.Contains(notes, "scatter") {
		lines = append(lines, "Check medication timing, single-task mode.")
	}
	if mood == "low" && strings.EqualFold(ctx.TimeOfDay, "afternoon") && strings.EqualFold(ctx.Energy, "low") {
		lines = append(lines, "Shift hard work to morning tomorrow.")
	}
	if ctx.MinStreakDays >= 3 || state == StateThriving {
		lines = append(lines, "3+ good days, safe to increase intensity.")
	}
	if strings.Contains(notes, "deadline") {
		lines = append(lines, "Shift priorities to deadline-critical work.")
	}

	return lines
}
