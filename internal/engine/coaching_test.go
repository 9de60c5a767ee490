package engine

import (
	"strings"
	"testing"
)

func TestCoachingRules(t *testing.T) {
	tests := []struct {
		name string
		ctx  DayContext
		want string
	}{
		{
			"short sleep cuts pomodoros",
			DayContext{SleepHours: 5},
			"Cut pomodoros 50% today, prioritize a nap first.",
		},
		{
			"broken sleep counts like short sleep",
			DayContext{SleepHours: 8, SleepBrokenDays: 2},
			"Cut pomodoros 50% today, prioritize a nap first.",
		},
		{
			"low mood lifts pressure",
			DayContext{SleepHours: 8, Mood: "low"},
			"No study pressure today. Gym if energy allows.",
		},
		{
			"exercise gap pushes movement",
			DayContext{SleepHours: 8, DaysNoExercise: 3},
			"Push some movement today, even a walk counts.",
		},
		{
			"ibs note adjusts the day",
			DayContext{SleepHours: 8, Notes: "IBS flare this morning"},
			"Bland diet, shorter pomodoros, skip coffee.",
		},
		{
			"overdrive on low sleep",
			DayContext{SleepHours: 5, Pomodoros: 7},
			"You're overdriving on low sleep, ease off.",
		},
		{
			"freeze note warms up",
			DayContext{SleepHours: 8, Notes: "task freeze again"},
			"Switch to an easier task, warm-up first.",
		},
		{
			"scatter note checks medication",
			DayContext{SleepHours: 8, Notes: "very scattered"},
			"Check medication timing, single-task mode.",
		},
		{
			"low afternoon shifts hard work",
			DayContext{SleepHours: 8, Mood: "low", Energy: "low", TimeOfDay: "afternoon"},
			"Shift hard work to morning tomorrow.",
		},
		{
			"three good days raise intensity",
			DayContext{SleepHours: 8, MinStreakDays: 3},
			"3+ good days, safe to increase intensity.",
		},
		{
			"deadline note reorders priorities",
			DayContext{SleepHours: 8, Notes: "deadline friday"},
			"Shift priorities to deadline-critical work.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := CoachingLines(tt.ctx, StateHolding)
			found := false
			for _, l := range lines {
				if l == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("lines = %v, want to contain %q", lines, tt.want)
			}
		})
	}
}

func TestCoachingQuietOnDefaultContext(t *testing.T) {
	lines := CoachingLines(DefaultDayContext(), StateHolding)
	if len(lines) != 0 {
		t.Errorf("default context on a holding day = %v, want no lines", lines)
	}
}

func TestCoachingThrivingRaisesIntensity(t *testing.T) {
	lines := CoachingLines(DefaultDayContext(), StateThriving)
	if len(lines) != 1 || !strings.Contains(lines[0], "increase intensity") {
		t.Errorf("thriving lines = %v, want only the intensity line", lines)
	}
}

func TestCoachingRulesStack(t *testing.T) {
	ctx := DayContext{SleepHours: 5, Mood: "low", DaysNoExercise: 4, Notes: "deadline crunch"}
	lines := CoachingLines(ctx, StateHolding)
	if len(lines) != 4 {
		t.Errorf("got %d lines (%v), want 4 independent rules", len(lines), lines)
	}
}
