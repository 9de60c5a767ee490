package engine

import (
	"reflect"
	"strings"
	"testing"

	"github.com/bprzybysz/integra/internal/notify"
)

func TestClassifyDay(t *testing.T) {
	tests := []struct {
		name   string
		counts DayCounts
		want   string
	}{
		{"perfect day thrives", DayCounts{}, StateThriving},
		{"one miss holds", DayCounts{Misses: 1}, StateHolding},
		{"two misses hold", DayCounts{Misses: 2}, StateHolding},
		{"three misses struggle", DayCounts{Misses: 3}, StateStruggling},
		{"any violation struggles", DayCounts{Violations: 1}, StateStruggling},
		{"violation beats zero misses", DayCounts{Violations: 2, AtCeiling: 2}, StateStruggling},
		{"at ceiling blocks thriving", DayCounts{AtCeiling: 1}, StateHolding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDay(tt.counts); got != tt.want {
				t.Errorf("ClassifyDay(%+v) = %s, want %s", tt.counts, got, tt.want)
			}
		})
	}
}

func TestStateTone(t *testing.T) {
	tests := []struct {
		state string
		want  string
	}{
		{StateStruggling, notify.ToneSupportive},
		{StateHolding, notify.ToneSteady},
		{StateThriving, notify.ToneCelebratory},
	}
	for _, tt := range tests {
		if got := StateTone(tt.state); got != tt.want {
			t.Errorf("StateTone(%s) = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestAdvisorMessageFormat(t *testing.T) {
	msg := AdvisorMessage(StateHolding,
		[]string{"Cut pomodoros 50% today, prioritize a nap first.", "Push some movement today, even a walk counts."},
		[]string{"🎯 Milestone: 7-day exercise streak!"})

	want := "*Advisor: HOLDING* ⚠️\n" +
		"\n" +
		"• Cut pomodoros 50% today, prioritize a nap first.\n" +
		"• Push some movement today, even a walk counts.\n" +
		"\n" +
		"🎯 Milestone: 7-day exercise streak!"
	if msg != want {
		t.Errorf("message = %q, want %q", msg, want)
	}
}

func TestAdvisorMessageBareState(t *testing.T) {
	msg := AdvisorMessage(StateThriving, nil, nil)
	if msg != "*Advisor: THRIVING* ✅" {
		t.Errorf("message = %q, want the bare header", msg)
	}
	if strings.Contains(msg, "\n") {
		t.Error("bare header should be a single line")
	}
}

func TestDueMilestones(t *testing.T) {
	tests := []struct {
		streak int
		want   []int
	}{
		{0, nil},
		{6, nil},
		{7, []int{7}},
		{35, []int{7, 30}},
		{100, []int{7, 30, 50, 100}},
	}
	for _, tt := range tests {
		if got := DueStreakMilestones(tt.streak); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("DueStreakMilestones(%d) = %v, want %v", tt.streak, got, tt.want)
		}
	}

	if got := DueCleanMilestones(21); !reflect.DeepEqual(got, []int{7, 14}) {
		t.Errorf("DueCleanMilestones(21) = %v, want [7 14]", got)
	}
	if got := DueCleanMilestones(90); !reflect.DeepEqual(got, []int{7, 14, 30, 60, 90}) {
		t.Errorf("DueCleanMilestones(90) = %v, want all five", got)
	}
}

func TestMilestoneTexts(t *testing.T) {
	if got := StreakMilestoneText("exercise", 30); got != "🎯 Milestone: 30-day exercise streak!" {
		t.Errorf("streak text = %q", got)
	}
	if got := CleanMilestoneText("smoke", 14); got != "🏆 14d clean: smoke addiction therapy milestone!" {
		t.Errorf("clean text = %q", got)
	}
	if got := StreakMilestoneID("exercise", 7); got != "streak:exercise:7" {
		t.Errorf("streak id = %q", got)
	}
	if got := CleanMilestoneID("smoke", 7); got != "clean:smoke:7" {
		t.Errorf("clean id = %q", got)
	}
}
