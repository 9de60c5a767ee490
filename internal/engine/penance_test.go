package engine

import (
	"strings"
	"testing"
)

func TestAssessSeverity(t *testing.T) {
	tests := []struct {
		name      string
		unitsOver float64
		relapses  int
		want      string
	}{
		{"barely over is minor", 0.5, 1, SeverityMinor},
		{"exactly one unit is minor", 1.0, 1, SeverityMinor},
		{"two units is standard", 2.0, 1, SeverityStandard},
		{"exactly three units is standard", 3.0, 2, SeverityStandard},
		{"past three units escalates", 3.5, 1, SeverityEscalated},
		{"third relapse escalates regardless", 0.5, 3, SeverityEscalated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AssessSeverity(tt.unitsOver, tt.relapses); got != tt.want {
				t.Errorf("AssessSeverity(%v, %d) = %s, want %s", tt.unitsOver, tt.relapses, got, tt.want)
			}
		})
	}
}

func TestPlanPenanceShape(t *testing.T) {
	tests := []struct {
		severity      string
		wantQuestions int
		wantCredit    float64
		wantReq       float64
	}{
		{SeverityMinor, 3, 0.5, 0.5},
		{SeverityStandard, 5, 0.5, 1.0},
		{SeverityEscalated, 7, 0.3, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			var plan PenancePlan
			switch tt.severity {
			case SeverityMinor:
				plan = PlanPenance(0.5, 1)
			case SeverityStandard:
				plan = PlanPenance(2, 1)
			case SeverityEscalated:
				plan = PlanPenance(5, 1)
			}
			if plan.Severity != tt.severity {
				t.Fatalf("severity = %s, want %s", plan.Severity, tt.severity)
			}
			if len(plan.Questions) != tt.wantQuestions {
				t.Errorf("questions = %d, want %d", len(plan.Questions), tt.wantQuestions)
			}
			if plan.DiaryCredit != tt.wantCredit {
				t.Errorf("diary credit = %v, want %v", plan.DiaryCredit, tt.wantCredit)
			}
			if plan.Requirement != tt.wantReq {
				t.Errorf("requirement = %v, want %v", plan.Requirement, tt.wantReq)
			}
			if len(plan.Options) != 3 {
				t.Errorf("options = %d, want 3 choices", len(plan.Options))
			}
			if plan.Escalation != (tt.severity == SeverityEscalated) {
				t.Errorf("escalation flag = %t", plan.Escalation)
			}
		})
	}
}

func TestMinorDiaryCoversRequirement(t *testing.T) {
	plan := PlanPenance(0.5, 1)
	if plan.DiaryCredit < plan.Requirement {
		t.Errorf("minor diary credit %v should settle the %v requirement alone", plan.DiaryCredit, plan.Requirement)
	}
	std := PlanPenance(2, 1)
	if std.DiaryCredit >= std.Requirement {
		t.Errorf("standard diary credit %v must not settle the %v requirement alone", std.DiaryCredit, std.Requirement)
	}
}

func TestPenancePromptEscalationPrefix(t *testing.T) {
	plan := PlanPenance(5, 3)
	msg := PenancePrompt("smoke", 5, 3, plan)
	if !strings.HasPrefix(msg, "⚠️ Escalated violation. ") {
		t.Errorf("prompt = %q, want the escalation prefix", msg)
	}
	if !strings.Contains(msg, "smoke") || !strings.Contains(msg, "5.0 units over") {
		t.Errorf("prompt = %q, want behavior and units named", msg)
	}

	calm := PenancePrompt("smoke", 0.5, 1, PlanPenance(0.5, 1))
	if strings.HasPrefix(calm, "⚠️") {
		t.Errorf("minor prompt = %q, must not carry the escalation prefix", calm)
	}
}

func TestDiaryTitleNamesSeverity(t *testing.T) {
	plan := PlanPenance(2, 1)
	got := DiaryTitle("smoke", plan)
	if got != "Violation diary for smoke (standard, 5 questions)" {
		t.Errorf("title = %q", got)
	}
}
