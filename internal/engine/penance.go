package engine

import "fmt"

// Penance severities.
const (
	SeverityMinor     = "minor"
	SeverityStandard  = "standard"
	SeverityEscalated = "escalated"
)

// PenancePlan is the escalator's proposal for one at-zero violation. The
// concrete task is created only after the user approves and picks an option.
type PenancePlan struct {
	Severity    string
	Requirement float64
	DiaryCredit float64
	Options     []string
	Questions   []string
	Escalation  bool
}

var penanceOptions = map[string][]string{
	SeverityMinor: {
		"20 min walk outside",
		"20 min apartment reset",
		"20 min mobility routine",
	},
	SeverityStandard: {
		"45 min cardio session",
		"Full kitchen deep clean",
		"90 min backlog deep-work block",
	},
	SeverityEscalated: {
		"45 min cardio + message your accountability contact",
		"Attend a support meeting this week",
		"Half-day digital detox with phone in a drawer",
	},
}

// Requirement weights: a minor penance is half-weight, so its diary credit
// alone settles it.
var penanceRequirements = map[string]float64{
	SeverityMinor:     0.5,
	SeverityStandard:  1.0,
	SeverityEscalated: 1.0,
}

var penanceCredits = map[string]float64{
	SeverityMinor:     0.5,
	SeverityStandard:  0.5,
	SeverityEscalated: 0.3,
}

var diaryQuestions = map[string][]string{
	SeverityMinor: {
		"What happened?",
		"What triggered it?",
		"Key takeaway?",
	},
	SeverityStandard: {
		"What happened?",
		"What triggered it?",
		"Key takeaway?",
		"Mood at the time?",
		"What alternative action could you have taken?",
	},
	SeverityEscalated: {
		"What happened?",
		"What triggered it?",
		"Key takeaway?",
		"Mood at the time?",
		"What alternative action could you have taken?",
		"HALT review: which factors were present (hungry/angry/lonely/tired)?",
		"Commitment going forward?",
	},
}

// AssessSeverity maps a violation to its penance tier: minor up to one unit
// over, standard up to three, escalated beyond that or on the third relapse
// within the same ISO week.
func AssessSeverity(unitsOver float64, weekRelapses int) string {
	if weekRelapses >= 3 || unitsOver > 3 {
		return SeverityEscalated
	}
	if unitsOver <= 1 {
		return SeverityMinor
	}
	return SeverityStandard
}

// PlanPenance builds the full proposal for a violation.
func PlanPenance(unitsOver float64, weekRelapses int) PenancePlan {
	severity := AssessSeverity(unitsOver, weekRelapses)
	return PenancePlan{
		Severity:    severity,
		Requirement: penanceRequirements[severity],
		DiaryCredit: penanceCredits[severity],
		Options:     penanceOptions[severity],
		Questions:   diaryQuestions[severity],
		Escalation:  severity == SeverityEscalated,
	}
}

// PenancePrompt renders the approval question sent with the proposed
// options.
func PenancePrompt(behavior string, unitsOver float64, weekRelapses int, plan PenancePlan) string {
	msg := fmt.Sprintf("Relapse logged for %s (%.1f units over, %d this week). Severity: %s. Pick a repair task:",
		behavior, unitsOver, weekRelapses, plan.Severity)
	if plan.Escalation {
		msg = "⚠️ Escalated violation. " + msg
	}
	return msg
}

// DiaryTitle names the violation-diary ledger task.
func DiaryTitle(behavior string, plan PenancePlan) string {
	return fmt.Sprintf("Violation diary for %s (%s, %d questions)", behavior, plan.Severity, len(plan.Questions))
}
