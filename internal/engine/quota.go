package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bprzybysz/integra/internal/clock"
	"github.com/bprzybysz/integra/internal/config"
)

// Usage classes.
const (
	ClassUnder  = "under"
	ClassAt     = "at"
	ClassOver   = "over"
	ClassAtZero = "at_zero"
	ClassGate   = "gate"
)

// ceilingEpsilon separates "exactly at ceiling" from float noise around it.
// The split must stay a strict three-way <, =, > classification.
const ceilingEpsilon = 1e-9

// Decayed ceilings below this are treated as having reached zero.
const ceilingZeroFloor = 0.01

// QuotaOutcome is the result of classifying one day's usage against the
// behavior's current ceiling.
type QuotaOutcome struct {
	Class     string
	WeekIndex int
	Ceiling   float64
	WeekTotal float64
	Base      int
	Bonus     int
	Score     int
	Coaching  bool
	UnitsOver float64
	Reasons   []string
}

// Ceiling computes the behavior's ceiling for ISO week n since tracking
// start: quota_week_0 × decay_factor^n, clamped to zero once the decay curve
// drops below the floor.
func Ceiling(def config.BehaviorDefinition, weekIndex int) float64 {
	c := def.QuotaWeek0 * math.Pow(def.DecayFactor, float64(weekIndex))
	if c < ceilingZeroFloor {
		return 0
	}
	return c
}

// ClassifyUsage classifies a day's reported usage. weekTotal is the week's
// sum including the new amount, amount is the day's reported total, at is the
// intake time, and lastIntake is the previous qualifying intake (zero when
// there is none).
//
// Controlled-use time gates are checked first and force a zero score
// regardless of where the week total sits. At-zero relapse applies to
// addiction-therapy behaviors whose ceiling has decayed to zero. Everything
// else is a strict three-way split around the ceiling: under earns the bonus,
// exactly-at is base only, over scores zero and flags coaching.
func ClassifyUsage(def config.BehaviorDefinition, ck *clock.Clock, weekIndex int, weekTotal, amount float64, at, lastIntake time.Time) QuotaOutcome {
	out := QuotaOutcome{
		WeekIndex: weekIndex,
		Ceiling:   Ceiling(def, weekIndex),
		WeekTotal: weekTotal,
	}

	if def.Tier == config.TierControlledUse && amount > 0 {
		if wh := def.WorkHours; wh != nil && ck.IsWorkHours(at, wh.Start, wh.End) {
			out.Reasons = append(out.Reasons, fmt.Sprintf("work hours (%02d:00-%02d:00)", wh.Start, wh.End))
		}
		if cd := def.Cooldown(); cd > 0 && !ck.CooldownElapsed(lastIntake, at, cd) {
			out.Reasons = append(out.Reasons, fmt.Sprintf("cooldown (%dh not elapsed)", def.CooldownHours))
		}
		if len(out.Reasons) > 0 {
			out.Class = ClassGate
			out.Coaching = true
			return out
		}
	}

	if def.Tier == config.TierAddictionTherapy && out.Ceiling == 0 && amount > 0 {
		out.Class = ClassAtZero
		out.UnitsOver = amount
		return out
	}

	diff := weekTotal - out.Ceiling
	switch {
	case math.Abs(diff) <= ceilingEpsilon:
		out.Class = ClassAt
		out.Base, out.Score = 1, 1
	case diff < 0:
		out.Class = ClassUnder
		out.Base, out.Bonus, out.Score = 1, 1, 2
	default:
		out.Class = ClassOver
		out.Coaching = true
		out.UnitsOver = diff
	}
	return out
}

// GateMessage renders the coaching line for a gate violation, echoing the
// behavior's configured rule summary.
func GateMessage(def config.BehaviorDefinition, reasons []string) string {
	msg := fmt.Sprintf("Controlled-use rule violation for %s.", def.ID)
	if len(reasons) > 0 {
		msg = fmt.Sprintf("Controlled-use rule violation for %s: %s.", def.ID, strings.Join(reasons, ", "))
	}
	if def.Rules != "" {
		msg += " Rules: " + def.Rules
	}
	return msg
}
