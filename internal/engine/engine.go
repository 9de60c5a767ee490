// Package engine implements the scoring core: quota classification on every
// submission, streak accounting and the daily advisory at day close, and the
// penance escalator behind human approvals. All durable state lives in the
// store; the engine holds no caches, so every operation recomputes from
// persisted rows and replays deterministically.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bprzybysz/integra/internal/clock"
	"github.com/bprzybysz/integra/internal/config"
	"github.com/bprzybysz/integra/internal/ledger"
	"github.com/bprzybysz/integra/internal/notify"
	"github.com/bprzybysz/integra/internal/store"
)

// Engine coordinates the scoring pipeline for a single user. Operations
// serialize on an internal mutex; there is exactly one writer per database.
type Engine struct {
	DB        *store.DB
	Ledger    ledger.Ledger
	Messenger notify.Messenger
	Clock     *clock.Clock
	Catalog   *config.Catalog

	// ApprovalTimeout bounds how long a penance approval stays pending
	// before it expires to unresolved.
	ApprovalTimeout time.Duration

	// TrackingStart is the global quota anchor day (YYYY-MM-DD). Empty
	// falls back to each behavior's earliest recorded event.
	TrackingStart string

	mu     sync.Mutex
	stopCh chan struct{}
}

// New creates an Engine with default timings.
func New(db *store.DB, led ledger.Ledger, msgr notify.Messenger, ck *clock.Clock, cat *config.Catalog) *Engine {
	return &Engine{
		DB:              db,
		Ledger:          led,
		Messenger:       msgr,
		Clock:           ck,
		Catalog:         cat,
		ApprovalTimeout: 6 * time.Hour,
		stopCh:          make(chan struct{}),
	}
}

// UsageRequest is one behavior report. A zero At means now. Add folds the
// amount into the day's existing total instead of replacing it.
type UsageRequest struct {
	Behavior string
	At       time.Time
	Amount   float64
	Add      bool
	Unit     string

	Hungry  bool
	Angry   bool
	Lonely  bool
	Tired   bool
	Craving *int64
	Note    string
}

// UsageResult is the persisted day row plus the classification that
// produced it.
type UsageResult struct {
	Event   store.UsageEvent
	Outcome QuotaOutcome
}

// SubmitUsage classifies a day's reported usage against the behavior's
// current ceiling and upserts the (behavior, day) row. Resubmitting a day
// replaces it and reclassifies; it never double-counts. Classification is
// settled at submission time; later reports for other days do not reopen it.
func (e *Engine) SubmitUsage(req UsageRequest) (*UsageResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	def, ok := e.Catalog.Behavior(req.Behavior)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBehavior, req.Behavior)
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("behavior %s: %w", def.ID, err)
	}

	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.In(e.Clock.Location())
	day := e.Clock.Day(at)
	weekKey := e.Clock.WeekKey(at)

	existing, err := e.DB.GetUsage(def.ID, day)
	if err != nil {
		return nil, err
	}
	amount := req.Amount
	if req.Add && existing != nil {
		amount += existing.Amount
	}

	weekRows, err := e.DB.WeekUsage(def.ID, weekKey)
	if err != nil {
		return nil, err
	}
	weekTotal := amount
	for _, r := range weekRows {
		if r.Day != day {
			weekTotal += r.Amount
		}
	}

	weekIndex, err := e.weekIndexFor(def, at)
	if err != nil {
		return nil, err
	}
	lastIntake, err := e.lastIntake(def.ID, day, existing, req.Add)
	if err != nil {
		return nil, err
	}

	outcome := ClassifyUsage(def, e.Clock, weekIndex, weekTotal, amount, at, lastIntake)

	// Craving defaults to the midpoint only when a HALT context was
	// reported at all; otherwise it stays unset.
	var craving *int64
	if req.Craving != nil || req.Hungry || req.Angry || req.Lonely || req.Tired {
		v := clampCraving(req.Craving)
		craving = &v
	}
	unit := req.Unit
	if unit == "" {
		unit = def.Unit
	}
	eventID := uuid.NewString()
	if existing != nil {
		eventID = existing.EventID
	}

	ev := &store.UsageEvent{
		EventID:    eventID,
		Behavior:   def.ID,
		Day:        day,
		WeekKey:    weekKey,
		OccurredAt: at.UnixMilli(),
		Amount:     amount,
		Unit:       unit,
		Hungry:     req.Hungry,
		Angry:      req.Angry,
		Lonely:     req.Lonely,
		Tired:      req.Tired,
		Craving:    craving,
		Note:       sanitizeNote(def.ID, req.Note),
		Class:      outcome.Class,
		Score:      outcome.Score,
	}
	if err := e.DB.UpsertUsage(ev); err != nil {
		return nil, err
	}
	e.audit(day, "usage", def.ID,
		fmt.Sprintf("class %s, score %d, week %.2f of %.2f", outcome.Class, outcome.Score, weekTotal, outcome.Ceiling))
	return &UsageResult{Event: *ev, Outcome: outcome}, nil
}

// HabitRequest is one habit completion report. An empty Day means today.
type HabitRequest struct {
	Habit       string
	Day         string
	Completed   bool
	DurationMin int
}

// SubmitHabit records a habit's completion for a day. Resubmission replaces
// the record; the streak ledger only moves at day close.
func (e *Engine) SubmitHabit(req HabitRequest) (*store.HabitRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.Catalog.Habit(req.Habit)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHabit, req.Habit)
	}
	day := req.Day
	if day == "" {
		day = e.Clock.Day(time.Now())
	} else if _, err := e.Clock.ParseDay(day); err != nil {
		return nil, err
	}
	if req.DurationMin < 0 {
		return nil, fmt.Errorf("habit %s: negative duration", h.ID)
	}

	rec := &store.HabitRecord{
		Habit:       h.ID,
		Day:         day,
		Completed:   req.Completed,
		DurationMin: req.DurationMin,
	}
	if err := e.DB.UpsertHabit(rec); err != nil {
		return nil, err
	}
	e.audit(day, "habit", h.ID, fmt.Sprintf("completed=%t duration=%dmin", req.Completed, req.DurationMin))
	return rec, nil
}

// CloseDayResult is everything the day-close pass produced.
type CloseDayResult struct {
	Snapshot   store.AdvisorSnapshot
	Coaching   []string
	Milestones []string
	Penances   []store.PenanceRecord
	Message    string
	Replayed   bool
}

// CloseDay runs the daily advisory for a day: advances every healthy habit's
// streak ledger (each day applied exactly once), settles habit rewards in
// the task ledger, counts the day's quota outcomes, classifies standing,
// fires due milestones, opens penance approvals for relapses, and sends the
// daily message. Closing an already-closed day returns the stored snapshot
// unless recompute is set; recompute reclassifies but never re-fires
// milestones, re-settles rewards, or duplicates penances.
func (e *Engine) CloseDay(ctx context.Context, day string, recompute bool, dayCtx *DayContext) (*CloseDayResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.Clock.ParseDay(day); err != nil {
		return nil, err
	}

	if !recompute {
		snap, err := e.DB.GetSnapshot(day)
		if err != nil {
			return nil, err
		}
		if snap != nil {
			return &CloseDayResult{Snapshot: *snap, Replayed: true}, nil
		}
	}

	res := &CloseDayResult{}
	counts := DayCounts{}
	var requests []string

	// Validate every streak ledger before touching any of them, so a
	// corrupt row fails the whole day instead of half-applying it.
	habits := e.Catalog.HealthyHabits()
	states := make(map[string]*store.StreakState, len(habits))
	for _, h := range habits {
		s, err := e.DB.GetStreakState(h.ID)
		if err != nil {
			return nil, err
		}
		if err := ValidateStreakState(s); err != nil {
			return nil, fmt.Errorf("habit %s: %w", h.ID, err)
		}
		states[h.ID] = s
	}

	minStreak := -1
	for _, h := range habits {
		state, completed, err := e.applyHabitThrough(h.ID, states[h.ID], day)
		if err != nil {
			return nil, err
		}
		if completed {
			if err := e.settleHabitReward(h.ID, day, state.StreakLength); err != nil {
				return nil, err
			}
		} else {
			counts.Misses++
		}
		ids, texts, err := e.fireStreakMilestones(h.ID, day, state.StreakLength)
		if err != nil {
			return nil, err
		}
		requests = append(requests, ids...)
		res.Milestones = append(res.Milestones, texts...)
		if minStreak < 0 || state.StreakLength < minStreak {
			minStreak = state.StreakLength
		}
	}
	if minStreak < 0 {
		minStreak = 0
	}

	// Quota outcomes were classified at submission time; the close pass
	// only counts them and escalates relapses.
	events, err := e.DB.UsageForDay(day)
	if err != nil {
		return nil, err
	}
	var flagged []string
	for i := range events {
		ev := &events[i]
		switch ev.Class {
		case ClassOver, ClassAtZero, ClassGate:
			counts.Violations++
		}
		line, err := e.flagLine(ev)
		if err != nil {
			return nil, err
		}
		if line != "" {
			flagged = append(flagged, line)
		}
		if ev.Class == ClassAtZero {
			p, err := e.escalateRelapse(ctx, ev)
			if err != nil {
				return nil, err
			}
			if p != nil {
				res.Penances = append(res.Penances, *p)
				requests = append(requests, "penance:"+p.ID)
			}
		}
	}

	// Ceiling standing is a week state, not a day state: a behavior pushed
	// over its ceiling on Monday still blocks THRIVING on Tuesday even with
	// no Tuesday usage row.
	weekKey, err := e.Clock.WeekKeyOfDay(day)
	if err != nil {
		return nil, err
	}
	for _, def := range e.Catalog.Behaviors {
		total, err := e.weekTotalThrough(def.ID, weekKey, day)
		if err != nil {
			return nil, err
		}
		if total <= 0 {
			continue
		}
		weekIndex, err := e.weekIndexForDay(def, day)
		if err != nil {
			return nil, err
		}
		if total >= Ceiling(def, weekIndex)-ceilingEpsilon {
			counts.AtCeiling++
		}
	}

	cleanIDs, cleanTexts, err := e.fireCleanMilestones(day)
	if err != nil {
		return nil, err
	}
	requests = append(requests, cleanIDs...)
	res.Milestones = append(res.Milestones, cleanTexts...)

	state := ClassifyDay(counts)

	dctx := DefaultDayContext()
	if dayCtx != nil {
		dctx = *dayCtx
	}
	if dctx.MinStreakDays == 0 {
		dctx.MinStreakDays = minStreak
	}
	res.Coaching = append(flagged, CoachingLines(dctx, state)...)

	reqJSON, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("marshal requests: %w", err)
	}
	snap := &store.AdvisorSnapshot{
		Day:        day,
		State:      state,
		Misses:     counts.Misses,
		Violations: counts.Violations,
		AtCeiling:  counts.AtCeiling,
		Requests:   string(reqJSON),
	}
	if err := e.DB.PutSnapshot(snap); err != nil {
		return nil, err
	}
	res.Snapshot = *snap

	res.Message = AdvisorMessage(state, res.Coaching, res.Milestones)
	if err := e.Messenger.SendMessage(ctx, notify.Message{
		Tone: StateTone(state),
		Text: res.Message,
	}); err != nil {
		log.Printf("close day %s: send message: %v", day, err)
	}

	e.audit(day, "advisor", state,
		fmt.Sprintf("misses=%d violations=%d at_ceiling=%d milestones=%d penances=%d",
			counts.Misses, counts.Violations, counts.AtCeiling, len(res.Milestones), len(res.Penances)))
	return res, nil
}

// applyHabitThrough walks the streak ledger forward to the target day,
// treating recordless days as misses, and reports whether the target day
// itself was completed. Days at or before LastAppliedDay are never
// re-applied.
func (e *Engine) applyHabitThrough(habit string, s *store.StreakState, day string) (store.StreakState, bool, error) {
	state := store.StreakState{Habit: habit}
	if s != nil {
		state = *s
	}

	completed, err := e.habitCompleted(habit, day)
	if err != nil {
		return state, false, err
	}
	if state.LastAppliedDay >= day && state.LastAppliedDay != "" {
		return state, completed, nil
	}

	cursor := day
	if state.LastAppliedDay != "" {
		t, err := e.Clock.ParseDay(state.LastAppliedDay)
		if err != nil {
			return state, false, fmt.Errorf("habit %s: %w", habit, ErrCorruptStreakState)
		}
		cursor = e.Clock.Day(t.AddDate(0, 0, 1))
	}

	for cursor <= day {
		done, err := e.habitCompleted(habit, cursor)
		if err != nil {
			return state, false, err
		}
		var outcome string
		state, outcome = ApplyHabitDay(state, cursor, done)
		if outcome != StreakAdvanced {
			e.audit(cursor, "streak", habit,
				fmt.Sprintf("%s, length=%d grace=%d", outcome, state.StreakLength, state.GraceAvailable()))
		}
		t, err := e.Clock.ParseDay(cursor)
		if err != nil {
			return state, false, err
		}
		cursor = e.Clock.Day(t.AddDate(0, 0, 1))
	}

	if err := e.DB.PutStreakState(&state); err != nil {
		return state, false, err
	}
	return state, completed, nil
}

func (e *Engine) habitCompleted(habit, day string) (bool, error) {
	rec, err := e.DB.GetHabit(habit, day)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.Completed, nil
}

// settleHabitReward writes the day's closed reward task for a completed
// habit. The task id is derived from (habit, day) so recomputes are no-ops.
func (e *Engine) settleHabitReward(habit, day string, streak int) error {
	id := fmt.Sprintf("habit-%s-%s", habit, day)
	if existing, err := e.Ledger.Task(id); err != nil {
		return err
	} else if existing != nil {
		return nil
	}

	score := FinalScore(1, 0, Multiplier(streak))
	labels := ledger.Facets{
		Origin:   ledger.OriginPlanned,
		Nature:   ledger.NatureReward,
		Category: habit,
	}.Format()
	labels = append(labels, ledger.ScoreLabel(score))
	t := &ledger.Task{
		ID:     id,
		Title:  fmt.Sprintf("%s done (%s)", habit, day),
		Labels: labels,
	}
	if err := e.Ledger.CreateTask(t); err != nil {
		return err
	}
	if err := e.Ledger.CloseTask(id, day, labels); err != nil {
		return err
	}
	e.audit(day, "task", id, fmt.Sprintf("habit reward settled, score %d (streak %d)", score, streak))
	return nil
}

// fireStreakMilestones records and announces any streak thresholds the habit
// has reached but never celebrated.
func (e *Engine) fireStreakMilestones(habit, day string, streak int) (ids, texts []string, err error) {
	for _, n := range DueStreakMilestones(streak) {
		id := StreakMilestoneID(habit, n)
		done, err := e.DB.MilestoneFired(id)
		if err != nil {
			return nil, nil, err
		}
		if done {
			continue
		}
		if err := e.DB.RecordMilestone(id, day); err != nil {
			return nil, nil, err
		}
		text := StreakMilestoneText(habit, n)
		e.audit(day, "milestone", id, text)
		ids = append(ids, id)
		texts = append(texts, text)
	}
	return ids, texts, nil
}

// fireCleanMilestones checks every addiction-therapy behavior's clean-day
// count against its thresholds. Days clean count from the last day with a
// nonzero amount; a behavior with no usage history counts from its tracking
// start when one is configured.
func (e *Engine) fireCleanMilestones(day string) (ids, texts []string, err error) {
	dayT, err := e.Clock.ParseDay(day)
	if err != nil {
		return nil, nil, err
	}
	for _, def := range e.Catalog.Behaviors {
		if def.Tier != config.TierAddictionTherapy {
			continue
		}
		clean, ok, err := e.cleanDays(def, dayT)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		for _, n := range DueCleanMilestones(clean) {
			id := CleanMilestoneID(def.ID, n)
			done, err := e.DB.MilestoneFired(id)
			if err != nil {
				return nil, nil, err
			}
			if done {
				continue
			}
			if err := e.DB.RecordMilestone(id, day); err != nil {
				return nil, nil, err
			}
			text := CleanMilestoneText(def.ID, n)
			e.audit(day, "milestone", id, text)
			ids = append(ids, id)
			texts = append(texts, text)
		}
	}
	return ids, texts, nil
}

// cleanDays returns how many days the behavior has been clean as of the
// given day. The bool is false when there is no anchor to count from.
// Only usage at or before the day counts, so replaying an old day is not
// skewed by later relapses.
func (e *Engine) cleanDays(def config.BehaviorDefinition, day time.Time) (int, bool, error) {
	last, err := e.DB.LastUsedDayThrough(def.ID, e.Clock.Day(day))
	if err != nil {
		return 0, false, err
	}
	anchor := last
	if anchor == "" {
		anchor = def.TrackingStart
	}
	if anchor == "" {
		anchor = e.TrackingStart
	}
	if anchor == "" {
		return 0, false, nil
	}
	from, err := e.Clock.ParseDay(anchor)
	if err != nil {
		return 0, false, fmt.Errorf("clean anchor for %s: %w", def.ID, err)
	}
	days := e.Clock.DaysBetween(from, day)
	if days < 0 {
		days = 0
	}
	return days, true, nil
}

// flagLine renders the coaching line for a flagged usage outcome, or "".
func (e *Engine) flagLine(ev *store.UsageEvent) (string, error) {
	def, ok := e.Catalog.Behavior(ev.Behavior)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownBehavior, ev.Behavior)
	}
	switch ev.Class {
	case ClassOver:
		weekIndex, err := e.weekIndexForDay(def, ev.Day)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Over ceiling for %s: week at %.1f of %.1f %s.",
			def.ID, e.weekTotalOf(def.ID, ev.WeekKey), Ceiling(def, weekIndex), def.Unit), nil
	case ClassGate:
		return GateMessage(def, nil), nil
	case ClassAtZero:
		return fmt.Sprintf("Relapse for %s: %.1f %s on a zero-ceiling week.", def.ID, ev.Amount, ev.Unit), nil
	}
	return "", nil
}

// weekTotalThrough sums the week's usage up to and including day, so
// replaying an old day is not skewed by later rows in the same week.
func (e *Engine) weekTotalThrough(behavior, weekKey, day string) (float64, error) {
	rows, err := e.DB.WeekUsage(behavior, weekKey)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, r := range rows {
		if r.Day <= day {
			total += r.Amount
		}
	}
	return total, nil
}

func (e *Engine) weekTotalOf(behavior, weekKey string) float64 {
	rows, err := e.DB.WeekUsage(behavior, weekKey)
	if err != nil {
		log.Printf("week total %s/%s: %v", behavior, weekKey, err)
		return 0
	}
	var total float64
	for _, r := range rows {
		total += r.Amount
	}
	return total
}

func (e *Engine) weekIndexForDay(def config.BehaviorDefinition, day string) (int, error) {
	t, err := e.Clock.ParseDay(day)
	if err != nil {
		return 0, err
	}
	return e.weekIndexFor(def, t)
}

// escalateRelapse opens the penance proposal for an at-zero event: one
// penance record per (behavior, day), a pending approval carrying the
// severity's options, and an approval request pushed to the user. Replays
// that find an existing record are no-ops.
func (e *Engine) escalateRelapse(ctx context.Context, ev *store.UsageEvent) (*store.PenanceRecord, error) {
	existing, err := e.DB.GetPenanceForDay(ev.Behavior, ev.Day)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	relapses, err := e.DB.RelapseDays(ev.Behavior, ev.WeekKey)
	if err != nil {
		return nil, err
	}
	unitsOver := ev.Amount
	plan := PlanPenance(unitsOver, relapses)
	optJSON, err := json.Marshal(plan.Options)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	p := &store.PenanceRecord{
		ID:          uuid.NewString(),
		Behavior:    ev.Behavior,
		Day:         ev.Day,
		UnitsOver:   unitsOver,
		Relapses:    relapses,
		Severity:    plan.Severity,
		Status:      store.PenanceProposed,
		Options:     string(optJSON),
		DiaryCredit: plan.DiaryCredit,
		ApprovalID:  uuid.NewString(),
	}
	if err := e.DB.CreatePenance(p); err != nil {
		return nil, err
	}
	if err := e.openPenanceApproval(ctx, p, plan); err != nil {
		return nil, err
	}
	e.audit(ev.Day, "penance", p.ID,
		fmt.Sprintf("%s severity for %s (%.1f over, %d relapses this week)", plan.Severity, ev.Behavior, unitsOver, relapses))
	return p, nil
}

// openPenanceApproval writes the pending approval row for a penance and
// pushes the request. The penance's ApprovalID must already point at the
// new approval id.
func (e *Engine) openPenanceApproval(ctx context.Context, p *store.PenanceRecord, plan PenancePlan) error {
	now := time.Now()
	a := &store.Approval{
		ID:          p.ApprovalID,
		Kind:        "penance",
		SubjectID:   p.ID,
		Prompt:      PenancePrompt(p.Behavior, p.UnitsOver, p.Relapses, plan),
		Options:     p.Options,
		RequestedAt: now.UnixMilli(),
		ExpiresAt:   now.Add(e.ApprovalTimeout).UnixMilli(),
	}
	if err := e.DB.CreateApproval(a); err != nil {
		return err
	}
	if err := e.Messenger.RequestApproval(ctx, notify.ApprovalRequest{
		ID:      a.ID,
		Prompt:  a.Prompt,
		Options: plan.Options,
	}); err != nil {
		log.Printf("penance %s: request approval: %v", p.ID, err)
	}
	return nil
}

// EveningCheck sends streak-at-risk warnings for habits with a 7+ day streak
// and nothing logged for the day. Read-only; the ledger moves only at close.
func (e *Engine) EveningCheck(ctx context.Context, day string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.Clock.ParseDay(day); err != nil {
		return nil, err
	}

	var warnings []string
	for _, h := range e.Catalog.HealthyHabits() {
		s, err := e.DB.GetStreakState(h.ID)
		if err != nil {
			return nil, err
		}
		if s == nil {
			continue
		}
		completed, err := e.habitCompleted(h.ID, day)
		if err != nil {
			return nil, err
		}
		if !AtRisk(s.StreakLength, completed) {
			continue
		}
		text := fmt.Sprintf("Streak at risk: %d-day %s streak and nothing logged today (%d grace day(s) banked).",
			s.StreakLength, h.ID, s.GraceAvailable())
		warnings = append(warnings, text)
		if err := e.Messenger.SendMessage(ctx, notify.Message{Tone: notify.ToneWarning, Text: text}); err != nil {
			log.Printf("evening check %s: send warning: %v", day, err)
		}
	}
	return warnings, nil
}

// CreateTask opens a user ledger task with its facet labels. Origin and
// nature must be user-creatable kinds; penance and diary tasks are only
// opened by the escalator.
func (e *Engine) CreateTask(title, origin, nature, category string) (*ledger.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if title == "" {
		return nil, fmt.Errorf("task title is empty")
	}
	switch origin {
	case ledger.OriginPlanned, ledger.OriginUserRequest, ledger.OriginChoice:
	default:
		return nil, fmt.Errorf("invalid origin %q", origin)
	}
	switch nature {
	case ledger.NatureJob, ledger.NatureReward:
	default:
		return nil, fmt.Errorf("invalid nature %q", nature)
	}

	t := &ledger.Task{
		Title:  title,
		Labels: ledger.Facets{Origin: origin, Nature: nature, Category: category}.Format(),
	}
	if err := e.Ledger.CreateTask(t); err != nil {
		return nil, err
	}
	e.audit(e.Clock.Day(time.Now()), "task", t.ID, fmt.Sprintf("opened %q (%s/%s)", title, origin, nature))
	return t, nil
}

// CloseTask settles an open ledger task with its final score. Reward tasks
// in a healthy habit's category earn that habit's current streak multiplier;
// everything else scores at face value. Closing a penance's repair or diary
// task also advances the penance toward completion.
func (e *Engine) CloseTask(id string, base, bonus int, day string) (*ledger.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if base < 0 || base > 1 {
		return nil, fmt.Errorf("base must be 0 or 1, got %d", base)
	}
	if bonus < 0 {
		return nil, fmt.Errorf("bonus must be non-negative, got %d", bonus)
	}
	t, err := e.Ledger.Task(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("task not found: %s", id)
	}
	if t.Closed() {
		return nil, fmt.Errorf("task already closed: %s", id)
	}
	if day == "" {
		day = e.Clock.Day(time.Now())
	} else if _, err := e.Clock.ParseDay(day); err != nil {
		return nil, err
	}

	f, err := ledger.Parse(t.Labels)
	if err != nil && err != ledger.ErrNoScore {
		return nil, err
	}
	multiplier := 1.0
	if f.Nature == ledger.NatureReward {
		if h, ok := e.Catalog.Habit(f.Category); ok && h.Healthy() {
			s, err := e.DB.GetStreakState(h.ID)
			if err != nil {
				return nil, err
			}
			if s != nil {
				multiplier = Multiplier(s.StreakLength)
			}
		}
	}
	score := FinalScore(base, bonus, multiplier)

	labels := ledger.Facets{Origin: f.Origin, Nature: f.Nature, Category: f.Category}.Format()
	labels = append(labels, ledger.ScoreLabel(score))
	if err := e.Ledger.CloseTask(id, day, labels); err != nil {
		return nil, err
	}
	e.audit(day, "task", id, fmt.Sprintf("closed, score %d (base %d, bonus %d, x%.2f)", score, base, bonus, multiplier))

	if err := e.creditPenance(id, day); err != nil {
		return nil, err
	}

	t.Labels = labels
	t.ClosedDay = day
	return t, nil
}

// creditPenance checks whether the closed task belongs to a penance and
// marks the penance completed once the severity's requirement is met: the
// repair task counts full weight, the diary counts its credit.
func (e *Engine) creditPenance(taskID, day string) error {
	p, err := e.DB.PenanceByTask(taskID)
	if err != nil {
		return err
	}
	if p == nil || p.Status != store.PenanceApproved {
		return nil
	}

	var credit float64
	if done, err := e.taskClosed(p.TaskID); err != nil {
		return err
	} else if done {
		credit += 1.0
	}
	if done, err := e.taskClosed(p.DiaryTaskID); err != nil {
		return err
	} else if done {
		credit += p.DiaryCredit
	}

	requirement := penanceRequirements[p.Severity]
	if credit+1e-9 < requirement {
		e.audit(day, "penance", p.ID, fmt.Sprintf("credit %.1f of %.1f", credit, requirement))
		return nil
	}
	if err := e.DB.MarkPenanceCompleted(p.ID); err != nil {
		return err
	}
	e.audit(day, "penance", p.ID, fmt.Sprintf("completed with credit %.1f", credit))
	return nil
}

func (e *Engine) taskClosed(id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	t, err := e.Ledger.Task(id)
	if err != nil {
		return false, err
	}
	return t != nil && t.Closed(), nil
}

// Stack aggregates final scores over a window. For day windows the key is a
// day (empty means today); for iso_week windows an ISO week key (empty means
// the current week); total ignores the key.
func (e *Engine) Stack(window, key string, groupBy []string) (*StackResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ValidateGroupBy(groupBy); err != nil {
		return nil, err
	}

	var tasks []ledger.Task
	var err error
	switch window {
	case WindowDay:
		if key == "" {
			key = e.Clock.Day(time.Now())
		} else if _, perr := e.Clock.ParseDay(key); perr != nil {
			return nil, perr
		}
		tasks, err = e.Ledger.ClosedTasksBetween(key, key)
	case WindowWeek:
		if key == "" {
			key = e.Clock.WeekKey(time.Now())
		}
		var days []string
		days, err = e.Clock.WeekDays(key)
		if err != nil {
			return nil, err
		}
		tasks, err = e.Ledger.ClosedTasksBetween(days[0], days[6])
	case WindowTotal:
		key = ""
		tasks, err = e.Ledger.AllClosedTasks()
	default:
		return nil, fmt.Errorf("unknown window %q", window)
	}
	if err != nil {
		return nil, err
	}

	res := ComputeStack(tasks, groupBy)
	res.Window = window
	res.Key = key
	return &res, nil
}

// ResolveApproval answers a pending approval. Approving a penance creates
// its repair task from the chosen option plus the violation diary; denying
// closes it declined. Answers to resolved or expired approvals are rejected,
// so a late reply can never flip a recorded decision.
func (e *Engine) ResolveApproval(ctx context.Context, id string, approve bool, option int) (*store.Approval, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.DB.GetApproval(id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("approval not found: %s", id)
	}
	if a.Status != store.ApprovalPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrApprovalResolved, id, a.Status)
	}

	if !approve {
		if err := e.DB.ResolveApproval(id, store.ApprovalDenied); err != nil {
			return nil, err
		}
		if a.Kind == "penance" {
			if err := e.DB.MarkPenanceDeclined(a.SubjectID); err != nil {
				return nil, err
			}
			e.audit(e.Clock.Day(time.Now()), "approval", id, "denied, penance "+a.SubjectID+" declined")
		}
		return e.DB.GetApproval(id)
	}

	if a.Kind != "penance" {
		if err := e.DB.ResolveApproval(id, store.ApprovalApproved); err != nil {
			return nil, err
		}
		return e.DB.GetApproval(id)
	}

	p, err := e.DB.GetPenance(a.SubjectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("penance not found: %s", a.SubjectID)
	}
	var options []string
	if err := json.Unmarshal([]byte(p.Options), &options); err != nil {
		return nil, fmt.Errorf("penance %s options: %w", p.ID, err)
	}
	if option < 0 || option >= len(options) {
		return nil, fmt.Errorf("option %d out of range (0-%d)", option, len(options)-1)
	}

	if err := e.DB.ResolveApproval(id, store.ApprovalApproved); err != nil {
		return nil, err
	}

	plan := PlanPenance(p.UnitsOver, p.Relapses)
	repair := &ledger.Task{
		Title:  options[option],
		Labels: ledger.Facets{Origin: ledger.OriginPenance, Nature: ledger.NatureJob, Category: p.Behavior}.Format(),
	}
	if err := e.Ledger.CreateTask(repair); err != nil {
		return nil, err
	}
	diary := &ledger.Task{
		Title:  DiaryTitle(p.Behavior, plan),
		Labels: ledger.Facets{Origin: ledger.OriginDiary, Nature: ledger.NatureJob, Category: p.Behavior}.Format(),
	}
	if err := e.Ledger.CreateTask(diary); err != nil {
		return nil, err
	}
	if err := e.DB.MarkPenanceApproved(p.ID, option, repair.ID, diary.ID); err != nil {
		return nil, err
	}

	day := e.Clock.Day(time.Now())
	e.audit(day, "approval", id, fmt.Sprintf("approved option %d for penance %s", option, p.ID))
	e.audit(day, "task", repair.ID, "penance repair opened: "+repair.Title)
	e.audit(day, "task", diary.ID, "violation diary opened: "+diary.Title)

	if err := e.Messenger.SendMessage(ctx, notify.Message{
		Tone: notify.ToneSteady,
		Text: fmt.Sprintf("Penance accepted: %s. Diary has %d questions.", repair.Title, len(plan.Questions)),
	}); err != nil {
		log.Printf("approval %s: send confirmation: %v", id, err)
	}
	return e.DB.GetApproval(id)
}

// ExpireApprovals sweeps approvals whose deadline passed, marking their
// penances unresolved. Unresolved penances are re-offered at the next
// contact; they are never force-created and never dropped.
func (e *Engine) ExpireApprovals(now time.Time) ([]store.Approval, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	expired, err := e.DB.ExpireApprovals(now.UnixMilli())
	if err != nil {
		return nil, err
	}
	for _, a := range expired {
		if a.Kind != "penance" {
			continue
		}
		if err := e.DB.MarkPenanceUnresolved(a.SubjectID); err != nil {
			log.Printf("expire approval %s: %v", a.ID, err)
			continue
		}
		e.audit(e.Clock.Day(now), "approval", a.ID, "expired, penance "+a.SubjectID+" unresolved")
	}
	return expired, nil
}

// RetryUnresolved re-offers every unresolved penance with a fresh approval.
// The scheduler calls this at contact times.
func (e *Engine) RetryUnresolved(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stuck, err := e.DB.PenancesByStatus(store.PenanceUnresolved)
	if err != nil {
		return 0, err
	}
	retried := 0
	for i := range stuck {
		p := &stuck[i]
		approvalID := uuid.NewString()
		if err := e.DB.SetPenanceApproval(p.ID, approvalID); err != nil {
			log.Printf("retry penance %s: %v", p.ID, err)
			continue
		}
		p.ApprovalID = approvalID
		plan := PlanPenance(p.UnitsOver, p.Relapses)
		if err := e.openPenanceApproval(ctx, p, plan); err != nil {
			log.Printf("retry penance %s: %v", p.ID, err)
			continue
		}
		e.audit(p.Day, "penance", p.ID, "re-proposed after expiry")
		retried++
	}
	return retried, nil
}

// BehaviorStatus is one behavior's standing in the status report.
type BehaviorStatus struct {
	ID        string  `json:"id"`
	Tier      string  `json:"tier"`
	Unit      string  `json:"unit"`
	WeekIndex int     `json:"week_index"`
	Ceiling   float64 `json:"ceiling"`
	WeekTotal float64 `json:"week_total"`
	Class     string  `json:"class,omitempty"`
	CleanDays int     `json:"clean_days,omitempty"`
}

// HabitStatus is one habit's standing in the status report.
type HabitStatus struct {
	ID             string  `json:"id"`
	Streak         int     `json:"streak"`
	Multiplier     float64 `json:"multiplier"`
	GraceAvailable int     `json:"grace_available"`
	CompletedToday bool    `json:"completed_today"`
	AtRisk         bool    `json:"at_risk"`
}

// StatusReport is the full standing for one day.
type StatusReport struct {
	Day       string                 `json:"day"`
	Behaviors []BehaviorStatus       `json:"behaviors"`
	Habits    []HabitStatus          `json:"habits"`
	Snapshot  *store.AdvisorSnapshot `json:"snapshot,omitempty"`
	Approvals []store.Approval       `json:"pending_approvals,omitempty"`
	Prompts   []store.Prompt         `json:"pending_prompts,omitempty"`
}

// Status reports every behavior's quota standing and every habit's streak
// for a day, plus the day's snapshot and anything waiting on the user.
func (e *Engine) Status(day string) (*StatusReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if day == "" {
		day = e.Clock.Day(time.Now())
	}
	dayT, err := e.Clock.ParseDay(day)
	if err != nil {
		return nil, err
	}
	weekKey := e.Clock.WeekKey(dayT)

	rep := &StatusReport{Day: day}
	for _, def := range e.Catalog.Behaviors {
		weekIndex, err := e.weekIndexFor(def, dayT)
		if err != nil {
			return nil, err
		}
		bs := BehaviorStatus{
			ID:        def.ID,
			Tier:      def.Tier,
			Unit:      def.Unit,
			WeekIndex: weekIndex,
			Ceiling:   Ceiling(def, weekIndex),
			WeekTotal: e.weekTotalOf(def.ID, weekKey),
		}
		if ev, err := e.DB.GetUsage(def.ID, day); err != nil {
			return nil, err
		} else if ev != nil {
			bs.Class = ev.Class
		}
		if def.Tier == config.TierAddictionTherapy {
			clean, ok, err := e.cleanDays(def, dayT)
			if err != nil {
				return nil, err
			}
			if ok {
				bs.CleanDays = clean
			}
		}
		rep.Behaviors = append(rep.Behaviors, bs)
	}

	for _, h := range e.Catalog.HealthyHabits() {
		s, err := e.DB.GetStreakState(h.ID)
		if err != nil {
			return nil, err
		}
		hs := HabitStatus{ID: h.ID, Multiplier: 1.0}
		if s != nil {
			hs.Streak = s.StreakLength
			hs.Multiplier = Multiplier(s.StreakLength)
			hs.GraceAvailable = s.GraceAvailable()
		}
		completed, err := e.habitCompleted(h.ID, day)
		if err != nil {
			return nil, err
		}
		hs.CompletedToday = completed
		hs.AtRisk = AtRisk(hs.Streak, completed)
		rep.Habits = append(rep.Habits, hs)
	}

	if rep.Snapshot, err = e.DB.GetSnapshot(day); err != nil {
		return nil, err
	}
	if rep.Approvals, err = e.DB.PendingApprovals(); err != nil {
		return nil, err
	}
	if rep.Prompts, err = e.DB.PendingPrompts(); err != nil {
		return nil, err
	}
	return rep, nil
}

// Replay closes a date range in order, oldest first. Used after history
// imports. Days already closed are skipped unless recompute is set.
func (e *Engine) Replay(ctx context.Context, from, to string, recompute bool) (int, error) {
	fromT, err := e.Clock.ParseDay(from)
	if err != nil {
		return 0, err
	}
	toT, err := e.Clock.ParseDay(to)
	if err != nil {
		return 0, err
	}
	if toT.Before(fromT) {
		return 0, fmt.Errorf("replay range %s..%s is reversed", from, to)
	}

	closed := 0
	for t := fromT; !t.After(toT); t = t.AddDate(0, 0, 1) {
		day := e.Clock.Day(t)
		if _, err := e.CloseDay(ctx, day, recompute, nil); err != nil {
			return closed, fmt.Errorf("replay %s: %w", day, err)
		}
		closed++
	}
	return closed, nil
}

// audit appends a trail entry. Audit failures are logged, never propagated:
// the trail documents operations but must not fail them.
func (e *Engine) audit(day, kind, subject, detail string) {
	if err := e.DB.AppendAudit(day, kind, subject, detail); err != nil {
		log.Printf("audit %s %s: %v", kind, subject, err)
	}
}

// weekIndexFor returns t's ISO week index since the behavior's tracking
// start: the per-behavior override, then the global anchor, then the
// earliest recorded event. A behavior with no anchor at all is in week zero.
func (e *Engine) weekIndexFor(def config.BehaviorDefinition, t time.Time) (int, error) {
	anchor := def.TrackingStart
	if anchor == "" {
		anchor = e.TrackingStart
	}
	if anchor == "" {
		earliest, err := e.DB.EarliestUsageDay(def.ID)
		if err != nil {
			return 0, err
		}
		anchor = earliest
	}
	if anchor == "" {
		return 0, nil
	}
	start, err := e.Clock.ParseDay(anchor)
	if err != nil {
		return 0, fmt.Errorf("tracking start for %s: %w", def.ID, err)
	}
	return e.Clock.WeekIndex(start, t), nil
}

// lastIntake returns the previous qualifying intake time for the cooldown
// gate. Incremental submissions count the day's earlier intake; full-day
// corrections only look at prior days.
func (e *Engine) lastIntake(behavior, day string, existing *store.UsageEvent, add bool) (time.Time, error) {
	if add && existing != nil && existing.Amount > 0 {
		return time.UnixMilli(existing.OccurredAt).In(e.Clock.Location()), nil
	}
	prev, err := e.DB.LastUsageBefore(behavior, day)
	if err != nil {
		return time.Time{}, err
	}
	if prev == nil {
		return time.Time{}, nil
	}
	return time.UnixMilli(prev.OccurredAt).In(e.Clock.Location()), nil
}
