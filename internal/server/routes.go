package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bprzybysz/integra/internal/engine"
	"github.com/bprzybysz/integra/internal/ledger"
	"github.com/bprzybysz/integra/internal/store"
)

// usageJSON is the wire form of a classified usage submission.
type usageJSON struct {
	EventID   string   `json:"event_id"`
	Behavior  string   `json:"behavior"`
	Day       string   `json:"day"`
	WeekKey   string   `json:"week_key"`
	Amount    float64  `json:"amount"`
	Unit      string   `json:"unit"`
	Class     string   `json:"class"`
	Score     int      `json:"score"`
	WeekIndex int      `json:"week_index"`
	Ceiling   float64  `json:"ceiling"`
	WeekTotal float64  `json:"week_total"`
	UnitsOver float64  `json:"units_over,omitempty"`
	Reasons   []string `json:"reasons,omitempty"`
	Coaching  bool     `json:"coaching,omitempty"`
}

type penanceJSON struct {
	ID         string  `json:"id"`
	Behavior   string  `json:"behavior"`
	Day        string  `json:"day"`
	UnitsOver  float64 `json:"units_over"`
	Relapses   int     `json:"relapses"`
	Severity   string  `json:"severity"`
	Status     string  `json:"status"`
	ApprovalID string  `json:"approval_id"`
}

type snapshotJSON struct {
	Day        string `json:"day"`
	State      string `json:"state"`
	Misses     int    `json:"misses"`
	Violations int    `json:"violations"`
	AtCeiling  int    `json:"at_ceiling"`
}

type taskJSON struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Labels    []string `json:"labels"`
	ClosedDay string   `json:"closed_day,omitempty"`
}

type approvalJSON struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	SubjectID   string   `json:"subject_id"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options,omitempty"`
	Status      string   `json:"status"`
	RequestedAt int64    `json:"requested_at"`
	ExpiresAt   int64    `json:"expires_at"`
}

type promptJSON struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Day    string `json:"day"`
	Status string `json:"status"`
}

func toUsageJSON(res *engine.UsageResult) usageJSON {
	return usageJSON{
		EventID:   res.Event.EventID,
		Behavior:  res.Event.Behavior,
		Day:       res.Event.Day,
		WeekKey:   res.Event.WeekKey,
		Amount:    res.Event.Amount,
		Unit:      res.Event.Unit,
		Class:     res.Outcome.Class,
		Score:     res.Outcome.Score,
		WeekIndex: res.Outcome.WeekIndex,
		Ceiling:   res.Outcome.Ceiling,
		WeekTotal: res.Outcome.WeekTotal,
		UnitsOver: res.Outcome.UnitsOver,
		Reasons:   res.Outcome.Reasons,
		Coaching:  res.Outcome.Coaching,
	}
}

func toPenanceJSON(p store.PenanceRecord) penanceJSON {
	return penanceJSON{
		ID:         p.ID,
		Behavior:   p.Behavior,
		Day:        p.Day,
		UnitsOver:  p.UnitsOver,
		Relapses:   p.Relapses,
		Severity:   p.Severity,
		Status:     p.Status,
		ApprovalID: p.ApprovalID,
	}
}

func toSnapshotJSON(s store.AdvisorSnapshot) snapshotJSON {
	return snapshotJSON{
		Day:        s.Day,
		State:      s.State,
		Misses:     s.Misses,
		Violations: s.Violations,
		AtCeiling:  s.AtCeiling,
	}
}

func toTaskJSON(t ledger.Task) taskJSON {
	return taskJSON{ID: t.ID, Title: t.Title, Labels: t.Labels, ClosedDay: t.ClosedDay}
}

func toApprovalJSON(a store.Approval) approvalJSON {
	out := approvalJSON{
		ID:          a.ID,
		Kind:        a.Kind,
		SubjectID:   a.SubjectID,
		Prompt:      a.Prompt,
		Status:      a.Status,
		RequestedAt: a.RequestedAt,
		ExpiresAt:   a.ExpiresAt,
	}
	// Options are stored as a JSON array string; a decode failure just
	// leaves them off the wire form.
	json.Unmarshal([]byte(a.Options), &out.Options)
	return out
}

func toPromptJSON(p store.Prompt) promptJSON {
	return promptJSON{ID: p.ID, Kind: p.Kind, Day: p.Day, Status: p.Status}
}

// writeErr maps engine errors onto HTTP statuses: unknown definitions are
// 422, resolved approvals 409, caller mistakes 400, everything else 500.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownBehavior), errors.Is(err, engine.ErrUnknownHabit):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrApprovalResolved):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrBadGroupBy):
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleSubmitUsage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Behavior string  `json:"behavior"`
		Amount   float64 `json:"amount"`
		At       string  `json:"at"`
		Add      bool    `json:"add"`
		Unit     string  `json:"unit"`
		Hungry   bool    `json:"hungry"`
		Angry    bool    `json:"angry"`
		Lonely   bool    `json:"lonely"`
		Tired    bool    `json:"tired"`
		Craving  *int64  `json:"craving"`
		Note     string  `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Behavior == "" {
		http.Error(w, `{"error":"behavior required"}`, http.StatusBadRequest)
		return
	}

	var at time.Time
	if req.At != "" {
		var err error
		if at, err = time.Parse(time.RFC3339, req.At); err != nil {
			http.Error(w, `{"error":"at must be RFC 3339"}`, http.StatusBadRequest)
			return
		}
	}

	res, err := s.engine.SubmitUsage(engine.UsageRequest{
		Behavior: req.Behavior,
		At:       at,
		Amount:   req.Amount,
		Add:      req.Add,
		Unit:     req.Unit,
		Hungry:   req.Hungry,
		Angry:    req.Angry,
		Lonely:   req.Lonely,
		Tired:    req.Tired,
		Craving:  req.Craving,
		Note:     req.Note,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUsageJSON(res))
}

func (s *Server) handleSubmitHabit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Habit       string `json:"habit"`
		Day         string `json:"day"`
		Completed   *bool  `json:"completed"`
		DurationMin int    `json:"duration_min"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Habit == "" {
		http.Error(w, `{"error":"habit required"}`, http.StatusBadRequest)
		return
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}

	rec, err := s.engine.SubmitHabit(engine.HabitRequest{
		Habit:       req.Habit,
		Day:         req.Day,
		Completed:   completed,
		DurationMin: req.DurationMin,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"habit":        rec.Habit,
		"day":          rec.Day,
		"completed":    rec.Completed,
		"duration_min": rec.DurationMin,
	})
}

func (s *Server) handleCloseDay(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	recompute := r.URL.Query().Get("recompute") == "1"

	// The day context body is optional; an empty body closes with defaults.
	var dayCtx *engine.DayContext
	if r.ContentLength != 0 {
		var dc engine.DayContext
		if err := json.NewDecoder(r.Body).Decode(&dc); err != nil {
			http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
			return
		}
		dayCtx = &dc
	}

	res, err := s.engine.CloseDay(r.Context(), day, recompute, dayCtx)
	if err != nil {
		writeErr(w, err)
		return
	}

	penances := make([]penanceJSON, 0, len(res.Penances))
	for _, p := range res.Penances {
		penances = append(penances, toPenanceJSON(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot":   toSnapshotJSON(res.Snapshot),
		"coaching":   res.Coaching,
		"milestones": res.Milestones,
		"penances":   penances,
		"message":    res.Message,
		"replayed":   res.Replayed,
	})
}

func (s *Server) handleGetDay(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	snap, err := s.db.GetSnapshot(day)
	if err != nil {
		writeErr(w, err)
		return
	}
	if snap == nil {
		http.Error(w, `{"error":"day not closed"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotJSON(*snap))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rep, err := s.engine.Status(r.URL.Query().Get("date"))
	if err != nil {
		writeErr(w, err)
		return
	}

	out := struct {
		Day       string                  `json:"day"`
		Behaviors []engine.BehaviorStatus `json:"behaviors"`
		Habits    []engine.HabitStatus    `json:"habits"`
		Snapshot  *snapshotJSON           `json:"snapshot,omitempty"`
		Approvals []approvalJSON          `json:"pending_approvals,omitempty"`
		Prompts   []promptJSON            `json:"pending_prompts,omitempty"`
	}{
		Day:       rep.Day,
		Behaviors: rep.Behaviors,
		Habits:    rep.Habits,
	}
	if rep.Snapshot != nil {
		v := toSnapshotJSON(*rep.Snapshot)
		out.Snapshot = &v
	}
	for _, a := range rep.Approvals {
		out.Approvals = append(out.Approvals, toApprovalJSON(a))
	}
	for _, p := range rep.Prompts {
		out.Prompts = append(out.Prompts, toPromptJSON(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStack(w http.ResponseWriter, r *http.Request) {
	window := r.URL.Query().Get("window")
	if window == "" {
		window = engine.WindowDay
	}
	key := r.URL.Query().Get("date")
	var groupBy []string
	if g := r.URL.Query().Get("group"); g != "" {
		groupBy = strings.Split(g, ",")
	}

	res, err := s.engine.Stack(window, key, groupBy)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string `json:"title"`
		Origin   string `json:"origin"`
		Nature   string `json:"nature"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Origin == "" {
		req.Origin = ledger.OriginPlanned
	}
	if req.Nature == "" {
		req.Nature = ledger.NatureJob
	}

	t, err := s.engine.CreateTask(req.Title, req.Origin, req.Nature, req.Category)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskJSON(*t))
}

func (s *Server) handleCloseTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	var req struct {
		Base  *int   `json:"base"`
		Bonus int    `json:"bonus"`
		Day   string `json:"day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	base := 1
	if req.Base != nil {
		base = *req.Base
	}

	t, err := s.engine.CloseTask(taskID, base, req.Bonus, req.Day)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskJSON(*t))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		state = "open"
	}

	var tasks []ledger.Task
	var err error
	switch state {
	case "open":
		tasks, err = s.engine.Ledger.OpenTasks()
	case "closed":
		tasks, err = s.engine.Ledger.AllClosedTasks()
	default:
		http.Error(w, `{"error":"state must be open or closed"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}

	out := make([]taskJSON, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskJSON(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state, "tasks": out})
}

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	pending, err := s.db.PendingApprovals()
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]approvalJSON, 0, len(pending))
	for _, a := range pending {
		out = append(out, toApprovalJSON(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"approvals": out})
}

func (s *Server) handleResolveApproval(w http.ResponseWriter, r *http.Request) {
	approvalID := chi.URLParam(r, "approvalID")

	var req struct {
		Decision string `json:"decision"`
		Option   int    `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	var approve bool
	switch req.Decision {
	case "approve":
		approve = true
	case "deny":
	default:
		http.Error(w, `{"error":"decision must be approve or deny"}`, http.StatusBadRequest)
		return
	}

	a, err := s.engine.ResolveApproval(r.Context(), approvalID, approve, req.Option)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalJSON(*a))
}

func (s *Server) handlePendingPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := s.db.PendingPrompts()
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]promptJSON, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, toPromptJSON(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": out})
}

func (s *Server) handleAnswerPrompt(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "promptID")

	var req struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	if err := s.db.AnswerPrompt(promptID, req.Answer); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "answered"})
}

func (s *Server) handleDeferPrompt(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "promptID")
	if err := s.db.DeferPrompt(promptID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deferred"})
}
