package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/bprzybysz/integra/internal/config"
	"github.com/bprzybysz/integra/internal/notify"
	"github.com/bprzybysz/integra/internal/store"
)

// StartScheduler begins the minute tick that drives all time-based work:
// check-in prompts at their configured times, the evening streak-at-risk
// advisory, approval expiry sweeps with penance re-offers, and the automatic
// close of the previous day after midnight. One tick runs immediately so a
// restart catches up on anything due earlier in the day.
func (e *Engine) StartScheduler(cfg config.ScheduleConfig) {
	st := &schedulerState{}
	e.tick(cfg, st, time.Now())
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.tick(cfg, st, time.Now())
			case <-e.stopCh:
				return
			}
		}
	}()
}

// StopScheduler stops the scheduler tick.
func (e *Engine) StopScheduler() {
	close(e.stopCh)
}

// schedulerState is the tick's transient dedup memory. Durable dedup lives
// in the prompts table; this only keeps one process from repeating
// message-only work within a day.
type schedulerState struct {
	eveningDay string
}

func (e *Engine) tick(cfg config.ScheduleConfig, st *schedulerState, now time.Time) {
	ctx := context.Background()
	local := now.In(e.Clock.Location())
	day := e.Clock.Day(local)
	hm := local.Format("15:04")

	if _, err := e.ExpireApprovals(now); err != nil {
		log.Printf("scheduler: expire approvals: %v", err)
	}

	for _, at := range cfg.CheckIns {
		if hm < at {
			continue
		}
		if err := e.enqueueCheckIn(ctx, at, day); err != nil {
			log.Printf("scheduler: check-in %s: %v", at, err)
		}
	}

	if cfg.EveningCheck != "" && hm >= cfg.EveningCheck && st.eveningDay != day {
		st.eveningDay = day
		if _, err := e.EveningCheck(ctx, day); err != nil {
			log.Printf("scheduler: evening check: %v", err)
		}
	}

	if cfg.AutoCloseDay {
		prev := e.Clock.Day(local.AddDate(0, 0, -1))
		snap, err := e.DB.GetSnapshot(prev)
		if err != nil {
			log.Printf("scheduler: auto close %s: %v", prev, err)
		} else if snap == nil {
			if _, err := e.CloseDay(ctx, prev, false, nil); err != nil {
				log.Printf("scheduler: auto close %s: %v", prev, err)
			}
		}
	}
}

// enqueueCheckIn queues the check-in prompt for one slot and, when it is
// new, pushes the questionnaire and re-offers any unresolved penances. An
// existing (kind, day) prompt means the slot already fired; nothing repeats.
func (e *Engine) enqueueCheckIn(ctx context.Context, at, day string) error {
	kind := "check-in:" + at
	existing, err := e.DB.GetPrompt(kind, day)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	if err := e.DB.EnqueuePrompt(&store.Prompt{
		ID:   uuid.NewString(),
		Kind: kind,
		Day:  day,
	}); err != nil {
		return err
	}
	e.audit(day, "prompt", kind, "check-in queued")

	if err := e.Messenger.SendMessage(ctx, notify.Message{
		Tone: notify.ToneSteady,
		Text: fmt.Sprintf("Check-in (%s): how were the last few hours? Log mood, energy, and anything that happened.", at),
	}); err != nil {
		log.Printf("check-in %s: send: %v", kind, err)
	}

	// A check-in is a contact point, so stalled penances get re-offered
	// here rather than on a timer of their own.
	if n, err := e.RetryUnresolved(ctx); err != nil {
		log.Printf("check-in %s: retry unresolved: %v", kind, err)
	} else if n > 0 {
		log.Printf("re-offered %d unresolved penance(s)", n)
	}
	return nil
}
