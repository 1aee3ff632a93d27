package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-db-replicator/internal/model"
)

// defaultPoll is the schedule evaluation granularity. Coarse polling is
// enough for hourly and up, and bounds shutdown latency to one interval.
const defaultPoll = 60 * time.Second

// ScheduleTrigger fires a fixed action on a recurring schedule. A trigger
// instance moves Configured → Running → Stopped; Stopped is terminal.
type ScheduleTrigger struct {
	Rule model.ScheduleRule
	Poll time.Duration

	action func(ctx context.Context) error

	mu      sync.Mutex
	state   state
	stopCh  chan struct{}
	wg      sync.WaitGroup
	nextRun time.Time
}

// NewScheduleTrigger creates a configured trigger. The action's errors are
// logged and swallowed; a failed firing never stops the timer.
func NewScheduleTrigger(rule model.ScheduleRule, action func(ctx context.Context) error) *ScheduleTrigger {
	return &ScheduleTrigger{
		Rule:   rule,
		Poll:   defaultPoll,
		action: action,
	}
}

// Start launches the evaluation loop and returns immediately.
func (t *ScheduleTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateConfigured {
		return fmt.Errorf("schedule trigger is %s, not configured", t.state)
	}
	t.state = stateRunning
	t.stopCh = make(chan struct{})
	t.nextRun = nextFiring(t.Rule, time.Now())

	t.wg.Add(1)
	go t.run(ctx)
	return nil
}

// Stop halts the loop. The next wake-check observes the stop signal within
// one polling interval; Stop waits for an in-flight firing to complete.
func (t *ScheduleTrigger) Stop() {
	t.mu.Lock()
	if t.state != stateRunning {
		t.mu.Unlock()
		return
	}
	t.state = stateStopped
	close(t.stopCh)
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *ScheduleTrigger) run(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case now := <-ticker.C:
			t.mu.Lock()
			due := !now.Before(t.nextRun)
			t.mu.Unlock()
			if !due {
				continue
			}
			if err := t.action(ctx); err != nil {
				fmt.Printf("❌ Scheduled run failed: %v\n", err)
			}
			t.mu.Lock()
			t.nextRun = nextFiring(t.Rule, time.Now())
			t.mu.Unlock()
		}
	}
}

// nextFiring computes the firing after now. TimeOfDay ("15:04") anchors
// daily and weekly rules; hourly rules fire at the top of each hour.
func nextFiring(rule model.ScheduleRule, now time.Time) time.Time {
	switch rule.Frequency {
	case model.FreqHourly:
		return now.Truncate(time.Hour).Add(time.Hour)
	case model.FreqDaily:
		next := atTimeOfDay(now, rule.TimeOfDay)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	case model.FreqWeekly:
		next := atTimeOfDay(now, rule.TimeOfDay)
		days := (rule.Weekday - int(next.Weekday()) + 7) % 7
		next = next.AddDate(0, 0, days)
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next
	default:
		// unknown frequency falls back to daily midnight
		return atTimeOfDay(now, "").AddDate(0, 0, 1)
	}
}

func atTimeOfDay(day time.Time, timeOfDay string) time.Time {
	hour, minute := 0, 0
	if t, err := time.Parse("15:04", timeOfDay); err == nil {
		hour, minute = t.Hour(), t.Minute()
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
