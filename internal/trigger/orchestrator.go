// Package trigger runs pipeline actions on recurring schedules and in
// reaction to filesystem events. Both mechanisms run concurrently with each
// other and with the caller that starts them.
package trigger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"go-db-replicator/internal/model"
	"go-db-replicator/internal/pipeline"
	"go-db-replicator/internal/store"
)

type state int

const (
	stateConfigured state = iota
	stateRunning
	stateStopped
)

func (s state) String() string {
	switch s {
	case stateConfigured:
		return "configured"
	case stateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// Orchestrator owns the registered triggers and translates trigger firings
// into pipeline runs. Rules are registered before Start and are immutable
// while running; a stopped orchestrator cannot be restarted.
type Orchestrator struct {
	Pipeline     *pipeline.Pipeline
	Sources      []string
	Destinations []string
	Formats      []model.Format
	Exclude      map[string]bool

	mu        sync.Mutex
	st        state
	schedules []*ScheduleTrigger
	watches   []*WatchTrigger
}

// NewOrchestrator creates an orchestrator over the named connections.
func NewOrchestrator(p *pipeline.Pipeline, sources, destinations []string, formats []model.Format, exclude map[string]bool) *Orchestrator {
	if exclude == nil {
		exclude = map[string]bool{}
	}
	return &Orchestrator{
		Pipeline:     p,
		Sources:      sources,
		Destinations: destinations,
		Formats:      formats,
		Exclude:      exclude,
	}
}

// AddSchedule registers a schedule rule. The scheduled action is fixed:
// export-all, then copy-all when destinations are configured.
func (o *Orchestrator) AddSchedule(rule model.ScheduleRule) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.st != stateConfigured {
		return fmt.Errorf("orchestrator is %s; register triggers before start", o.st)
	}
	o.schedules = append(o.schedules, NewScheduleTrigger(rule, o.scheduledAction))
	return nil
}

// AddWatch registers a watch rule invoking the rule's named action.
func (o *Orchestrator) AddWatch(rule model.WatchRule) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.st != stateConfigured {
		return fmt.Errorf("orchestrator is %s; register triggers before start", o.st)
	}
	action := rule.Action
	o.watches = append(o.watches, NewWatchTrigger(rule, func(ctx context.Context) error {
		return o.RunAction(ctx, action, "watch")
	}))
	return nil
}

// Start activates every registered trigger concurrently and returns without
// waiting for any firing. Partially started triggers are torn down on error.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.st != stateConfigured {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator is %s, not configured", o.st)
	}
	o.st = stateRunning
	schedules := o.schedules
	watches := o.watches
	o.mu.Unlock()

	var started []interface{ Stop() }
	for _, s := range schedules {
		if err := s.Start(ctx); err != nil {
			stopAll(started)
			return err
		}
		started = append(started, s)
	}
	for _, w := range watches {
		if err := w.Start(ctx); err != nil {
			stopAll(started)
			return err
		}
		started = append(started, w)
	}

	fmt.Printf("🚀 Orchestrator running: %d schedule(s), %d watch(es)\n", len(schedules), len(watches))
	return nil
}

// Stop deterministically halts both mechanisms: the schedule loops observe
// the stop signal within one polling interval, and watch subscriptions are
// torn down before Stop returns.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.st != stateRunning {
		o.mu.Unlock()
		return
	}
	o.st = stateStopped
	schedules := o.schedules
	watches := o.watches
	o.mu.Unlock()

	for _, w := range watches {
		w.Stop()
	}
	for _, s := range schedules {
		s.Stop()
	}
	fmt.Println("🛑 Orchestrator stopped")
}

func stopAll(started []interface{ Stop() }) {
	for _, s := range started {
		s.Stop()
	}
}

// scheduledAction is the fixed schedule firing: export everything, then copy
// everything when destinations exist.
func (o *Orchestrator) scheduledAction(ctx context.Context) error {
	if err := o.RunAction(ctx, model.ActionExportAll, "schedule"); err != nil {
		return err
	}
	if o.Pipeline.Registry.HasDestinations() {
		return o.RunAction(ctx, model.ActionCopyAll, "schedule")
	}
	return nil
}

// RunAction executes one pipeline action under a fresh run ID.
func (o *Orchestrator) RunAction(ctx context.Context, action model.TriggerAction, triggerKind string) error {
	return o.RunActionWithID(ctx, uuid.New().String(), action, triggerKind)
}

// RunActionWithID executes one pipeline action across all configured
// connections, recording the run and its per-table outcomes in the tracking
// store. Tables within a run proceed sequentially in catalog order.
func (o *Orchestrator) RunActionWithID(ctx context.Context, runID string, action model.TriggerAction, triggerKind string) error {
	if err := store.SaveRun(runID, action, triggerKind); err != nil {
		fmt.Printf("⚠️ Failed to record run %s: %v\n", runID, err)
	}

	var firstErr error
	record := func(results map[string]model.TableResult, err error) {
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			store.SaveRunError(runID, err)
			return
		}
		for _, res := range results {
			store.SaveTableResult(runID, res)
		}
	}

	switch action {
	case model.ActionExportAll:
		for _, src := range o.Sources {
			record(o.Pipeline.ExportAllTables(ctx, src, o.Formats, o.Exclude))
		}
	case model.ActionCopyAll:
		for _, src := range o.Sources {
			for _, dst := range o.Destinations {
				record(o.Pipeline.CopyAllTables(ctx, src, dst, o.Exclude))
			}
		}
	default:
		firstErr = fmt.Errorf("unknown trigger action: %q", action)
		store.SaveRunError(runID, firstErr)
	}

	status := "completed"
	if firstErr != nil {
		status = "failed"
	}
	store.FinishRun(runID, status)
	return firstErr
}
