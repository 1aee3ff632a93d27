package trigger

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"go-db-replicator/internal/model"
)

// eventBuffer bounds the queue between event arrival and action execution,
// so a slow action cannot block fsnotify's delivery goroutine.
const eventBuffer = 64

// WatchTrigger fires its rule's action once per filesystem create/modify
// event under the watched directory. The triggering path is informational
// only and is never passed to the action.
type WatchTrigger struct {
	Rule model.WatchRule

	action func(ctx context.Context) error

	mu      sync.Mutex
	state   state
	watcher *fsnotify.Watcher
	events  chan string
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWatchTrigger creates a configured trigger.
func NewWatchTrigger(rule model.WatchRule, action func(ctx context.Context) error) *WatchTrigger {
	return &WatchTrigger{
		Rule:   rule,
		action: action,
	}
}

// Start subscribes to the directory tree and returns immediately. Events are
// pushed onto a bounded queue consumed by a dedicated worker, decoupling
// event cadence from action duration.
func (t *WatchTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateConfigured {
		return fmt.Errorf("watch trigger is %s, not configured", t.state)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(t.Rule.Directory); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", t.Rule.Directory, err)
	}
	if t.Rule.Recursive {
		if err := addSubdirs(watcher, t.Rule.Directory); err != nil {
			watcher.Close()
			return err
		}
	}

	t.state = stateRunning
	t.watcher = watcher
	t.events = make(chan string, eventBuffer)
	t.stopCh = make(chan struct{})

	t.wg.Add(2)
	go t.pump()
	go t.work(ctx)
	return nil
}

// Stop tears the subscription down synchronously: no further events are
// delivered after Stop returns, and an in-flight action is allowed to
// complete but no new one is started.
func (t *WatchTrigger) Stop() {
	t.mu.Lock()
	if t.state != stateRunning {
		t.mu.Unlock()
		return
	}
	t.state = stateStopped
	close(t.stopCh)
	t.watcher.Close()
	t.mu.Unlock()
	t.wg.Wait()
}

// pump filters fsnotify events onto the bounded queue.
func (t *WatchTrigger) pump() {
	defer t.wg.Done()
	defer close(t.events)

	for {
		select {
		case ev, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				// directories don't fire the action; new ones join the watch
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if t.Rule.Recursive {
						_ = t.watcher.Add(ev.Name)
					}
					continue
				}
			}
			t.enqueue(ev.Name)
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			fmt.Printf("⚠️ Watch error on %s: %v\n", t.Rule.Directory, err)
		case <-t.stopCh:
			return
		}
	}
}

// enqueue queues one qualifying event. When the queue is full the event is
// dropped and logged rather than blocking delivery.
func (t *WatchTrigger) enqueue(path string) {
	select {
	case t.events <- path:
	default:
		fmt.Printf("⚠️ Watch queue full, dropping event for %s\n", path)
	}
}

// work invokes the action exactly once per queued event.
func (t *WatchTrigger) work(ctx context.Context) {
	defer t.wg.Done()

	for {
		select {
		case <-t.stopCh:
			return
		case path, ok := <-t.events:
			if !ok {
				return
			}
			fmt.Printf("📁 Change at %s, running %s\n", path, t.Rule.Action)
			if err := t.action(ctx); err != nil {
				fmt.Printf("❌ Watch-triggered run failed: %v\n", err)
			}
		}
	}
}

func addSubdirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}
