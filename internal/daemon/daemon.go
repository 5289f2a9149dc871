// Package daemon runs fashion builds on a schedule and in response to
// warehouse/segment filesystem changes. Grounded on the teacher's
// cmd/docbuilder/commands/daemon.go (signal-driven start/stop) and
// internal/daemon/config_watcher.go (fsnotify directory watch + debounce),
// simplified to fashion's single BuildFunc and rebuilt on
// github.com/go-co-op/gocron/v2 instead of the teacher's hand-rolled
// ticker/cron scheduler.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"github.com/fashionforge/fashion/internal/config"
	"github.com/fashionforge/fashion/internal/eventbus"
)

// BuildFunc runs one full build. The daemon treats any returned error as
// non-fatal: it is logged and the daemon keeps running.
type BuildFunc func(ctx context.Context) error

// Daemon schedules and watches for rebuilds of a single portfolio.
type Daemon struct {
	cfg       config.DaemonConfig
	build     BuildFunc
	bus       *eventbus.Bus
	watchDirs []string

	scheduler gocron.Scheduler
	fsWatcher *fsnotify.Watcher

	mu           sync.Mutex
	debounce     *time.Timer
	stopWatch    chan struct{}
	watchStopped chan struct{}
}

// New constructs a Daemon. watchDirs is the set of directories (typically a
// portfolio's warehouse directories) watched for changes when
// cfg.Watch is true.
func New(cfg config.DaemonConfig, watchDirs []string, build BuildFunc, bus *eventbus.Bus) (*Daemon, error) {
	if build == nil {
		return nil, fmt.Errorf("daemon: build function required")
	}
	if bus == nil {
		bus = eventbus.New()
	}
	return &Daemon{cfg: cfg, build: build, bus: bus, watchDirs: watchDirs}, nil
}

// Start begins scheduled and/or watch-triggered rebuilds. It returns once
// both are running; call Stop to shut down.
func (d *Daemon) Start(ctx context.Context) error {
	if d.cfg.Interval > 0 {
		sched, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("daemon: scheduler: %w", err)
		}
		d.scheduler = sched
		_, err = sched.NewJob(
			gocron.DurationJob(d.cfg.Interval),
			gocron.NewTask(func() { d.runBuild(ctx, "scheduled") }),
		)
		if err != nil {
			return fmt.Errorf("daemon: schedule job: %w", err)
		}
		sched.Start()
		slog.Info("daemon: scheduled rebuilds started", "interval", d.cfg.Interval)
	}

	if d.cfg.Watch && len(d.watchDirs) > 0 {
		if err := d.startWatch(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (d *Daemon) startWatch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("daemon: watcher: %w", err)
	}
	for _, dir := range d.watchDirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			slog.Warn("daemon: cannot resolve watch dir", "dir", dir, "error", err)
			continue
		}
		if err := w.Add(abs); err != nil {
			slog.Warn("daemon: cannot watch dir", "dir", abs, "error", err)
			continue
		}
	}
	d.fsWatcher = w
	d.stopWatch = make(chan struct{})
	d.watchStopped = make(chan struct{})

	go d.watchLoop(ctx)
	slog.Info("daemon: filesystem watch started", "dirs", d.watchDirs)
	return nil
}

func (d *Daemon) watchLoop(ctx context.Context) {
	defer close(d.watchStopped)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopWatch:
			return
		case event, ok := <-d.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				d.scheduleDebounced(ctx, event.Name)
			}
		case err, ok := <-d.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Warn("daemon: watch error", "error", err)
		}
	}
}

// scheduleDebounced coalesces a burst of filesystem events into a single
// rebuild fired after cfg.DebounceDelay of quiet.
func (d *Daemon) scheduleDebounced(ctx context.Context, changed string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.debounce != nil {
		d.debounce.Stop()
	}
	d.debounce = time.AfterFunc(d.cfg.DebounceDelay, func() {
		d.runBuild(ctx, "watch:"+changed)
	})
}

func (d *Daemon) runBuild(ctx context.Context, reason string) {
	slog.Info("daemon: running build", "reason", reason)
	start := time.Now()
	_ = d.bus.Publish(eventbus.NewBuildStarted(reason, start))
	if err := d.build(ctx); err != nil {
		slog.Error("daemon: build failed", "reason", reason, "error", err)
		_ = d.bus.Publish(eventbus.NewBuildFailed(err.Error()))
		return
	}
	slog.Info("daemon: build completed", "reason", reason, "duration", time.Since(start))
}

// Stop shuts down the scheduler and filesystem watcher.
func (d *Daemon) Stop(ctx context.Context) error {
	if d.scheduler != nil {
		if err := d.scheduler.Shutdown(); err != nil {
			slog.Error("daemon: scheduler shutdown failed", "error", err)
		}
	}
	if d.fsWatcher != nil {
		close(d.stopWatch)
		if err := d.fsWatcher.Close(); err != nil {
			slog.Error("daemon: watcher close failed", "error", err)
		}
		select {
		case <-d.watchStopped:
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
	}
	return nil
}
