package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/blackwell-systems/sqlrunner/internal/runner"
)

// DefaultPollInterval bounds each wait for filesystem events.
const DefaultPollInterval = 100 * time.Millisecond

// DefaultQuietPeriod is how long the event queue must stay silent before a
// batch is closed. One save is usually a truncate plus several writes.
const DefaultQuietPeriod = 50 * time.Millisecond

// Executor runs the script at path. It must not return until the run is
// complete.
type Executor interface {
	Execute(ctx context.Context, path string) runner.Outcome
}

// Options configures a Loop.
type Options struct {
	PollInterval time.Duration
	QuietPeriod  time.Duration
	Logger       *zap.Logger
}

// Loop watches one script file and hands every save to an Executor.
type Loop struct {
	path         string
	dir          string
	name         string
	exec         Executor
	logger       *zap.Logger
	pollInterval time.Duration
	quietPeriod  time.Duration
}

// batch is everything read from fsnotify in one poll.
type batch struct {
	events []fsnotify.Event
	errs   []error
	closed bool
}

// New creates a Loop for the script at path. It does not touch the
// filesystem; call Run to register the watch.
func New(path string, exec Executor, opts Options) (*Loop, error) {
	if path == "" {
		return nil, fmt.Errorf("script path cannot be empty")
	}
	if exec == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	quiet := opts.QuietPeriod
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loop{
		path:         path,
		dir:          filepath.Clean(filepath.Dir(path)),
		name:         filepath.Base(path),
		exec:         exec,
		logger:       logger,
		pollInterval: interval,
		quietPeriod:  quiet,
	}, nil
}

// Run registers the directory watch and processes events until ctx is
// cancelled. The watch is released before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(l.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}
	l.logger.Info("watching script", zap.String("script", l.path), zap.String("dir", l.dir))

	registered := func() bool {
		return slices.Contains(w.WatchList(), l.dir)
	}

	for ctx.Err() == nil {
		b := l.poll(ctx, w)
		if b.closed {
			return fmt.Errorf("watcher closed unexpectedly")
		}
		l.handleErrors(b.errs)
		l.handleEvents(ctx, b.events, registered)
	}

	l.logger.Debug("application finished")
	return nil
}

// poll waits up to the poll interval for the first event or error, then
// keeps collecting until no event has arrived for the quiet period.
func (l *Loop) poll(ctx context.Context, w *fsnotify.Watcher) batch {
	var b batch

	timer := time.NewTimer(l.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return b
	case <-timer.C:
		return b
	case ev, ok := <-w.Events:
		if !ok {
			b.closed = true
			return b
		}
		b.events = append(b.events, ev)
	case err, ok := <-w.Errors:
		if !ok {
			b.closed = true
			return b
		}
		b.errs = append(b.errs, err)
	}

	quiet := time.NewTimer(l.quietPeriod)
	defer quiet.Stop()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				b.closed = true
				return b
			}
			b.events = append(b.events, ev)
		case err, ok := <-w.Errors:
			if !ok {
				b.closed = true
				return b
			}
			b.errs = append(b.errs, err)
		case <-quiet.C:
			return b
		case <-ctx.Done():
			return b
		}

		quiet.Reset(l.quietPeriod)
	}
}

// handleErrors logs watcher errors. Overflows are skipped; changes lost to
// an overflow are not recovered.
func (l *Loop) handleErrors(errs []error) {
	for _, err := range errs {
		if errors.Is(err, fsnotify.ErrEventOverflow) {
			l.logger.Debug("event queue overflow, changes may have been missed")
			continue
		}
		l.logger.Error("watch error", zap.Error(err))
	}
}

// handleEvents runs the executor at most once per batch, at the position
// of the last matching event, so a save split into several writes runs
// the script once. After each event the registration is checked; once it
// is gone the rest of the batch is dropped.
func (l *Loop) handleEvents(ctx context.Context, events []fsnotify.Event, registered func() bool) {
	last := -1
	for i, ev := range events {
		if isScriptModify(ev, l.name) {
			last = i
		}
	}

	for i := range events {
		if i == last {
			outcome := l.exec.Execute(ctx, l.path)
			l.logger.Debug("script executed", zap.Stringer("outcome", outcome), zap.Int("events", len(events)))
		}

		if !registered() {
			l.logger.Warn("watch registration no longer valid", zap.String("dir", l.dir))
			return
		}
	}
}
