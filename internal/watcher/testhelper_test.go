package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/blackwell-systems/sqlrunner/internal/runner"
)

// recordingExecutor records every Execute call and forwards it on calls.
type recordingExecutor struct {
	mu    sync.Mutex
	paths []string
	calls chan string
	fn    func(path string) runner.Outcome
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{calls: make(chan string, 16)}
}

func (r *recordingExecutor) Execute(ctx context.Context, path string) runner.Outcome {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	fn := r.fn
	r.mu.Unlock()

	outcome := runner.OutcomeRows
	if fn != nil {
		outcome = fn(path)
	}
	r.calls <- path
	return outcome
}

func (r *recordingExecutor) setFn(fn func(path string) runner.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fn = fn
}

func (r *recordingExecutor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

// waitCall waits for one Execute call or fails the test.
func (r *recordingExecutor) waitCall(t *testing.T) string {
	t.Helper()
	select {
	case p := <-r.calls:
		return p
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for Execute")
		return ""
	}
}

// expectNoCall asserts no Execute call arrives within d.
func (r *recordingExecutor) expectNoCall(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case p := <-r.calls:
		t.Fatalf("unexpected Execute(%q)", p)
	case <-time.After(d):
	}
}

// startLoop runs l in the background and returns a stop func that cancels
// it and waits for Run to return.
func startLoop(t *testing.T, l *Loop) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	// Give fsnotify time to register the directory.
	time.Sleep(100 * time.Millisecond)

	var once sync.Once
	var runErr error
	stop = func() error {
		once.Do(func() {
			cancel()
			select {
			case runErr = <-done:
			case <-time.After(3 * time.Second):
				t.Error("Run did not return after cancel")
			}
		})
		return runErr
	}
	t.Cleanup(func() { stop() })
	return stop
}
