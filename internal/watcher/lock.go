package watcher

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned by AcquireLock when another process holds
// the lock.
var ErrAlreadyRunning = errors.New("another sqlrunner is already running")

// Lock is an exclusive advisory lock on a file, held for the life of the
// process.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the lock at path without blocking and writes the
// current PID into the file.
func AcquireLock(path string) (*Lock, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock file: %s, pid %s)", ErrAlreadyRunning, path, ReadLockPID(path))
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	return &Lock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release unlocks the file. The file itself is left in place.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

// ReadLockPID returns the PID recorded in a lock file, or "unknown".
func ReadLockPID(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return "unknown"
	}
	return strconv.Itoa(pid)
}
