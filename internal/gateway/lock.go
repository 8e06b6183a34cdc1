package gateway

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// InstanceLock is the cross-process exclusive lock that makes the
// socket ownership unambiguous. Only the lock holder may remove a
// stale socket file and bind a fresh one; without the lock, a crashed
// instance's leftover socket is indistinguishable from a live one.
type InstanceLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewInstanceLock creates a lock at the given path. Nothing is
// acquired until TryAcquire.
func NewInstanceLock(path string) *InstanceLock {
	return &InstanceLock{
		path:  path,
		flock: flock.New(path),
	}
}

// TryAcquire attempts to take the lock without blocking. Returns false
// when another instance holds it.
func (l *InstanceLock) TryAcquire() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire instance lock: %w", err)
	}

	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Release drops the lock. Safe to call when not held.
func (l *InstanceLock) Release() error {
	if !l.locked {
		return nil
	}

	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release instance lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string {
	return l.path
}
