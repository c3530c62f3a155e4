// Package reuse coordinates independent test-runner processes on one host so
// that exactly one of them launches a shared, named environment and the rest
// attach to it. The coordination primitive is the filesystem's
// exclusive-create: the lock file exists if and only if some process holds an
// in-progress leadership claim.
package reuse

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultDeadline     = 20 * time.Minute
)

// Lock is the on-disk mutual exclusion primitive. Its content (the owning
// pid) is diagnostic only; its existence is the signal.
type Lock struct {
	Path string
}

// LockFor returns the lock for the given environment under dir.
func LockFor(dir string, id stack.EnvID) *Lock {
	return &Lock{Path: filepath.Join(dir, id.String()+".lock")}
}

// TryAcquire attempts exclusive creation of the lock file.
// Returns true if this process became the leader. A false return is the
// normal "someone else holds the claim" signal, not an error.
func (l *Lock) TryAcquire() (bool, error) {
	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if os.IsExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create lock file %s: %w", l.Path, err)
	}
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("failed to write lock file %s: %w", l.Path, err)
	}
	return true, nil
}

// Release removes the lock file. Only the creator calls this, exactly once,
// in a guaranteed cleanup block.
func (l *Lock) Release() error {
	err := os.Remove(l.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// OwnerPid reads the pid recorded in the lock file, for diagnostics.
func (l *Lock) OwnerPid() (int, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, fmt.Errorf("lock file %s has unreadable owner pid: %w", l.Path, err)
	}
	return pid, nil
}

// LockTimeoutError reports that a follower could not attach to the shared
// environment before the deadline. The message carries explicit operator
// remediation: a stale lock file must be removed by hand.
type LockTimeoutError struct {
	LockPath string
	EnvID    stack.EnvID
	Deadline time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf(
		"gave up attaching to shared environment %q after %s; "+
			"if no other test runner is actually running, remove the stale lock file %s and retry",
		e.EnvID, e.Deadline, e.LockPath)
}
