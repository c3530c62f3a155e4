package reuse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// ErrNotRunning is returned by Attach implementations when the named
// environment does not (yet) exist. Followers keep polling on it.
var ErrNotRunning = errors.New("shared environment is not running")

// Ops are the environment operations the coordinator drives.
type Ops struct {
	// Attach connects to an already-running environment by id.
	// Returns ErrNotRunning (possibly wrapped) while the environment
	// does not exist yet.
	Attach func(ctx context.Context) (*stack.Environment, error)
	// Launch brings up the environment. Run by the leader only.
	Launch func(ctx context.Context) (*stack.Environment, error)
}

// Config parameterizes the coordination protocol. The polling and deadline
// values are explicit so that tests can shrink them.
type Config struct {
	Dir          string
	EnvID        stack.EnvID
	PollInterval time.Duration
	Deadline     time.Duration
	Log          log.Logger
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.PollInterval == 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.Deadline == 0 {
		out.Deadline = DefaultDeadline
	}
	return out
}

// Coordinate elects a leader via the lock file and returns a handle to the
// shared environment.
//
// The leader first tries to attach to an environment left behind by a
// previous leader; if none exists it launches a fresh one. The lock file is
// removed in a guaranteed cleanup block, regardless of launch outcome.
//
// Followers poll Attach at the configured interval until it succeeds or the
// overall deadline elapses, in which case a LockTimeoutError with operator
// remediation is returned.
func Coordinate(ctx context.Context, cfg Config, ops Ops) (*stack.Environment, bool, error) {
	cfg = cfg.withDefaults()
	lock := LockFor(cfg.Dir, cfg.EnvID)

	leader, err := lock.TryAcquire()
	if err != nil {
		return nil, false, err
	}
	if leader {
		cfg.Log.Info("Acquired reuse lock, acting as leader", "env", cfg.EnvID, "lock", lock.Path)
		env, err := runLeader(ctx, cfg, ops, lock)
		return env, true, err
	}

	if pid, err := lock.OwnerPid(); err == nil {
		cfg.Log.Info("Reuse lock is held, acting as follower", "env", cfg.EnvID, "owner_pid", pid)
	} else {
		cfg.Log.Info("Reuse lock is held, acting as follower", "env", cfg.EnvID)
	}
	env, err := runFollower(ctx, cfg, ops, lock)
	return env, false, err
}

func runLeader(ctx context.Context, cfg Config, ops Ops, lock *Lock) (*stack.Environment, error) {
	defer func() {
		if err := lock.Release(); err != nil {
			cfg.Log.Error("Failed to remove reuse lock file", "lock", lock.Path, "err", err)
		}
	}()

	env, err := ops.Attach(ctx)
	if err == nil {
		cfg.Log.Info("Attached to environment left by previous leader", "env", cfg.EnvID)
		return env, nil
	}
	if !errors.Is(err, ErrNotRunning) {
		return nil, fmt.Errorf("failed to attach to shared environment %q: %w", cfg.EnvID, err)
	}

	cfg.Log.Info("No running environment found, launching", "env", cfg.EnvID)
	return ops.Launch(ctx)
}

func runFollower(ctx context.Context, cfg Config, ops Ops, lock *Lock) (*stack.Environment, error) {
	deadline := time.NewTimer(cfg.Deadline)
	defer deadline.Stop()
	tick := time.NewTicker(cfg.PollInterval)
	defer tick.Stop()

	for {
		env, err := ops.Attach(ctx)
		if err == nil {
			return env, nil
		}
		if !errors.Is(err, ErrNotRunning) {
			return nil, fmt.Errorf("failed to attach to shared environment %q: %w", cfg.EnvID, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, &LockTimeoutError{LockPath: lock.Path, EnvID: cfg.EnvID, Deadline: cfg.Deadline}
		case <-tick.C:
		}
	}
}
