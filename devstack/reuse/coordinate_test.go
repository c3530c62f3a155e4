package reuse

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/bridge-service/testlog"
	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

func coordCfg(t *testing.T, dir string) Config {
	return Config{
		Dir:          dir,
		EnvID:        "shared",
		PollInterval: 5 * time.Millisecond,
		Deadline:     2 * time.Second,
		Log:          testlog.Logger(t, log.LevelInfo),
	}
}

func TestCoordinateLeaderLaunches(t *testing.T) {
	dir := t.TempDir()
	launched := 0
	env, isLeader, err := Coordinate(context.Background(), coordCfg(t, dir), Ops{
		Attach: func(ctx context.Context) (*stack.Environment, error) {
			return nil, ErrNotRunning
		},
		Launch: func(ctx context.Context) (*stack.Environment, error) {
			launched++
			return stack.NewEnvironment("shared"), nil
		},
	})
	require.NoError(t, err)
	require.True(t, isLeader)
	require.NotNil(t, env)
	require.Equal(t, 1, launched)

	// The lock is removed afterwards, success or not.
	_, statErr := os.Stat(LockFor(dir, "shared").Path)
	require.True(t, os.IsNotExist(statErr))
}

func TestCoordinateLeaderAttachesFirst(t *testing.T) {
	dir := t.TempDir()
	existing := stack.NewEnvironment("shared")
	env, isLeader, err := Coordinate(context.Background(), coordCfg(t, dir), Ops{
		Attach: func(ctx context.Context) (*stack.Environment, error) {
			return existing, nil
		},
		Launch: func(ctx context.Context) (*stack.Environment, error) {
			t.Fatal("must not launch when an environment is attachable")
			return nil, nil
		},
	})
	require.NoError(t, err)
	require.True(t, isLeader)
	require.Same(t, existing, env)
}

func TestCoordinateLeaderReleasesLockOnFailure(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("launch exploded")
	_, isLeader, err := Coordinate(context.Background(), coordCfg(t, dir), Ops{
		Attach: func(ctx context.Context) (*stack.Environment, error) {
			return nil, ErrNotRunning
		},
		Launch: func(ctx context.Context) (*stack.Environment, error) {
			return nil, boom
		},
	})
	require.True(t, isLeader)
	require.ErrorIs(t, err, boom)

	// The next caller can claim leadership immediately.
	ok, err := LockFor(dir, "shared").TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCoordinateFollowerPollsUntilAttach(t *testing.T) {
	dir := t.TempDir()
	lock := LockFor(dir, "shared")
	ok, err := lock.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = lock.Release() })

	env := stack.NewEnvironment("shared")
	var attempts atomic.Int32
	got, isLeader, err := Coordinate(context.Background(), coordCfg(t, dir), Ops{
		Attach: func(ctx context.Context) (*stack.Environment, error) {
			// The environment appears after a few polls, as if the real
			// leader finished its launch meanwhile.
			if attempts.Add(1) < 3 {
				return nil, ErrNotRunning
			}
			return env, nil
		},
		Launch: func(ctx context.Context) (*stack.Environment, error) {
			t.Fatal("a follower must never launch")
			return nil, nil
		},
	})
	require.NoError(t, err)
	require.False(t, isLeader)
	require.Same(t, env, got)
	require.GreaterOrEqual(t, attempts.Load(), int32(3))
}

func TestCoordinateFollowerDeadline(t *testing.T) {
	dir := t.TempDir()
	lock := LockFor(dir, "shared")
	ok, err := lock.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = lock.Release() })

	cfg := coordCfg(t, dir)
	cfg.Deadline = 50 * time.Millisecond
	_, isLeader, err := Coordinate(context.Background(), cfg, Ops{
		Attach: func(ctx context.Context) (*stack.Environment, error) {
			return nil, ErrNotRunning
		},
		Launch: func(ctx context.Context) (*stack.Environment, error) {
			t.Fatal("a follower must never launch")
			return nil, nil
		},
	})
	require.False(t, isLeader)
	var timeoutErr *LockTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, lock.Path, timeoutErr.LockPath)
}

func TestCoordinateFollowerFatalAttachError(t *testing.T) {
	dir := t.TempDir()
	lock := LockFor(dir, "shared")
	ok, err := lock.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = lock.Release() })

	boom := errors.New("descriptor corrupt")
	_, _, err = Coordinate(context.Background(), coordCfg(t, dir), Ops{
		Attach: func(ctx context.Context) (*stack.Environment, error) {
			return nil, boom
		},
	})
	require.ErrorIs(t, err, boom, "non-retryable attach errors fail immediately")
}
