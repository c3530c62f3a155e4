package procsup

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/bridge-service/testlog"
)

func TestSpawnCapturesOutputAndExit(t *testing.T) {
	sup := New(testlog.Logger(t, log.LevelInfo))
	var out bytes.Buffer

	proc, err := sup.Spawn(context.Background(), "echoer", &out, nil, "sh", "-c", "echo hello")
	require.NoError(t, err)
	require.NoError(t, proc.Wait())
	require.Contains(t, out.String(), "hello")
	require.True(t, proc.Exited())
}

func TestSpawnReportsExitFailure(t *testing.T) {
	sup := New(testlog.Logger(t, log.LevelInfo))
	proc, err := sup.Spawn(context.Background(), "failer", os.Stdout, nil, "sh", "-c", "exit 7")
	require.NoError(t, err)
	require.Error(t, proc.Wait())
}

func TestSpawnExtraEnv(t *testing.T) {
	sup := New(testlog.Logger(t, log.LevelInfo))
	var out bytes.Buffer
	proc, err := sup.Spawn(context.Background(), "env", &out, []string{"HARNESS_MARKER=yes"},
		"sh", "-c", "echo marker=$HARNESS_MARKER")
	require.NoError(t, err)
	require.NoError(t, proc.Wait())
	require.Contains(t, out.String(), "marker=yes")
}

func TestTerminateKillsProcessTree(t *testing.T) {
	sup := New(testlog.Logger(t, log.LevelInfo))
	var out bytes.Buffer

	// The shell spawns its own child, so termination must take down a tree.
	proc, err := sup.Spawn(context.Background(), "tree", &out, nil, "sh", "-c", "sleep 600 & wait")
	require.NoError(t, err)
	pid := proc.Pid()

	require.Eventually(t, func() bool {
		return len(Descendants(pid)) > 0
	}, 10*time.Second, 10*time.Millisecond, "the shell should have spawned its child")

	sup.Terminate(context.Background(), pid, time.Second)

	require.Eventually(t, func() bool {
		return !Alive(pid) && len(Descendants(pid)) == 0
	}, 10*time.Second, 10*time.Millisecond, "the full tree must be gone")
	require.Empty(t, sup.Tracked())
}

func TestTerminateAll(t *testing.T) {
	sup := New(testlog.Logger(t, log.LevelInfo))
	var out bytes.Buffer

	for i := 0; i < 3; i++ {
		_, err := sup.Spawn(context.Background(), "sleeper", &out, nil, "sleep", "600")
		require.NoError(t, err)
	}
	require.Len(t, sup.Tracked(), 3)

	sup.TerminateAll(context.Background(), time.Second)
	require.Empty(t, sup.Tracked())
	for _, pid := range sup.Tracked() {
		require.False(t, Alive(pid))
	}
}

func TestFindByEnv(t *testing.T) {
	sup := New(testlog.Logger(t, log.LevelInfo))
	var out bytes.Buffer

	marker := "BRIDGE_TEST_MARKER=find-by-env"
	proc, err := sup.Spawn(context.Background(), "marked", &out, []string{marker}, "sleep", "600")
	require.NoError(t, err)
	defer sup.Terminate(context.Background(), proc.Pid(), time.Second)

	require.Eventually(t, func() bool {
		pids, err := FindByEnv(context.Background(), marker)
		if err != nil {
			return false
		}
		for _, pid := range pids {
			if pid == proc.Pid() {
				return true
			}
		}
		return false
	}, 10*time.Second, 50*time.Millisecond)
}

func TestAliveOnReapedChild(t *testing.T) {
	sup := New(testlog.Logger(t, log.LevelInfo))
	proc, err := sup.Spawn(context.Background(), "short", os.Stdout, nil, "true")
	require.NoError(t, err)
	require.NoError(t, proc.Wait())

	// Background reaping prevents the exited child from lingering as a
	// zombie that still counts as alive.
	require.Eventually(t, func() bool {
		return !Alive(proc.Pid())
	}, 10*time.Second, 10*time.Millisecond)
}
