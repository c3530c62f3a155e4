package descriptors

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

func testEnv() *stack.Environment {
	env := stack.NewEnvironment("bridge-shared")
	env.ChainA = stack.ChainEndpoints{Name: "chain-a", RPC: []string{"ws://127.0.0.1:9944"}}
	env.ChainB = stack.ChainEndpoints{Name: "chain-b", RPC: []string{"http://127.0.0.1:8545"}}
	env.AddResource("relayer", stack.Resource{Kind: stack.ResourceProcess, Ref: "4242"})
	return env
}

func TestDescriptorRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(dir, "bridge-shared")
	require.Equal(t, filepath.Join(dir, "bridge-shared.json"), path)

	require.NoError(t, Write(path, FromStack(testEnv())))

	desc, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, "bridge-shared", desc.Name)

	env := desc.ToStack()
	require.Equal(t, stack.EnvID("bridge-shared"), env.ID)
	require.Equal(t, "ws://127.0.0.1:9944", env.ChainA.First())
	require.Equal(t, "http://127.0.0.1:8545", env.ChainB.First())
	r, ok := env.Resource("relayer")
	require.True(t, ok)
	require.Equal(t, "4242", r.Ref)
}

func TestAttachedEnvironmentOwnsNoCleanup(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(dir, "bridge-shared")
	require.NoError(t, Write(path, FromStack(testEnv())))

	desc, err := Read(path)
	require.NoError(t, err)
	// Cleaning up an attached environment is a no-op: the attaching process
	// does not own the resources.
	require.NoError(t, desc.ToStack().Cleanup(context.Background()))
}

func TestWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(dir, "bridge-shared")
	require.NoError(t, Write(path, FromStack(testEnv())))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "bridge-shared.json", entries[0].Name())
}

func TestReadMissing(t *testing.T) {
	_, err := Read(PathFor(t.TempDir(), "nope"))
	require.True(t, os.IsNotExist(err))
}

func TestReadCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(dir, "bad")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Read(path)
	require.ErrorContains(t, err, "parse")
}

func TestRemoveMissingIsFine(t *testing.T) {
	require.NoError(t, Remove(PathFor(t.TempDir(), "nope")))
}
